// Package memory is an in-process implementation of repository.Store used by
// tests. A single mutex serialises every unit of work, so transactions
// observe the same isolation as row locks would give.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
)

type state struct {
	users       map[string]models.User
	sessions    map[string]models.Session
	cars        map[string]models.Car
	viewers     map[string]map[string]struct{}
	inspections map[string]models.InspectionRequest
	sequences   map[string]int
	reports     map[string]models.InspectionReport // keyed by inspection id
	photos      map[string][]models.Photo          // keyed by report id
}

func newState() *state {
	return &state{
		users:       map[string]models.User{},
		sessions:    map[string]models.Session{},
		cars:        map[string]models.Car{},
		viewers:     map[string]map[string]struct{}{},
		inspections: map[string]models.InspectionRequest{},
		sequences:   map[string]int{},
		reports:     map[string]models.InspectionReport{},
		photos:      map[string][]models.Photo{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.sessions {
		out.sessions[k] = v
	}
	for k, v := range s.cars {
		out.cars[k] = v
	}
	for k, v := range s.viewers {
		set := make(map[string]struct{}, len(v))
		for id := range v {
			set[id] = struct{}{}
		}
		out.viewers[k] = set
	}
	for k, v := range s.inspections {
		out.inspections[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	for k, v := range s.reports {
		out.reports[k] = v
	}
	for k, v := range s.photos {
		out.photos[k] = append([]models.Photo(nil), v...)
	}
	return out
}

type Store struct {
	mu    sync.Mutex
	data  *state
	clock func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newState(), clock: time.Now}
}

// WithClock sets the time source used for the timestamps the SQL store
// fills with NOW().
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// WithTx runs fn under the store lock. Every write fn makes is discarded if
// it returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(scope{s: s, locked: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Users() repository.Users             { return users{scope{s: s}} }
func (s *Store) Sessions() repository.Sessions       { return sessions{scope{s: s}} }
func (s *Store) Cars() repository.Cars               { return cars{scope{s: s}} }
func (s *Store) Inspections() repository.Inspections { return inspections{scope{s: s}} }
func (s *Store) Reports() repository.Reports         { return reports{scope{s: s}} }

// scope binds repositories to the store. Inside WithTx the lock is already
// held and locked is true.
type scope struct {
	s      *Store
	locked bool
}

func (sc scope) Users() repository.Users             { return users{sc} }
func (sc scope) Sessions() repository.Sessions       { return sessions{sc} }
func (sc scope) Cars() repository.Cars               { return cars{sc} }
func (sc scope) Inspections() repository.Inspections { return inspections{sc} }
func (sc scope) Reports() repository.Reports         { return reports{sc} }

func (sc scope) enter() (*state, func()) {
	if sc.locked {
		return sc.s.data, func() {}
	}
	sc.s.mu.Lock()
	return sc.s.data, sc.s.mu.Unlock
}

func (sc scope) now() time.Time {
	return sc.s.clock()
}

func page[T any](items []T, limit, offset int) []T {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// deleteCar removes a car along with its viewers, inspections and reports.
func (st *state) deleteCar(id string) {
	delete(st.cars, id)
	delete(st.viewers, id)
	for reqID, req := range st.inspections {
		if req.CarID == id {
			st.deleteInspection(reqID)
		}
	}
}

func (st *state) deleteInspection(id string) {
	delete(st.inspections, id)
	if rep, ok := st.reports[id]; ok {
		delete(st.photos, rep.ID)
		delete(st.reports, id)
	}
}

// deleteUser mirrors the foreign key actions of the SQL schema.
func (st *state) deleteUser(id string) {
	delete(st.users, id)
	for sid, sess := range st.sessions {
		if sess.UserID == id {
			delete(st.sessions, sid)
		}
	}
	for carID, car := range st.cars {
		if car.SellerID == id {
			st.deleteCar(carID)
		}
	}
	for carID, set := range st.viewers {
		delete(set, id)
		if len(set) == 0 {
			delete(st.viewers, carID)
		}
	}
	for reqID, req := range st.inspections {
		switch {
		case req.BuyerID == id || req.SellerID == id:
			st.deleteInspection(reqID)
		case req.InspectedBy(id):
			req.InspectorID = nil
			st.inspections[reqID] = req
		}
	}
}

func sortByTimeDesc[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}
