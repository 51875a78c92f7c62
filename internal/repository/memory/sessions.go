package memory

import (
	"bytes"
	"context"
	"time"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
)

type sessions struct{ scope }

func (r sessions) Create(_ context.Context, session models.Session) error {
	st, done := r.enter()
	defer done()

	now := r.now()
	session.CreatedAt = now
	session.LastSeenAt = now
	for id, s := range st.sessions {
		if s.UserID == session.UserID && s.DeviceID == session.DeviceID {
			session.CreatedAt = s.CreatedAt
			delete(st.sessions, id)
		}
	}
	st.sessions[session.ID] = session
	return nil
}

func (r sessions) GetByID(_ context.Context, id string) (models.Session, error) {
	st, done := r.enter()
	defer done()

	s, ok := st.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (r sessions) FindByRefreshHash(_ context.Context, userID string, refreshHash []byte) (models.Session, error) {
	st, done := r.enter()
	defer done()

	for _, s := range st.sessions {
		if s.UserID == userID && bytes.Equal(s.RefreshTokenHash, refreshHash) {
			return s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (r sessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	st, done := r.enter()
	defer done()

	var out []models.Session
	for _, s := range st.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sortByTimeDesc(out, func(s models.Session) time.Time { return s.LastSeenAt })
	return out, nil
}

func (r sessions) CountByUser(_ context.Context, userID string) (int, error) {
	st, done := r.enter()
	defer done()

	n := 0
	for _, s := range st.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r sessions) DeleteOldestSessions(_ context.Context, userID string, keepLatest int) error {
	st, done := r.enter()
	defer done()

	var mine []models.Session
	for _, s := range st.sessions {
		if s.UserID == userID {
			mine = append(mine, s)
		}
	}
	sortByTimeDesc(mine, func(s models.Session) time.Time { return s.LastSeenAt })
	if keepLatest < 0 {
		keepLatest = 0
	}
	for i := keepLatest; i < len(mine); i++ {
		delete(st.sessions, mine[i].ID)
	}
	return nil
}

func (r sessions) DeleteByID(_ context.Context, id string) error {
	st, done := r.enter()
	defer done()

	if _, ok := st.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (r sessions) DeleteByDevice(_ context.Context, userID string, deviceID string) error {
	st, done := r.enter()
	defer done()

	for id, s := range st.sessions {
		if s.UserID == userID && s.DeviceID == deviceID {
			delete(st.sessions, id)
		}
	}
	return nil
}

func (r sessions) Touch(_ context.Context, sessionID string, ip string, userAgent string) error {
	st, done := r.enter()
	defer done()

	s, ok := st.sessions[sessionID]
	if !ok {
		return nil
	}
	s.LastSeenAt = r.now()
	if ip != "" {
		s.IPAddress = ip
	}
	if userAgent != "" {
		s.UserAgent = userAgent
	}
	st.sessions[sessionID] = s
	return nil
}
