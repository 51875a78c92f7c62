package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/config"
	"wheeldeals/internal/events"
	"wheeldeals/internal/models"
	"wheeldeals/internal/policy"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/workflow"
)

type InspectionService struct {
	clock
	store  repository.Store
	events events.Publisher
	cfg    config.InspectionConfig
	log    zerolog.Logger
}

func NewInspectionService(store repository.Store, pub events.Publisher, cfg config.InspectionConfig, log zerolog.Logger) *InspectionService {
	return &InspectionService{
		store:  store,
		events: pub,
		cfg:    cfg,
		log:    log,
	}
}

func (s *InspectionService) cutoff(now time.Time) time.Time {
	return workflow.CooldownCutoff(now, s.cfg.Cooldown)
}

// CanRequest reports whether actor may open a new inspection request for the
// car right now. A buyer who asked for the same car within the cooldown
// window may not, whatever became of that request.
func (s *InspectionService) CanRequest(ctx context.Context, actor models.Actor, carID string) (bool, error) {
	car, err := s.visibleCar(ctx, s.store, actor, carID)
	if err != nil {
		return false, err
	}
	if workflow.CheckRequester(car, actor) != nil {
		return false, nil
	}
	recent, err := s.store.Inspections().ExistsSince(ctx, car.ID, actor.UserID, s.cutoff(s.Now()))
	if err != nil {
		return false, err
	}
	return !recent, nil
}

// Request opens a new inspection request. The car row is locked for the
// duration so the cooldown check and the insert cannot interleave with a
// second request from the same buyer.
func (s *InspectionService) Request(ctx context.Context, actor models.Actor, carID string) (models.InspectionRequest, error) {
	now := s.Now()

	var req models.InspectionRequest
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		car, err := tx.Cars().GetForUpdate(ctx, carID)
		if err != nil {
			return err
		}
		if !policy.CanPerform(actor, policy.ViewListing, policy.Resource{Car: &car}) {
			return repository.ErrCarNotFound
		}
		if err := workflow.CheckRequester(car, actor); err != nil {
			return err
		}

		recent, err := tx.Inspections().ExistsSince(ctx, car.ID, actor.UserID, s.cutoff(now))
		if err != nil {
			return err
		}
		if recent {
			return apperr.Cooldown("you already requested an inspection for this car in the last %d days", int(s.window()/(24*time.Hour)))
		}

		seq, err := tx.Inspections().NextSequence(ctx, workflow.DayKey(now))
		if err != nil {
			return err
		}
		req, err = workflow.NewRequest(car, actor, workflow.CreateParams{
			Now:           now,
			Sequence:      seq,
			CostCents:     s.cfg.CostCents,
			PaymentMethod: s.cfg.PaymentMethod,
		})
		if err != nil {
			return err
		}
		return tx.Inspections().Create(ctx, req)
	})
	if err != nil {
		return models.InspectionRequest{}, err
	}

	s.log.Info().
		Str("inspection_id", req.ID).
		Str("car_id", req.CarID).
		Str("actor_id", actor.UserID).
		Msg("inspection requested")
	publish(ctx, s.events, s.log, events.Event{
		Type:         events.InspectionCreated,
		InspectionID: req.ID,
		CarID:        req.CarID,
		ActorID:      actor.UserID,
		To:           string(req.Status),
		At:           now,
	})
	return req, nil
}

func (s *InspectionService) window() time.Duration {
	if s.cfg.Cooldown > 0 {
		return s.cfg.Cooldown
	}
	return workflow.Cooldown
}

// Accept schedules the request for the given day and slot.
func (s *InspectionService) Accept(ctx context.Context, actor models.Actor, id string, date time.Time, slot models.TimeSlot) (models.InspectionRequest, error) {
	return s.transition(ctx, actor, id, workflow.EventAccept, workflow.Payload{ScheduledDate: date, TimeSlot: slot}, events.InspectionScheduled)
}

func (s *InspectionService) Reject(ctx context.Context, actor models.Actor, id string, reason string) (models.InspectionRequest, error) {
	return s.transition(ctx, actor, id, workflow.EventReject, workflow.Payload{Reason: strings.TrimSpace(reason)}, events.InspectionRejected)
}

// SelfAssign lets an inspector pick up scheduled work. Of two inspectors
// racing for one request exactly one wins; the other gets AlreadyAssigned.
func (s *InspectionService) SelfAssign(ctx context.Context, actor models.Actor, id string) (models.InspectionRequest, error) {
	req, err := s.transition(ctx, actor, id, workflow.EventSelfAssign, workflow.Payload{}, events.InspectionAssigned)
	if errors.Is(err, apperr.ErrConcurrentModification) {
		return models.InspectionRequest{}, apperr.AlreadyAssigned("inspection %s has already been assigned", id)
	}
	return req, err
}

func (s *InspectionService) Start(ctx context.Context, actor models.Actor, id string) (models.InspectionRequest, error) {
	return s.transition(ctx, actor, id, workflow.EventStart, workflow.Payload{}, events.InspectionStarted)
}

// Reassign is the admin override that hands the request to inspectorID from
// any status.
func (s *InspectionService) Reassign(ctx context.Context, actor models.Actor, id string, inspectorID string) (models.InspectionRequest, error) {
	if !policy.CanPerform(actor, policy.ReassignInspector, policy.Resource{}) {
		return models.InspectionRequest{}, apperr.Denied("only admins can reassign inspections")
	}
	var target *models.User
	load := func(tx repository.Tx) error {
		u, err := tx.Users().GetByID(ctx, inspectorID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Invalid("inspector %s does not exist", inspectorID)
			}
			return err
		}
		target = &u
		return nil
	}
	return s.apply(ctx, actor, id, workflow.EventReassign, load, func() workflow.Payload {
		return workflow.Payload{Inspector: target}
	}, events.InspectionReassigned)
}

func (s *InspectionService) transition(ctx context.Context, actor models.Actor, id string, ev workflow.Event, p workflow.Payload, evType events.Type) (models.InspectionRequest, error) {
	return s.apply(ctx, actor, id, ev, nil, func() workflow.Payload { return p }, evType)
}

// apply runs one workflow event as a locked read-modify-write. prepare, when
// set, runs inside the transaction before the payload is built.
func (s *InspectionService) apply(
	ctx context.Context,
	actor models.Actor,
	id string,
	ev workflow.Event,
	prepare func(tx repository.Tx) error,
	payload func() workflow.Payload,
	evType events.Type,
) (models.InspectionRequest, error) {
	now := s.Now()

	var prev, next models.InspectionRequest
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.Inspections().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if prepare != nil {
			if err := prepare(tx); err != nil {
				return err
			}
		}
		p := payload()
		p.Now = now
		out, err := workflow.Apply(cur, ev, actor, p)
		if err != nil {
			return err
		}
		if err := tx.Inspections().Update(ctx, out, cur); err != nil {
			return err
		}
		prev, next = cur, out
		return nil
	})
	if err != nil {
		if apperr.Expected(err) {
			s.log.Debug().Err(err).Str("inspection_id", id).Str("event", string(ev)).Str("actor_id", actor.UserID).Msg("transition refused")
		}
		return models.InspectionRequest{}, err
	}

	s.logTransition(actor, prev, next)
	publish(ctx, s.events, s.log, transitionEvent(evType, actor, prev, next))
	return next, nil
}

func (s *InspectionService) logTransition(actor models.Actor, prev, next models.InspectionRequest) {
	s.log.Info().
		Str("inspection_id", next.ID).
		Str("from", string(prev.Status)).
		Str("to", string(next.Status)).
		Str("actor_id", actor.UserID).
		Msg("inspection transition")
}

func transitionEvent(t events.Type, actor models.Actor, prev, next models.InspectionRequest) events.Event {
	e := events.Event{
		Type:         t,
		InspectionID: next.ID,
		CarID:        next.CarID,
		ActorID:      actor.UserID,
		From:         string(prev.Status),
		To:           string(next.Status),
		At:           next.UpdatedAt,
	}
	switch {
	case next.Status == models.InspectionRejected:
		e.Detail = next.RejectionReason
	case next.Assigned():
		e.Detail = *next.InspectorID
	}
	return e
}

// Get returns a request the actor is allowed to see.
func (s *InspectionService) Get(ctx context.Context, actor models.Actor, id string) (models.InspectionRequest, error) {
	req, err := s.store.Inspections().Get(ctx, id)
	if err != nil {
		return models.InspectionRequest{}, err
	}
	if !policy.CanPerform(actor, policy.ViewInspection, policy.Resource{Inspection: &req}) {
		return models.InspectionRequest{}, apperr.Denied("you cannot view inspection %s", id)
	}
	return req, nil
}

// ListMine is the role specific dashboard: a buyer sees their requests, a
// seller the requests on their listings, an inspector their assignments and
// an admin everything.
func (s *InspectionService) ListMine(ctx context.Context, actor models.Actor, status models.InspectionStatus) ([]models.InspectionRequest, error) {
	filter := models.InspectionFilter{Status: status, Limit: 200}
	switch {
	case actor.Is(models.RoleBuyer):
		filter.BuyerID = actor.UserID
	case actor.Is(models.RoleSeller):
		filter.SellerID = actor.UserID
	case actor.Is(models.RoleInspector):
		filter.InspectorID = actor.UserID
	case policy.CanPerform(actor, policy.OverseeInspections, policy.Resource{}):
	default:
		return nil, apperr.Denied("sign in to see inspections")
	}
	return s.store.Inspections().List(ctx, filter)
}

// ListPool returns scheduled requests nobody has picked up yet.
func (s *InspectionService) ListPool(ctx context.Context, actor models.Actor) ([]models.InspectionRequest, error) {
	if !actor.Is(models.RoleInspector) || actor.IsGuest {
		return nil, apperr.Denied("only inspectors can see the inspection pool")
	}
	return s.store.Inspections().List(ctx, models.InspectionFilter{
		Status:     models.InspectionScheduled,
		Unassigned: true,
		Limit:      200,
	})
}

// ListAll is the admin oversight listing across every status.
func (s *InspectionService) ListAll(ctx context.Context, actor models.Actor, filter models.InspectionFilter) ([]models.InspectionRequest, error) {
	if !policy.CanPerform(actor, policy.OverseeInspections, policy.Resource{}) {
		return nil, apperr.Denied("only admins can oversee inspections")
	}
	return s.store.Inspections().List(ctx, filter)
}

// CompletedForCar lists finished inspections of a listing the actor can see.
func (s *InspectionService) CompletedForCar(ctx context.Context, actor models.Actor, carID string) ([]models.InspectionRequest, error) {
	if _, err := s.visibleCar(ctx, s.store, actor, carID); err != nil {
		return nil, err
	}
	return s.store.Inspections().List(ctx, models.InspectionFilter{
		CarID:  carID,
		Status: models.InspectionCompleted,
		Limit:  200,
	})
}

func (s *InspectionService) visibleCar(ctx context.Context, tx repository.Tx, actor models.Actor, carID string) (models.Car, error) {
	car, err := tx.Cars().GetByID(ctx, carID)
	if err != nil {
		return models.Car{}, err
	}
	if !policy.CanPerform(actor, policy.ViewListing, policy.Resource{Car: &car}) {
		return models.Car{}, repository.ErrCarNotFound
	}
	return car, nil
}
