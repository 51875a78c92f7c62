package workflow

import (
	"errors"
	"testing"
	"time"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
)

var (
	now       = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	buyer     = models.Actor{UserID: "buyer-1", Role: models.RoleBuyer}
	seller    = models.Actor{UserID: "seller-1", Role: models.RoleSeller}
	inspector = models.Actor{UserID: "insp-1", Role: models.RoleInspector}
	rival     = models.Actor{UserID: "insp-2", Role: models.RoleInspector}
	admin     = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

func newRequest(t *testing.T) models.InspectionRequest {
	t.Helper()
	car := models.Car{ID: "car-1", SellerID: seller.UserID, Status: models.ListingPublished}
	req, err := NewRequest(car, buyer, CreateParams{Now: now, Sequence: 1, CostCents: 5000, PaymentMethod: "Cash on Delivery"})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func acceptPayload() Payload {
	return Payload{Now: now, ScheduledDate: now.AddDate(0, 0, 2), TimeSlot: "10:00-12:00"}
}

func TestHappyPath(t *testing.T) {
	req := newRequest(t)
	if req.ID != "INS-20261016-00001" {
		t.Fatalf("unexpected id %s", req.ID)
	}
	if req.Status != models.InspectionRequested || req.SellerID != seller.UserID {
		t.Fatalf("unexpected new request %+v", req)
	}

	steps := []struct {
		ev    Event
		actor models.Actor
		p     Payload
		want  models.InspectionStatus
	}{
		{EventAccept, seller, acceptPayload(), models.InspectionScheduled},
		{EventSelfAssign, inspector, Payload{Now: now}, models.InspectionAssigned},
		{EventStart, inspector, Payload{Now: now}, models.InspectionInProgress},
		{EventSubmitReport, inspector, Payload{Now: now}, models.InspectionCompleted},
	}
	for _, step := range steps {
		next, err := Apply(req, step.ev, step.actor, step.p)
		if err != nil {
			t.Fatalf("%s: %v", step.ev, err)
		}
		if next.Status != step.want {
			t.Fatalf("%s: status %s, want %s", step.ev, next.Status, step.want)
		}
		req = next
	}

	if req.TimeSlot != "10:00-12:00" || req.ScheduledDate == nil {
		t.Fatalf("schedule not recorded: %+v", req)
	}
	if !req.InspectedBy(inspector.UserID) {
		t.Fatalf("inspector not recorded: %+v", req)
	}
	if req.ID != "INS-20261016-00001" {
		t.Fatalf("id changed to %s", req.ID)
	}
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	statuses := []models.InspectionStatus{
		models.InspectionRequested, models.InspectionAccepted, models.InspectionRejected,
		models.InspectionScheduled, models.InspectionAssigned, models.InspectionInProgress,
		models.InspectionCompleted,
	}
	events := []Event{EventAccept, EventReject, EventSelfAssign, EventStart, EventSubmitReport}
	actors := map[Event]models.Actor{
		EventAccept:       seller,
		EventReject:       seller,
		EventSelfAssign:   rival,
		EventStart:        inspector,
		EventSubmitReport: inspector,
	}

	for _, status := range statuses {
		for _, ev := range events {
			req := newRequest(t)
			req.Status = status
			if ev == EventStart || ev == EventSubmitReport {
				id := inspector.UserID
				req.InspectorID = &id
			}

			next, err := Apply(req, ev, actors[ev], acceptPayload())
			if Allowed(status, ev) {
				if err != nil {
					t.Fatalf("%s from %s: unexpected error %v", ev, status, err)
				}
				if next.Status != transitions[status][ev] {
					t.Fatalf("%s from %s: got %s", ev, status, next.Status)
				}
				continue
			}
			if err == nil {
				t.Fatalf("%s from %s: expected failure, got %s", ev, status, next.Status)
			}
			if next.Status != status {
				t.Fatalf("%s from %s: failed transition changed status to %s", ev, status, next.Status)
			}
		}
	}
}

func TestRejectionIsTerminal(t *testing.T) {
	req := newRequest(t)
	rejected, err := Apply(req, EventReject, seller, Payload{Now: now, Reason: "car already sold"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.InspectionRejected || rejected.RejectionReason != "car already sold" {
		t.Fatalf("unexpected rejected request %+v", rejected)
	}

	attempts := []struct {
		ev    Event
		actor models.Actor
	}{
		{EventAccept, seller},
		{EventReject, seller},
		{EventSelfAssign, inspector},
		{EventStart, inspector},
		{EventSubmitReport, inspector},
	}
	for _, a := range attempts {
		if _, err := Apply(rejected, a.ev, a.actor, acceptPayload()); err == nil {
			t.Fatalf("%s succeeded on a rejected request", a.ev)
		}
	}
}

func TestPermissionFailures(t *testing.T) {
	req := newRequest(t)

	if _, err := Apply(req, EventAccept, buyer, acceptPayload()); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("buyer accept: expected permission denied, got %v", err)
	}
	other := models.Actor{UserID: "seller-2", Role: models.RoleSeller}
	if _, err := Apply(req, EventReject, other, Payload{Now: now}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("foreign seller reject: expected permission denied, got %v", err)
	}

	scheduled, err := Apply(req, EventAccept, seller, acceptPayload())
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := Apply(scheduled, EventSelfAssign, buyer, Payload{Now: now}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("buyer self-assign: expected permission denied, got %v", err)
	}
	assigned, err := Apply(scheduled, EventSelfAssign, inspector, Payload{Now: now})
	if err != nil {
		t.Fatalf("self-assign: %v", err)
	}
	if _, err := Apply(assigned, EventStart, rival, Payload{Now: now}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("rival start: expected permission denied, got %v", err)
	}
}

func TestSelfAssignWhenTaken(t *testing.T) {
	req := newRequest(t)
	scheduled, err := Apply(req, EventAccept, seller, acceptPayload())
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	assigned, err := Apply(scheduled, EventSelfAssign, inspector, Payload{Now: now})
	if err != nil {
		t.Fatalf("self-assign: %v", err)
	}
	if _, err := Apply(assigned, EventSelfAssign, rival, Payload{Now: now}); !errors.Is(err, apperr.ErrAlreadyAssigned) {
		t.Fatalf("expected already assigned, got %v", err)
	}
}

func TestAcceptValidation(t *testing.T) {
	req := newRequest(t)
	tests := []struct {
		name string
		p    Payload
	}{
		{"past date", Payload{Now: now, ScheduledDate: now.AddDate(0, 0, -1), TimeSlot: "10:00-12:00"}},
		{"same day", Payload{Now: now, ScheduledDate: now.Add(3 * time.Hour), TimeSlot: "10:00-12:00"}},
		{"missing date", Payload{Now: now, TimeSlot: "10:00-12:00"}},
		{"unknown slot", Payload{Now: now, ScheduledDate: now.AddDate(0, 0, 2), TimeSlot: "07:00-08:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Apply(req, EventAccept, seller, tt.p)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if next.Status != models.InspectionRequested {
				t.Fatalf("status changed to %s", next.Status)
			}
		})
	}

	tomorrow := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	next, err := Apply(req, EventAccept, seller, Payload{Now: now, ScheduledDate: tomorrow, TimeSlot: "08:00-10:00"})
	if err != nil {
		t.Fatalf("tomorrow should be accepted: %v", err)
	}
	if !next.ScheduledDate.Equal(tomorrow) {
		t.Fatalf("scheduled date %v, want %v", next.ScheduledDate, tomorrow)
	}
}

func TestAdminReassign(t *testing.T) {
	target := &models.User{ID: rival.UserID, Role: models.RoleInspector}

	for _, status := range []models.InspectionStatus{
		models.InspectionRequested, models.InspectionScheduled, models.InspectionInProgress,
		models.InspectionCompleted, models.InspectionRejected,
	} {
		req := newRequest(t)
		req.Status = status
		id := inspector.UserID
		req.InspectorID = &id

		next, err := Apply(req, EventReassign, admin, Payload{Now: now, Inspector: target})
		if err != nil {
			t.Fatalf("reassign from %s: %v", status, err)
		}
		if next.Status != models.InspectionAssigned || !next.InspectedBy(rival.UserID) {
			t.Fatalf("reassign from %s: got %+v", status, next)
		}
	}

	req := newRequest(t)
	if _, err := Apply(req, EventReassign, seller, Payload{Now: now, Inspector: target}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("seller reassign: expected permission denied, got %v", err)
	}
	notInspector := &models.User{ID: "buyer-9", Role: models.RoleBuyer}
	if _, err := Apply(req, EventReassign, admin, Payload{Now: now, Inspector: notInspector}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("reassign to buyer: expected validation error, got %v", err)
	}
	if _, err := Apply(req, EventReassign, admin, Payload{Now: now}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("reassign without target: expected validation error, got %v", err)
	}
}

func TestNewRequestGuards(t *testing.T) {
	car := models.Car{ID: "car-1", SellerID: seller.UserID}
	params := CreateParams{Now: now, Sequence: 3}

	if _, err := NewRequest(car, seller, params); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("seller request: expected permission denied, got %v", err)
	}
	if _, err := NewRequest(car, models.Actor{UserID: seller.UserID, Role: models.RoleBuyer}, params); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("own car: expected permission denied, got %v", err)
	}
	if _, err := NewRequest(car, inspector, params); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("inspector request: expected permission denied, got %v", err)
	}
	req, err := NewRequest(car, buyer, params)
	if err != nil {
		t.Fatalf("buyer request: %v", err)
	}
	if req.ID != "INS-20261016-00003" {
		t.Fatalf("unexpected id %s", req.ID)
	}
}
