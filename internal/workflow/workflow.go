// Package workflow is the inspection request state machine. It is pure: it
// takes the current request, an event, the acting user and the event payload
// and returns the next request or a typed failure. Persistence and locking are
// the caller's job.
package workflow

import (
	"time"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
	"wheeldeals/internal/policy"
)

type Event string

const (
	EventAccept       Event = "accept"
	EventReject       Event = "reject"
	EventSelfAssign   Event = "self_assign"
	EventStart        Event = "start"
	EventSubmitReport Event = "submit_report"
	EventReassign     Event = "reassign"
)

var transitions = map[models.InspectionStatus]map[Event]models.InspectionStatus{
	models.InspectionRequested: {
		EventAccept: models.InspectionScheduled,
		EventReject: models.InspectionRejected,
	},
	models.InspectionScheduled: {
		EventSelfAssign: models.InspectionAssigned,
	},
	models.InspectionAssigned: {
		EventStart:        models.InspectionInProgress,
		EventSubmitReport: models.InspectionCompleted,
	},
	models.InspectionInProgress: {
		EventSubmitReport: models.InspectionCompleted,
	},
}

var operations = map[Event]policy.Operation{
	EventAccept:       policy.AcceptInspection,
	EventReject:       policy.RejectInspection,
	EventSelfAssign:   policy.SelfAssign,
	EventStart:        policy.StartInspection,
	EventSubmitReport: policy.SubmitReport,
	EventReassign:     policy.ReassignInspector,
}

// Payload carries the event specific input.
type Payload struct {
	Now           time.Time
	ScheduledDate time.Time
	TimeSlot      models.TimeSlot
	Reason        string
	// Inspector is the reassignment target for EventReassign.
	Inspector *models.User
}

type guardFn func(req models.InspectionRequest, p Payload) error

var guards = map[Event]guardFn{
	EventAccept: func(_ models.InspectionRequest, p Payload) error {
		if !p.TimeSlot.Valid() {
			return apperr.Invalid("unknown time slot %q", p.TimeSlot)
		}
		return ValidateScheduleDate(p.ScheduledDate, p.Now)
	},
}

type effectFn func(req *models.InspectionRequest, actor models.Actor, p Payload)

var effects = map[Event]effectFn{
	EventAccept: func(req *models.InspectionRequest, _ models.Actor, p Payload) {
		date := dateOf(p.ScheduledDate)
		req.ScheduledDate = &date
		req.TimeSlot = p.TimeSlot
	},
	EventReject: func(req *models.InspectionRequest, _ models.Actor, p Payload) {
		req.RejectionReason = p.Reason
	},
	EventSelfAssign: func(req *models.InspectionRequest, actor models.Actor, _ Payload) {
		id := actor.UserID
		req.InspectorID = &id
	},
}

// Allowed reports whether the table has an edge for ev out of status.
// The admin reassignment is not part of the table.
func Allowed(status models.InspectionStatus, ev Event) bool {
	_, ok := transitions[status][ev]
	return ok
}

// Apply validates and performs one transition. On failure req is returned
// unchanged alongside the error.
func Apply(req models.InspectionRequest, ev Event, actor models.Actor, p Payload) (models.InspectionRequest, error) {
	op, ok := operations[ev]
	if !ok {
		return req, apperr.Invalid("unknown workflow event %q", ev)
	}
	if !policy.CanPerform(actor, op, policy.Resource{Inspection: &req}) {
		return req, apperr.Denied("%s is not allowed on inspection %s", ev, req.ID)
	}

	if ev == EventReassign {
		return reassign(req, p)
	}
	if ev == EventSelfAssign && req.Assigned() {
		return req, apperr.AlreadyAssigned("inspection %s has already been assigned", req.ID)
	}

	next, ok := transitions[req.Status][ev]
	if !ok {
		return req, apperr.InvalidState("cannot %s inspection %s while %s", ev, req.ID, req.Status)
	}
	if guard, ok := guards[ev]; ok {
		if err := guard(req, p); err != nil {
			return req, err
		}
	}

	out := req
	out.Status = next
	if effect, ok := effects[ev]; ok {
		effect(&out, actor, p)
	}
	out.UpdatedAt = p.Now
	return out, nil
}

// reassign is the administrative escape hatch: it ignores the current status
// and any existing assignment.
func reassign(req models.InspectionRequest, p Payload) (models.InspectionRequest, error) {
	if p.Inspector == nil {
		return req, apperr.Invalid("an inspector must be selected")
	}
	if p.Inspector.Role != models.RoleInspector || p.Inspector.IsGuest {
		return req, apperr.Invalid("user %s is not an inspector", p.Inspector.ID)
	}
	out := req
	id := p.Inspector.ID
	out.InspectorID = &id
	out.Status = models.InspectionAssigned
	out.UpdatedAt = p.Now
	return out, nil
}
