package models

import "time"

type InspectionStatus string

const (
	InspectionRequested  InspectionStatus = "requested"
	InspectionAccepted   InspectionStatus = "accepted"
	InspectionRejected   InspectionStatus = "rejected"
	InspectionScheduled  InspectionStatus = "scheduled"
	InspectionAssigned   InspectionStatus = "assigned"
	InspectionInProgress InspectionStatus = "in_progress"
	InspectionCompleted  InspectionStatus = "completed"
)

func (s InspectionStatus) Valid() bool {
	switch s {
	case InspectionRequested, InspectionAccepted, InspectionRejected, InspectionScheduled,
		InspectionAssigned, InspectionInProgress, InspectionCompleted:
		return true
	}
	return false
}

// Terminal reports whether no ordinary transition leaves the status.
func (s InspectionStatus) Terminal() bool {
	return s == InspectionRejected || s == InspectionCompleted
}

type TimeSlot string

var timeSlots = []struct {
	slot  TimeSlot
	label string
}{
	{"08:00-10:00", "8:00 AM - 10:00 AM"},
	{"10:00-12:00", "10:00 AM - 12:00 PM"},
	{"12:00-14:00", "12:00 PM - 2:00 PM"},
	{"14:00-16:00", "2:00 PM - 4:00 PM"},
	{"16:00-18:00", "4:00 PM - 6:00 PM"},
}

func TimeSlots() []TimeSlot {
	out := make([]TimeSlot, 0, len(timeSlots))
	for _, s := range timeSlots {
		out = append(out, s.slot)
	}
	return out
}

func (t TimeSlot) Valid() bool {
	return t.Label() != ""
}

// Label returns the human readable range, or "" for an unknown slot.
func (t TimeSlot) Label() string {
	for _, s := range timeSlots {
		if s.slot == t {
			return s.label
		}
	}
	return ""
}

type InspectionRequest struct {
	ID              string
	CarID           string
	BuyerID         string
	SellerID        string
	InspectorID     *string
	Status          InspectionStatus
	RequestedAt     time.Time
	ScheduledDate   *time.Time
	TimeSlot        TimeSlot
	CostCents       int64
	PaymentMethod   string
	RejectionReason string
	UpdatedAt       time.Time
}

func (r InspectionRequest) Assigned() bool {
	return r.InspectorID != nil && *r.InspectorID != ""
}

// InspectedBy reports whether userID is the inspector of record.
func (r InspectionRequest) InspectedBy(userID string) bool {
	return r.Assigned() && userID != "" && *r.InspectorID == userID
}

// Party reports whether userID is the buyer, seller or inspector of the request.
func (r InspectionRequest) Party(userID string) bool {
	if userID == "" {
		return false
	}
	return r.BuyerID == userID || r.SellerID == userID || r.InspectedBy(userID)
}

type InspectionFilter struct {
	CarID       string
	BuyerID     string
	SellerID    string
	InspectorID string
	Status      InspectionStatus
	Unassigned  bool
	Limit       int
	Offset      int
}
