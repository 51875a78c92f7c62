// Package policy decides who may do what. Every role and ownership check in
// the application goes through CanPerform so the rules live in one place and
// can be tested without a store or a state machine.
package policy

import "wheeldeals/internal/models"

type Operation string

const (
	SubmitListing   Operation = "listing.submit"
	EditListing     Operation = "listing.edit"
	DeleteListing   Operation = "listing.delete"
	ModerateListing Operation = "listing.moderate"
	ViewListing     Operation = "listing.view"

	RequestInspection  Operation = "inspection.request"
	AcceptInspection   Operation = "inspection.accept"
	RejectInspection   Operation = "inspection.reject"
	SelfAssign         Operation = "inspection.self_assign"
	StartInspection    Operation = "inspection.start"
	SubmitReport       Operation = "inspection.submit_report"
	ViewInspection     Operation = "inspection.view"
	ViewReport         Operation = "inspection.view_report"
	ReassignInspector  Operation = "inspection.reassign"
	OverseeInspections Operation = "inspection.oversee"

	ChangeRole Operation = "user.change_role"
	DeleteUser Operation = "user.delete"
	ListUsers  Operation = "user.list"
)

// Resource is the entity an operation targets. Only the field relevant to the
// operation needs to be set.
type Resource struct {
	Car        *models.Car
	Inspection *models.InspectionRequest
	User       *models.User
}

// CanPerform reports whether actor may carry out op on res.
// It checks role and ownership only; workflow status is the state machine's concern.
func CanPerform(actor models.Actor, op Operation, res Resource) bool {
	if actor.Anonymous() {
		return op == ViewListing && res.Car != nil && res.Car.Published()
	}

	switch op {
	case SubmitListing:
		return actor.Is(models.RoleSeller) && !actor.IsGuest
	case EditListing:
		return res.Car != nil && !actor.IsGuest && actor.Is(models.RoleSeller) && res.Car.SellerID == actor.UserID
	case DeleteListing:
		if res.Car == nil {
			return false
		}
		return isAdmin(actor) || (!actor.IsGuest && actor.Is(models.RoleSeller) && res.Car.SellerID == actor.UserID)
	case ModerateListing:
		return isAdmin(actor)
	case ViewListing:
		if res.Car == nil {
			return false
		}
		return res.Car.Published() || isAdmin(actor) || res.Car.SellerID == actor.UserID

	case RequestInspection:
		return res.Car != nil && actor.Is(models.RoleBuyer) && res.Car.SellerID != actor.UserID
	case AcceptInspection, RejectInspection:
		return res.Inspection != nil && actor.Is(models.RoleSeller) && res.Inspection.SellerID == actor.UserID
	case SelfAssign:
		return res.Inspection != nil && actor.Is(models.RoleInspector) && !actor.IsGuest
	case StartInspection, SubmitReport:
		return res.Inspection != nil && actor.Is(models.RoleInspector) && res.Inspection.InspectedBy(actor.UserID)
	case ViewInspection:
		if res.Inspection == nil {
			return false
		}
		if isAdmin(actor) || res.Inspection.Party(actor.UserID) {
			return true
		}
		// Unassigned scheduled work is visible to every inspector so it can be picked up.
		return actor.Is(models.RoleInspector) && res.Inspection.Status == models.InspectionScheduled && !res.Inspection.Assigned()
	case ViewReport:
		return res.Inspection != nil && (isAdmin(actor) || res.Inspection.Party(actor.UserID))
	case ReassignInspector, OverseeInspections:
		return isAdmin(actor)

	case ChangeRole, ListUsers:
		return isAdmin(actor)
	case DeleteUser:
		return isAdmin(actor) && res.User != nil && res.User.ID != actor.UserID
	}
	return false
}

func isAdmin(actor models.Actor) bool {
	return actor.Is(models.RoleAdmin) && !actor.IsGuest
}
