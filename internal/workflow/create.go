package workflow

import (
	"time"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
	"wheeldeals/internal/policy"
)

type CreateParams struct {
	Now           time.Time
	Sequence      int
	CostCents     int64
	PaymentMethod string
}

// NewRequest builds a fresh request by actor for car. The cooldown rule needs
// the request history and is checked by the caller before this is invoked.
func NewRequest(car models.Car, actor models.Actor, p CreateParams) (models.InspectionRequest, error) {
	if err := CheckRequester(car, actor); err != nil {
		return models.InspectionRequest{}, err
	}

	id, err := FormatID(DayKey(p.Now), p.Sequence)
	if err != nil {
		return models.InspectionRequest{}, err
	}

	return models.InspectionRequest{
		ID:            id,
		CarID:         car.ID,
		BuyerID:       actor.UserID,
		SellerID:      car.SellerID,
		Status:        models.InspectionRequested,
		RequestedAt:   p.Now,
		CostCents:     p.CostCents,
		PaymentMethod: p.PaymentMethod,
		UpdatedAt:     p.Now,
	}, nil
}

// CheckRequester applies the role and ownership rules for creating a request.
func CheckRequester(car models.Car, actor models.Actor) error {
	if policy.CanPerform(actor, policy.RequestInspection, policy.Resource{Car: &car}) {
		return nil
	}
	if car.SellerID == actor.UserID {
		return apperr.Denied("you cannot request an inspection of your own listing")
	}
	return apperr.Denied("only buyers can request inspections")
}
