package memory

import (
	"context"
	"time"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
)

type inspections struct{ scope }

func (r inspections) Create(_ context.Context, req models.InspectionRequest) error {
	st, done := r.enter()
	defer done()

	if _, exists := st.inspections[req.ID]; exists {
		return apperr.Conflict("inspection id %s already issued", req.ID)
	}
	st.inspections[req.ID] = req
	return nil
}

func (r inspections) Get(_ context.Context, id string) (models.InspectionRequest, error) {
	st, done := r.enter()
	defer done()

	req, ok := st.inspections[id]
	if !ok {
		return models.InspectionRequest{}, repository.ErrInspectionNotFound
	}
	return req, nil
}

func (r inspections) GetForUpdate(ctx context.Context, id string) (models.InspectionRequest, error) {
	return r.Get(ctx, id)
}

func (r inspections) Update(_ context.Context, next models.InspectionRequest, prev models.InspectionRequest) error {
	st, done := r.enter()
	defer done()

	cur, ok := st.inspections[next.ID]
	if !ok || cur.Status != prev.Status || !sameInspector(cur.InspectorID, prev.InspectorID) {
		return apperr.Conflict("inspection %s was modified concurrently", next.ID)
	}
	cur.Status = next.Status
	cur.InspectorID = next.InspectorID
	cur.ScheduledDate = next.ScheduledDate
	cur.TimeSlot = next.TimeSlot
	cur.RejectionReason = next.RejectionReason
	cur.UpdatedAt = next.UpdatedAt
	st.inspections[next.ID] = cur
	return nil
}

func sameInspector(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r inspections) ExistsSince(_ context.Context, carID string, buyerID string, since time.Time) (bool, error) {
	st, done := r.enter()
	defer done()

	for _, req := range st.inspections {
		if req.CarID == carID && req.BuyerID == buyerID && !req.RequestedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r inspections) NextSequence(_ context.Context, day string) (int, error) {
	st, done := r.enter()
	defer done()

	st.sequences[day]++
	return st.sequences[day], nil
}

func (r inspections) List(_ context.Context, filter models.InspectionFilter) ([]models.InspectionRequest, error) {
	st, done := r.enter()
	defer done()

	var out []models.InspectionRequest
	for _, req := range st.inspections {
		switch {
		case filter.CarID != "" && req.CarID != filter.CarID:
			continue
		case filter.BuyerID != "" && req.BuyerID != filter.BuyerID:
			continue
		case filter.SellerID != "" && req.SellerID != filter.SellerID:
			continue
		case filter.InspectorID != "" && !req.InspectedBy(filter.InspectorID):
			continue
		case filter.Status != "" && req.Status != filter.Status:
			continue
		case filter.Unassigned && req.InspectorID != nil:
			continue
		}
		out = append(out, req)
	}
	sortByTimeDesc(out, func(req models.InspectionRequest) time.Time { return req.RequestedAt })
	return page(out, filter.Limit, filter.Offset), nil
}
