package memory

import (
	"context"
	"strings"
	"time"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
)

type cars struct{ scope }

func (r cars) Create(_ context.Context, car models.Car) error {
	st, done := r.enter()
	defer done()

	car.Views = 0
	car.UpdatedAt = car.PostedAt
	st.cars[car.ID] = car
	return nil
}

func (r cars) GetByID(_ context.Context, id string) (models.Car, error) {
	st, done := r.enter()
	defer done()

	car, ok := st.cars[id]
	if !ok {
		return models.Car{}, repository.ErrCarNotFound
	}
	return car, nil
}

func (r cars) GetForUpdate(ctx context.Context, id string) (models.Car, error) {
	return r.GetByID(ctx, id)
}

func (r cars) Update(_ context.Context, car models.Car) error {
	st, done := r.enter()
	defer done()

	cur, ok := st.cars[car.ID]
	if !ok {
		return repository.ErrCarNotFound
	}
	cur.Make = car.Make
	cur.Model = car.Model
	cur.Year = car.Year
	cur.PriceCents = car.PriceCents
	cur.Mileage = car.Mileage
	cur.Color = car.Color
	cur.Transmission = car.Transmission
	cur.FuelType = car.FuelType
	cur.Description = car.Description
	cur.IsSold = car.IsSold
	cur.UpdatedAt = r.now()
	st.cars[car.ID] = cur
	return nil
}

func (r cars) UpdateStatus(_ context.Context, id string, status models.ListingStatus, reason string) error {
	st, done := r.enter()
	defer done()

	car, ok := st.cars[id]
	if !ok {
		return repository.ErrCarNotFound
	}
	car.Status = status
	car.DeclinedReason = reason
	car.UpdatedAt = r.now()
	st.cars[id] = car
	return nil
}

func (r cars) Delete(_ context.Context, id string) error {
	st, done := r.enter()
	defer done()

	if _, ok := st.cars[id]; !ok {
		return repository.ErrCarNotFound
	}
	st.deleteCar(id)
	return nil
}

func (r cars) List(_ context.Context, filter models.CarFilter) ([]models.Car, error) {
	st, done := r.enter()
	defer done()

	q := strings.TrimSpace(filter.Query)
	var out []models.Car
	for _, car := range st.cars {
		switch {
		case filter.SellerID != "" && car.SellerID != filter.SellerID:
			continue
		case filter.PublicOnly && (car.Status != models.ListingPublished || car.IsSold):
			continue
		case !filter.PublicOnly && filter.Status != "" && car.Status != filter.Status:
			continue
		case q != "" && !containsFold(car.Make, q) && !containsFold(car.Model, q) && !containsFold(car.Description, q):
			continue
		case filter.MinPriceCents > 0 && car.PriceCents < filter.MinPriceCents:
			continue
		case filter.MaxPriceCents > 0 && car.PriceCents > filter.MaxPriceCents:
			continue
		case filter.Transmission != "" && car.Transmission != filter.Transmission:
			continue
		case filter.FuelType != "" && car.FuelType != filter.FuelType:
			continue
		}
		out = append(out, car)
	}
	sortByTimeDesc(out, func(c models.Car) time.Time { return c.PostedAt })
	return page(out, filter.Limit, filter.Offset), nil
}

func (r cars) AddViewer(_ context.Context, carID string, userID string) (bool, error) {
	st, done := r.enter()
	defer done()

	car, ok := st.cars[carID]
	if !ok {
		return false, repository.ErrCarNotFound
	}
	set := st.viewers[carID]
	if set == nil {
		set = map[string]struct{}{}
		st.viewers[carID] = set
	}
	if _, seen := set[userID]; seen {
		return false, nil
	}
	set[userID] = struct{}{}
	car.Views++
	st.cars[carID] = car
	return true, nil
}
