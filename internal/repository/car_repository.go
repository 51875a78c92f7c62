package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
)

var ErrCarNotFound = fmt.Errorf("%w: car", apperr.ErrNotFound)

type CarRepository struct {
	db DBTX
}

func NewCarRepository(db DBTX) *CarRepository {
	return &CarRepository{db: db}
}

const carColumns = `id, seller_id, make, model, year, price_cents, mileage, color, transmission, fuel_type,
	description, status, declined_reason, is_sold, views, posted_at, updated_at`

func (r *CarRepository) Create(ctx context.Context, car models.Car) error {
	const query = `
		INSERT INTO cars (
			id, seller_id, make, model, year, price_cents, mileage, color, transmission, fuel_type,
			description, status, declined_reason, is_sold, views, posted_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, 0, $15, $15
		)
	`

	_, err := r.db.Exec(ctx, query,
		car.ID,
		car.SellerID,
		car.Make,
		car.Model,
		car.Year,
		car.PriceCents,
		car.Mileage,
		car.Color,
		car.Transmission,
		car.FuelType,
		car.Description,
		car.Status,
		car.DeclinedReason,
		car.IsSold,
		car.PostedAt,
	)
	return err
}

func (r *CarRepository) GetByID(ctx context.Context, id string) (models.Car, error) {
	return r.getOne(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id)
}

func (r *CarRepository) GetForUpdate(ctx context.Context, id string) (models.Car, error) {
	return r.getOne(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1 FOR UPDATE`, id)
}

func (r *CarRepository) getOne(ctx context.Context, query string, id string) (models.Car, error) {
	car, err := scanCar(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Car{}, ErrCarNotFound
		}
		return models.Car{}, err
	}
	return car, nil
}

// Update writes the descriptive fields of a listing. Moderation status and
// counters are left alone.
func (r *CarRepository) Update(ctx context.Context, car models.Car) error {
	const query = `
		UPDATE cars
		SET make = $2, model = $3, year = $4, price_cents = $5, mileage = $6, color = $7,
		    transmission = $8, fuel_type = $9, description = $10, is_sold = $11, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.db.Exec(ctx, query,
		car.ID,
		car.Make,
		car.Model,
		car.Year,
		car.PriceCents,
		car.Mileage,
		car.Color,
		car.Transmission,
		car.FuelType,
		car.Description,
		car.IsSold,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCarNotFound
	}
	return nil
}

func (r *CarRepository) UpdateStatus(ctx context.Context, id string, status models.ListingStatus, reason string) error {
	const query = `
		UPDATE cars SET status = $2, declined_reason = $3, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.db.Exec(ctx, query, id, status, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCarNotFound
	}
	return nil
}

// Delete removes the car; inspection requests, reports, photos and viewer
// rows go with it through ON DELETE CASCADE.
func (r *CarRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCarNotFound
	}
	return nil
}

func (r *CarRepository) List(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.SellerID != "" {
		add("seller_id = $%d", filter.SellerID)
	}
	if filter.PublicOnly {
		where = append(where, "status = 'published'", "NOT is_sold")
	} else if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		add("(make ILIKE $%[1]d OR model ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+q+"%")
	}
	if filter.MinPriceCents > 0 {
		add("price_cents >= $%d", filter.MinPriceCents)
	}
	if filter.MaxPriceCents > 0 {
		add("price_cents <= $%d", filter.MaxPriceCents)
	}
	if filter.Transmission != "" {
		add("transmission = $%d", filter.Transmission)
	}
	if filter.FuelType != "" {
		add("fuel_type = $%d", filter.FuelType)
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)
	query += fmt.Sprintf(` ORDER BY posted_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []models.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

// AddViewer records the viewer and bumps the counter in one statement, so a
// recorded viewer is always counted.
func (r *CarRepository) AddViewer(ctx context.Context, carID string, userID string) (bool, error) {
	const query = `
		WITH car AS (
			SELECT id FROM cars WHERE id = $1
		), ins AS (
			INSERT INTO car_viewers (car_id, user_id, viewed_at)
			SELECT id, $2, NOW() FROM car
			ON CONFLICT (car_id, user_id) DO NOTHING
			RETURNING car_id
		), upd AS (
			UPDATE cars SET views = views + 1
			WHERE id IN (SELECT car_id FROM ins)
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM car), EXISTS (SELECT 1 FROM upd)
	`
	var found, counted bool
	if err := r.db.QueryRow(ctx, query, carID, userID).Scan(&found, &counted); err != nil {
		return false, err
	}
	if !found {
		return false, ErrCarNotFound
	}
	return counted, nil
}

func scanCar(row pgx.Row) (models.Car, error) {
	var car models.Car
	err := row.Scan(
		&car.ID,
		&car.SellerID,
		&car.Make,
		&car.Model,
		&car.Year,
		&car.PriceCents,
		&car.Mileage,
		&car.Color,
		&car.Transmission,
		&car.FuelType,
		&car.Description,
		&car.Status,
		&car.DeclinedReason,
		&car.IsSold,
		&car.Views,
		&car.PostedAt,
		&car.UpdatedAt,
	)
	return car, err
}
