package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
)

var ErrInspectionNotFound = fmt.Errorf("%w: inspection", apperr.ErrNotFound)

type InspectionRepository struct {
	db DBTX
}

func NewInspectionRepository(db DBTX) *InspectionRepository {
	return &InspectionRepository{db: db}
}

const inspectionColumns = `id, car_id, buyer_id, seller_id, inspector_id, status, requested_at,
	scheduled_date, time_slot, cost_cents, payment_method, rejection_reason, updated_at`

func (r *InspectionRepository) Create(ctx context.Context, req models.InspectionRequest) error {
	const query = `
		INSERT INTO inspection_requests (
			id, car_id, buyer_id, seller_id, inspector_id, status, requested_at,
			scheduled_date, time_slot, cost_cents, payment_method, rejection_reason, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.CarID,
		req.BuyerID,
		req.SellerID,
		req.InspectorID,
		req.Status,
		req.RequestedAt,
		req.ScheduledDate,
		req.TimeSlot,
		req.CostCents,
		req.PaymentMethod,
		req.RejectionReason,
		req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("inspection id %s already issued", req.ID)
	}
	return err
}

func (r *InspectionRepository) Get(ctx context.Context, id string) (models.InspectionRequest, error) {
	return r.getOne(ctx, `SELECT `+inspectionColumns+` FROM inspection_requests WHERE id = $1`, id)
}

func (r *InspectionRepository) GetForUpdate(ctx context.Context, id string) (models.InspectionRequest, error) {
	return r.getOne(ctx, `SELECT `+inspectionColumns+` FROM inspection_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *InspectionRepository) getOne(ctx context.Context, query string, id string) (models.InspectionRequest, error) {
	req, err := scanInspection(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.InspectionRequest{}, ErrInspectionNotFound
		}
		return models.InspectionRequest{}, err
	}
	return req, nil
}

func (r *InspectionRepository) Update(ctx context.Context, next models.InspectionRequest, prev models.InspectionRequest) error {
	const query = `
		UPDATE inspection_requests
		SET status = $2,
		    inspector_id = $3,
		    scheduled_date = $4,
		    time_slot = $5,
		    rejection_reason = $6,
		    updated_at = $7
		WHERE id = $1
		  AND status = $8
		  AND inspector_id IS NOT DISTINCT FROM $9
	`
	cmd, err := r.db.Exec(ctx, query,
		next.ID,
		next.Status,
		next.InspectorID,
		next.ScheduledDate,
		next.TimeSlot,
		next.RejectionReason,
		next.UpdatedAt,
		prev.Status,
		prev.InspectorID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperr.Conflict("inspection %s was modified concurrently", next.ID)
	}
	return nil
}

func (r *InspectionRepository) ExistsSince(ctx context.Context, carID string, buyerID string, since time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM inspection_requests
			WHERE car_id = $1 AND buyer_id = $2 AND requested_at >= $3
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, carID, buyerID, since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *InspectionRepository) NextSequence(ctx context.Context, day string) (int, error) {
	const query = `
		INSERT INTO inspection_sequences (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day)
		DO UPDATE SET last_value = inspection_sequences.last_value + 1
		RETURNING last_value
	`
	var seq int
	if err := r.db.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *InspectionRepository) List(ctx context.Context, filter models.InspectionFilter) ([]models.InspectionRequest, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.CarID != "" {
		add("car_id = $%d", filter.CarID)
	}
	if filter.BuyerID != "" {
		add("buyer_id = $%d", filter.BuyerID)
	}
	if filter.SellerID != "" {
		add("seller_id = $%d", filter.SellerID)
	}
	if filter.InspectorID != "" {
		add("inspector_id = $%d", filter.InspectorID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Unassigned {
		where = append(where, "inspector_id IS NULL")
	}

	query := `SELECT ` + inspectionColumns + ` FROM inspection_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)
	query += fmt.Sprintf(` ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InspectionRequest
	for rows.Next() {
		req, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanInspection(row pgx.Row) (models.InspectionRequest, error) {
	var req models.InspectionRequest
	err := row.Scan(
		&req.ID,
		&req.CarID,
		&req.BuyerID,
		&req.SellerID,
		&req.InspectorID,
		&req.Status,
		&req.RequestedAt,
		&req.ScheduledDate,
		&req.TimeSlot,
		&req.CostCents,
		&req.PaymentMethod,
		&req.RejectionReason,
		&req.UpdatedAt,
	)
	return req, err
}
