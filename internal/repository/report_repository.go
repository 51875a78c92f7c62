package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
)

var ErrReportNotFound = fmt.Errorf("%w: inspection report", apperr.ErrNotFound)

type ReportRepository struct {
	db DBTX
}

func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Save(ctx context.Context, report models.InspectionReport) (models.InspectionReport, error) {
	const query = `
		INSERT INTO inspection_reports (
			id, inspection_id,
			paint_condition, body_condition, glass_windows, lights_signals,
			tire_condition, wheel_condition,
			engine_condition, transmission, brakes, suspension,
			interior_condition, seats_upholstery, dashboard_controls,
			electronics,
			overall_comments, completed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18
		)
		ON CONFLICT (inspection_id)
		DO UPDATE SET
			paint_condition = EXCLUDED.paint_condition,
			body_condition = EXCLUDED.body_condition,
			glass_windows = EXCLUDED.glass_windows,
			lights_signals = EXCLUDED.lights_signals,
			tire_condition = EXCLUDED.tire_condition,
			wheel_condition = EXCLUDED.wheel_condition,
			engine_condition = EXCLUDED.engine_condition,
			transmission = EXCLUDED.transmission,
			brakes = EXCLUDED.brakes,
			suspension = EXCLUDED.suspension,
			interior_condition = EXCLUDED.interior_condition,
			seats_upholstery = EXCLUDED.seats_upholstery,
			dashboard_controls = EXCLUDED.dashboard_controls,
			electronics = EXCLUDED.electronics,
			overall_comments = EXCLUDED.overall_comments,
			updated_at = EXCLUDED.updated_at
		RETURNING id, completed_at, updated_at
	`

	rt := report.Ratings
	err := r.db.QueryRow(ctx, query,
		report.ID,
		report.InspectionID,
		rt.PaintCondition, rt.BodyCondition, rt.GlassWindows, rt.LightsSignals,
		rt.TireCondition, rt.WheelCondition,
		rt.EngineCondition, rt.Transmission, rt.Brakes, rt.Suspension,
		rt.InteriorCondition, rt.SeatsUpholstery, rt.DashboardControls,
		rt.Electronics,
		report.OverallComments,
		report.CompletedAt,
	).Scan(&report.ID, &report.CompletedAt, &report.UpdatedAt)
	if err != nil {
		return models.InspectionReport{}, err
	}
	return report, nil
}

func (r *ReportRepository) GetByInspection(ctx context.Context, inspectionID string) (models.InspectionReport, error) {
	const query = `
		SELECT id, inspection_id,
		       paint_condition, body_condition, glass_windows, lights_signals,
		       tire_condition, wheel_condition,
		       engine_condition, transmission, brakes, suspension,
		       interior_condition, seats_upholstery, dashboard_controls,
		       electronics,
		       overall_comments, completed_at, updated_at
		FROM inspection_reports
		WHERE inspection_id = $1
	`

	var report models.InspectionReport
	rt := &report.Ratings
	if err := r.db.QueryRow(ctx, query, inspectionID).Scan(
		&report.ID,
		&report.InspectionID,
		&rt.PaintCondition, &rt.BodyCondition, &rt.GlassWindows, &rt.LightsSignals,
		&rt.TireCondition, &rt.WheelCondition,
		&rt.EngineCondition, &rt.Transmission, &rt.Brakes, &rt.Suspension,
		&rt.InteriorCondition, &rt.SeatsUpholstery, &rt.DashboardControls,
		&rt.Electronics,
		&report.OverallComments,
		&report.CompletedAt,
		&report.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.InspectionReport{}, ErrReportNotFound
		}
		return models.InspectionReport{}, err
	}

	photos, err := r.photos(ctx, report.ID)
	if err != nil {
		return models.InspectionReport{}, err
	}
	report.Photos = photos
	return report, nil
}

func (r *ReportRepository) photos(ctx context.Context, reportID string) ([]models.Photo, error) {
	const query = `
		SELECT id, report_id, object_key, content_type, caption, uploaded_at
		FROM inspection_photos
		WHERE report_id = $1
		ORDER BY uploaded_at, id
	`
	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ReportID, &p.ObjectKey, &p.ContentType, &p.Caption, &p.UploadedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (r *ReportRepository) AddPhotos(ctx context.Context, reportID string, photos []models.Photo) error {
	const query = `
		INSERT INTO inspection_photos (id, report_id, object_key, content_type, caption, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, p := range photos {
		if _, err := r.db.Exec(ctx, query, p.ID, reportID, p.ObjectKey, p.ContentType, p.Caption, p.UploadedAt); err != nil {
			return fmt.Errorf("insert photo %s: %w", p.ID, err)
		}
	}
	return nil
}

func (r *ReportRepository) PhotoKeysByCar(ctx context.Context, carID string) ([]string, error) {
	const query = `
		SELECT p.object_key
		FROM inspection_photos p
		JOIN inspection_reports rep ON rep.id = p.report_id
		JOIN inspection_requests req ON req.id = rep.inspection_id
		WHERE req.car_id = $1
	`
	return r.keys(ctx, query, carID)
}

func (r *ReportRepository) PhotoKeysByUser(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT p.object_key
		FROM inspection_photos p
		JOIN inspection_reports rep ON rep.id = p.report_id
		JOIN inspection_requests req ON req.id = rep.inspection_id
		WHERE req.buyer_id = $1 OR req.seller_id = $1
	`
	return r.keys(ctx, query, userID)
}

func (r *ReportRepository) keys(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
