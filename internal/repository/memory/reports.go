package memory

import (
	"context"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
)

type reports struct{ scope }

func (r reports) Save(_ context.Context, report models.InspectionReport) (models.InspectionReport, error) {
	st, done := r.enter()
	defer done()

	if cur, ok := st.reports[report.InspectionID]; ok {
		cur.Ratings = report.Ratings
		cur.OverallComments = report.OverallComments
		cur.UpdatedAt = report.CompletedAt
		st.reports[report.InspectionID] = cur
		cur.Photos = append([]models.Photo(nil), st.photos[cur.ID]...)
		return cur, nil
	}

	report.UpdatedAt = report.CompletedAt
	report.Photos = nil
	st.reports[report.InspectionID] = report
	return report, nil
}

func (r reports) GetByInspection(_ context.Context, inspectionID string) (models.InspectionReport, error) {
	st, done := r.enter()
	defer done()

	report, ok := st.reports[inspectionID]
	if !ok {
		return models.InspectionReport{}, repository.ErrReportNotFound
	}
	report.Photos = append([]models.Photo(nil), st.photos[report.ID]...)
	return report, nil
}

func (r reports) AddPhotos(_ context.Context, reportID string, photos []models.Photo) error {
	st, done := r.enter()
	defer done()

	for _, p := range photos {
		p.ReportID = reportID
		st.photos[reportID] = append(st.photos[reportID], p)
	}
	return nil
}

func (r reports) PhotoKeysByCar(_ context.Context, carID string) ([]string, error) {
	return r.keys(func(req models.InspectionRequest) bool { return req.CarID == carID }), nil
}

func (r reports) PhotoKeysByUser(_ context.Context, userID string) ([]string, error) {
	return r.keys(func(req models.InspectionRequest) bool {
		return req.BuyerID == userID || req.SellerID == userID
	}), nil
}

func (r reports) keys(match func(models.InspectionRequest) bool) []string {
	st, done := r.enter()
	defer done()

	var keys []string
	for inspectionID, report := range st.reports {
		if !match(st.inspections[inspectionID]) {
			continue
		}
		for _, p := range st.photos[report.ID] {
			keys = append(keys, p.ObjectKey)
		}
	}
	return keys
}
