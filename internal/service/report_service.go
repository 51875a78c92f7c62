package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/config"
	"wheeldeals/internal/events"
	"wheeldeals/internal/ids"
	"wheeldeals/internal/media/sniffer"
	"wheeldeals/internal/models"
	"wheeldeals/internal/policy"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/workflow"
)

type PhotoUpload struct {
	Data []byte
	// DeclaredType is the content type the client sent, if any.
	DeclaredType string
	Caption      string
}

type ReportInput struct {
	Ratings         models.Ratings
	OverallComments string
	Photos          []PhotoUpload
}

type ReportService struct {
	clock
	store  repository.Store
	photos PhotoStore
	events events.Publisher
	cfg    config.InspectionConfig
	log    zerolog.Logger
}

func NewReportService(store repository.Store, photos PhotoStore, pub events.Publisher, cfg config.InspectionConfig, log zerolog.Logger) *ReportService {
	return &ReportService{
		store:  store,
		photos: photos,
		events: pub,
		cfg:    cfg,
		log:    log,
	}
}

type preparedPhoto struct {
	photo models.Photo
	data  []byte
}

func (s *ReportService) prepare(inspectionID string, uploads []PhotoUpload) ([]preparedPhoto, error) {
	limit := s.cfg.MaxPhotos
	if limit <= 0 {
		limit = 10
	}
	if len(uploads) > limit {
		return nil, apperr.Invalid("at most %d photos can be attached, got %d", limit, len(uploads))
	}

	now := s.Now()
	out := make([]preparedPhoto, 0, len(uploads))
	for i, up := range uploads {
		caption := strings.TrimSpace(up.Caption)
		if utf8.RuneCountInString(caption) > models.MaxCaptionLength {
			return nil, apperr.Invalid("photo %d caption must be at most %d characters", i+1, models.MaxCaptionLength)
		}
		if len(up.Data) == 0 {
			return nil, apperr.Invalid("photo %d is empty", i+1)
		}
		kind, err := sniffer.DetectHead(up.Data[:min(len(up.Data), sniffer.HeadSize)])
		if err != nil {
			return nil, apperr.Invalid("photo %d: %v", i+1, err)
		}
		if up.DeclaredType != "" && up.DeclaredType != "application/octet-stream" && up.DeclaredType != kind.MIME {
			return nil, apperr.Invalid("photo %d: content type mismatch: declared %s, actual %s", i+1, up.DeclaredType, kind.MIME)
		}

		id := ids.New()
		out = append(out, preparedPhoto{
			photo: models.Photo{
				ID:          id,
				ObjectKey:   path.Join("inspections", inspectionID, id+"."+kind.Ext()),
				ContentType: kind.MIME,
				Caption:     caption,
				UploadedAt:  now,
			},
			data: up.Data,
		})
	}
	return out, nil
}

// Submit records the inspector's findings and completes the inspection.
// Invalid input is rejected before anything is stored, so the request keeps
// its status.
func (s *ReportService) Submit(ctx context.Context, actor models.Actor, inspectionID string, in ReportInput) (models.InspectionReport, error) {
	if err := in.Ratings.Validate(); err != nil {
		return models.InspectionReport{}, apperr.Invalid("%v", err)
	}
	prepared, err := s.prepare(inspectionID, in.Photos)
	if err != nil {
		return models.InspectionReport{}, err
	}

	now := s.Now()
	// Fail fast on permission and state before any blob is written; the
	// transaction below repeats the check under the row lock.
	current, err := s.store.Inspections().Get(ctx, inspectionID)
	if err != nil {
		return models.InspectionReport{}, err
	}
	if _, err := workflow.Apply(current, workflow.EventSubmitReport, actor, workflow.Payload{Now: now}); err != nil {
		return models.InspectionReport{}, err
	}

	uploaded, err := s.upload(ctx, prepared)
	if err != nil {
		return models.InspectionReport{}, err
	}

	var (
		prev, next models.InspectionRequest
		saved      models.InspectionReport
	)
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.Inspections().GetForUpdate(ctx, inspectionID)
		if err != nil {
			return err
		}
		out, err := workflow.Apply(cur, workflow.EventSubmitReport, actor, workflow.Payload{Now: now})
		if err != nil {
			return err
		}
		if err := tx.Inspections().Update(ctx, out, cur); err != nil {
			return err
		}

		report, err := tx.Reports().Save(ctx, models.InspectionReport{
			ID:              ids.New(),
			InspectionID:    inspectionID,
			Ratings:         in.Ratings,
			OverallComments: strings.TrimSpace(in.OverallComments),
			CompletedAt:     now,
		})
		if err != nil {
			return err
		}
		photos := make([]models.Photo, len(prepared))
		for i, p := range prepared {
			photos[i] = p.photo
			photos[i].ReportID = report.ID
		}
		if err := tx.Reports().AddPhotos(ctx, report.ID, photos); err != nil {
			return err
		}
		saved, err = tx.Reports().GetByInspection(ctx, inspectionID)
		if err != nil {
			return err
		}
		prev, next = cur, out
		return nil
	})
	if err != nil {
		removePhotos(ctx, s.photos, s.log, uploaded)
		return models.InspectionReport{}, err
	}

	s.log.Info().
		Str("inspection_id", inspectionID).
		Str("from", string(prev.Status)).
		Str("to", string(next.Status)).
		Str("actor_id", actor.UserID).
		Float64("average_rating", saved.AverageRating()).
		Int("photos", len(prepared)).
		Msg("inspection report submitted")
	publish(ctx, s.events, s.log, transitionEvent(events.InspectionCompleted, actor, prev, next))
	return saved, nil
}

func (s *ReportService) upload(ctx context.Context, prepared []preparedPhoto) ([]string, error) {
	if len(prepared) == 0 {
		return nil, nil
	}
	if s.photos == nil {
		return nil, errors.New("photo storage is not configured")
	}
	keys := make([]string, 0, len(prepared))
	for _, p := range prepared {
		if err := s.photos.Put(ctx, p.photo.ObjectKey, p.data, p.photo.ContentType); err != nil {
			removePhotos(ctx, s.photos, s.log, keys)
			return nil, fmt.Errorf("store photo: %w", err)
		}
		keys = append(keys, p.photo.ObjectKey)
	}
	return keys, nil
}

// Get returns the report of a completed inspection to its parties and
// admins.
func (s *ReportService) Get(ctx context.Context, actor models.Actor, inspectionID string) (models.InspectionReport, error) {
	req, err := s.store.Inspections().Get(ctx, inspectionID)
	if err != nil {
		return models.InspectionReport{}, err
	}
	if !policy.CanPerform(actor, policy.ViewReport, policy.Resource{Inspection: &req}) {
		return models.InspectionReport{}, apperr.Denied("you cannot view the report of inspection %s", inspectionID)
	}
	if req.Status != models.InspectionCompleted {
		return models.InspectionReport{}, apperr.InvalidState("inspection %s is %s, not completed", inspectionID, req.Status)
	}
	return s.store.Reports().GetByInspection(ctx, inspectionID)
}

// PhotoURL returns a download link for one photo of a report the actor can
// see.
func (s *ReportService) PhotoURL(ctx context.Context, actor models.Actor, inspectionID string, photoID string) (string, error) {
	report, err := s.Get(ctx, actor, inspectionID)
	if err != nil {
		return "", err
	}
	if s.photos == nil {
		return "", errors.New("photo storage is not configured")
	}
	for _, p := range report.Photos {
		if p.ID == photoID {
			return s.photos.URL(ctx, p.ObjectKey)
		}
	}
	return "", apperr.NotFound("photo %s", photoID)
}
