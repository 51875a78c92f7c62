package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/events"
	"wheeldeals/internal/ids"
	"wheeldeals/internal/models"
	"wheeldeals/internal/policy"
	"wheeldeals/internal/repository"
)

// BrowsePageSize is the default page size of the public catalogue.
const BrowsePageSize = 12

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

type ListingService struct {
	clock
	store  repository.Store
	photos PhotoStore
	events events.Publisher
	log    zerolog.Logger
}

func NewListingService(store repository.Store, photos PhotoStore, pub events.Publisher, log zerolog.Logger) *ListingService {
	return &ListingService{
		store:  store,
		photos: photos,
		events: pub,
		log:    log,
	}
}

type ListingInput struct {
	Make         string
	Model        string
	Year         int
	PriceCents   int64
	Mileage      *int
	Color        string
	Transmission models.Transmission
	FuelType     models.FuelType
	Description  string
	IsSold       bool
}

func (in *ListingInput) normalize() {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	in.Color = strings.TrimSpace(in.Color)
	in.Description = strings.TrimSpace(in.Description)
	if in.Transmission == "" {
		in.Transmission = models.TransmissionAutomatic
	}
	if in.FuelType == "" {
		in.FuelType = models.FuelPetrol
	}
}

func (in ListingInput) validate(now time.Time) error {
	switch {
	case in.Make == "":
		return apperr.Invalid("make is required")
	case len(in.Make) > 100:
		return apperr.Invalid("make must be at most 100 characters")
	case in.Model == "":
		return apperr.Invalid("model is required")
	case len(in.Model) > 100:
		return apperr.Invalid("model must be at most 100 characters")
	case in.Year < 1900 || in.Year > now.Year()+1:
		return apperr.Invalid("year must be between 1900 and %d", now.Year()+1)
	case in.PriceCents <= 0:
		return apperr.Invalid("price must be positive")
	case in.Mileage != nil && *in.Mileage < 0:
		return apperr.Invalid("mileage cannot be negative")
	case len(in.Color) > 50:
		return apperr.Invalid("color must be at most 50 characters")
	}
	switch in.Transmission {
	case models.TransmissionAutomatic, models.TransmissionManual:
	default:
		return apperr.Invalid("unknown transmission %q", in.Transmission)
	}
	switch in.FuelType {
	case models.FuelPetrol, models.FuelDiesel, models.FuelElectric, models.FuelHybrid:
	default:
		return apperr.Invalid("unknown fuel type %q", in.FuelType)
	}
	return nil
}

// Submit creates a listing awaiting moderation.
func (s *ListingService) Submit(ctx context.Context, actor models.Actor, in ListingInput) (models.Car, error) {
	if !policy.CanPerform(actor, policy.SubmitListing, policy.Resource{}) {
		return models.Car{}, apperr.Denied("only registered sellers can post listings")
	}
	now := s.Now()
	in.normalize()
	if err := in.validate(now); err != nil {
		return models.Car{}, err
	}

	car := models.Car{
		ID:           ids.New(),
		SellerID:     actor.UserID,
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		PriceCents:   in.PriceCents,
		Mileage:      in.Mileage,
		Color:        in.Color,
		Transmission: in.Transmission,
		FuelType:     in.FuelType,
		Description:  in.Description,
		Status:       models.ListingPending,
		IsSold:       in.IsSold,
		PostedAt:     now,
		UpdatedAt:    now,
	}
	if err := s.store.Cars().Create(ctx, car); err != nil {
		return models.Car{}, err
	}

	s.log.Info().Str("car_id", car.ID).Str("seller_id", actor.UserID).Msg("listing submitted")
	return car, nil
}

// Update rewrites the descriptive fields of the owner's listing. The
// moderation status is left as it is.
func (s *ListingService) Update(ctx context.Context, actor models.Actor, carID string, in ListingInput) (models.Car, error) {
	in.normalize()
	if err := in.validate(s.Now()); err != nil {
		return models.Car{}, err
	}

	var out models.Car
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		car, err := tx.Cars().GetForUpdate(ctx, carID)
		if err != nil {
			return err
		}
		if !policy.CanPerform(actor, policy.EditListing, policy.Resource{Car: &car}) {
			return apperr.Denied("only the seller can edit this listing")
		}

		car.Make = in.Make
		car.Model = in.Model
		car.Year = in.Year
		car.PriceCents = in.PriceCents
		car.Mileage = in.Mileage
		car.Color = in.Color
		car.Transmission = in.Transmission
		car.FuelType = in.FuelType
		car.Description = in.Description
		car.IsSold = in.IsSold
		if err := tx.Cars().Update(ctx, car); err != nil {
			return err
		}
		out, err = tx.Cars().GetByID(ctx, carID)
		return err
	})
	if err != nil {
		return models.Car{}, err
	}
	return out, nil
}

// Delete removes a listing with its inspection history. The owner or an
// admin may do this.
func (s *ListingService) Delete(ctx context.Context, actor models.Actor, carID string) error {
	var keys []string
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		car, err := tx.Cars().GetForUpdate(ctx, carID)
		if err != nil {
			return err
		}
		if !policy.CanPerform(actor, policy.DeleteListing, policy.Resource{Car: &car}) {
			return apperr.Denied("only the seller or an admin can delete this listing")
		}
		keys, err = tx.Reports().PhotoKeysByCar(ctx, carID)
		if err != nil {
			return err
		}
		return tx.Cars().Delete(ctx, carID)
	})
	if err != nil {
		return err
	}

	removePhotos(ctx, s.photos, s.log, keys)
	s.log.Info().Str("car_id", carID).Str("actor_id", actor.UserID).Int("photos", len(keys)).Msg("listing deleted")
	return nil
}

// Moderate publishes or declines a listing. Repeating a decision is allowed.
func (s *ListingService) Moderate(ctx context.Context, actor models.Actor, carID string, decision Decision, reason string) (models.Car, error) {
	if !policy.CanPerform(actor, policy.ModerateListing, policy.Resource{}) {
		return models.Car{}, apperr.Denied("only admins can moderate listings")
	}

	var status models.ListingStatus
	reason = strings.TrimSpace(reason)
	switch decision {
	case DecisionApprove:
		status, reason = models.ListingPublished, ""
	case DecisionDecline:
		status = models.ListingDeclined
	default:
		return models.Car{}, apperr.Invalid("unknown moderation decision %q", decision)
	}

	if err := s.store.Cars().UpdateStatus(ctx, carID, status, reason); err != nil {
		return models.Car{}, err
	}
	car, err := s.store.Cars().GetByID(ctx, carID)
	if err != nil {
		return models.Car{}, err
	}

	s.log.Info().Str("car_id", carID).Str("status", string(status)).Str("actor_id", actor.UserID).Msg("listing moderated")
	publish(ctx, s.events, s.log, events.Event{
		Type:    events.ListingModerated,
		CarID:   carID,
		ActorID: actor.UserID,
		To:      string(status),
		Detail:  reason,
		At:      s.Now(),
	})
	return car, nil
}

// RecordView counts actor as a viewer of the listing once. Visitors without
// an identity are not counted.
func (s *ListingService) RecordView(ctx context.Context, actor models.Actor, carID string) (bool, error) {
	if actor.Anonymous() {
		return false, nil
	}
	return s.store.Cars().AddViewer(ctx, carID, actor.UserID)
}

// Get returns a listing the actor may see. Listings hidden from the actor
// are reported as missing.
func (s *ListingService) Get(ctx context.Context, actor models.Actor, carID string) (models.Car, error) {
	car, err := s.store.Cars().GetByID(ctx, carID)
	if err != nil {
		return models.Car{}, err
	}
	if !policy.CanPerform(actor, policy.ViewListing, policy.Resource{Car: &car}) {
		return models.Car{}, repository.ErrCarNotFound
	}
	return car, nil
}

// View is Get followed by RecordView.
func (s *ListingService) View(ctx context.Context, actor models.Actor, carID string) (models.Car, error) {
	car, err := s.Get(ctx, actor, carID)
	if err != nil {
		return models.Car{}, err
	}
	counted, err := s.RecordView(ctx, actor, carID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Car{}, err
		}
		s.log.Warn().Err(err).Str("car_id", carID).Msg("record view failed")
	}
	if counted {
		car.Views++
	}
	return car, nil
}

// Browse lists published, unsold listings.
func (s *ListingService) Browse(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	filter.PublicOnly = true
	filter.SellerID = ""
	if filter.Limit <= 0 {
		filter.Limit = BrowsePageSize
	}
	return s.store.Cars().List(ctx, filter)
}

func (s *ListingService) ListMine(ctx context.Context, actor models.Actor, status models.ListingStatus) ([]models.Car, error) {
	if !actor.Is(models.RoleSeller) {
		return nil, apperr.Denied("only sellers have listings")
	}
	return s.store.Cars().List(ctx, models.CarFilter{SellerID: actor.UserID, Status: status, Limit: 200})
}

// ListAll is the moderation queue view over every listing.
func (s *ListingService) ListAll(ctx context.Context, actor models.Actor, filter models.CarFilter) ([]models.Car, error) {
	if !policy.CanPerform(actor, policy.ModerateListing, policy.Resource{}) {
		return nil, apperr.Denied("only admins can list every listing")
	}
	filter.PublicOnly = false
	return s.store.Cars().List(ctx, filter)
}
