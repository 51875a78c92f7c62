package service

import (
	"context"

	"github.com/rs/zerolog"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
	"wheeldeals/internal/policy"
	"wheeldeals/internal/repository"
)

// AdminService is the oversight surface. Listing and workflow overrides
// reuse the listing and inspection services; the rest is user management.
type AdminService struct {
	store       repository.Store
	listings    *ListingService
	inspections *InspectionService
	photos      PhotoStore
	log         zerolog.Logger
}

func NewAdminService(store repository.Store, listings *ListingService, inspections *InspectionService, photos PhotoStore, log zerolog.Logger) *AdminService {
	return &AdminService{
		store:       store,
		listings:    listings,
		inspections: inspections,
		photos:      photos,
		log:         log,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, actor models.Actor, filter models.UserFilter) ([]models.User, error) {
	if !policy.CanPerform(actor, policy.ListUsers, policy.Resource{}) {
		return nil, apperr.Denied("only admins can list users")
	}
	return s.store.Users().List(ctx, filter)
}

// ChangeRole sets a registered user's role. Guests stay buyers.
func (s *AdminService) ChangeRole(ctx context.Context, actor models.Actor, userID string, role models.Role) (models.User, error) {
	if !policy.CanPerform(actor, policy.ChangeRole, policy.Resource{}) {
		return models.User{}, apperr.Denied("only admins can change roles")
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return models.User{}, apperr.Invalid("%v", err)
	}

	var out models.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsGuest {
			return apperr.Invalid("guest accounts cannot change role")
		}
		if err := tx.Users().UpdateRole(ctx, userID, role); err != nil {
			return err
		}
		out, err = tx.Users().GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", userID).Str("role", string(role)).Str("actor_id", actor.UserID).Msg("role changed")
	return out, nil
}

// DeleteUser removes any account except the caller's own, together with
// everything that references it.
func (s *AdminService) DeleteUser(ctx context.Context, actor models.Actor, userID string) error {
	var keys []string
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !policy.CanPerform(actor, policy.DeleteUser, policy.Resource{User: &user}) {
			if user.ID == actor.UserID {
				return apperr.Denied("you cannot delete your own account")
			}
			return apperr.Denied("only admins can delete users")
		}
		keys, err = tx.Reports().PhotoKeysByUser(ctx, userID)
		if err != nil {
			return err
		}
		return tx.Users().Delete(ctx, userID)
	})
	if err != nil {
		return err
	}

	removePhotos(ctx, s.photos, s.log, keys)
	s.log.Info().Str("user_id", userID).Str("actor_id", actor.UserID).Msg("user deleted")
	return nil
}

func (s *AdminService) ListListings(ctx context.Context, actor models.Actor, filter models.CarFilter) ([]models.Car, error) {
	return s.listings.ListAll(ctx, actor, filter)
}

func (s *AdminService) ModerateListing(ctx context.Context, actor models.Actor, carID string, decision Decision, reason string) (models.Car, error) {
	return s.listings.Moderate(ctx, actor, carID, decision, reason)
}

// DeleteListing force-deletes any listing.
func (s *AdminService) DeleteListing(ctx context.Context, actor models.Actor, carID string) error {
	if !policy.CanPerform(actor, policy.ModerateListing, policy.Resource{}) {
		return apperr.Denied("only admins can force-delete listings")
	}
	return s.listings.Delete(ctx, actor, carID)
}

func (s *AdminService) ListInspections(ctx context.Context, actor models.Actor, filter models.InspectionFilter) ([]models.InspectionRequest, error) {
	return s.inspections.ListAll(ctx, actor, filter)
}

func (s *AdminService) Reassign(ctx context.Context, actor models.Actor, inspectionID string, inspectorID string) (models.InspectionRequest, error) {
	return s.inspections.Reassign(ctx, actor, inspectionID, inspectorID)
}
