package service

import (
	"errors"
	"testing"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
)

func TestChangeRole(t *testing.T) {
	f := newFixture(t)

	u, err := f.admin.ChangeRole(f.ctx, f.adminUser.Actor(), f.buyer.ID, models.RoleInspector)
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if u.Role != models.RoleInspector {
		t.Fatalf("role = %s, want inspector", u.Role)
	}

	if _, err := f.admin.ChangeRole(f.ctx, f.adminUser.Actor(), f.guest.ID, models.RoleSeller); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("guest role change: expected validation error, got %v", err)
	}
	if _, err := f.admin.ChangeRole(f.ctx, f.adminUser.Actor(), f.buyer2.ID, "overlord"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("unknown role: expected validation error, got %v", err)
	}
	if _, err := f.admin.ChangeRole(f.ctx, f.seller.Actor(), f.buyer2.ID, models.RoleAdmin); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("seller promoting: expected permission denied, got %v", err)
	}
	if _, err := f.admin.ChangeRole(f.ctx, f.adminUser.Actor(), "u-nobody", models.RoleSeller); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	f := newFixture(t)

	err := f.admin.DeleteUser(f.ctx, f.adminUser.Actor(), f.adminUser.ID)
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := f.store.Users().GetByID(f.ctx, f.adminUser.ID); err != nil {
		t.Fatalf("admin should still exist: %v", err)
	}
	if err := f.admin.DeleteUser(f.ctx, f.buyer.Actor(), f.buyer2.ID); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("buyer deleting: expected permission denied, got %v", err)
	}
}

func TestDeleteSellerCascades(t *testing.T) {
	f := newFixture(t)
	req := f.assigned()
	if _, err := f.reports.Submit(f.ctx, f.inspectorA.Actor(), req.ID, ReportInput{
		Ratings: allRatings(4),
		Photos:  []PhotoUpload{{Data: jpegBytes}},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.admin.DeleteUser(f.ctx, f.adminUser.Actor(), f.seller.ID); err != nil {
		t.Fatalf("delete seller: %v", err)
	}
	if _, err := f.listings.Get(f.ctx, f.adminUser.Actor(), f.car.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("listing should be gone, got %v", err)
	}
	if _, err := f.inspections.Get(f.ctx, f.adminUser.Actor(), req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("inspection should be gone, got %v", err)
	}
	if f.photos.count() != 0 {
		t.Fatalf("photos left behind: %d", f.photos.count())
	}
}

func TestDeleteInspectorKeepsHistory(t *testing.T) {
	f := newFixture(t)
	req := f.assigned()

	if err := f.admin.DeleteUser(f.ctx, f.adminUser.Actor(), f.inspectorA.ID); err != nil {
		t.Fatalf("delete inspector: %v", err)
	}
	got, err := f.inspections.Get(f.ctx, f.adminUser.Actor(), req.ID)
	if err != nil {
		t.Fatalf("inspection should survive: %v", err)
	}
	if got.Assigned() {
		t.Fatalf("inspector reference should be cleared, got %v", *got.InspectorID)
	}

	got, err = f.admin.Reassign(f.ctx, f.adminUser.Actor(), req.ID, f.inspectorB.ID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if !got.InspectedBy(f.inspectorB.ID) || got.Status != models.InspectionAssigned {
		t.Fatalf("unexpected reassigned request %+v", got)
	}
}

func TestReassign(t *testing.T) {
	f := newFixture(t)
	req := f.assigned()

	tests := []struct {
		name   string
		actor  models.Actor
		target string
		want   error
	}{
		{"non-admin", f.seller.Actor(), f.inspectorB.ID, apperr.ErrPermissionDenied},
		{"non-admin with unknown target", f.buyer.Actor(), "u-nobody", apperr.ErrPermissionDenied},
		{"target is not an inspector", f.adminUser.Actor(), f.buyer2.ID, apperr.ErrValidation},
		{"target does not exist", f.adminUser.Actor(), "u-nobody", apperr.ErrValidation},
		{"no target", f.adminUser.Actor(), "", apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.admin.Reassign(f.ctx, tt.actor, req.ID, tt.target); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	got, _ := f.inspections.Get(f.ctx, f.adminUser.Actor(), req.ID)
	if !got.InspectedBy(f.inspectorA.ID) {
		t.Fatalf("failed reassignments changed the inspector: %+v", got)
	}
}

func TestReassignCompletedInspection(t *testing.T) {
	f := newFixture(t)
	req := f.assigned()
	if _, err := f.reports.Submit(f.ctx, f.inspectorA.Actor(), req.ID, ReportInput{Ratings: allRatings(3)}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.admin.Reassign(f.ctx, f.adminUser.Actor(), req.ID, f.inspectorB.ID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if got.Status != models.InspectionAssigned || !got.InspectedBy(f.inspectorB.ID) {
		t.Fatalf("unexpected request %+v", got)
	}

	// The new inspector can carry on from there.
	if _, err := f.inspections.Start(f.ctx, f.inspectorB.Actor(), req.ID); err != nil {
		t.Fatalf("start after reassign: %v", err)
	}
}

func TestAdminListings(t *testing.T) {
	f := newFixture(t)
	if _, err := f.listings.Submit(f.ctx, f.seller.Actor(), validListing()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	all, err := f.admin.ListListings(f.ctx, f.adminUser.Actor(), models.CarFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("all listings = %v, %v", all, err)
	}
	pending, _ := f.admin.ListListings(f.ctx, f.adminUser.Actor(), models.CarFilter{Status: models.ListingPending})
	if len(pending) != 1 {
		t.Fatalf("pending listings = %v", pending)
	}
	if _, err := f.admin.ListListings(f.ctx, f.seller.Actor(), models.CarFilter{}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("seller listing all: expected permission denied, got %v", err)
	}

	if err := f.admin.DeleteListing(f.ctx, f.seller.Actor(), f.car.ID); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("force delete by seller: expected permission denied, got %v", err)
	}
	if err := f.admin.DeleteListing(f.ctx, f.adminUser.Actor(), f.car.ID); err != nil {
		t.Fatalf("force delete: %v", err)
	}

	users, err := f.admin.ListUsers(f.ctx, f.adminUser.Actor(), models.UserFilter{Role: models.RoleInspector})
	if err != nil || len(users) != 2 {
		t.Fatalf("inspectors = %v, %v", users, err)
	}
}
