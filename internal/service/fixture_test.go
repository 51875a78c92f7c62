package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wheeldeals/internal/config"
	"wheeldeals/internal/events"
	"wheeldeals/internal/models"
	"wheeldeals/internal/repository/memory"
)

var (
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0x00, 0x00, 0x0d}
)

type fakePhotos struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{objects: map[string][]byte{}}
}

func (p *fakePhotos) Put(_ context.Context, key string, data []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPut {
		return context.DeadlineExceeded
	}
	p.objects[key] = data
	return nil
}

func (p *fakePhotos) Remove(_ context.Context, keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.objects, k)
	}
	return nil
}

func (p *fakePhotos) URL(_ context.Context, key string) (string, error) {
	return "https://photos.test/" + key, nil
}

func (p *fakePhotos) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	now    time.Time
	store  *memory.Store
	photos *fakePhotos
	events *recorder
	cfg    *config.AppConfig

	listings    *ListingService
	inspections *InspectionService
	reports     *ReportService
	admin       *AdminService
	auth        *AuthService

	seller, buyer, buyer2, inspectorA, inspectorB, adminUser, guest models.User
	car                                                             models.Car
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret: "test-secret",
			JWTAccessTTL:    15 * time.Minute,
			JWTRefreshTTL:   720 * time.Hour,
			MaxSessions:     3,
			Argon2Time:      1,
			Argon2MemoryKiB: 1024,
		},
		Inspection: config.InspectionConfig{
			CostCents:     5000,
			PaymentMethod: "Cash on Delivery",
			Cooldown:      720 * time.Hour,
			MaxPhotos:     10,
		},
		Guests: config.GuestConfig{TTL: 24 * time.Hour},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		now:    time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
		photos: newFakePhotos(),
		events: &recorder{},
		cfg:    testConfig(),
	}
	clock := func() time.Time { return f.now }
	f.store = memory.New().WithClock(clock)
	log := zerolog.Nop()

	f.listings = NewListingService(f.store, f.photos, f.events, log)
	f.inspections = NewInspectionService(f.store, f.events, f.cfg.Inspection, log)
	f.reports = NewReportService(f.store, f.photos, f.events, f.cfg.Inspection, log)
	f.admin = NewAdminService(f.store, f.listings, f.inspections, f.photos, log)
	f.auth = NewAuthService(f.store, f.cfg, log)
	for _, c := range []interface{ SetClock(func() time.Time) }{f.listings, f.inspections, f.reports, f.auth} {
		c.SetClock(clock)
	}

	f.seller = f.user("seller", models.RoleSeller, false)
	f.buyer = f.user("buyer", models.RoleBuyer, false)
	f.buyer2 = f.user("buyer2", models.RoleBuyer, false)
	f.inspectorA = f.user("inspector_a", models.RoleInspector, false)
	f.inspectorB = f.user("inspector_b", models.RoleInspector, false)
	f.adminUser = f.user("admin", models.RoleAdmin, false)
	f.guest = f.user("guest_0123456789ab", models.RoleBuyer, true)

	f.car = f.publishedCar(f.seller)
	return f
}

func (f *fixture) user(username string, role models.Role, guest bool) models.User {
	f.t.Helper()
	u := models.User{ID: "u-" + username, Username: username, Role: role, IsGuest: guest, PasswordHash: []byte("x")}
	if err := f.store.Users().Create(f.ctx, u); err != nil {
		f.t.Fatalf("create user %s: %v", username, err)
	}
	u, err := f.store.Users().GetByID(f.ctx, u.ID)
	if err != nil {
		f.t.Fatalf("load user %s: %v", username, err)
	}
	return u
}

func (f *fixture) publishedCar(seller models.User) models.Car {
	f.t.Helper()
	car, err := f.listings.Submit(f.ctx, seller.Actor(), ListingInput{
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2019,
		PriceCents:   1_250_000,
		Transmission: models.TransmissionAutomatic,
		FuelType:     models.FuelPetrol,
	})
	if err != nil {
		f.t.Fatalf("submit listing: %v", err)
	}
	car, err = f.listings.Moderate(f.ctx, f.adminUser.Actor(), car.ID, DecisionApprove, "")
	if err != nil {
		f.t.Fatalf("approve listing: %v", err)
	}
	return car
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func allRatings(v int) models.Ratings {
	var values [models.RatingCount]int
	for i := range values {
		values[i] = v
	}
	return models.RatingsFrom(values)
}

// scheduled drives a fresh request from the buyer into the scheduled state.
func (f *fixture) scheduled() models.InspectionRequest {
	f.t.Helper()
	req, err := f.inspections.Request(f.ctx, f.buyer.Actor(), f.car.ID)
	if err != nil {
		f.t.Fatalf("request: %v", err)
	}
	req, err = f.inspections.Accept(f.ctx, f.seller.Actor(), req.ID, f.now.AddDate(0, 0, 2), "10:00-12:00")
	if err != nil {
		f.t.Fatalf("accept: %v", err)
	}
	return req
}

// assigned drives a fresh request to assigned with inspector A.
func (f *fixture) assigned() models.InspectionRequest {
	f.t.Helper()
	req := f.scheduled()
	req, err := f.inspections.SelfAssign(f.ctx, f.inspectorA.Actor(), req.ID)
	if err != nil {
		f.t.Fatalf("self-assign: %v", err)
	}
	return req
}
