package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/events"
	"wheeldeals/internal/models"
	"wheeldeals/internal/workflow"
)

func TestCooldownScenario(t *testing.T) {
	f := newFixture(t)
	buyer := f.buyer.Actor()
	day0 := f.now

	first, err := f.inspections.Request(f.ctx, buyer, f.car.ID)
	if err != nil {
		t.Fatalf("day 0 request: %v", err)
	}
	if want := "INS-" + day0.Format("20060102") + "-00001"; first.ID != want {
		t.Fatalf("id = %s, want %s", first.ID, want)
	}
	if first.CostCents != 5000 || first.PaymentMethod != "Cash on Delivery" {
		t.Fatalf("unexpected cost fields: %+v", first)
	}

	// The outcome of the earlier request does not matter.
	if _, err := f.inspections.Reject(f.ctx, f.seller.Actor(), first.ID, "not available"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	f.advance(15 * 24 * time.Hour)
	ok, err := f.inspections.CanRequest(f.ctx, buyer, f.car.ID)
	if err != nil || ok {
		t.Fatalf("day 15 CanRequest = %v, %v; want false", ok, err)
	}
	if _, err := f.inspections.Request(f.ctx, buyer, f.car.ID); !errors.Is(err, apperr.ErrCooldown) {
		t.Fatalf("day 15 request: expected cooldown, got %v", err)
	}

	// Another buyer is not affected.
	if _, err := f.inspections.Request(f.ctx, f.buyer2.Actor(), f.car.ID); err != nil {
		t.Fatalf("other buyer on day 15: %v", err)
	}

	f.now = day0.Add(31 * 24 * time.Hour)
	ok, err = f.inspections.CanRequest(f.ctx, buyer, f.car.ID)
	if err != nil || !ok {
		t.Fatalf("day 31 CanRequest = %v, %v; want true", ok, err)
	}
	again, err := f.inspections.Request(f.ctx, buyer, f.car.ID)
	if err != nil {
		t.Fatalf("day 31 request: %v", err)
	}
	if want := "INS-" + f.now.Format("20060102") + "-00001"; again.ID != want {
		t.Fatalf("day 31 id = %s, want %s", again.ID, want)
	}
}

func TestCooldownBoundary(t *testing.T) {
	f := newFixture(t)
	if _, err := f.inspections.Request(f.ctx, f.buyer.Actor(), f.car.ID); err != nil {
		t.Fatalf("request: %v", err)
	}

	f.advance(30*24*time.Hour - time.Second)
	if ok, _ := f.inspections.CanRequest(f.ctx, f.buyer.Actor(), f.car.ID); ok {
		t.Fatal("still inside the window, CanRequest should be false")
	}
	f.advance(2 * time.Second)
	if ok, _ := f.inspections.CanRequest(f.ctx, f.buyer.Actor(), f.car.ID); !ok {
		t.Fatal("past the window, CanRequest should be true")
	}
}

func TestRequestIDsAreSequentialPerDay(t *testing.T) {
	f := newFixture(t)
	other := f.publishedCar(f.seller)

	var got []string
	for _, step := range []struct {
		actor models.Actor
		car   string
	}{
		{f.buyer.Actor(), f.car.ID},
		{f.buyer2.Actor(), f.car.ID},
		{f.buyer.Actor(), other.ID},
		{f.guest.Actor(), f.car.ID},
	} {
		req, err := f.inspections.Request(f.ctx, step.actor, step.car)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if !workflow.ValidID(req.ID) {
			t.Fatalf("malformed id %s", req.ID)
		}
		got = append(got, req.ID)
	}
	want := []string{"INS-20261016-00001", "INS-20261016-00002", "INS-20261016-00003", "INS-20261016-00004"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}

	f.advance(24 * time.Hour)
	next, err := f.inspections.Request(f.ctx, f.buyer2.Actor(), other.ID)
	if err != nil {
		t.Fatalf("next day request: %v", err)
	}
	if next.ID != "INS-20261017-00001" {
		t.Fatalf("next day id = %s", next.ID)
	}
}

func TestConcurrentRequestsGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	cars := make([]models.Car, 8)
	for i := range cars {
		cars[i] = f.publishedCar(f.seller)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for _, car := range cars {
		wg.Add(1)
		go func(carID string) {
			defer wg.Done()
			req, err := f.inspections.Request(f.ctx, f.buyer.Actor(), carID)
			if err != nil {
				t.Errorf("request %s: %v", carID, err)
				return
			}
			mu.Lock()
			ids[req.ID] = true
			mu.Unlock()
		}(car.ID)
	}
	wg.Wait()
	if len(ids) != len(cars) {
		t.Fatalf("expected %d distinct ids, got %d", len(cars), len(ids))
	}
}

func TestRequestPermissions(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		actor models.Actor
		want  error
	}{
		{"seller on own listing", f.seller.Actor(), apperr.ErrPermissionDenied},
		{"inspector", f.inspectorA.Actor(), apperr.ErrPermissionDenied},
		{"admin", f.adminUser.Actor(), apperr.ErrPermissionDenied},
		{"anonymous", models.Actor{}, apperr.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.inspections.Request(f.ctx, tt.actor, f.car.ID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	pending, err := f.listings.Submit(f.ctx, f.seller.Actor(), ListingInput{Make: "VW", Model: "Golf", Year: 2020, PriceCents: 900_000})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.inspections.Request(f.ctx, f.buyer.Actor(), pending.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("request on pending listing: expected not found, got %v", err)
	}
}

func TestHappyPath(t *testing.T) {
	f := newFixture(t)

	req, err := f.inspections.Request(f.ctx, f.buyer.Actor(), f.car.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Status != models.InspectionRequested || req.SellerID != f.seller.ID {
		t.Fatalf("unexpected new request: %+v", req)
	}

	date := f.now.AddDate(0, 0, 2)
	req, err = f.inspections.Accept(f.ctx, f.seller.Actor(), req.ID, date, "10:00-12:00")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if req.Status != models.InspectionScheduled || req.TimeSlot != "10:00-12:00" || req.ScheduledDate == nil {
		t.Fatalf("unexpected scheduled request: %+v", req)
	}

	pool, err := f.inspections.ListPool(f.ctx, f.inspectorB.Actor())
	if err != nil || len(pool) != 1 || pool[0].ID != req.ID {
		t.Fatalf("pool = %v, %v", pool, err)
	}

	req, err = f.inspections.SelfAssign(f.ctx, f.inspectorA.Actor(), req.ID)
	if err != nil {
		t.Fatalf("self-assign: %v", err)
	}
	if req.Status != models.InspectionAssigned || !req.InspectedBy(f.inspectorA.ID) {
		t.Fatalf("unexpected assigned request: %+v", req)
	}

	req, err = f.inspections.Start(f.ctx, f.inspectorA.Actor(), req.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if req.Status != models.InspectionInProgress {
		t.Fatalf("status = %s, want in_progress", req.Status)
	}

	report, err := f.reports.Submit(f.ctx, f.inspectorA.Actor(), req.ID, ReportInput{
		Ratings:         allRatings(4),
		OverallComments: "Well kept",
		Photos: []PhotoUpload{
			{Data: jpegBytes, DeclaredType: "image/jpeg", Caption: "front"},
			{Data: pngBytes, Caption: "dashboard"},
		},
	})
	if err != nil {
		t.Fatalf("submit report: %v", err)
	}
	if report.AverageRating() != 4.0 {
		t.Fatalf("average = %v, want 4.0", report.AverageRating())
	}
	if len(report.Photos) != 2 || f.photos.count() != 2 {
		t.Fatalf("photos: report has %d, store has %d", len(report.Photos), f.photos.count())
	}

	final, err := f.inspections.Get(f.ctx, f.buyer.Actor(), req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != models.InspectionCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}

	want := []events.Type{
		events.ListingModerated,
		events.InspectionCreated,
		events.InspectionScheduled,
		events.InspectionAssigned,
		events.InspectionStarted,
		events.InspectionCompleted,
	}
	got := f.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestSelfAssignRace(t *testing.T) {
	f := newFixture(t)
	req := f.scheduled()

	inspectors := []models.User{f.inspectorA, f.inspectorB}
	for i := 0; i < 6; i++ {
		inspectors = append(inspectors, f.user("racer_"+string(rune('a'+i)), models.RoleInspector, false))
	}

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]error, len(inspectors))
	)
	for i, insp := range inspectors {
		wg.Add(1)
		go func(i int, actor models.Actor) {
			defer wg.Done()
			<-start
			_, results[i] = f.inspections.SelfAssign(f.ctx, actor, req.ID)
		}(i, insp.Actor())
	}
	close(start)
	wg.Wait()

	winners := 0
	var winner string
	for i, err := range results {
		switch {
		case err == nil:
			winners++
			winner = inspectors[i].ID
		case errors.Is(err, apperr.ErrAlreadyAssigned):
		default:
			t.Fatalf("inspector %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	final, err := f.inspections.Get(f.ctx, f.adminUser.Actor(), req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != models.InspectionAssigned || !final.InspectedBy(winner) {
		t.Fatalf("final state %+v, winner %s", final, winner)
	}
}

func TestRejectionIsTerminal(t *testing.T) {
	f := newFixture(t)
	req, err := f.inspections.Request(f.ctx, f.buyer.Actor(), f.car.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req, err = f.inspections.Reject(f.ctx, f.seller.Actor(), req.ID, "sold elsewhere")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if req.RejectionReason != "sold elsewhere" {
		t.Fatalf("reason = %q", req.RejectionReason)
	}

	attempts := map[string]func() error{
		"accept": func() error {
			_, err := f.inspections.Accept(f.ctx, f.seller.Actor(), req.ID, f.now.AddDate(0, 0, 3), "08:00-10:00")
			return err
		},
		"reject again": func() error {
			_, err := f.inspections.Reject(f.ctx, f.seller.Actor(), req.ID, "again")
			return err
		},
		"self-assign": func() error {
			_, err := f.inspections.SelfAssign(f.ctx, f.inspectorA.Actor(), req.ID)
			return err
		},
		"start": func() error {
			_, err := f.inspections.Start(f.ctx, f.inspectorA.Actor(), req.ID)
			return err
		},
		"submit": func() error {
			_, err := f.reports.Submit(f.ctx, f.inspectorA.Actor(), req.ID, ReportInput{Ratings: allRatings(3)})
			return err
		},
	}
	for name, attempt := range attempts {
		if err := attempt(); err == nil || !apperr.Expected(err) {
			t.Errorf("%s: expected a user-facing failure, got %v", name, err)
		}
	}

	final, _ := f.inspections.Get(f.ctx, f.buyer.Actor(), req.ID)
	if final.Status != models.InspectionRejected {
		t.Fatalf("status = %s, want rejected", final.Status)
	}
}

func TestAcceptValidation(t *testing.T) {
	f := newFixture(t)
	req, err := f.inspections.Request(f.ctx, f.buyer.Actor(), f.car.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	tests := []struct {
		name string
		date time.Time
		slot models.TimeSlot
	}{
		{"today", f.now.Add(2 * time.Hour), "10:00-12:00"},
		{"yesterday", f.now.AddDate(0, 0, -1), "10:00-12:00"},
		{"unknown slot", f.now.AddDate(0, 0, 2), "07:00-08:00"},
		{"missing date", time.Time{}, "10:00-12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.inspections.Accept(f.ctx, f.seller.Actor(), req.ID, tt.date, tt.slot)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := f.inspections.Accept(f.ctx, f.buyer.Actor(), req.ID, f.now.AddDate(0, 0, 1), "10:00-12:00"); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("buyer accepting: expected permission denied, got %v", err)
	}

	got, _ := f.inspections.Get(f.ctx, f.seller.Actor(), req.ID)
	if got.Status != models.InspectionRequested {
		t.Fatalf("status changed to %s", got.Status)
	}

	if _, err := f.inspections.Accept(f.ctx, f.seller.Actor(), req.ID, f.now.AddDate(0, 0, 1), "16:00-18:00"); err != nil {
		t.Fatalf("accept for tomorrow: %v", err)
	}
}

func TestStartRequiresInspectorOfRecord(t *testing.T) {
	f := newFixture(t)
	req := f.assigned()

	if _, err := f.inspections.Start(f.ctx, f.inspectorB.Actor(), req.ID); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("other inspector: expected permission denied, got %v", err)
	}
	if _, err := f.inspections.SelfAssign(f.ctx, f.inspectorB.Actor(), req.ID); !errors.Is(err, apperr.ErrAlreadyAssigned) {
		t.Fatalf("self-assign taken request: expected already assigned, got %v", err)
	}
}

func TestVisibilityAndDashboards(t *testing.T) {
	f := newFixture(t)
	req := f.scheduled()

	if _, err := f.inspections.Get(f.ctx, f.inspectorB.Actor(), req.ID); err != nil {
		t.Fatalf("inspector should see pool work: %v", err)
	}
	if _, err := f.inspections.Get(f.ctx, f.buyer2.Actor(), req.ID); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("unrelated buyer: expected permission denied, got %v", err)
	}

	mine, err := f.inspections.ListMine(f.ctx, f.seller.Actor(), "")
	if err != nil || len(mine) != 1 {
		t.Fatalf("seller dashboard = %v, %v", mine, err)
	}
	mine, _ = f.inspections.ListMine(f.ctx, f.buyer2.Actor(), "")
	if len(mine) != 0 {
		t.Fatalf("buyer2 dashboard should be empty, got %v", mine)
	}
	if _, err := f.inspections.ListPool(f.ctx, f.buyer.Actor()); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("buyer pool: expected permission denied, got %v", err)
	}
}
