package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/security"
)

func register(t *testing.T, f *fixture, username string, role models.Role) AuthResult {
	t.Helper()
	res, err := f.auth.Register(f.ctx, RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return res
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	res := register(t, f, "alice", models.RoleSeller)
	if res.User.Role != models.RoleSeller || res.User.IsGuest {
		t.Fatalf("unexpected user %+v", res.User)
	}
	id, err := security.ParseAccessToken(res.AccessToken, f.cfg.Security.JWTAccessSecret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if id.UserID != res.User.ID || id.Role != string(models.RoleSeller) || id.DeviceID != res.DeviceID {
		t.Fatalf("unexpected identity %+v", id)
	}

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"admin role", RegisterInput{Username: "mallory", Password: "long enough pw", Role: models.RoleAdmin}},
		{"reserved prefix", RegisterInput{Username: "guest_fake", Password: "long enough pw"}},
		{"short password", RegisterInput{Username: "bob", Password: "short"}},
		{"bad username", RegisterInput{Username: "b b", Password: "long enough pw"}},
		{"bad email", RegisterInput{Username: "carol", Email: "nope", Password: "long enough pw"}},
		{"duplicate email", RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "long enough pw"}},
		{"duplicate username", RegisterInput{Username: "alice", Password: "long enough pw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.auth.Register(f.ctx, tt.in); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	register(t, f, "dave", models.RoleBuyer)

	for _, identifier := range []string{"dave", "DAVE@example.com"} {
		res, err := f.auth.Login(f.ctx, LoginInput{Identifier: identifier, Password: "correct horse battery"})
		if err != nil {
			t.Fatalf("login with %s: %v", identifier, err)
		}
		if res.User.Username != "dave" || res.AccessToken == "" {
			t.Fatalf("unexpected result %+v", res)
		}
	}

	for _, in := range []LoginInput{
		{Identifier: "dave", Password: "wrong password"},
		{Identifier: "nobody", Password: "correct horse battery"},
		{Identifier: f.guest.Username, Password: "x"},
		{Identifier: "", Password: ""},
	} {
		if _, err := f.auth.Login(f.ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %q: expected invalid credentials, got %v", in.Identifier, err)
		}
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "erin", models.RoleBuyer)

	f.advance(time.Minute)
	next, err := f.auth.Refresh(f.ctx, RefreshInput{UserID: res.User.ID, RefreshToken: res.RefreshToken, DeviceID: res.DeviceID})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == res.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, err := f.auth.Refresh(f.ctx, RefreshInput{UserID: res.User.ID, RefreshToken: res.RefreshToken, DeviceID: res.DeviceID}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("reused token: expected invalid credentials, got %v", err)
	}
	if _, err := f.auth.Refresh(f.ctx, RefreshInput{UserID: res.User.ID, RefreshToken: next.RefreshToken, DeviceID: "other-device"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong device: expected invalid credentials, got %v", err)
	}

	f.advance(f.cfg.Security.JWTRefreshTTL + time.Hour)
	if _, err := f.auth.Refresh(f.ctx, RefreshInput{UserID: res.User.ID, RefreshToken: next.RefreshToken, DeviceID: next.DeviceID}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expired session: expected invalid credentials, got %v", err)
	}
}

func TestSessionLimit(t *testing.T) {
	f := newFixture(t)
	register(t, f, "frank", models.RoleBuyer)

	var last AuthResult
	for i := 0; i < 5; i++ {
		f.advance(time.Minute)
		res, err := f.auth.Login(f.ctx, LoginInput{Identifier: "frank", Password: "correct horse battery"})
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		last = res
	}

	n, err := f.store.Sessions().CountByUser(f.ctx, last.User.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != f.cfg.Security.MaxSessions {
		t.Fatalf("sessions = %d, want %d", n, f.cfg.Security.MaxSessions)
	}
}

func TestGuestLifecycle(t *testing.T) {
	f := newFixture(t)

	res, err := f.auth.CreateGuest(f.ctx, SessionMeta{DeviceName: "browser"})
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}
	u := res.User
	if !u.IsGuest || u.Role != models.RoleBuyer || !strings.HasPrefix(u.Username, "guest_") || len(u.Username) != len("guest_")+12 {
		t.Fatalf("unexpected guest %+v", u)
	}

	if _, err := f.inspections.Request(f.ctx, u.Actor(), f.car.ID); err != nil {
		t.Fatalf("guest request: %v", err)
	}

	if err := f.auth.Logout(f.ctx, u.Actor(), res.DeviceID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.store.Users().GetByID(f.ctx, u.ID); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("guest should be deleted, got %v", err)
	}
	mine, _ := f.inspections.ListMine(f.ctx, f.seller.Actor(), "")
	if len(mine) != 0 {
		t.Fatalf("guest requests should cascade, got %v", mine)
	}
}

func TestLogoutRegisteredUser(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "grace", models.RoleBuyer)

	if err := f.auth.Logout(f.ctx, res.User.Actor(), res.DeviceID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.store.Users().GetByID(f.ctx, res.User.ID); err != nil {
		t.Fatalf("registered user must survive logout: %v", err)
	}
	if _, err := f.auth.Refresh(f.ctx, RefreshInput{UserID: res.User.ID, RefreshToken: res.RefreshToken, DeviceID: res.DeviceID}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("refresh after logout: expected invalid credentials, got %v", err)
	}
}

func TestPurgeGuests(t *testing.T) {
	f := newFixture(t)
	if _, err := f.auth.CreateGuest(f.ctx, SessionMeta{}); err != nil {
		t.Fatalf("create guest: %v", err)
	}

	f.advance(12 * time.Hour)
	fresh, err := f.auth.CreateGuest(f.ctx, SessionMeta{})
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}

	f.advance(13 * time.Hour)
	n, err := f.auth.PurgeGuests(f.ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	// The fixture guest and the first guest are past the lifetime.
	if n != 2 {
		t.Fatalf("purged %d guests, want 2", n)
	}
	if _, err := f.store.Users().GetByID(f.ctx, fresh.User.ID); err != nil {
		t.Fatalf("fresh guest should remain: %v", err)
	}
	if _, err := f.store.Users().GetByID(f.ctx, f.buyer.ID); err != nil {
		t.Fatalf("registered users must not be purged: %v", err)
	}
}

func TestCreateAdmin(t *testing.T) {
	f := newFixture(t)
	u, err := f.auth.CreateAdmin(f.ctx, "root", "root@example.com", "a very long password")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Fatalf("role = %s, want admin", u.Role)
	}
	me, err := f.auth.Me(f.ctx, u.Actor())
	if err != nil || me.ID != u.ID {
		t.Fatalf("me = %+v, %v", me, err)
	}
	if _, err := f.auth.Me(f.ctx, models.Actor{}); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("anonymous me: expected permission denied, got %v", err)
	}
}

func TestSessionsAndRevoke(t *testing.T) {
	f := newFixture(t)
	first := register(t, f, "heidi", models.RoleSeller)
	f.advance(time.Minute)
	second, err := f.auth.Login(f.ctx, LoginInput{
		Identifier:  "heidi",
		Password:    "correct horse battery",
		SessionMeta: SessionMeta{DeviceID: "laptop", DeviceName: "Laptop"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	list, err := f.auth.Sessions(f.ctx, second.User.Actor())
	if err != nil || len(list) != 2 {
		t.Fatalf("sessions = %v, %v", list, err)
	}
	if list[0].DeviceID != "laptop" {
		t.Fatalf("most recent session first, got %s", list[0].DeviceID)
	}

	if err := f.auth.RevokeSession(f.ctx, second.User.Actor(), "laptop", "laptop"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("revoking current device: expected validation error, got %v", err)
	}
	if err := f.auth.RevokeSession(f.ctx, second.User.Actor(), "laptop", first.DeviceID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	list, _ = f.auth.Sessions(f.ctx, second.User.Actor())
	if len(list) != 1 {
		t.Fatalf("sessions after revoke = %v", list)
	}
}

type unreachableSessions struct {
	repository.Sessions
}

func (unreachableSessions) FindByRefreshHash(context.Context, string, []byte) (models.Session, error) {
	return models.Session{}, errors.New("connection refused")
}

type outageStore struct {
	repository.Store
}

func (s outageStore) Sessions() repository.Sessions {
	return unreachableSessions{s.Store.Sessions()}
}

func TestRefreshPassesStoreErrorsThrough(t *testing.T) {
	f := newFixture(t)
	res := register(t, f, "gina", models.RoleBuyer)

	auth := NewAuthService(outageStore{f.store}, f.cfg, zerolog.Nop())
	auth.SetClock(func() time.Time { return f.now })
	_, err := auth.Refresh(f.ctx, RefreshInput{UserID: res.User.ID, RefreshToken: res.RefreshToken, DeviceID: res.DeviceID})
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected the store error, got %v", err)
	}
	if apperr.Expected(err) {
		t.Fatalf("store error was classified as %s", apperr.Code(err))
	}
}
