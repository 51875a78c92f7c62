package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wheeldeals/internal/apperr"
	"wheeldeals/internal/config"
	"wheeldeals/internal/ids"
	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+\-_]{3,150}$`)

type AuthService struct {
	clock
	store  repository.Store
	cfg    *config.AppConfig
	params security.Argon2Params
	log    zerolog.Logger
}

func NewAuthService(store repository.Store, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	params := security.DefaultParams
	if cfg.Security.Argon2Time > 0 {
		params.Time = cfg.Security.Argon2Time
	}
	if cfg.Security.Argon2MemoryKiB > 0 {
		params.Memory = cfg.Security.Argon2MemoryKiB
	}
	return &AuthService{
		store:  store,
		cfg:    cfg,
		params: params,
		log:    log,
	}
}

// SessionMeta describes the client a session is opened for.
type SessionMeta struct {
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	City      string
	Role      models.Role
	SessionMeta
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         models.User
	DeviceID     string
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.City = strings.TrimSpace(in.City)
	if in.Role == "" {
		in.Role = models.RoleBuyer
	}
}

func (in RegisterInput) validate() error {
	if !usernamePattern.MatchString(in.Username) {
		return apperr.Invalid("username must be 3 to 150 letters, digits or @.+-_")
	}
	if strings.HasPrefix(strings.ToLower(in.Username), "guest_") {
		return apperr.Invalid("usernames starting with guest_ are reserved")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return apperr.Invalid("email address is not valid")
		}
	}
	if len(in.Password) < minPasswordLength {
		return apperr.Invalid("password must be at least %d characters", minPasswordLength)
	}
	if !in.Role.SelfAssignable() {
		return apperr.Invalid("role %q cannot be chosen at sign-up", in.Role)
	}
	return nil
}

// Register creates an account with a self-selected role and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	user, err := s.CreateUser(ctx, input)
	if err != nil {
		return AuthResult{}, err
	}
	return s.createSession(ctx, user, input.SessionMeta)
}

// CreateUser validates input and stores the account without opening a
// session.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput) (models.User, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return models.User{}, err
	}

	if input.Email != "" {
		if _, err := s.store.Users().FindByEmail(ctx, input.Email); err == nil {
			return models.User{}, repository.ErrEmailTaken
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, err
		}
	}

	passwordHash, err := security.HashPasswordWithParams(input.Password, s.params)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		City:         input.City,
		Role:         input.Role,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return models.User{}, err
	}
	user, err = s.store.Users().GetByID(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

type LoginInput struct {
	// Identifier is a username or an email address.
	Identifier string
	Password   string
	SessionMeta
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	var (
		user models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.store.Users().FindByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.store.Users().FindByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if user.IsGuest {
		return AuthResult{}, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.store.Users().TouchLogin(ctx, user.ID, s.Now()); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record login failed")
	}
	return s.createSession(ctx, user, input.SessionMeta)
}

// CreateGuest provisions an ephemeral buyer identity for a visitor.
func (s *AuthService) CreateGuest(ctx context.Context, meta SessionMeta) (AuthResult, error) {
	secret, _, err := security.GenerateRefreshToken(32)
	if err != nil {
		return AuthResult{}, err
	}
	// Guests never log in with a password; the hash only fills the column.
	passwordHash, err := security.HashPasswordWithParams(secret, security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     GuestUsername(),
		PasswordHash: passwordHash,
		Role:         models.RoleBuyer,
		IsGuest:      true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return AuthResult{}, err
	}
	user, err = s.store.Users().GetByID(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Debug().Str("user_id", user.ID).Str("username", user.Username).Msg("guest created")
	return s.createSession(ctx, user, meta)
}

// GuestUsername returns a fresh guest_<12 hex> name.
func GuestUsername() string {
	return "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *AuthService) createSession(ctx context.Context, user models.User, meta SessionMeta) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	deviceID := meta.DeviceID
	if deviceID == "" {
		deviceID = ids.New()
	}
	deviceName := meta.DeviceName
	if deviceName == "" {
		deviceName = "Unknown Device"
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		DeviceID:         deviceID,
		DeviceName:       deviceName,
		RefreshTokenHash: refreshHash,
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
		ExpiresAt:        s.Now().Add(s.cfg.Security.JWTRefreshTTL),
	}

	accessToken, err := s.accessToken(user, session)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     deviceID,
	}, nil
}

func (s *AuthService) accessToken(user models.User, session models.Session) (string, error) {
	return security.GenerateAccessToken(s.cfg.Security.JWTAccessSecret, security.Identity{
		UserID:    user.ID,
		SessionID: session.ID,
		DeviceID:  session.DeviceID,
		Role:      string(user.Role),
		Guest:     user.IsGuest,
	}, s.cfg.Security.JWTAccessTTL)
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	limit := s.cfg.Security.MaxSessions
	if limit <= 0 {
		return nil
	}
	count, err := s.store.Sessions().CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= limit {
		return nil
	}

	return s.store.Sessions().DeleteOldestSessions(ctx, userID, limit)
}

type RefreshInput struct {
	UserID       string
	RefreshToken string
	DeviceID     string
}

// Refresh rotates the refresh token of a session and issues a new access
// token.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	user, err := s.store.Users().GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	refreshHash := security.HashRefreshToken(input.RefreshToken)
	session, err := s.store.Sessions().FindByRefreshHash(ctx, input.UserID, refreshHash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if session.DeviceID != input.DeviceID {
		return AuthResult{}, ErrInvalidCredentials
	}

	if session.ExpiresAt.Before(s.Now()) {
		_ = s.store.Sessions().DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	refreshToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session.RefreshTokenHash = newHash
	session.ExpiresAt = s.Now().Add(s.cfg.Security.JWTRefreshTTL)

	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := s.accessToken(user, session)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     session.DeviceID,
	}, nil
}

// Logout ends the device session. A guest identity does not outlive its
// session, so logging out a guest deletes the account.
func (s *AuthService) Logout(ctx context.Context, actor models.Actor, deviceID string) error {
	if actor.IsGuest {
		if err := s.store.Users().Delete(ctx, actor.UserID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}
		s.log.Debug().Str("user_id", actor.UserID).Msg("guest logged out and removed")
		return nil
	}
	return s.store.Sessions().DeleteByDevice(ctx, actor.UserID, deviceID)
}

// Sessions lists the devices the actor is signed in on.
func (s *AuthService) Sessions(ctx context.Context, actor models.Actor) ([]models.Session, error) {
	if actor.Anonymous() {
		return nil, apperr.Denied("not signed in")
	}
	return s.store.Sessions().ListByUser(ctx, actor.UserID)
}

// RevokeSession signs the actor out of another device.
func (s *AuthService) RevokeSession(ctx context.Context, actor models.Actor, currentDevice, deviceID string) error {
	if actor.Anonymous() {
		return apperr.Denied("not signed in")
	}
	if deviceID == "" {
		return apperr.Invalid("device id is required")
	}
	if deviceID == currentDevice {
		return apperr.Invalid("use logout to end the current session")
	}
	return s.store.Sessions().DeleteByDevice(ctx, actor.UserID, deviceID)
}

func (s *AuthService) Me(ctx context.Context, actor models.Actor) (models.User, error) {
	if actor.Anonymous() {
		return models.User{}, apperr.Denied("not signed in")
	}
	return s.store.Users().GetByID(ctx, actor.UserID)
}

// CreateAdmin makes an administrator account. It is used by the operator CLI
// only; admin is never a self-selected role.
func (s *AuthService) CreateAdmin(ctx context.Context, username, email, password string) (models.User, error) {
	in := RegisterInput{Username: username, Email: email, Password: password, Role: models.RoleBuyer}
	in.normalize()
	if err := in.validate(); err != nil {
		return models.User{}, err
	}

	passwordHash, err := security.HashPasswordWithParams(in.Password, s.params)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           ids.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("admin created")
	return s.store.Users().GetByID(ctx, user.ID)
}

// PurgeGuests removes guest accounts older than the configured lifetime.
func (s *AuthService) PurgeGuests(ctx context.Context) (int64, error) {
	ttl := s.cfg.Guests.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	n, err := s.store.Users().DeleteGuestsBefore(ctx, s.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("removed", n).Msg("expired guests purged")
	}
	return n, nil
}
