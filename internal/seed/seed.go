// Package seed loads demo accounts and listings from a YAML fixture. It goes
// through the services so fixtures obey the same rules as API traffic.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"wheeldeals/internal/models"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/service"
)

type Fixture struct {
	Admins []Account `yaml:"admins"`
	Users  []Account `yaml:"users"`
	Cars   []Car     `yaml:"cars"`
}

type Account struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Phone     string `yaml:"phone"`
	City      string `yaml:"city"`
	Role      string `yaml:"role"`
}

type Car struct {
	// Seller is the username of the owning seller.
	Seller       string `yaml:"seller"`
	Make         string `yaml:"make"`
	Model        string `yaml:"model"`
	Year         int    `yaml:"year"`
	PriceCents   int64  `yaml:"priceCents"`
	Mileage      *int   `yaml:"mileage"`
	Color        string `yaml:"color"`
	Transmission string `yaml:"transmission"`
	FuelType     string `yaml:"fuelType"`
	Description  string `yaml:"description"`
	// Status is pending (default), published or declined.
	Status         string `yaml:"status"`
	DeclinedReason string `yaml:"declinedReason"`
}

func Load(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixture{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a fixture, rejecting unknown keys.
func Parse(r io.Reader) (Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return fx, nil
}

type Result struct {
	Users   int
	Skipped int
	Cars    int
}

type Seeder struct {
	store    repository.Store
	auth     *service.AuthService
	listings *service.ListingService
	log      zerolog.Logger
}

func New(store repository.Store, auth *service.AuthService, listings *service.ListingService, log zerolog.Logger) *Seeder {
	return &Seeder{store: store, auth: auth, listings: listings, log: log}
}

// Apply creates the fixture's accounts and listings. Accounts whose username
// already exists are reused; listings are always created.
func (s *Seeder) Apply(ctx context.Context, fx Fixture) (Result, error) {
	var res Result
	byName := map[string]models.User{}

	for _, a := range fx.Admins {
		user, created, err := s.account(ctx, a, true)
		if err != nil {
			return res, fmt.Errorf("admin %s: %w", a.Username, err)
		}
		res.count(created)
		byName[user.Username] = user
	}
	for _, a := range fx.Users {
		user, created, err := s.account(ctx, a, false)
		if err != nil {
			return res, fmt.Errorf("user %s: %w", a.Username, err)
		}
		res.count(created)
		byName[user.Username] = user
	}

	var moderator *models.Actor
	for i, c := range fx.Cars {
		seller, ok := byName[c.Seller]
		if !ok {
			u, err := s.store.Users().FindByUsername(ctx, c.Seller)
			if err != nil {
				return res, fmt.Errorf("car %d: seller %q: %w", i+1, c.Seller, err)
			}
			seller = u
		}

		car, err := s.listings.Submit(ctx, seller.Actor(), service.ListingInput{
			Make:         c.Make,
			Model:        c.Model,
			Year:         c.Year,
			PriceCents:   c.PriceCents,
			Mileage:      c.Mileage,
			Color:        c.Color,
			Transmission: models.Transmission(c.Transmission),
			FuelType:     models.FuelType(c.FuelType),
			Description:  c.Description,
		})
		if err != nil {
			return res, fmt.Errorf("car %d: %w", i+1, err)
		}
		res.Cars++

		var decision service.Decision
		switch c.Status {
		case "", string(models.ListingPending):
			continue
		case string(models.ListingPublished), "approved":
			decision = service.DecisionApprove
		case string(models.ListingDeclined):
			decision = service.DecisionDecline
		default:
			return res, fmt.Errorf("car %d: unknown status %q", i+1, c.Status)
		}
		if moderator == nil {
			if moderator, err = s.findAdmin(ctx); err != nil {
				return res, fmt.Errorf("car %d: %w", i+1, err)
			}
		}
		if _, err := s.listings.Moderate(ctx, *moderator, car.ID, decision, c.DeclinedReason); err != nil {
			return res, fmt.Errorf("car %d: moderate: %w", i+1, err)
		}
	}

	s.log.Info().Int("users", res.Users).Int("skipped", res.Skipped).Int("cars", res.Cars).Msg("fixture applied")
	return res, nil
}

func (r *Result) count(created bool) {
	if created {
		r.Users++
	} else {
		r.Skipped++
	}
}

func (s *Seeder) account(ctx context.Context, a Account, admin bool) (models.User, bool, error) {
	existing, err := s.store.Users().FindByUsername(ctx, a.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, false, err
	}

	if admin {
		user, err := s.auth.CreateAdmin(ctx, a.Username, a.Email, a.Password)
		return user, err == nil, err
	}
	user, err := s.auth.CreateUser(ctx, service.RegisterInput{
		Username:  a.Username,
		Email:     a.Email,
		Password:  a.Password,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		City:      a.City,
		Role:      models.Role(a.Role),
	})
	return user, err == nil, err
}

func (s *Seeder) findAdmin(ctx context.Context) (*models.Actor, error) {
	admins, err := s.store.Users().List(ctx, models.UserFilter{Role: models.RoleAdmin, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, errors.New("moderating fixture listings needs an admin account")
	}
	actor := admins[0].Actor()
	return &actor, nil
}
