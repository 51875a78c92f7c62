package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleSeller    Role = "seller"
	RoleInspector Role = "inspector"
	RoleAdmin     Role = "admin"
)

var roles = []Role{RoleBuyer, RoleSeller, RoleInspector, RoleAdmin}

// Roles lists every role in display order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func ParseRole(s string) (Role, error) {
	candidate := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range roles {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// SelfAssignable reports whether a user may pick the role at sign-up.
func (r Role) SelfAssignable() bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleInspector
}

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	Phone        string
	City         string
	Role         Role
	IsGuest      bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, IsGuest: u.IsGuest}
}

// Actor is the caller of a core operation as supplied by the identity layer.
// The zero value is an anonymous visitor with no identity yet.
type Actor struct {
	UserID  string
	Role    Role
	IsGuest bool
}

func (a Actor) Anonymous() bool { return a.UserID == "" }

func (a Actor) Is(role Role) bool { return !a.Anonymous() && a.Role == role }

type UserFilter struct {
	Role   Role
	Limit  int
	Offset int
}

type Session struct {
	ID               string
	UserID           string
	DeviceID         string
	DeviceName       string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
