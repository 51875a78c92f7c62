// Package apperr holds the user-facing failure kinds shared by the workflow
// engine, the services and the HTTP layer. Callers wrap a kind with context
// using fmt.Errorf("%w: ...") and match it with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidState           = errors.New("invalid state")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyAssigned        = errors.New("already assigned")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrCooldown               = errors.New("cooldown active")
)

func Denied(format string, args ...any) error {
	return wrap(ErrPermissionDenied, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Invalid(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func AlreadyAssigned(format string, args ...any) error {
	return wrap(ErrAlreadyAssigned, format, args...)
}

func Conflict(format string, args ...any) error {
	return wrap(ErrConcurrentModification, format, args...)
}

func Cooldown(format string, args ...any) error {
	return wrap(ErrCooldown, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Code is the stable identifier reported to clients for a failure kind.
// Errors that carry no known kind report "internal_error".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrCooldown):
		return "cooldown_active"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	default:
		return "internal_error"
	}
}

// Expected reports whether err is one of the user-facing kinds.
func Expected(err error) bool {
	return Code(err) != "internal_error"
}
