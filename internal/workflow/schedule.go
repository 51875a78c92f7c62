package workflow

import (
	"time"

	"wheeldeals/internal/apperr"
)

// Cooldown is how long a buyer must wait between requests for the same car,
// whatever became of the earlier request.
const Cooldown = 30 * 24 * time.Hour

// CooldownCutoff is the oldest request time that still blocks a new request.
// A non-positive window falls back to Cooldown.
func CooldownCutoff(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = Cooldown
	}
	return now.Add(-window)
}

// ValidateScheduleDate requires the inspection day to be at least tomorrow.
func ValidateScheduleDate(date, now time.Time) error {
	if date.IsZero() {
		return apperr.Invalid("scheduled date is required")
	}
	today := dateOf(now)
	day := dateOf(date)
	if day.Before(today) {
		return apperr.Invalid("inspection date cannot be in the past")
	}
	if day.Before(today.AddDate(0, 0, 1)) {
		return apperr.Invalid("please schedule at least 1 day in advance")
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
