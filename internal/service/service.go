package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wheeldeals/internal/events"
)

// PhotoStore is the blob backend for inspection photos.
type PhotoStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, keys ...string) error
	URL(ctx context.Context, key string) (string, error)
}

// clock is embedded by every service so tests can pin the time.
type clock struct {
	now func() time.Time
}

func (c *clock) SetClock(now func() time.Time) {
	c.now = now
}

func (c *clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now().UTC()
}

func publish(ctx context.Context, pub events.Publisher, log zerolog.Logger, e events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Str("inspection_id", e.InspectionID).Msg("publish event failed")
	}
}

func removePhotos(ctx context.Context, photos PhotoStore, log zerolog.Logger, keys []string) {
	if photos == nil || len(keys) == 0 {
		return
	}
	if err := photos.Remove(ctx, keys...); err != nil {
		log.Warn().Err(err).Int("count", len(keys)).Msg("remove photo objects failed")
	}
}
