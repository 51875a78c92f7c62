// Package tasks is the worker side of the event stream.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wheeldeals/internal/events"
)

// GuestPurger removes expired guest accounts.
type GuestPurger interface {
	PurgeGuests(ctx context.Context) (int64, error)
}

type Processor struct {
	guests GuestPurger
	logger zerolog.Logger
}

func NewProcessor(guests GuestPurger, logger zerolog.Logger) *Processor {
	return &Processor{
		guests: guests,
		logger: logger,
	}
}

// Handle processes one stream entry. Malformed entries are logged and
// dropped so they do not block the group.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	e, err := events.Decode(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed entry")
		return nil
	}

	switch {
	case e.Type == events.GuestCleanup:
		return p.handleGuestCleanup(ctx)
	case strings.HasPrefix(string(e.Type), "inspection."):
		p.handleInspection(e)
	case e.Type == events.ListingModerated:
		p.logger.Info().
			Str("event", string(e.Type)).
			Str("car_id", e.CarID).
			Str("actor_id", e.ActorID).
			Str("status", e.To).
			Str("reason", e.Detail).
			Time("at", e.At).
			Msg("listing moderated")
	default:
		p.logger.Warn().Str("type", string(e.Type)).Str("message_id", msg.ID).Msg("unknown event type")
	}
	return nil
}

func (p *Processor) handleInspection(e events.Event) {
	p.logger.Info().
		Str("event", string(e.Type)).
		Str("inspection_id", e.InspectionID).
		Str("car_id", e.CarID).
		Str("actor_id", e.ActorID).
		Str("from", e.From).
		Str("to", e.To).
		Time("at", e.At).
		Msg("inspection transition")
}

func (p *Processor) handleGuestCleanup(ctx context.Context) error {
	if p.guests == nil {
		return nil
	}
	n, err := p.guests.PurgeGuests(ctx)
	if err != nil {
		return fmt.Errorf("purge guests: %w", err)
	}
	p.logger.Info().Int64("removed", n).Msg("guest cleanup finished")
	return nil
}
