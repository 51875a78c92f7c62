// Package events carries workflow notifications and background tasks over a
// Redis stream. Producers publish; the worker consumes through
// internal/queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Type string

const (
	InspectionCreated    Type = "inspection.created"
	InspectionScheduled  Type = "inspection.scheduled"
	InspectionRejected   Type = "inspection.rejected"
	InspectionAssigned   Type = "inspection.assigned"
	InspectionStarted    Type = "inspection.started"
	InspectionCompleted  Type = "inspection.completed"
	InspectionReassigned Type = "inspection.reassigned"

	ListingModerated Type = "listing.moderated"

	// GuestCleanup asks the worker to purge expired guest accounts.
	GuestCleanup Type = "guest_cleanup"
)

type Event struct {
	Type         Type      `json:"type"`
	InspectionID string    `json:"inspection_id,omitempty"`
	CarID        string    `json:"car_id,omitempty"`
	ActorID      string    `json:"actor_id,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	At           time.Time `json:"at"`
}

// Values flattens the event into stream entry fields.
func (e Event) Values() map[string]any {
	values := map[string]any{
		"type": string(e.Type),
		"at":   e.At.UTC().Format(time.RFC3339Nano),
	}
	set := func(k, v string) {
		if v != "" {
			values[k] = v
		}
	}
	set("inspection_id", e.InspectionID)
	set("car_id", e.CarID)
	set("actor_id", e.ActorID)
	set("from", e.From)
	set("to", e.To)
	set("detail", e.Detail)
	return values
}

// Decode is the inverse of Values.
func Decode(values map[string]any) (Event, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return Event{}, err
	}
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: 100_000}
}

func (p *StreamPublisher) Publish(ctx context.Context, e Event) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: e.Values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Nop drops every event. It stands in when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
