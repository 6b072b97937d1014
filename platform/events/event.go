// Package events is the in-process event bus the lead pipeline runs on:
// intake publishes, allocation and notification subscribe. Platform layer,
// no domain knowledge; the event structs live in internal/events.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type, e.g. "intake.lead.received".
	EventName() string
	// OccurredAt is the publish timestamp.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns the publish timestamp.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a new event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of one type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes and subscribes to domain events. Publish is async so a lead
// submission returns before its allocation pass runs; PublishSync exists for
// paths that must observe handler errors.
type Bus interface {
	// Publish dispatches to all handlers registered for the event's name.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches and waits for every handler, joining errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name Event.EventName() returns.
	Subscribe(eventName string, handler Handler)
}
