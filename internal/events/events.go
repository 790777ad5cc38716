package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"seatbooking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingUpdated       = "booking.updated"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingArrived       = "booking.arrived"
	EventBookingNoShow        = "booking.no_show"
	EventBookingAutoCancelled = "booking.auto_cancelled"
	EventBookingCompleted     = "booking.completed"
	EventBookingDeleted       = "booking.deleted"
	EventReminderSent         = "booking.reminder_sent"
	EventTimeAlertSent        = "booking.time_alert_sent"
)

// AllBookingEvents lists every lifecycle event type, for subscribers that
// want the whole stream.
var AllBookingEvents = []string{
	EventBookingCreated,
	EventBookingUpdated,
	EventBookingCancelled,
	EventBookingArrived,
	EventBookingNoShow,
	EventBookingAutoCancelled,
	EventBookingCompleted,
	EventBookingDeleted,
	EventReminderSent,
	EventTimeAlertSent,
}

// BookingEventPayload carries a snapshot of the booking after the change.
type BookingEventPayload struct {
	Booking    models.Booking `json:"booking"`
	ChangedBy  string         `json:"changedBy,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals a booking payload.
func (e *Event) Decode() (*BookingEventPayload, error) {
	var p BookingEventPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EventHandler reacts to an event.
type EventHandler func(ctx context.Context, event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs subscribers synchronously. A failing handler is logged and
// does not stop the others.
func (b *EventBus) Publish(ctx context.Context, event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(ctx context.Context, eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}
	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(ctx, &event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// JSONPublisher is satisfied by *EventBus.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, eventType string, payload interface{}) error
}

// PublishBooking publishes a snapshot of b. A nil publisher is a no-op.
func PublishBooking(ctx context.Context, pub JSONPublisher, eventType string, b *models.Booking, changedBy string, at time.Time) error {
	if pub == nil || b == nil {
		return nil
	}
	return pub.PublishJSON(ctx, eventType, BookingEventPayload{
		Booking:    *b.Clone(),
		ChangedBy:  changedBy,
		OccurredAt: at.UTC(),
	})
}
