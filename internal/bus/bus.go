// Package bus carries events between bounded contexts. Publishing is
// fire-and-forget onto a topic; receiving is a pull loop over a durable
// subscription with explicit acknowledgement, so an abandoned message is
// redelivered by the bus with an incremented delivery count.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/fulfillment/internal/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header keys set on every published message.
const (
	HeaderEventType = "Event-Type"
	HeaderEventID   = "Event-Id"
)

var (
	// ErrNoMessages is returned by Source.Fetch when nothing arrived within
	// the poll interval.
	ErrNoMessages = errors.New("bus: no messages")

	// ErrClosed is returned after the bus was closed.
	ErrClosed = errors.New("bus: closed")
)

// Publisher sends an event to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event events.Event) error
}

// Source is the receive side of one durable subscription. At most one
// delivery is outstanding at a time.
type Source interface {
	Fetch(ctx context.Context) (Delivery, error)
}

// Delivery is a received message awaiting acknowledgement.
type Delivery interface {
	Message() Message
	// Ack completes the message; it will not be delivered again.
	Ack(ctx context.Context) error
	// Nak abandons the message for redelivery.
	Nak(ctx context.Context) error
}

// Message is a received event.
type Message struct {
	Topic         string
	Subscription  string
	Data          []byte
	Header        map[string]string
	DeliveryCount uint64
}

// EventID returns the id stamped by the publisher.
func (m Message) EventID() string {
	return m.Header[HeaderEventID]
}

// EventType returns the type stamped by the publisher.
func (m Message) EventType() string {
	return m.Header[HeaderEventType]
}

// Context returns ctx carrying the trace context propagated by the
// publisher, if any.
func (m Message) Context(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(m.Header))
}

// encode serializes event and builds its headers, including the caller's
// trace context.
func encode(ctx context.Context, event events.Event) ([]byte, map[string]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}

	header := map[string]string{
		HeaderEventType: event.EventType(),
		HeaderEventID:   event.EventID().String(),
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(header))

	return data, header, nil
}
