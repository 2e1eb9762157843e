// Package events defines the contracts the bounded contexts exchange over
// the bus. They are the only thing one context knows about another.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicOrders    = "orders"
	TopicShipments = "shipments"
	TopicInvoices  = "invoices"
)

// Durable subscriptions, one per consumer.
const (
	SubscriptionShipmentOrders      = "shipment-orders"
	SubscriptionInvoicingShipments  = "invoicing-shipments"
	SubscriptionNotificationsOrders = "notifications-orders"
	SubscriptionArchiveInvoices     = "archive-invoices"
)

// Event types, carried in every envelope as eventType.
const (
	TypeOrderStateChanged    = "OrderStateChanged"
	TypeShipmentStateChanged = "ShipmentStateChanged"
	TypeInvoiceCreated       = "InvoiceCreated"
	TypeInvoiceStateChanged  = "InvoiceStateChanged"
)

// Event is implemented by every contract.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
}

// BaseEvent carries the envelope fields. EventID is unique per publish
// attempt of a saga run and is used for correlation and deduplication,
// never for ordering.
type BaseEvent struct {
	ID   uuid.UUID `json:"eventId"`
	Type string    `json:"eventType"`
	At   time.Time `json:"occurredAt"`
}

// NewBaseEvent stamps a new event id and the UTC time.
func NewBaseEvent(eventType string, at time.Time) BaseEvent {
	return BaseEvent{ID: uuid.New(), Type: eventType, At: at.UTC()}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.At }

// Decode reads an envelope and returns the concrete contract for its
// eventType.
func Decode(data []byte) (Event, error) {
	var base BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	var ev Event
	switch base.Type {
	case TypeOrderStateChanged:
		var e OrderStateChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", base.Type, err)
		}
		ev = e
	case TypeShipmentStateChanged:
		var e ShipmentStateChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", base.Type, err)
		}
		ev = e
	case TypeInvoiceCreated, TypeInvoiceStateChanged:
		var e InvoiceStateChanged
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", base.Type, err)
		}
		ev = e
	default:
		return nil, &UnknownTypeError{Type: base.Type}
	}

	if ev.EventID() == uuid.Nil {
		return nil, fmt.Errorf("decode %s: missing eventId", base.Type)
	}
	return ev, nil
}

// UnknownTypeError is returned by Decode for an eventType it does not know.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}
