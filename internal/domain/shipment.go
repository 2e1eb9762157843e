package domain

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/google/uuid"
)

// ShipmentState names the stage of a shipment inside its saga.
type ShipmentState string

const (
	ShipmentStateCreated        ShipmentState = "Created"
	ShipmentStateCostCalculated ShipmentState = "ShippingCostCalculated"
	ShipmentStateScheduled      ShipmentState = "Scheduled"
	ShipmentStateDispatched     ShipmentState = "Dispatched"
	ShipmentStatePersisted      ShipmentState = "Persisted"
	ShipmentStatePublished      ShipmentState = "Published"
)

var shipmentTransitions = statemachine.New[ShipmentState]().
	Allow(ShipmentStateCreated, ShipmentStateCostCalculated).
	Allow(ShipmentStateCostCalculated, ShipmentStateScheduled).
	Allow(ShipmentStateScheduled, ShipmentStateDispatched, ShipmentStatePersisted).
	Allow(ShipmentStateDispatched, ShipmentStatePersisted).
	Allow(ShipmentStatePersisted, ShipmentStatePublished)

// Shipment is implemented by CreatedShipment, CostedShipment,
// ScheduledShipment, DispatchedShipment, PersistedShipment and
// PublishedShipment.
type Shipment interface {
	statemachine.Machine[ShipmentState]
	isShipment()
}

// PersistableShipment is a shipment variant that may be written to storage.
type PersistableShipment interface {
	Shipment
	ToRecord() ShipmentRecord
}

// ShipmentDetails is copied from the order that triggered the shipment.
type ShipmentDetails struct {
	ShipmentID          uuid.UUID
	OrderID             uuid.UUID
	UserID              string
	PremiumSubscription bool
	PaymentMethod       PaymentMethod
	Lines               []OrderLine
	Subtotal            money.Amount
	DiscountAmount      money.Amount
	TotalAfterDiscount  money.Amount
}

// ShippingCharge is the cost breakdown added by the cost step.
type ShippingCharge struct {
	ShippingCost      money.Amount
	TotalWithShipping money.Amount
}

type CreatedShipment struct {
	ShipmentDetails
}

type CostedShipment struct {
	ShipmentDetails
	ShippingCharge
}

type ScheduledShipment struct {
	ShipmentDetails
	ShippingCharge
	TrackingNumber string
	Status         ShipmentStatus
	ScheduledAt    time.Time
}

// DispatchedShipment is a priority shipment handed to the carrier at once.
type DispatchedShipment struct {
	ScheduledShipment
	DispatchedAt time.Time
}

type PersistedShipment struct {
	Record ShipmentRecord
}

type PublishedShipment struct {
	Record  ShipmentRecord
	EventID uuid.UUID
}

func (CreatedShipment) CurrentState() ShipmentState    { return ShipmentStateCreated }
func (CostedShipment) CurrentState() ShipmentState     { return ShipmentStateCostCalculated }
func (ScheduledShipment) CurrentState() ShipmentState  { return ShipmentStateScheduled }
func (DispatchedShipment) CurrentState() ShipmentState { return ShipmentStateDispatched }
func (PersistedShipment) CurrentState() ShipmentState  { return ShipmentStatePersisted }
func (PublishedShipment) CurrentState() ShipmentState  { return ShipmentStatePublished }

func (s CreatedShipment) CanTransitionTo(t ShipmentState) bool    { return canShip(s, t) }
func (s CostedShipment) CanTransitionTo(t ShipmentState) bool     { return canShip(s, t) }
func (s ScheduledShipment) CanTransitionTo(t ShipmentState) bool  { return canShip(s, t) }
func (s DispatchedShipment) CanTransitionTo(t ShipmentState) bool { return canShip(s, t) }
func (s PersistedShipment) CanTransitionTo(t ShipmentState) bool  { return canShip(s, t) }
func (s PublishedShipment) CanTransitionTo(t ShipmentState) bool  { return canShip(s, t) }

func (CreatedShipment) isShipment()    {}
func (CostedShipment) isShipment()     {}
func (ScheduledShipment) isShipment()  {}
func (DispatchedShipment) isShipment() {}
func (PersistedShipment) isShipment()  {}
func (PublishedShipment) isShipment()  {}

func canShip(s Shipment, target ShipmentState) bool {
	return shipmentTransitions.IsAllowed(s.CurrentState(), target)
}

// NewShipment starts a shipment for an order. The shipment id is derived
// from the order id.
func NewShipment(d ShipmentDetails) CreatedShipment {
	d.ShipmentID = ShipmentIDFor(d.OrderID)
	return CreatedShipment{ShipmentDetails: d}
}

// ChargeShipping adds the shipping cost. The grand total is the discounted
// order total plus shipping.
func ChargeShipping(s CreatedShipment, cost money.Amount) CostedShipment {
	statemachine.Must[ShipmentState](s, ShipmentStateCostCalculated)

	return CostedShipment{
		ShipmentDetails: s.ShipmentDetails,
		ShippingCharge: ShippingCharge{
			ShippingCost:      cost.NonNegative(),
			TotalWithShipping: s.TotalAfterDiscount.Add(cost.NonNegative()),
		},
	}
}

// ScheduleShipment assigns the tracking number. Premium orders are
// scheduled as Priority.
func ScheduleShipment(s CostedShipment, trackingNumber string, at time.Time) ScheduledShipment {
	statemachine.Must[ShipmentState](s, ShipmentStateScheduled)

	status := ShipmentScheduled
	if s.PremiumSubscription {
		status = ShipmentPriority
	}

	return ScheduledShipment{
		ShipmentDetails: s.ShipmentDetails,
		ShippingCharge:  s.ShippingCharge,
		TrackingNumber:  trackingNumber,
		Status:          status,
		ScheduledAt:     at,
	}
}

// DispatchShipment hands a scheduled shipment to the carrier.
func DispatchShipment(s ScheduledShipment, at time.Time) DispatchedShipment {
	statemachine.Must[ShipmentState](s, ShipmentStateDispatched)
	return DispatchedShipment{ScheduledShipment: s, DispatchedAt: at}
}

// ToRecord maps the shipment to its storage shape.
func (s ScheduledShipment) ToRecord() ShipmentRecord {
	return ShipmentRecord{
		ID:                  s.ShipmentID,
		OrderID:             s.OrderID,
		UserID:              s.UserID,
		PremiumSubscription: s.PremiumSubscription,
		PaymentMethod:       s.PaymentMethod,
		Status:              s.Status,
		TrackingNumber:      s.TrackingNumber,
		Subtotal:            s.Subtotal,
		DiscountAmount:      s.DiscountAmount,
		TotalAfterDiscount:  s.TotalAfterDiscount,
		ShippingCost:        s.ShippingCost,
		TotalWithShipping:   s.TotalWithShipping,
		Lines:               append([]OrderLine(nil), s.Lines...),
		ScheduledAt:         s.ScheduledAt,
	}
}

// ToRecord maps the shipment to its storage shape, including dispatch time.
func (s DispatchedShipment) ToRecord() ShipmentRecord {
	r := s.ScheduledShipment.ToRecord()
	at := s.DispatchedAt
	r.DispatchedAt = &at
	return r
}

// MarkShipmentPersisted records what storage returned for s.
func MarkShipmentPersisted(s PersistableShipment, stored ShipmentRecord) PersistedShipment {
	statemachine.Must[ShipmentState](s, ShipmentStatePersisted)
	return PersistedShipment{Record: stored}
}

// MarkShipmentPublished records the id of the event that announced s.
func MarkShipmentPublished(s PersistedShipment, eventID uuid.UUID) PublishedShipment {
	statemachine.Must[ShipmentState](s, ShipmentStatePublished)
	return PublishedShipment{Record: s.Record, EventID: eventID}
}
