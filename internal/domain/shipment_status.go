package domain

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/google/uuid"
)

// Shipment-related domain errors.
var (
	ErrShipmentNotFound    = NotFound("", "Shipment")
	ErrShipmentConflict    = Conflict("", "Shipment status changed concurrently")
	ErrTrackingNumberTaken = Conflict("", "Tracking number already assigned to another shipment")
)

// ShipmentStatus is the lifecycle status of a persisted shipment, announced
// in ShipmentStateChanged events.
type ShipmentStatus string

const (
	ShipmentScheduled ShipmentStatus = "Scheduled"
	ShipmentPriority  ShipmentStatus = "Priority"
	ShipmentCancelled ShipmentStatus = "Cancelled"
	ShipmentReturned  ShipmentStatus = "Returned"
)

var shipmentStatusTransitions = statemachine.New[ShipmentStatus]().
	Allow(ShipmentScheduled, ShipmentCancelled, ShipmentReturned).
	Allow(ShipmentPriority, ShipmentCancelled, ShipmentReturned)

func (s ShipmentStatus) String() string { return string(s) }

func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentScheduled, ShipmentPriority, ShipmentCancelled, ShipmentReturned:
		return true
	}
	return false
}

// CheckShipmentStatusChange returns a reason when the change is not
// allowed, or "".
func CheckShipmentStatusChange(id uuid.UUID, from, to ShipmentStatus) string {
	if shipmentStatusTransitions.IsAllowed(from, to) {
		return ""
	}
	return statusRejection("shipment", id.String(), string(from), string(to))
}

// ShipmentRecord is the stored shape of a shipment.
type ShipmentRecord struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	UserID              string
	PremiumSubscription bool
	PaymentMethod       PaymentMethod
	Status              ShipmentStatus
	StatusReason        string
	TrackingNumber      string
	Subtotal            money.Amount
	DiscountAmount      money.Amount
	TotalAfterDiscount  money.Amount
	ShippingCost        money.Amount
	TotalWithShipping   money.Amount
	Lines               []OrderLine
	ScheduledAt         time.Time
	DispatchedAt        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
