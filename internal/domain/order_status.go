package domain

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/google/uuid"
)

// Order-related domain errors.
var (
	ErrOrderNotFound = NotFound("", "Order")
	ErrOrderConflict = Conflict("", "Order status changed concurrently")
)

// OrderStatus is the lifecycle status of a persisted order, announced in
// OrderStateChanged events.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "Placed"
	OrderCancelled OrderStatus = "Cancelled"
	OrderModified  OrderStatus = "Modified"
	OrderReturned  OrderStatus = "Returned"
)

var orderStatusTransitions = statemachine.New[OrderStatus]().
	Allow(OrderPlaced, OrderModified, OrderCancelled, OrderReturned).
	Allow(OrderModified, OrderModified, OrderCancelled, OrderReturned)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPlaced, OrderCancelled, OrderModified, OrderReturned:
		return true
	}
	return false
}

// CheckOrderStatusChange returns a reason when a persisted order in status
// from may not move to to, or "" when the change is allowed.
func CheckOrderStatusChange(id uuid.UUID, from, to OrderStatus) string {
	if orderStatusTransitions.IsAllowed(from, to) {
		return ""
	}
	return statusRejection("order", id.String(), string(from), string(to))
}

// OrderRecord is the stored shape of an order.
type OrderRecord struct {
	ID                  uuid.UUID
	UserID              string
	PremiumSubscription bool
	Status              OrderStatus
	StatusReason        string
	Subtotal            money.Amount
	DiscountAmount      money.Amount
	Total               money.Amount
	VoucherCode         string
	Street              string
	City                string
	PostalCode          string
	Phone               string
	Email               string
	PickupMethod        PickupMethod
	PickupPointID       string
	PaymentMethod       PaymentMethod
	Lines               []OrderLine
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
