package email

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/money"
)

// Template is the data of one kind of notification.
type Template interface {
	Subject() string
	TemplateName() string
}

// OrderPlacedEmail confirms a placed order.
type OrderPlacedEmail struct {
	OrderID        uuid.UUID
	OrderDate      time.Time
	Lines          []Line
	Subtotal       money.Amount
	DiscountAmount money.Amount
	Total          money.Amount
	Currency       string
	VoucherCode    string
	PickupMethod   string
	PickupPointID  string
	PaymentMethod  string
	Address        Address
}

func (e OrderPlacedEmail) Subject() string {
	return "Order Confirmation - " + e.OrderID.String()
}

func (e OrderPlacedEmail) TemplateName() string {
	return "order_placed.html"
}

// OrderCancelledEmail confirms a cancellation.
type OrderCancelledEmail struct {
	OrderID  uuid.UUID
	Reason   string
	Total    money.Amount
	Currency string
}

func (e OrderCancelledEmail) Subject() string {
	return "Order Cancelled - " + e.OrderID.String()
}

func (e OrderCancelledEmail) TemplateName() string {
	return "order_cancelled.html"
}

// OrderReturnedEmail confirms a registered return.
type OrderReturnedEmail struct {
	OrderID  uuid.UUID
	Reason   string
	Total    money.Amount
	Currency string
}

func (e OrderReturnedEmail) Subject() string {
	return "Return Registered - " + e.OrderID.String()
}

func (e OrderReturnedEmail) TemplateName() string {
	return "order_returned.html"
}

// Line is an order line as shown to the customer.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice money.Amount
	LineTotal money.Amount
}

// Address is a home delivery address. It is empty for pickups.
type Address struct {
	Street     string
	City       string
	PostalCode string
}
