package events

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is an order line as published by Ordering and Shipment.
type Line struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unitPrice"`
	LineTotal   money.Amount `json:"lineTotal"`
}

// OrderStateChanged announces a placed order or a lifecycle change of one.
type OrderStateChanged struct {
	BaseEvent
	OrderStatus         string       `json:"orderStatus"`
	OrderID             uuid.UUID    `json:"orderId"`
	UserID              string       `json:"userId"`
	PremiumSubscription bool         `json:"premiumSubscription"`
	Subtotal            money.Amount `json:"subtotal"`
	DiscountAmount      money.Amount `json:"discountAmount"`
	Total               money.Amount `json:"total"`
	VoucherCode         string       `json:"voucherCode,omitempty"`
	Lines               []Line       `json:"lines"`
	Street              string       `json:"street,omitempty"`
	City                string       `json:"city,omitempty"`
	PostalCode          string       `json:"postalCode,omitempty"`
	Phone               string       `json:"phone"`
	Email               string       `json:"email,omitempty"`
	PickupMethod        string       `json:"pickupMethod"`
	PickupPointID       string       `json:"pickupPointId,omitempty"`
	PaymentMethod       string       `json:"paymentMethod"`
	Reason              string       `json:"reason,omitempty"`
}

// ShipmentStateChanged announces a scheduled shipment or a lifecycle
// change of one.
type ShipmentStateChanged struct {
	BaseEvent
	ShipmentState       string       `json:"shipmentState"`
	ShipmentID          uuid.UUID    `json:"shipmentId"`
	OrderID             uuid.UUID    `json:"orderId"`
	UserID              string       `json:"userId"`
	PremiumSubscription bool         `json:"premiumSubscription"`
	PaymentMethod       string       `json:"paymentMethod"`
	TrackingNumber      string       `json:"trackingNumber"`
	Subtotal            money.Amount `json:"subtotal"`
	DiscountAmount      money.Amount `json:"discountAmount"`
	TotalAfterDiscount  money.Amount `json:"totalAfterDiscount"`
	ShippingCost        money.Amount `json:"shippingCost"`
	TotalWithShipping   money.Amount `json:"totalWithShipping"`
	Lines               []Line       `json:"lines"`
	Reason              string       `json:"reason,omitempty"`
}

// InvoiceLine is a billed line with its discount share and VAT.
type InvoiceLine struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Quantity         int             `json:"quantity"`
	UnitPrice        money.Amount    `json:"unitPrice"`
	InitialNet       money.Amount    `json:"initialNet"`
	LineDiscount     money.Amount    `json:"lineDiscount"`
	NetAfterDiscount money.Amount    `json:"netAfterDiscount"`
	VatRate          decimal.Decimal `json:"vatRate"`
	VatAmount        money.Amount    `json:"vatAmount"`
	LineTotal        money.Amount    `json:"lineTotal"`
}

// InvoiceStateChanged announces an issued invoice (eventType
// InvoiceCreated) or a lifecycle change of one (InvoiceStateChanged).
// TotalInEur is a display amount derived from TotalInRon.
type InvoiceStateChanged struct {
	BaseEvent
	InvoiceState   string        `json:"invoiceState"`
	InvoiceID      uuid.UUID     `json:"invoiceId"`
	InvoiceNumber  string        `json:"invoiceNumber"`
	OrderID        uuid.UUID     `json:"orderId"`
	ShipmentID     uuid.UUID     `json:"shipmentId"`
	UserID         string        `json:"userId"`
	TrackingNumber string        `json:"trackingNumber"`
	PaymentStatus  string        `json:"paymentStatus"`
	SubTotal       money.Amount  `json:"subTotal"`
	Tax            money.Amount  `json:"tax"`
	ShippingCost   money.Amount  `json:"shippingCost"`
	TotalAmount    money.Amount  `json:"totalAmount"`
	InvoiceDate    time.Time     `json:"invoiceDate"`
	DueDate        time.Time     `json:"dueDate"`
	Lines          []InvoiceLine `json:"lines"`
	Currency       string        `json:"currency"`
	TotalInRon     money.Amount  `json:"totalInRon"`
	TotalInEur     money.Amount  `json:"totalInEur"`
	Reason         string        `json:"reason,omitempty"`
}
