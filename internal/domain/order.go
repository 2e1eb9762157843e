package domain

import (
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderState names the stage of an order inside the placement saga.
type OrderState string

const (
	OrderStateUnvalidated OrderState = "Unvalidated"
	OrderStateValidated   OrderState = "Validated"
	OrderStateInvalid     OrderState = "Invalid"
	OrderStatePriced      OrderState = "Priced"
	OrderStatePersistable OrderState = "Persistable"
	OrderStatePersisted   OrderState = "Persisted"
	OrderStatePublished   OrderState = "Published"
)

var orderTransitions = statemachine.New[OrderState]().
	Allow(OrderStateUnvalidated, OrderStateValidated, OrderStateInvalid).
	Allow(OrderStateValidated, OrderStatePriced, OrderStateInvalid).
	Allow(OrderStatePriced, OrderStatePersistable).
	Allow(OrderStatePersistable, OrderStatePersisted).
	Allow(OrderStatePersisted, OrderStatePublished)

// Order is implemented by every order variant: UnvalidatedOrder,
// ValidatedOrder, InvalidOrder, PricedOrder, PersistableOrder,
// PersistedOrder and PublishedOrder.
type Order interface {
	statemachine.Machine[OrderState]
	isOrder()
}

// PickupMethod selects how the customer receives the order.
type PickupMethod string

const (
	HomeDelivery     PickupMethod = "HomeDelivery"
	EasyBoxPickup    PickupMethod = "EasyBoxPickup"
	PostOfficePickup PickupMethod = "PostOfficePickup"
)

func (m PickupMethod) IsValid() bool {
	switch m {
	case HomeDelivery, EasyBoxPickup, PostOfficePickup:
		return true
	}
	return false
}

// PaymentMethod selects how the order is paid. It only decides the invoice
// payment status; no gateway is involved.
type PaymentMethod string

const (
	CashOnDelivery PaymentMethod = "CashOnDelivery"
	CardOnDelivery PaymentMethod = "CardOnDelivery"
	CardOnline     PaymentMethod = "CardOnline"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case CashOnDelivery, CardOnDelivery, CardOnline:
		return true
	}
	return false
}

// UnvalidatedOrderLine is a line as received from the caller.
type UnvalidatedOrderLine struct {
	Name        string
	Description string
	Category    string
	Quantity    int
	UnitPrice   money.Amount
}

// UnvalidatedOrder is the raw placement command.
type UnvalidatedOrder struct {
	// OrderID is an optional client-chosen UUID used as idempotency key.
	OrderID             string
	UserID              string
	PremiumSubscription bool
	Lines               []UnvalidatedOrderLine
	Street              string
	City                string
	PostalCode          string
	Phone               string
	Email               string
	PickupMethod        string
	PickupPointID       string
	PaymentMethod       string
	VoucherCode         string
}

// OrderLine is a validated line. LineTotal = Quantity × UnitPrice.
type OrderLine struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unitPrice"`
	LineTotal   money.Amount `json:"lineTotal"`
}

// Address is the delivery address; empty for pickup orders.
type Address struct {
	Street     string
	City       string
	PostalCode string
}

// OrderDetails are the validated attributes every later variant carries.
type OrderDetails struct {
	RequestedID         uuid.UUID // uuid.Nil unless the caller chose one
	UserID              string
	PremiumSubscription bool
	Lines               []OrderLine
	Address             Address
	Phone               string
	Email               string
	PickupMethod        PickupMethod
	PickupPointID       string
	PaymentMethod       PaymentMethod
	VoucherCode         string // as supplied, not yet normalized
}

// Subtotal is Σ line totals.
func (d OrderDetails) Subtotal() money.Amount {
	total := money.Zero
	for _, l := range d.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// Pricing is the price breakdown of a priced order.
// Total = max(0, Subtotal - DiscountAmount).
type Pricing struct {
	Subtotal        money.Amount
	DiscountAmount  money.Amount
	Total           money.Amount
	VoucherCode     string
	DiscountPercent decimal.Decimal
}

// AppliedVoucher is a voucher whose use was consumed for this order.
type AppliedVoucher struct {
	Code    string
	Percent decimal.Decimal
}

type ValidatedOrder struct {
	OrderDetails
}

type InvalidOrder struct {
	UserID  string
	Reasons []string
}

type PricedOrder struct {
	OrderDetails
	Pricing Pricing
}

// PersistableOrder is the storage shape of a priced order. Record.ID is
// uuid.Nil unless the caller chose an id; storage assigns one otherwise.
type PersistableOrder struct {
	Record OrderRecord
}

// PersistedOrder holds the order as stored, with id and creation time.
type PersistedOrder struct {
	Record OrderRecord
}

type PublishedOrder struct {
	Record  OrderRecord
	EventID uuid.UUID
}

func (UnvalidatedOrder) CurrentState() OrderState { return OrderStateUnvalidated }
func (ValidatedOrder) CurrentState() OrderState   { return OrderStateValidated }
func (InvalidOrder) CurrentState() OrderState     { return OrderStateInvalid }
func (PricedOrder) CurrentState() OrderState      { return OrderStatePriced }
func (PersistableOrder) CurrentState() OrderState { return OrderStatePersistable }
func (PersistedOrder) CurrentState() OrderState   { return OrderStatePersisted }
func (PublishedOrder) CurrentState() OrderState   { return OrderStatePublished }

func (o UnvalidatedOrder) CanTransitionTo(s OrderState) bool { return canOrder(o, s) }
func (o ValidatedOrder) CanTransitionTo(s OrderState) bool   { return canOrder(o, s) }
func (o InvalidOrder) CanTransitionTo(s OrderState) bool     { return canOrder(o, s) }
func (o PricedOrder) CanTransitionTo(s OrderState) bool      { return canOrder(o, s) }
func (o PersistableOrder) CanTransitionTo(s OrderState) bool { return canOrder(o, s) }
func (o PersistedOrder) CanTransitionTo(s OrderState) bool   { return canOrder(o, s) }
func (o PublishedOrder) CanTransitionTo(s OrderState) bool   { return canOrder(o, s) }

func (UnvalidatedOrder) isOrder() {}
func (ValidatedOrder) isOrder()   {}
func (InvalidOrder) isOrder()     {}
func (PricedOrder) isOrder()      {}
func (PersistableOrder) isOrder() {}
func (PersistedOrder) isOrder()   {}
func (PublishedOrder) isOrder()   {}

func canOrder(o Order, target OrderState) bool {
	return orderTransitions.IsAllowed(o.CurrentState(), target)
}

// RejectOrder routes a validated order to Invalid, e.g. when its voucher
// cannot be applied.
func RejectOrder(o ValidatedOrder, reasons ...string) InvalidOrder {
	statemachine.Must[OrderState](o, OrderStateInvalid)
	return InvalidOrder{UserID: o.UserID, Reasons: reasons}
}

// PriceOrder computes subtotal, discount and total. v is nil when no
// voucher was supplied.
func PriceOrder(o ValidatedOrder, v *AppliedVoucher) PricedOrder {
	statemachine.Must[OrderState](o, OrderStatePriced)

	p := Pricing{
		Subtotal:        o.Subtotal(),
		DiscountAmount:  money.Zero,
		DiscountPercent: decimal.Zero,
	}
	if v != nil {
		p.VoucherCode = v.Code
		p.DiscountPercent = v.Percent
		p.DiscountAmount = p.Subtotal.Percent(v.Percent)
	}
	p.Total = p.Subtotal.Sub(p.DiscountAmount).NonNegative()

	return PricedOrder{OrderDetails: o.OrderDetails, Pricing: p}
}

// ToPersistable maps a priced order to its storage shape with status Placed.
func ToPersistable(o PricedOrder) PersistableOrder {
	statemachine.Must[OrderState](o, OrderStatePersistable)

	return PersistableOrder{Record: OrderRecord{
		ID:                  o.RequestedID,
		UserID:              o.UserID,
		PremiumSubscription: o.PremiumSubscription,
		Status:              OrderPlaced,
		Subtotal:            o.Pricing.Subtotal,
		DiscountAmount:      o.Pricing.DiscountAmount,
		Total:               o.Pricing.Total,
		VoucherCode:         o.Pricing.VoucherCode,
		Street:              o.Address.Street,
		City:                o.Address.City,
		PostalCode:          o.Address.PostalCode,
		Phone:               o.Phone,
		Email:               o.Email,
		PickupMethod:        o.PickupMethod,
		PickupPointID:       o.PickupPointID,
		PaymentMethod:       o.PaymentMethod,
		Lines:               append([]OrderLine(nil), o.Lines...),
	}}
}

// MarkOrderPersisted records what storage returned for o.
func MarkOrderPersisted(o PersistableOrder, stored OrderRecord) PersistedOrder {
	statemachine.Must[OrderState](o, OrderStatePersisted)
	return PersistedOrder{Record: stored}
}

// ResumePersistedOrder rebuilds the Persisted variant of an order found in
// storage, so a repeated placement can go straight to publishing.
func ResumePersistedOrder(stored OrderRecord) PersistedOrder {
	return PersistedOrder{Record: stored}
}

// MarkOrderPublished records the id of the event that announced o.
func MarkOrderPublished(o PersistedOrder, eventID uuid.UUID) PublishedOrder {
	statemachine.Must[OrderState](o, OrderStatePublished)
	return PublishedOrder{Record: o.Record, EventID: eventID}
}
