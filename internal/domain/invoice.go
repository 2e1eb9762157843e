package domain

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceState names the stage of an invoice inside its saga.
type InvoiceState string

const (
	InvoiceStateCreated       InvoiceState = "Created"
	InvoiceStateVatCalculated InvoiceState = "VatCalculated"
	InvoiceStateCalculated    InvoiceState = "Calculated"
	InvoiceStatePersisted     InvoiceState = "Persisted"
	InvoiceStatePublished     InvoiceState = "Published"
)

var invoiceTransitions = statemachine.New[InvoiceState]().
	Allow(InvoiceStateCreated, InvoiceStateVatCalculated).
	Allow(InvoiceStateVatCalculated, InvoiceStateCalculated).
	Allow(InvoiceStateCalculated, InvoiceStatePersisted).
	Allow(InvoiceStatePersisted, InvoiceStatePublished)

const (
	standardPaymentTerm = 30 * 24 * time.Hour
	premiumPaymentTerm  = 45 * 24 * time.Hour
)

// Invoice is implemented by CreatedInvoice, VatCalculatedInvoice,
// CalculatedInvoice, PersistedInvoice and PublishedInvoice.
type Invoice interface {
	statemachine.Machine[InvoiceState]
	isInvoice()
}

// PaymentStatus is derived from the payment method only.
type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "Authorized"
	PaymentPending    PaymentStatus = "Pending"
)

// PaymentStatusFor returns Authorized for online card payments and Pending
// for everything settled on delivery.
func PaymentStatusFor(m PaymentMethod) PaymentStatus {
	if m == CardOnline {
		return PaymentAuthorized
	}
	return PaymentPending
}

// InvoiceDetails is copied from the shipment that triggered the invoice.
type InvoiceDetails struct {
	InvoiceID           uuid.UUID
	ShipmentID          uuid.UUID
	OrderID             uuid.UUID
	UserID              string
	TrackingNumber      string
	PremiumSubscription bool
	PaymentMethod       PaymentMethod
	Lines               []OrderLine
	TotalDiscount       money.Amount
	ShippingCost        money.Amount
	Currency            string
}

// InvoiceLine is one billed line. LineTotal = NetAfterDiscount + VatAmount.
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

// NewInvoiceLine builds a billed line from an order line, its discount
// share and its VAT.
func NewInvoiceLine(l OrderLine, discount money.Amount, rate decimal.Decimal, vat money.Amount) InvoiceLine {
	initial := l.UnitPrice.Times(l.Quantity)
	net := initial.Sub(discount)
	return InvoiceLine{
		Name:             l.Name,
		Description:      l.Description,
		Category:         l.Category,
		Quantity:         l.Quantity,
		UnitPrice:        l.UnitPrice,
		InitialNet:       initial,
		LineDiscount:     discount,
		NetAfterDiscount: net,
		VatRate:          rate,
		VatAmount:        vat,
		LineTotal:        net.Add(vat),
	}
}

type CreatedInvoice struct {
	InvoiceDetails
}

// VatCalculatedInvoice carries billed lines. SubTotal is Σ net after
// discount; Tax is Σ VAT.
type VatCalculatedInvoice struct {
	InvoiceDetails
	BilledLines []InvoiceLine
	SubTotal    money.Amount
	Tax         money.Amount
}

// CalculatedInvoice is final. TotalAmount = SubTotal + Tax + ShippingCost.
type CalculatedInvoice struct {
	VatCalculatedInvoice
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       time.Time
	TotalAmount   money.Amount
	PaymentStatus PaymentStatus
}

type PersistedInvoice struct {
	Record InvoiceRecord
}

type PublishedInvoice struct {
	Record  InvoiceRecord
	EventID uuid.UUID
}

func (CreatedInvoice) CurrentState() InvoiceState       { return InvoiceStateCreated }
func (VatCalculatedInvoice) CurrentState() InvoiceState { return InvoiceStateVatCalculated }
func (CalculatedInvoice) CurrentState() InvoiceState    { return InvoiceStateCalculated }
func (PersistedInvoice) CurrentState() InvoiceState     { return InvoiceStatePersisted }
func (PublishedInvoice) CurrentState() InvoiceState     { return InvoiceStatePublished }

func (i CreatedInvoice) CanTransitionTo(t InvoiceState) bool       { return canInvoice(i, t) }
func (i VatCalculatedInvoice) CanTransitionTo(t InvoiceState) bool { return canInvoice(i, t) }
func (i CalculatedInvoice) CanTransitionTo(t InvoiceState) bool    { return canInvoice(i, t) }
func (i PersistedInvoice) CanTransitionTo(t InvoiceState) bool     { return canInvoice(i, t) }
func (i PublishedInvoice) CanTransitionTo(t InvoiceState) bool     { return canInvoice(i, t) }

func (CreatedInvoice) isInvoice()       {}
func (VatCalculatedInvoice) isInvoice() {}
func (CalculatedInvoice) isInvoice()    {}
func (PersistedInvoice) isInvoice()     {}
func (PublishedInvoice) isInvoice()     {}

func canInvoice(i Invoice, target InvoiceState) bool {
	return invoiceTransitions.IsAllowed(i.CurrentState(), target)
}

// NewInvoice starts an invoice for a shipment. The invoice id is derived
// from the shipment id.
func NewInvoice(d InvoiceDetails) CreatedInvoice {
	d.InvoiceID = InvoiceIDFor(d.ShipmentID)
	return CreatedInvoice{InvoiceDetails: d}
}

// ApplyVat attaches the billed lines and sums them.
func ApplyVat(i CreatedInvoice, lines []InvoiceLine) VatCalculatedInvoice {
	statemachine.Must[InvoiceState](i, InvoiceStateVatCalculated)

	sub, vat := money.Zero, money.Zero
	for _, l := range lines {
		sub = sub.Add(l.NetAfterDiscount)
		vat = vat.Add(l.VatAmount)
	}

	return VatCalculatedInvoice{
		InvoiceDetails: i.InvoiceDetails,
		BilledLines:    lines,
		SubTotal:       sub,
		Tax:            vat,
	}
}

// FinalizeInvoice assigns number, dates, grand total and payment status.
// Shipping is added after VAT and is not taxed.
func FinalizeInvoice(i VatCalculatedInvoice, number string, date time.Time) CalculatedInvoice {
	statemachine.Must[InvoiceState](i, InvoiceStateCalculated)

	term := standardPaymentTerm
	if i.PremiumSubscription {
		term = premiumPaymentTerm
	}

	return CalculatedInvoice{
		VatCalculatedInvoice: i,
		InvoiceNumber:        number,
		InvoiceDate:          date,
		DueDate:              date.Add(term),
		TotalAmount:          money.Sum(i.SubTotal, i.Tax, i.ShippingCost),
		PaymentStatus:        PaymentStatusFor(i.PaymentMethod),
	}
}

// ToRecord maps the invoice to its storage shape with status Issued.
func (i CalculatedInvoice) ToRecord() InvoiceRecord {
	return InvoiceRecord{
		ID:                  i.InvoiceID,
		ShipmentID:          i.ShipmentID,
		OrderID:             i.OrderID,
		InvoiceNumber:       i.InvoiceNumber,
		UserID:              i.UserID,
		TrackingNumber:      i.TrackingNumber,
		PremiumSubscription: i.PremiumSubscription,
		PaymentMethod:       i.PaymentMethod,
		PaymentStatus:       i.PaymentStatus,
		Status:              InvoiceIssued,
		Currency:            i.Currency,
		TotalDiscount:       i.TotalDiscount,
		SubTotal:            i.SubTotal,
		Tax:                 i.Tax,
		ShippingCost:        i.ShippingCost,
		TotalAmount:         i.TotalAmount,
		InvoiceDate:         i.InvoiceDate,
		DueDate:             i.DueDate,
		Lines:               append([]InvoiceLine(nil), i.BilledLines...),
	}
}

// MarkInvoicePersisted records what storage returned for i.
func MarkInvoicePersisted(i CalculatedInvoice, stored InvoiceRecord) PersistedInvoice {
	statemachine.Must[InvoiceState](i, InvoiceStatePersisted)
	return PersistedInvoice{Record: stored}
}

// MarkInvoicePublished records the id of the event that announced i.
func MarkInvoicePublished(i PersistedInvoice, eventID uuid.UUID) PublishedInvoice {
	statemachine.Must[InvoiceState](i, InvoiceStatePublished)
	return PublishedInvoice{Record: i.Record, EventID: eventID}
}
