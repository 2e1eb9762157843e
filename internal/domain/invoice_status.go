package domain

import (
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/statemachine"
	"github.com/google/uuid"
)

// Invoice-related domain errors.
var (
	ErrInvoiceNotFound    = NotFound("", "Invoice")
	ErrInvoiceConflict    = Conflict("", "Invoice status changed concurrently")
	ErrInvoiceNumberTaken = Conflict("", "Invoice number already assigned to another invoice")
)

// InvoiceStatus is the lifecycle status of a persisted invoice.
type InvoiceStatus string

const (
	InvoiceIssued           InvoiceStatus = "Issued"
	InvoiceCancelled        InvoiceStatus = "Cancelled"
	InvoiceCreditNoteIssued InvoiceStatus = "CreditNoteIssued"
)

var invoiceStatusTransitions = statemachine.New[InvoiceStatus]().
	Allow(InvoiceIssued, InvoiceCancelled, InvoiceCreditNoteIssued)

func (s InvoiceStatus) String() string { return string(s) }

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceIssued, InvoiceCancelled, InvoiceCreditNoteIssued:
		return true
	}
	return false
}

// CheckInvoiceStatusChange returns a reason when the change is not
// allowed, or "".
func CheckInvoiceStatusChange(id uuid.UUID, from, to InvoiceStatus) string {
	if invoiceStatusTransitions.IsAllowed(from, to) {
		return ""
	}
	return statusRejection("invoice", id.String(), string(from), string(to))
}

// InvoiceRecord is the stored shape of an invoice.
type InvoiceRecord struct {
	ID                  uuid.UUID
	ShipmentID          uuid.UUID
	OrderID             uuid.UUID
	InvoiceNumber       string
	UserID              string
	TrackingNumber      string
	PremiumSubscription bool
	PaymentMethod       PaymentMethod
	PaymentStatus       PaymentStatus
	Status              InvoiceStatus
	StatusReason        string
	Currency            string
	TotalDiscount       money.Amount
	SubTotal            money.Amount
	Tax                 money.Amount
	ShippingCost        money.Amount
	TotalAmount         money.Amount
	InvoiceDate         time.Time
	DueDate             time.Time
	Lines               []InvoiceLine
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
