package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ErrVoucherNotFound = NotFound("", "Voucher")

// OrderRepository persists orders.
type OrderRepository interface {
	// Save inserts rec unless an order with the same id exists. It returns
	// the stored record and whether this call inserted it; an existing row
	// is returned unchanged.
	Save(ctx context.Context, rec OrderRecord) (OrderRecord, bool, error)

	// GetByID returns ErrOrderNotFound when no order has id.
	GetByID(ctx context.Context, id uuid.UUID) (*OrderRecord, error)

	// UpdateStatus moves an order from one status to another. It returns
	// ErrOrderConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus, reason string) (OrderRecord, error)
}

// VoucherRepository reads vouchers and consumes their uses.
type VoucherRepository interface {
	// GetByCode returns ErrVoucherNotFound for an unknown code.
	GetByCode(ctx context.Context, code string) (*Voucher, error)

	// TryConsume takes one use of the voucher in a single conditional
	// write: it succeeds only while the voucher is active, inside its
	// validity window at now, and has uses left (or is unlimited).
	TryConsume(ctx context.Context, code string, now time.Time) (bool, error)
}

// ShipmentRepository persists shipments.
type ShipmentRepository interface {
	// Save inserts rec unless a shipment with the same id or order id
	// exists, in which case the stored row is returned with inserted false.
	// A tracking number held by another shipment yields
	// ErrTrackingNumberTaken.
	Save(ctx context.Context, rec ShipmentRecord) (ShipmentRecord, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*ShipmentRecord, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*ShipmentRecord, error)

	// UpdateStatus returns ErrShipmentConflict when the stored status is no
	// longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to ShipmentStatus, reason string) (ShipmentRecord, error)
}

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	// Save inserts rec unless an invoice with the same id or shipment id
	// exists, in which case the stored row is returned with inserted false.
	// An invoice number held by another invoice yields ErrInvoiceNumberTaken.
	Save(ctx context.Context, rec InvoiceRecord) (InvoiceRecord, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*InvoiceRecord, error)
	GetByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*InvoiceRecord, error)

	// UpdateStatus returns ErrInvoiceConflict when the stored status is no
	// longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to InvoiceStatus, reason string) (InvoiceRecord, error)
}
