package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// InvoiceRepository implements domain.InvoiceRepository. Shipment id is a
// second unique key and a non-empty invoice number a third.
type InvoiceRepository struct {
	mu         sync.RWMutex
	invoices   map[uuid.UUID]domain.InvoiceRecord
	byShipment map[uuid.UUID]uuid.UUID
	numbers    map[string]struct{}
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		invoices:   make(map[uuid.UUID]domain.InvoiceRecord),
		byShipment: make(map[uuid.UUID]uuid.UUID),
		numbers:    make(map[string]struct{}),
	}
}

func (r *InvoiceRepository) Save(ctx context.Context, rec domain.InvoiceRecord) (domain.InvoiceRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.invoices[rec.ID]; ok {
		return copyInvoice(existing), false, nil
	}
	if id, ok := r.byShipment[rec.ShipmentID]; ok {
		return copyInvoice(r.invoices[id]), false, nil
	}
	if _, taken := r.numbers[rec.InvoiceNumber]; taken && rec.InvoiceNumber != "" {
		return domain.InvoiceRecord{}, false, domain.ErrInvoiceNumberTaken
	}

	stamp(&rec.CreatedAt, &rec.UpdatedAt)
	r.invoices[rec.ID] = copyInvoice(rec)
	r.byShipment[rec.ShipmentID] = rec.ID
	if rec.InvoiceNumber != "" {
		r.numbers[rec.InvoiceNumber] = struct{}{}
	}
	return copyInvoice(rec), true, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	out := copyInvoice(rec)
	return &out, nil
}

func (r *InvoiceRepository) GetByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*domain.InvoiceRecord, error) {
	r.mu.RLock()
	id, ok := r.byShipment[shipmentID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InvoiceStatus, reason string) (domain.InvoiceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.invoices[id]
	if !ok {
		return domain.InvoiceRecord{}, domain.ErrInvoiceNotFound
	}
	if rec.Status != from {
		return domain.InvoiceRecord{}, domain.ErrInvoiceConflict
	}

	rec.Status = to
	rec.StatusReason = reason
	rec.UpdatedAt = time.Now().UTC()
	r.invoices[id] = rec
	return copyInvoice(rec), nil
}

// Count returns the number of stored invoices.
func (r *InvoiceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.invoices)
}

func copyInvoice(rec domain.InvoiceRecord) domain.InvoiceRecord {
	rec.Lines = append([]domain.InvoiceLine(nil), rec.Lines...)
	return rec
}
