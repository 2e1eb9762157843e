package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// ShipmentRepository implements domain.ShipmentRepository. Order id is a
// second unique key and a non-empty tracking number a third.
type ShipmentRepository struct {
	mu        sync.RWMutex
	shipments map[uuid.UUID]domain.ShipmentRecord
	byOrder   map[uuid.UUID]uuid.UUID
	tracking  map[string]struct{}
}

func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{
		shipments: make(map[uuid.UUID]domain.ShipmentRecord),
		byOrder:   make(map[uuid.UUID]uuid.UUID),
		tracking:  make(map[string]struct{}),
	}
}

func (r *ShipmentRepository) Save(ctx context.Context, rec domain.ShipmentRecord) (domain.ShipmentRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.shipments[rec.ID]; ok {
		return copyShipment(existing), false, nil
	}
	if id, ok := r.byOrder[rec.OrderID]; ok {
		return copyShipment(r.shipments[id]), false, nil
	}
	if _, taken := r.tracking[rec.TrackingNumber]; taken && rec.TrackingNumber != "" {
		return domain.ShipmentRecord{}, false, domain.ErrTrackingNumberTaken
	}

	stamp(&rec.CreatedAt, &rec.UpdatedAt)
	r.shipments[rec.ID] = copyShipment(rec)
	r.byOrder[rec.OrderID] = rec.ID
	if rec.TrackingNumber != "" {
		r.tracking[rec.TrackingNumber] = struct{}{}
	}
	return copyShipment(rec), true, nil
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShipmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.shipments[id]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	out := copyShipment(rec)
	return &out, nil
}

func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.ShipmentRecord, error) {
	r.mu.RLock()
	id, ok := r.byOrder[orderID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ShipmentStatus, reason string) (domain.ShipmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.shipments[id]
	if !ok {
		return domain.ShipmentRecord{}, domain.ErrShipmentNotFound
	}
	if rec.Status != from {
		return domain.ShipmentRecord{}, domain.ErrShipmentConflict
	}

	rec.Status = to
	rec.StatusReason = reason
	rec.UpdatedAt = time.Now().UTC()
	r.shipments[id] = rec
	return copyShipment(rec), nil
}

// Count returns the number of stored shipments.
func (r *ShipmentRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shipments)
}

func copyShipment(rec domain.ShipmentRecord) domain.ShipmentRecord {
	rec.Lines = append([]domain.OrderLine(nil), rec.Lines...)
	if rec.DispatchedAt != nil {
		at := *rec.DispatchedAt
		rec.DispatchedAt = &at
	}
	return rec
}
