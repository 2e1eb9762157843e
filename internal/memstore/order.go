// Package memstore implements the repository ports in process memory. It
// backs STORE=memory and the saga tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// OrderRepository implements domain.OrderRepository using in-memory storage.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.OrderRecord
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[uuid.UUID]domain.OrderRecord),
	}
}

func (r *OrderRepository) Save(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.orders[rec.ID]; ok {
		return copyOrder(existing), false, nil
	}

	stamp(&rec.CreatedAt, &rec.UpdatedAt)
	r.orders[rec.ID] = copyOrder(rec)
	return copyOrder(rec), true, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	out := copyOrder(rec)
	return &out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, reason string) (domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.orders[id]
	if !ok {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	if rec.Status != from {
		return domain.OrderRecord{}, domain.ErrOrderConflict
	}

	rec.Status = to
	rec.StatusReason = reason
	rec.UpdatedAt = time.Now().UTC()
	r.orders[id] = rec
	return copyOrder(rec), nil
}

// Count returns the number of stored orders.
func (r *OrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func copyOrder(rec domain.OrderRecord) domain.OrderRecord {
	rec.Lines = append([]domain.OrderLine(nil), rec.Lines...)
	return rec
}

// stamp fills unset creation and update times.
func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
