package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// VoucherRepository implements domain.VoucherRepository. TryConsume holds
// the write lock for the whole check-and-decrement.
type VoucherRepository struct {
	mu       sync.Mutex
	vouchers map[string]domain.Voucher
}

// NewVoucherRepository creates a repository holding vouchers.
func NewVoucherRepository(vouchers ...domain.Voucher) *VoucherRepository {
	r := &VoucherRepository{vouchers: make(map[string]domain.Voucher)}
	for _, v := range vouchers {
		r.Put(v)
	}
	return r
}

// Put stores or replaces a voucher.
func (r *VoucherRepository) Put(v domain.Voucher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vouchers[v.Code] = copyVoucher(v)
}

func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vouchers[code]
	if !ok {
		return nil, domain.ErrVoucherNotFound
	}
	out := copyVoucher(v)
	return &out, nil
}

func (r *VoucherRepository) TryConsume(ctx context.Context, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vouchers[code]
	if !ok || v.Check(now) != "" {
		return false, nil
	}
	if v.RemainingUses != nil {
		left := *v.RemainingUses - 1
		v.RemainingUses = &left
		r.vouchers[code] = v
	}
	return true, nil
}

func copyVoucher(v domain.Voucher) domain.Voucher {
	if v.RemainingUses != nil {
		n := *v.RemainingUses
		v.RemainingUses = &n
	}
	return v
}
