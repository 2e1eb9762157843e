package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// VoucherRepository implements domain.VoucherRepository.
type VoucherRepository struct {
	db *pgxpool.Pool
}

var _ domain.VoucherRepository = (*VoucherRepository)(nil)

func NewVoucherRepository(db *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{db: db}
}

func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	var v domain.Voucher
	err := r.db.QueryRow(ctx, `
		SELECT code, discount_percent, is_active, valid_from, valid_until, remaining_uses
		FROM vouchers WHERE code = $1`, code,
	).Scan(&v.Code, &v.DiscountPercent, &v.IsActive, &v.ValidFrom, &v.ValidUntil, &v.RemainingUses)
	if isNoRows(err) {
		return nil, domain.ErrVoucherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select voucher: %w", err)
	}
	return &v, nil
}

// TryConsume decrements remaining_uses in one conditional UPDATE, so two
// placements racing for the last use cannot both win.
func (r *VoucherRepository) TryConsume(ctx context.Context, code string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE vouchers
		SET remaining_uses = remaining_uses - 1
		WHERE code = $1
		  AND is_active
		  AND (valid_from IS NULL OR valid_from <= $2)
		  AND (valid_until IS NULL OR valid_until >= $2)
		  AND (remaining_uses IS NULL OR remaining_uses > 0)`,
		code, now,
	)
	if err != nil {
		return false, fmt.Errorf("consume voucher: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
