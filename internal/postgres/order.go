package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// OrderRepository implements domain.OrderRepository on the orders and
// order_lines tables.
type OrderRepository struct {
	db *pgxpool.Pool
}

// Compile-time check that OrderRepository implements domain.OrderRepository.
var _ domain.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, premium_subscription, status, status_reason,
	subtotal, discount_amount, total, voucher_code, street, city, postal_code,
	phone, email, pickup_method, pickup_point_id, payment_method, created_at, updated_at`

func (r *OrderRepository) Save(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, bool, error) {
	var (
		stored   domain.OrderRecord
		inserted bool
	)
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.UserID, rec.PremiumSubscription, string(rec.Status), rec.StatusReason,
			rec.Subtotal, rec.DiscountAmount, rec.Total, rec.VoucherCode, rec.Street, rec.City, rec.PostalCode,
			rec.Phone, rec.Email, string(rec.PickupMethod), rec.PickupPointID, string(rec.PaymentMethod),
			rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if tag.RowsAffected() == 0 {
			existing, err := getOrder(ctx, tx, rec.ID)
			if err != nil {
				return err
			}
			stored = *existing
			return nil
		}

		for i, l := range rec.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_lines (order_id, line_no, name, description, category, quantity, unit_price, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				rec.ID, i+1, l.Name, l.Description, l.Category, l.Quantity, l.UnitPrice, l.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("insert order line %d: %w", i+1, err)
			}
		}
		stored, inserted = rec, true
		return nil
	})
	if err != nil {
		return domain.OrderRecord{}, false, err
	}
	return stored, inserted, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderRecord, error) {
	return getOrder(ctx, r.db, id)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, reason string) (domain.OrderRecord, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $3, status_reason = $4, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), reason,
	)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("update order status: %w", err)
	}

	rec, err := getOrder(ctx, r.db, id)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.OrderRecord{}, domain.ErrOrderConflict
	}
	return *rec, nil
}

func getOrder(ctx context.Context, q querier, id uuid.UUID) (*domain.OrderRecord, error) {
	var (
		rec                                 domain.OrderRecord
		status, pickupMethod, paymentMethod string
	)
	err := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id).Scan(
		&rec.ID, &rec.UserID, &rec.PremiumSubscription, &status, &rec.StatusReason,
		&rec.Subtotal, &rec.DiscountAmount, &rec.Total, &rec.VoucherCode, &rec.Street, &rec.City, &rec.PostalCode,
		&rec.Phone, &rec.Email, &pickupMethod, &rec.PickupPointID, &paymentMethod, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	rec.Status = domain.OrderStatus(status)
	rec.PickupMethod = domain.PickupMethod(pickupMethod)
	rec.PaymentMethod = domain.PaymentMethod(paymentMethod)

	rec.Lines, err = selectLines(ctx, q, `
		SELECT name, description, category, quantity, unit_price, line_total
		FROM order_lines WHERE order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// selectLines reads order-shaped lines; shipments store the same columns.
func selectLines(ctx context.Context, q querier, sql string, id uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.Name, &l.Description, &l.Category, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}
