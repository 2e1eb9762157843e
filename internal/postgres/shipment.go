package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// ShipmentRepository implements domain.ShipmentRepository on the shipments
// and shipment_lines tables.
type ShipmentRepository struct {
	db *pgxpool.Pool
}

var _ domain.ShipmentRepository = (*ShipmentRepository)(nil)

func NewShipmentRepository(db *pgxpool.Pool) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

const shipmentColumns = `id, order_id, user_id, premium_subscription, payment_method,
	status, status_reason, tracking_number, subtotal, discount_amount, total_after_discount,
	shipping_cost, total_with_shipping, scheduled_at, dispatched_at, created_at, updated_at`

// Save relies on ON CONFLICT DO NOTHING covering the primary key, the
// unique order_id and the unique tracking_number, then reads back the row
// for this id or order. When there is none, only the tracking number
// collided and Save returns ErrTrackingNumberTaken.
func (r *ShipmentRepository) Save(ctx context.Context, rec domain.ShipmentRecord) (domain.ShipmentRecord, bool, error) {
	var (
		stored   domain.ShipmentRecord
		inserted bool
	)
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO shipments (`+shipmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT DO NOTHING`,
			rec.ID, rec.OrderID, rec.UserID, rec.PremiumSubscription, string(rec.PaymentMethod),
			string(rec.Status), rec.StatusReason, rec.TrackingNumber, rec.Subtotal, rec.DiscountAmount, rec.TotalAfterDiscount,
			rec.ShippingCost, rec.TotalWithShipping, rec.ScheduledAt, rec.DispatchedAt, rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert shipment: %w", err)
		}

		if tag.RowsAffected() == 0 {
			existing, err := getShipment(ctx, tx, "id = $1 OR order_id = $2", rec.ID, rec.OrderID)
			if errors.Is(err, domain.ErrShipmentNotFound) {
				return domain.ErrTrackingNumberTaken
			}
			if err != nil {
				return err
			}
			stored = *existing
			return nil
		}

		for i, l := range rec.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO shipment_lines (shipment_id, line_no, name, description, category, quantity, unit_price, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				rec.ID, i+1, l.Name, l.Description, l.Category, l.Quantity, l.UnitPrice, l.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("insert shipment line %d: %w", i+1, err)
			}
		}
		stored, inserted = rec, true
		return nil
	})
	if err != nil {
		return domain.ShipmentRecord{}, false, err
	}
	return stored, inserted, nil
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShipmentRecord, error) {
	return getShipment(ctx, r.db, "id = $1", id)
}

func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.ShipmentRecord, error) {
	return getShipment(ctx, r.db, "order_id = $1", orderID)
}

func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ShipmentStatus, reason string) (domain.ShipmentRecord, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE shipments SET status = $3, status_reason = $4, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), reason,
	)
	if err != nil {
		return domain.ShipmentRecord{}, fmt.Errorf("update shipment status: %w", err)
	}

	rec, err := getShipment(ctx, r.db, "id = $1", id)
	if err != nil {
		return domain.ShipmentRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.ShipmentRecord{}, domain.ErrShipmentConflict
	}
	return *rec, nil
}

func getShipment(ctx context.Context, q querier, where string, args ...any) (*domain.ShipmentRecord, error) {
	var (
		rec                   domain.ShipmentRecord
		paymentMethod, status string
	)
	err := q.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE `+where+` LIMIT 1`, args...).Scan(
		&rec.ID, &rec.OrderID, &rec.UserID, &rec.PremiumSubscription, &paymentMethod,
		&status, &rec.StatusReason, &rec.TrackingNumber, &rec.Subtotal, &rec.DiscountAmount, &rec.TotalAfterDiscount,
		&rec.ShippingCost, &rec.TotalWithShipping, &rec.ScheduledAt, &rec.DispatchedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select shipment: %w", err)
	}
	rec.PaymentMethod = domain.PaymentMethod(paymentMethod)
	rec.Status = domain.ShipmentStatus(status)

	rec.Lines, err = selectLines(ctx, q, `
		SELECT name, description, category, quantity, unit_price, line_total
		FROM shipment_lines WHERE shipment_id = $1 ORDER BY line_no`, rec.ID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
