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

// InvoiceRepository implements domain.InvoiceRepository on the invoices and
// invoice_lines tables.
type InvoiceRepository struct {
	db *pgxpool.Pool
}

var _ domain.InvoiceRepository = (*InvoiceRepository)(nil)

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, shipment_id, order_id, invoice_number, user_id, tracking_number,
	premium_subscription, payment_method, payment_status, status, status_reason, currency,
	total_discount, sub_total, tax, shipping_cost, total_amount, invoice_date, due_date,
	created_at, updated_at`

// Save relies on ON CONFLICT DO NOTHING covering the primary key, the
// unique shipment_id and the unique invoice_number, then reads back the row
// for this id or shipment. When there is none, only the invoice number
// collided and Save returns ErrInvoiceNumberTaken.
func (r *InvoiceRepository) Save(ctx context.Context, rec domain.InvoiceRecord) (domain.InvoiceRecord, bool, error) {
	var (
		stored   domain.InvoiceRecord
		inserted bool
	)
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO invoices (`+invoiceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
			ON CONFLICT DO NOTHING`,
			rec.ID, rec.ShipmentID, rec.OrderID, rec.InvoiceNumber, rec.UserID, rec.TrackingNumber,
			rec.PremiumSubscription, string(rec.PaymentMethod), string(rec.PaymentStatus), string(rec.Status), rec.StatusReason, rec.Currency,
			rec.TotalDiscount, rec.SubTotal, rec.Tax, rec.ShippingCost, rec.TotalAmount, rec.InvoiceDate, rec.DueDate,
			rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		if tag.RowsAffected() == 0 {
			existing, err := getInvoice(ctx, tx, "id = $1 OR shipment_id = $2", rec.ID, rec.ShipmentID)
			if errors.Is(err, domain.ErrInvoiceNotFound) {
				return domain.ErrInvoiceNumberTaken
			}
			if err != nil {
				return err
			}
			stored = *existing
			return nil
		}

		for i, l := range rec.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO invoice_lines (invoice_id, line_no, name, description, category, quantity, unit_price,
					initial_net, line_discount, net_after_discount, vat_rate, vat_amount, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				rec.ID, i+1, l.Name, l.Description, l.Category, l.Quantity, l.UnitPrice,
				l.InitialNet, l.LineDiscount, l.NetAfterDiscount, l.VatRate, l.VatAmount, l.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("insert invoice line %d: %w", i+1, err)
			}
		}
		stored, inserted = rec, true
		return nil
	})
	if err != nil {
		return domain.InvoiceRecord{}, false, err
	}
	return stored, inserted, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	return getInvoice(ctx, r.db, "id = $1", id)
}

func (r *InvoiceRepository) GetByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*domain.InvoiceRecord, error) {
	return getInvoice(ctx, r.db, "shipment_id = $1", shipmentID)
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InvoiceStatus, reason string) (domain.InvoiceRecord, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $3, status_reason = $4, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), reason,
	)
	if err != nil {
		return domain.InvoiceRecord{}, fmt.Errorf("update invoice status: %w", err)
	}

	rec, err := getInvoice(ctx, r.db, "id = $1", id)
	if err != nil {
		return domain.InvoiceRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.InvoiceRecord{}, domain.ErrInvoiceConflict
	}
	return *rec, nil
}

func getInvoice(ctx context.Context, q querier, where string, args ...any) (*domain.InvoiceRecord, error) {
	var (
		rec                                  domain.InvoiceRecord
		paymentMethod, paymentStatus, status string
	)
	err := q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE `+where+` LIMIT 1`, args...).Scan(
		&rec.ID, &rec.ShipmentID, &rec.OrderID, &rec.InvoiceNumber, &rec.UserID, &rec.TrackingNumber,
		&rec.PremiumSubscription, &paymentMethod, &paymentStatus, &status, &rec.StatusReason, &rec.Currency,
		&rec.TotalDiscount, &rec.SubTotal, &rec.Tax, &rec.ShippingCost, &rec.TotalAmount, &rec.InvoiceDate, &rec.DueDate,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select invoice: %w", err)
	}
	rec.PaymentMethod = domain.PaymentMethod(paymentMethod)
	rec.PaymentStatus = domain.PaymentStatus(paymentStatus)
	rec.Status = domain.InvoiceStatus(status)

	rows, err := q.Query(ctx, `
		SELECT name, description, category, quantity, unit_price, initial_net, line_discount,
			net_after_discount, vat_rate, vat_amount, line_total
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("select invoice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.InvoiceLine
		if err := rows.Scan(&l.Name, &l.Description, &l.Category, &l.Quantity, &l.UnitPrice, &l.InitialNet,
			&l.LineDiscount, &l.NetAfterDiscount, &l.VatRate, &l.VatAmount, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		rec.Lines = append(rec.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice lines: %w", err)
	}
	return &rec, nil
}
