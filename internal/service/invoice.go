package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/tax"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// InvoiceService issues invoices for scheduled shipments and follows their
// shipment's lifecycle.
type InvoiceService interface {
	// CreateInvoice runs the invoice saga for a scheduled shipment. Running
	// it again for the same shipment publishes the stored invoice.
	CreateInvoice(ctx context.Context, d domain.InvoiceDetails) (domain.PublishedInvoice, error)

	// ChangeInvoiceStatus moves the invoice of shipmentID to status to
	// without recomputing it.
	ChangeInvoiceStatus(ctx context.Context, shipmentID uuid.UUID, to domain.InvoiceStatus, reason string) (domain.ChangeResult[domain.InvoiceRecord], error)

	GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	GetInvoiceByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*domain.InvoiceRecord, error)
}

// InvoiceConfig sets the invoicing currency and the display conversion.
type InvoiceConfig struct {
	Currency    string
	DisplayRate decimal.Decimal
}

type invoiceService struct {
	invoices   domain.InvoiceRepository
	calculator tax.Calculator
	publisher  bus.Publisher
	config     InvoiceConfig
	options
}

// NewInvoiceService creates the Invoicing saga.
func NewInvoiceService(
	invoices domain.InvoiceRepository,
	calculator tax.Calculator,
	publisher bus.Publisher,
	config InvoiceConfig,
	opts ...Option,
) InvoiceService {
	if config.Currency == "" {
		config.Currency = money.RON
	}
	if config.DisplayRate.IsZero() {
		config.DisplayRate = money.DefaultDisplayRate
	}

	return &invoiceService{
		invoices:   invoices,
		calculator: calculator,
		publisher:  publisher,
		config:     config,
		options:    newOptions(opts),
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, d domain.InvoiceDetails) (domain.PublishedInvoice, error) {
	const op = "InvoiceService.CreateInvoice"

	ctx, span := telemetry.StartSpan(ctx, ContextInvoicing, "create")
	defer span.End()

	if d.Currency == "" {
		d.Currency = s.config.Currency
	}
	created := domain.NewInvoice(d)
	logger := s.log(ctx).With().
		Str("shipment_id", created.ShipmentID.String()).
		Str("invoice_id", created.InvoiceID.String()).
		Logger()

	withVat, err := stage(ctx, &s.options, ContextInvoicing, "vat", func(ctx context.Context) (domain.VatCalculatedInvoice, error) {
		lines, err := s.billLines(ctx, created)
		if err != nil {
			return domain.VatCalculatedInvoice{}, domain.WrapError(err, domain.EUNAVAILABLE, op, "Tax calculation failed")
		}
		return domain.ApplyVat(created, lines), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeFailed)
		return domain.PublishedInvoice{}, err
	}

	now := s.now()
	number, err := domain.NewReference("INV", now, 6)
	if err != nil {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeFailed)
		return domain.PublishedInvoice{}, domain.Internal(err, op, "Failed to generate invoice number")
	}
	calculated := domain.FinalizeInvoice(withVat, number, now)

	persisted, err := stage(ctx, &s.options, ContextInvoicing, "persist", func(ctx context.Context) (domain.PersistedInvoice, error) {
		rec := calculated.ToRecord()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		stored, inserted, err := s.invoices.Save(ctx, rec)
		if err != nil {
			return domain.PersistedInvoice{}, storageError(err, op)
		}
		if !inserted {
			logger.Info().Str("invoice_number", stored.InvoiceNumber).Msg("invoice already stored, persist skipped")
		}
		return domain.MarkInvoicePersisted(calculated, stored), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeFailed)
		return domain.PublishedInvoice{}, err
	}

	published, err := stage(ctx, &s.options, ContextInvoicing, "publish", func(ctx context.Context) (domain.PublishedInvoice, error) {
		ev := invoiceEvent(events.TypeInvoiceCreated, persisted.Record, persisted.Record.StatusReason, s.config.DisplayRate, s.now())
		if err := publish(ctx, &s.options, s.publisher, op, events.TopicInvoices, ev); err != nil {
			return domain.PublishedInvoice{}, err
		}
		return domain.MarkInvoicePublished(persisted, ev.ID), nil
	})
	if err != nil {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeFailed)
		return domain.PublishedInvoice{}, err
	}

	logger.Info().
		Str("invoice_number", published.Record.InvoiceNumber).
		Str("total", published.Record.TotalAmount.String()).
		Str("payment_status", string(published.Record.PaymentStatus)).
		Msg("invoice issued")
	s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomePublished)
	s.metrics.RecordInvoiceTax(string(published.Record.PaymentStatus), published.Record.Tax)

	return published, nil
}

// billLines spreads the shipment discount over the lines in proportion to
// their net value, then computes VAT on each discounted line.
func (s *invoiceService) billLines(ctx context.Context, i domain.CreatedInvoice) ([]domain.InvoiceLine, error) {
	nets := make([]money.Amount, len(i.Lines))
	for n, l := range i.Lines {
		nets[n] = l.UnitPrice.Times(l.Quantity)
	}
	discounts := money.Allocate(i.TotalDiscount, nets)

	items := make([]tax.LineItem, len(i.Lines))
	for n, l := range i.Lines {
		items[n] = tax.LineItem{
			Description: l.Name,
			Category:    l.Category,
			NetAmount:   nets[n].Sub(discounts[n]),
		}
	}

	result, err := s.calculator.CalculateTax(ctx, tax.TaxParams{LineItems: items})
	if err != nil {
		return nil, err
	}
	if len(result.Lines) != len(items) {
		return nil, errors.New("tax calculator returned a different number of lines")
	}

	lines := make([]domain.InvoiceLine, len(i.Lines))
	for n, l := range i.Lines {
		lines[n] = domain.NewInvoiceLine(l, discounts[n], result.Lines[n].Rate, result.Lines[n].Amount)
	}
	return lines, nil
}

func (s *invoiceService) ChangeInvoiceStatus(ctx context.Context, shipmentID uuid.UUID, to domain.InvoiceStatus, reason string) (domain.ChangeResult[domain.InvoiceRecord], error) {
	const op = "InvoiceService.ChangeInvoiceStatus"

	ctx, span := telemetry.StartSpan(ctx, ContextInvoicing, "change_status")
	defer span.End()
	logger := s.log(ctx).With().Str("shipment_id", shipmentID.String()).Str("target_status", to.String()).Logger()

	current, err := s.invoices.GetByShipmentID(ctx, shipmentID)
	if errors.Is(err, domain.ErrInvoiceNotFound) {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeRejected)
		return domain.RejectNotFound[domain.InvoiceRecord]("invoice for shipment", shipmentID.String()), nil
	}
	if err != nil {
		return nil, storageError(err, op)
	}

	if why := domain.CheckInvoiceStatusChange(current.ID, current.Status, to); why != "" {
		logger.Info().Str("reason", why).Msg("invoice status change rejected")
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeRejected)
		return domain.Reject[domain.InvoiceRecord](why), nil
	}

	updated, err := s.invoices.UpdateStatus(ctx, current.ID, current.Status, to, reason)
	if err != nil {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeFailed)
		return nil, storageError(err, op)
	}

	ev := invoiceEvent(events.TypeInvoiceStateChanged, updated, reason, s.config.DisplayRate, s.now())
	if err := publish(ctx, &s.options, s.publisher, op, events.TopicInvoices, ev); err != nil {
		s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeFailed)
		return nil, err
	}

	logger.Info().Str("invoice_id", updated.ID.String()).Str("from_status", current.Status.String()).Msg("invoice status changed")
	s.metrics.RecordSaga(ContextInvoicing, telemetry.OutcomeApplied)
	return domain.Applied[domain.InvoiceRecord]{Record: updated}, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	rec, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "InvoiceService.GetInvoice")
	}
	return rec, nil
}

func (s *invoiceService) GetInvoiceByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*domain.InvoiceRecord, error) {
	rec, err := s.invoices.GetByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, storageError(err, "InvoiceService.GetInvoiceByShipmentID")
	}
	return rec, nil
}
