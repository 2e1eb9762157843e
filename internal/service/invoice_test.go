package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/memstore"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/tax"
)

type invoiceFixture struct {
	bus      *bus.Memory
	invoices *memstore.InvoiceRepository
	service  InvoiceService
}

func newInvoiceFixture(t *testing.T, calculator tax.Calculator) *invoiceFixture {
	t.Helper()
	if calculator == nil {
		calculator = tax.NewCategoryCalculator()
	}
	f := &invoiceFixture{
		bus:      bus.NewMemory(zerolog.Nop()),
		invoices: memstore.NewInvoiceRepository(),
	}
	f.service = NewInvoiceService(f.invoices, calculator, f.bus, InvoiceConfig{}, WithClock(fixedClock))
	return f
}

func line(name, category string, qty int, price string) domain.OrderLine {
	p := money.MustParse(price)
	return domain.OrderLine{Name: name, Category: category, Quantity: qty, UnitPrice: p, LineTotal: p.Times(qty)}
}

func TestCreateInvoice_VatByCategory(t *testing.T) {
	f := newInvoiceFixture(t, nil)
	shipmentID := uuid.New()

	published, err := f.service.CreateInvoice(context.Background(), domain.InvoiceDetails{
		ShipmentID:     shipmentID,
		OrderID:        uuid.New(),
		UserID:         "user-1",
		TrackingNumber: "AWB-20250314-ABCDEFGH",
		PaymentMethod:  domain.CardOnline,
		Lines: []domain.OrderLine{
			line("Bread", "Essential", 1, "10.00"),
			line("Laptop", "Electronics", 1, "2000.00"),
		},
		TotalDiscount: money.Zero,
		ShippingCost:  money.MustParse("30"),
	})
	require.NoError(t, err)

	rec := published.Record
	assert.Equal(t, domain.InvoiceIDFor(shipmentID), rec.ID)
	assert.Equal(t, "2010.00", rec.SubTotal.String())
	assert.Equal(t, "421.10", rec.Tax.String())
	assert.Equal(t, "2461.10", rec.TotalAmount.String())
	assert.Equal(t, "1.10", rec.Lines[0].VatAmount.String())
	assert.True(t, decimal.RequireFromString("0.11").Equal(rec.Lines[0].VatRate))
	assert.Equal(t, "420.00", rec.Lines[1].VatAmount.String())
	assert.Equal(t, domain.PaymentAuthorized, rec.PaymentStatus)
	assert.Equal(t, domain.InvoiceIssued, rec.Status)
	assert.Equal(t, money.RON, rec.Currency)
	assert.True(t, strings.HasPrefix(rec.InvoiceNumber, "INV-20250314-"), rec.InvoiceNumber)
	assert.True(t, testNow.AddDate(0, 0, 30).Equal(rec.DueDate))

	sent := decodeAll[events.InvoiceStateChanged](t, f.bus, events.TopicInvoices)
	require.Len(t, sent, 1)
	assert.Equal(t, events.TypeInvoiceCreated, sent[0].Type)
	assert.Equal(t, "Issued", sent[0].InvoiceState)
	assert.Equal(t, "2461.10", sent[0].TotalInRon.String())
	assert.Equal(t, "492.22", sent[0].TotalInEur.String())
	assert.Len(t, sent[0].Lines, 2)
}

func TestCreateInvoice_AllocatesDiscount(t *testing.T) {
	f := newInvoiceFixture(t, nil)

	published, err := f.service.CreateInvoice(context.Background(), domain.InvoiceDetails{
		ShipmentID:          uuid.New(),
		OrderID:             uuid.New(),
		PremiumSubscription: true,
		PaymentMethod:       domain.CashOnDelivery,
		Lines: []domain.OrderLine{
			line("Laptop", "Electronics", 1, "2000"),
			line("Mouse", "Electronics", 2, "50"),
		},
		TotalDiscount: money.MustParse("210"),
		ShippingCost:  money.MustParse("30"),
	})
	require.NoError(t, err)

	rec := published.Record
	assert.Equal(t, "200.00", rec.Lines[0].LineDiscount.String())
	assert.Equal(t, "10.00", rec.Lines[1].LineDiscount.String())
	assert.Equal(t, "1800.00", rec.Lines[0].NetAfterDiscount.String())
	assert.Equal(t, "90.00", rec.Lines[1].NetAfterDiscount.String())
	assert.Equal(t, "1890.00", rec.SubTotal.String())
	assert.Equal(t, "396.90", rec.Tax.String())
	assert.Equal(t, "2316.90", rec.TotalAmount.String())
	assert.Equal(t, domain.PaymentPending, rec.PaymentStatus)
	assert.True(t, testNow.AddDate(0, 0, 45).Equal(rec.DueDate))
}

func TestCreateInvoice_RedeliveryIsNoop(t *testing.T) {
	f := newInvoiceFixture(t, nil)
	d := domain.InvoiceDetails{
		ShipmentID:    uuid.New(),
		OrderID:       uuid.New(),
		PaymentMethod: domain.CardOnDelivery,
		Lines:         []domain.OrderLine{line("Mouse", "Electronics", 1, "50")},
		TotalDiscount: money.Zero,
		ShippingCost:  money.MustParse("30"),
	}

	first, err := f.service.CreateInvoice(context.Background(), d)
	require.NoError(t, err)
	second, err := f.service.CreateInvoice(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, 1, f.invoices.Count())
	assert.Equal(t, first.Record.InvoiceNumber, second.Record.InvoiceNumber)
	assert.Len(t, f.bus.Messages(events.TopicInvoices), 2)
}

func TestCreateInvoice_TaxFailure(t *testing.T) {
	calc := tax.NewMockCalculator()
	calc.CalculateTaxFunc = func(ctx context.Context, params tax.TaxParams) (*tax.TaxResult, error) {
		return nil, errors.New("rates unavailable")
	}
	f := newInvoiceFixture(t, calc)

	_, err := f.service.CreateInvoice(context.Background(), domain.InvoiceDetails{
		ShipmentID: uuid.New(),
		Lines:      []domain.OrderLine{line("Mouse", "Electronics", 1, "50")},
	})
	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
	assert.Equal(t, 0, f.invoices.Count())
	require.Len(t, calc.Calls, 1)
}

func TestChangeInvoiceStatus(t *testing.T) {
	ctx := context.Background()
	f := newInvoiceFixture(t, nil)
	shipmentID := uuid.New()
	created, err := f.service.CreateInvoice(ctx, domain.InvoiceDetails{
		ShipmentID:    shipmentID,
		OrderID:       uuid.New(),
		PaymentMethod: domain.CardOnline,
		Lines:         []domain.OrderLine{line("Mouse", "Electronics", 1, "50")},
		ShippingCost:  money.MustParse("30"),
	})
	require.NoError(t, err)

	result, err := f.service.ChangeInvoiceStatus(ctx, shipmentID, domain.InvoiceCancelled, "shipment cancelled")
	require.NoError(t, err)
	applied := result.(domain.Applied[domain.InvoiceRecord])
	assert.Equal(t, domain.InvoiceCancelled, applied.Record.Status)
	assert.Equal(t, created.Record.TotalAmount, applied.Record.TotalAmount, "status changes do not recompute")

	result, err = f.service.ChangeInvoiceStatus(ctx, shipmentID, domain.InvoiceCreditNoteIssued, "")
	require.NoError(t, err)
	rejected := result.(domain.Rejected[domain.InvoiceRecord])
	assert.Equal(t, []string{fmt.Sprintf("invoice %s is cancelled and cannot be credit note issued", created.Record.ID)}, rejected.Reasons)

	unknown := uuid.New()
	result, err = f.service.ChangeInvoiceStatus(ctx, unknown, domain.InvoiceCancelled, "")
	require.NoError(t, err)
	assert.True(t, result.(domain.Rejected[domain.InvoiceRecord]).NotFound)

	sent := decodeAll[events.InvoiceStateChanged](t, f.bus, events.TopicInvoices)
	require.Len(t, sent, 2)
	assert.Equal(t, events.TypeInvoiceStateChanged, sent[1].Type)
	assert.Equal(t, "Cancelled", sent[1].InvoiceState)
	assert.Equal(t, "shipment cancelled", sent[1].Reason)
}
