package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/memstore"
	"github.com/dukerupert/fulfillment/internal/money"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// failingPublisher rejects every event.
type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, topic string, event events.Event) error {
	return errors.New("nats: connection closed")
}

func welcome10() domain.Voucher {
	return domain.Voucher{Code: "WELCOME10", DiscountPercent: decimal.NewFromInt(10), IsActive: true}
}

func placeInput() domain.UnvalidatedOrder {
	return domain.UnvalidatedOrder{
		UserID: "user-1",
		Lines: []domain.UnvalidatedOrderLine{
			{Name: "Laptop", Category: "Electronics", Quantity: 1, UnitPrice: money.MustParse("2000")},
			{Name: "Mouse", Category: "Electronics", Quantity: 2, UnitPrice: money.MustParse("50")},
		},
		Street:        "Strada Lunga 1",
		City:          "Cluj",
		PostalCode:    "400000",
		Phone:         "0712345678",
		PickupMethod:  string(domain.HomeDelivery),
		PaymentMethod: string(domain.CardOnline),
	}
}

type orderFixture struct {
	bus      *bus.Memory
	orders   *memstore.OrderRepository
	vouchers *memstore.VoucherRepository
	service  OrderService
}

func newOrderFixture(t *testing.T, vouchers ...domain.Voucher) *orderFixture {
	t.Helper()
	f := &orderFixture{
		bus:      bus.NewMemory(zerolog.Nop()),
		orders:   memstore.NewOrderRepository(),
		vouchers: memstore.NewVoucherRepository(vouchers...),
	}
	f.service = NewOrderService(f.orders, f.vouchers, f.bus, WithClock(fixedClock))
	return f
}

// decodeAll decodes every message on topic into T.
func decodeAll[T any](t *testing.T, b *bus.Memory, topic string) []T {
	t.Helper()
	msgs := b.Messages(topic)
	out := make([]T, len(msgs))
	for i, m := range msgs {
		require.NoError(t, json.Unmarshal(m.Data, &out[i]))
	}
	return out
}
