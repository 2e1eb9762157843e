package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
)

func TestPlaceOrder_WithVoucher(t *testing.T) {
	f := newOrderFixture(t, welcome10())
	in := placeInput()
	in.VoucherCode = " welcome10 "

	result, err := f.service.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	published, ok := result.(domain.PublishedOrder)
	require.True(t, ok, "expected PublishedOrder, got %T", result)
	assert.Equal(t, "2100.00", published.Record.Subtotal.String())
	assert.Equal(t, "210.00", published.Record.DiscountAmount.String())
	assert.Equal(t, "1890.00", published.Record.Total.String())
	assert.Equal(t, "WELCOME10", published.Record.VoucherCode)
	assert.Equal(t, domain.OrderPlaced, published.Record.Status)
	assert.NotEqual(t, uuid.Nil, published.Record.ID)

	sent := decodeAll[events.OrderStateChanged](t, f.bus, events.TopicOrders)
	require.Len(t, sent, 1)
	assert.Equal(t, published.EventID, sent[0].ID)
	assert.Equal(t, "Placed", sent[0].OrderStatus)
	assert.Equal(t, published.Record.ID, sent[0].OrderID)
	assert.Equal(t, "1890.00", sent[0].Total.String())
	assert.Equal(t, "Cluj", sent[0].City)
	assert.Len(t, sent[0].Lines, 2)
	assert.True(t, testNow.Equal(sent[0].At))
}

func TestPlaceOrder_WithoutVoucher(t *testing.T) {
	f := newOrderFixture(t)

	result, err := f.service.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)

	published := result.(domain.PublishedOrder)
	assert.Equal(t, "2100.00", published.Record.Total.String())
	assert.True(t, published.Record.DiscountAmount.IsZero())
	assert.Empty(t, published.Record.VoucherCode)
}

func TestPlaceOrder_InvalidInput(t *testing.T) {
	f := newOrderFixture(t)
	in := placeInput()
	in.Phone = "12"
	in.Lines = nil

	result, err := f.service.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	invalid, ok := result.(domain.InvalidOrder)
	require.True(t, ok)
	assert.Contains(t, invalid.Reasons, `phone "12" is not a valid phone number`)
	assert.Contains(t, invalid.Reasons, "order must contain at least one line")
	assert.Equal(t, 0, f.orders.Count())
	assert.Empty(t, f.bus.Messages(events.TopicOrders))
}

func TestPlaceOrder_VoucherProblems(t *testing.T) {
	zero := 0
	past := testNow.AddDate(0, 0, -1)
	future := testNow.AddDate(0, 0, 1)

	vouchers := []domain.Voucher{
		{Code: "SLEEPY", DiscountPercent: decimal.NewFromInt(5), IsActive: false},
		{Code: "OLD", DiscountPercent: decimal.NewFromInt(5), IsActive: true, ValidUntil: &past},
		{Code: "SOON", DiscountPercent: decimal.NewFromInt(5), IsActive: true, ValidFrom: &future},
		{Code: "USEDUP", DiscountPercent: decimal.NewFromInt(5), IsActive: true, RemainingUses: &zero},
	}

	tests := []struct {
		code   string
		reason string
	}{
		{"x!", `voucher code "x!" is malformed`},
		{"NOPE", "voucher NOPE was not found"},
		{"sleepy", "voucher SLEEPY is not active"},
		{"OLD", "voucher OLD has expired"},
		{"SOON", "voucher SOON is not valid yet"},
		{"USEDUP", "voucher USEDUP has no remaining uses"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			f := newOrderFixture(t, vouchers...)
			in := placeInput()
			in.VoucherCode = tt.code

			result, err := f.service.PlaceOrder(context.Background(), in)
			require.NoError(t, err)

			invalid, ok := result.(domain.InvalidOrder)
			require.True(t, ok, "expected InvalidOrder, got %T", result)
			assert.Equal(t, []string{tt.reason}, invalid.Reasons)
			assert.Equal(t, 0, f.orders.Count())
		})
	}
}

func TestPlaceOrder_RepeatedOrderIDRepublishesStoredOrder(t *testing.T) {
	two := 2
	f := newOrderFixture(t, domain.Voucher{Code: "TWICE", DiscountPercent: decimal.NewFromInt(50), IsActive: true, RemainingUses: &two})
	ctx := context.Background()

	in := placeInput()
	in.OrderID = uuid.NewString()
	in.VoucherCode = "TWICE"

	first, err := f.service.PlaceOrder(ctx, in)
	require.NoError(t, err)

	// The retry carries a different body; the stored order wins.
	in.Lines = in.Lines[:1]
	second, err := f.service.PlaceOrder(ctx, in)
	require.NoError(t, err)

	a := first.(domain.PublishedOrder)
	b := second.(domain.PublishedOrder)
	assert.Equal(t, a.Record.ID, b.Record.ID)
	assert.Equal(t, "1050.00", b.Record.Total.String())
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, 1, f.orders.Count())
	assert.Len(t, f.bus.Messages(events.TopicOrders), 2)

	v, err := f.vouchers.GetByCode(ctx, "TWICE")
	require.NoError(t, err)
	assert.Equal(t, 1, *v.RemainingUses, "voucher consumed once")
}

func TestPlaceOrder_ConcurrentLastVoucherUse(t *testing.T) {
	one := 1
	f := newOrderFixture(t, domain.Voucher{Code: "LAST", DiscountPercent: decimal.NewFromInt(10), IsActive: true, RemainingUses: &one})

	const n = 20
	results := make([]domain.Order, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := placeInput()
			in.UserID = fmt.Sprintf("user-%d", i)
			in.VoucherCode = "LAST"
			r, err := f.service.PlaceOrder(context.Background(), in)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	var published, exhausted int
	for _, r := range results {
		switch r := r.(type) {
		case domain.PublishedOrder:
			published++
		case domain.InvalidOrder:
			assert.Equal(t, []string{"voucher LAST has no remaining uses"}, r.Reasons)
			exhausted++
		}
	}
	assert.Equal(t, 1, published)
	assert.Equal(t, n-1, exhausted)
}

func TestPlaceOrder_PublishFailure(t *testing.T) {
	f := newOrderFixture(t)
	svc := NewOrderService(f.orders, f.vouchers, failingPublisher{}, WithClock(fixedClock))

	in := placeInput()
	in.OrderID = uuid.NewString()

	result, err := svc.PlaceOrder(context.Background(), in)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))

	// Persist is not rolled back; a retry with the same id publishes.
	assert.Equal(t, 1, f.orders.Count())

	retry, err := f.service.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.IsType(t, domain.PublishedOrder{}, retry)
}

func placedOrder(t *testing.T, f *orderFixture) domain.OrderRecord {
	t.Helper()
	result, err := f.service.PlaceOrder(context.Background(), placeInput())
	require.NoError(t, err)
	return result.(domain.PublishedOrder).Record
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel placed order", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placedOrder(t, f)

		result, err := f.service.CancelOrder(ctx, order.ID, "customer request")
		require.NoError(t, err)

		applied, ok := result.(domain.Applied[domain.OrderRecord])
		require.True(t, ok, "expected Applied, got %T", result)
		assert.Equal(t, domain.OrderCancelled, applied.Record.Status)

		sent := decodeAll[events.OrderStateChanged](t, f.bus, events.TopicOrders)
		require.Len(t, sent, 2)
		assert.Equal(t, "Cancelled", sent[1].OrderStatus)
		assert.Equal(t, "customer request", sent[1].Reason)
	})

	t.Run("cancel cancelled order", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placedOrder(t, f)
		_, err := f.service.CancelOrder(ctx, order.ID, "")
		require.NoError(t, err)

		result, err := f.service.CancelOrder(ctx, order.ID, "")
		require.NoError(t, err)

		rejected, ok := result.(domain.Rejected[domain.OrderRecord])
		require.True(t, ok)
		assert.Equal(t, []string{fmt.Sprintf("order %s is already cancelled", order.ID)}, rejected.Reasons)
		assert.False(t, rejected.NotFound)
		assert.Len(t, f.bus.Messages(events.TopicOrders), 2)
	})

	t.Run("return cancelled order", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placedOrder(t, f)
		_, err := f.service.CancelOrder(ctx, order.ID, "")
		require.NoError(t, err)

		result, err := f.service.ReturnOrder(ctx, order.ID, "")
		require.NoError(t, err)
		rejected := result.(domain.Rejected[domain.OrderRecord])
		assert.Equal(t, []string{fmt.Sprintf("order %s is cancelled and cannot be returned", order.ID)}, rejected.Reasons)
	})

	t.Run("modify twice then return", func(t *testing.T) {
		f := newOrderFixture(t)
		order := placedOrder(t, f)

		for i := 0; i < 2; i++ {
			result, err := f.service.ModifyOrder(ctx, order.ID, "new address")
			require.NoError(t, err)
			assert.IsType(t, domain.Applied[domain.OrderRecord]{}, result)
		}

		result, err := f.service.ReturnOrder(ctx, order.ID, "damaged")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderReturned, result.(domain.Applied[domain.OrderRecord]).Record.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t)
		id := uuid.New()

		result, err := f.service.CancelOrder(ctx, id, "")
		require.NoError(t, err)

		rejected := result.(domain.Rejected[domain.OrderRecord])
		assert.True(t, rejected.NotFound)
		assert.Equal(t, []string{fmt.Sprintf("order %s was not found", id)}, rejected.Reasons)
	})
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.service.GetOrder(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
