package domain

import (
	"testing"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() UnvalidatedOrder {
	return UnvalidatedOrder{
		UserID: "user-1",
		Lines: []UnvalidatedOrderLine{
			{Name: "Laptop", Category: "Electronics", Quantity: 1, UnitPrice: money.MustParse("2000")},
			{Name: "Mouse", Category: "Electronics", Quantity: 2, UnitPrice: money.MustParse("50")},
		},
		Street:        "Strada Lunga 1",
		City:          "Cluj",
		PostalCode:    "400000",
		Phone:         "+40 712 345 678",
		Email:         "ana@example.com",
		PickupMethod:  string(HomeDelivery),
		PaymentMethod: string(CardOnline),
		VoucherCode:   " welcome10 ",
	}
}

func TestValidateOrder_Valid(t *testing.T) {
	got := ValidateOrder(validInput())

	v, ok := got.(ValidatedOrder)
	require.True(t, ok, "expected ValidatedOrder, got %T", got)
	assert.Equal(t, OrderStateValidated, v.CurrentState())
	assert.Equal(t, "2100.00", v.Subtotal().String())
	assert.Equal(t, "100.00", v.Lines[1].LineTotal.String())
	assert.Equal(t, uuid.Nil, v.RequestedID)
	assert.Equal(t, "Cluj", v.Address.City)
}

func TestValidateOrder_Pickup(t *testing.T) {
	in := validInput()
	in.PickupMethod = string(EasyBoxPickup)
	in.PickupPointID = "EBX-101"

	v, ok := ValidateOrder(in).(ValidatedOrder)
	require.True(t, ok)
	assert.Equal(t, Address{}, v.Address, "pickup orders drop the delivery address")
	assert.Equal(t, "EBX-101", v.PickupPointID)
}

func TestValidateOrder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*UnvalidatedOrder)
		reasons []string
	}{
		{
			name:    "unknown pickup method",
			mutate:  func(o *UnvalidatedOrder) { o.PickupMethod = "Drone" },
			reasons: []string{`pickup method "Drone" is not supported`},
		},
		{
			name: "home delivery missing address and with pickup point",
			mutate: func(o *UnvalidatedOrder) {
				o.Street, o.City, o.PostalCode = "", "", ""
				o.PickupPointID = "EBX-1"
			},
			reasons: []string{
				"street is required for home delivery",
				"city is required for home delivery",
				"postal code is required for home delivery",
				"pickup point id must not be set for home delivery",
			},
		},
		{
			name: "pickup without point",
			mutate: func(o *UnvalidatedOrder) {
				o.PickupMethod = string(PostOfficePickup)
			},
			reasons: []string{"pickup point id is required for PostOfficePickup"},
		},
		{
			name:    "unknown payment method",
			mutate:  func(o *UnvalidatedOrder) { o.PaymentMethod = "Crypto" },
			reasons: []string{`payment method "Crypto" is not supported`},
		},
		{
			name:    "missing phone",
			mutate:  func(o *UnvalidatedOrder) { o.Phone = "  " },
			reasons: []string{"phone is required"},
		},
		{
			name:    "bad phone",
			mutate:  func(o *UnvalidatedOrder) { o.Phone = "12-ab" },
			reasons: []string{`phone "12-ab" is not a valid phone number`},
		},
		{
			name:    "bad email",
			mutate:  func(o *UnvalidatedOrder) { o.Email = "not-an-email" },
			reasons: []string{`email "not-an-email" is not a valid email address`},
		},
		{
			name: "bad lines",
			mutate: func(o *UnvalidatedOrder) {
				o.Lines = []UnvalidatedOrderLine{{Name: "", Quantity: 0, UnitPrice: money.Zero}}
			},
			reasons: []string{
				"line 1: name is required",
				"line 1: quantity must be at least 1",
				"line 1: unit price must be greater than 0",
			},
		},
		{
			name:    "no lines",
			mutate:  func(o *UnvalidatedOrder) { o.Lines = nil },
			reasons: []string{"order must contain at least one line"},
		},
		{
			name:    "bad client order id",
			mutate:  func(o *UnvalidatedOrder) { o.OrderID = "nope" },
			reasons: []string{`order id "nope" is not a valid UUID`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			got := ValidateOrder(in)

			invalid, ok := got.(InvalidOrder)
			require.True(t, ok, "expected InvalidOrder, got %T", got)
			assert.Equal(t, tt.reasons, invalid.Reasons)
			assert.Equal(t, OrderStateInvalid, invalid.CurrentState())
		})
	}
}

func TestValidateOrder_AccumulatesAllReasons(t *testing.T) {
	got := ValidateOrder(UnvalidatedOrder{})

	invalid, ok := got.(InvalidOrder)
	require.True(t, ok)
	assert.Contains(t, invalid.Reasons, "user id is required")
	assert.Contains(t, invalid.Reasons, "phone is required")
	assert.Contains(t, invalid.Reasons, "order must contain at least one line")
	assert.GreaterOrEqual(t, len(invalid.Reasons), 5)
}

func TestIsPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0712345678", true},
		{"+40712345678", true},
		{"+40 712 345 678", true},
		{"0712-345-678", true},
		{"0712.345.678", true},
		{"071234567", false},
		{"0712345678901234", false},
		{"0712  345678", false},
		{"phone", false},
		{"+", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPhone(tt.in))
		})
	}
}

func TestPriceOrder(t *testing.T) {
	v := ValidateOrder(validInput()).(ValidatedOrder)

	t.Run("with voucher", func(t *testing.T) {
		p := PriceOrder(v, &AppliedVoucher{Code: "WELCOME10", Percent: decimal.NewFromInt(10)})

		assert.Equal(t, "2100.00", p.Pricing.Subtotal.String())
		assert.Equal(t, "210.00", p.Pricing.DiscountAmount.String())
		assert.Equal(t, "1890.00", p.Pricing.Total.String())
		assert.Equal(t, "WELCOME10", p.Pricing.VoucherCode)
	})

	t.Run("without voucher", func(t *testing.T) {
		p := PriceOrder(v, nil)

		assert.Equal(t, "2100.00", p.Pricing.Total.String())
		assert.True(t, p.Pricing.DiscountAmount.IsZero())
		assert.Empty(t, p.Pricing.VoucherCode)
	})

	t.Run("full discount never goes negative", func(t *testing.T) {
		p := PriceOrder(v, &AppliedVoucher{Code: "FREE", Percent: decimal.NewFromInt(100)})

		assert.True(t, p.Pricing.Total.IsZero())
		assert.Equal(t, p.Pricing.Subtotal.Sub(p.Pricing.DiscountAmount).NonNegative(), p.Pricing.Total)
	})
}

func TestOrderPipeline(t *testing.T) {
	in := validInput()
	in.OrderID = "2b0c0b36-1a2e-4f51-9f0a-0d4c9d7b3a11"

	v := ValidateOrder(in).(ValidatedOrder)
	p := PriceOrder(v, nil)
	ps := ToPersistable(p)

	assert.Equal(t, uuid.MustParse(in.OrderID), ps.Record.ID)
	assert.Equal(t, OrderPlaced, ps.Record.Status)
	assert.Len(t, ps.Record.Lines, 2)

	stored := ps.Record
	persisted := MarkOrderPersisted(ps, stored)
	assert.Equal(t, OrderStatePersisted, persisted.CurrentState())

	eventID := uuid.New()
	published := MarkOrderPublished(persisted, eventID)
	assert.Equal(t, OrderStatePublished, published.CurrentState())
	assert.Equal(t, eventID, published.EventID)
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		to    OrderState
		want  bool
	}{
		{"unvalidated to validated", UnvalidatedOrder{}, OrderStateValidated, true},
		{"unvalidated to invalid", UnvalidatedOrder{}, OrderStateInvalid, true},
		{"unvalidated cannot skip to priced", UnvalidatedOrder{}, OrderStatePriced, false},
		{"validated to priced", ValidatedOrder{}, OrderStatePriced, true},
		{"validated to invalid", ValidatedOrder{}, OrderStateInvalid, true},
		{"priced to persistable", PricedOrder{}, OrderStatePersistable, true},
		{"priced cannot skip to persisted", PricedOrder{}, OrderStatePersisted, false},
		{"persisted to published", PersistedOrder{}, OrderStatePublished, true},
		{"invalid is terminal", InvalidOrder{}, OrderStateValidated, false},
		{"published is terminal", PublishedOrder{}, OrderStatePersisted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.CanTransitionTo(tt.to))
		})
	}
}

func TestCheckOrderStatusChange(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000042")

	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want string
	}{
		{"cancel placed", OrderPlaced, OrderCancelled, ""},
		{"modify placed", OrderPlaced, OrderModified, ""},
		{"modify modified", OrderModified, OrderModified, ""},
		{"return modified", OrderModified, OrderReturned, ""},
		{"cancel cancelled", OrderCancelled, OrderCancelled, "order " + id.String() + " is already cancelled"},
		{"cancel returned", OrderReturned, OrderCancelled, "order " + id.String() + " is returned and cannot be cancelled"},
		{"return cancelled", OrderCancelled, OrderReturned, "order " + id.String() + " is cancelled and cannot be returned"},
		{"modify returned", OrderReturned, OrderModified, "order " + id.String() + " is returned and cannot be modified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckOrderStatusChange(id, tt.from, tt.to))
		})
	}
}
