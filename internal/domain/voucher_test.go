package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeVoucherCode(t *testing.T) {
	tests := []struct {
		raw  string
		code string
		ok   bool
	}{
		{" welcome10 ", "WELCOME10", true},
		{"SPRING-24", "SPRING-24", true},
		{"ab", "AB", false},
		{"has space", "HAS SPACE", false},
		{"emoji🙂", "EMOJI🙂", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			code, ok := NormalizeVoucherCode(tt.raw)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestVoucher_Check(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	zero, one := 0, 1

	tests := []struct {
		name    string
		voucher Voucher
		want    VoucherProblem
	}{
		{"unlimited active", Voucher{IsActive: true}, ""},
		{"inside window", Voucher{IsActive: true, ValidFrom: &past, ValidUntil: &future, RemainingUses: &one}, ""},
		{"inactive", Voucher{IsActive: false}, VoucherInactive},
		{"not yet valid", Voucher{IsActive: true, ValidFrom: &future}, VoucherNotYetValid},
		{"expired", Voucher{IsActive: true, ValidUntil: &past}, VoucherExpired},
		{"exhausted", Voucher{IsActive: true, RemainingUses: &zero}, VoucherExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.voucher.DiscountPercent = decimal.NewFromInt(10)
			assert.Equal(t, tt.want, tt.voucher.Check(now))
		})
	}
}

func TestVoucherProblem_Reason(t *testing.T) {
	assert.Equal(t, "voucher WELCOME10 was not found", VoucherNotFound.Reason("WELCOME10"))
	assert.Equal(t, "voucher X1Y has no remaining uses", VoucherExhausted.Reason("X1Y"))
	assert.Equal(t, `voucher code "a b" is malformed`, VoucherMalformed.Reason("a b"))
	assert.Panics(t, func() { _ = VoucherProblem("bogus").Reason("x") })
}
