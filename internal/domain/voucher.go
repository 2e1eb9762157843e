package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var voucherCodeShape = regexp.MustCompile(`^[A-Z0-9-]{3,32}$`)

// Voucher is a discount code. RemainingUses nil means unlimited. It is only
// mutated through an atomic consume in storage.
type Voucher struct {
	Code            string
	DiscountPercent decimal.Decimal
	IsActive        bool
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	RemainingUses   *int
}

// VoucherProblem is why a voucher could not be applied.
type VoucherProblem string

const (
	VoucherMalformed   VoucherProblem = "malformed"
	VoucherNotFound    VoucherProblem = "not_found"
	VoucherInactive    VoucherProblem = "inactive"
	VoucherNotYetValid VoucherProblem = "not_yet_valid"
	VoucherExpired     VoucherProblem = "expired"
	VoucherExhausted   VoucherProblem = "exhausted"
)

// Reason renders the problem for the caller.
func (p VoucherProblem) Reason(code string) string {
	switch p {
	case VoucherMalformed:
		return fmt.Sprintf("voucher code %q is malformed", code)
	case VoucherNotFound:
		return fmt.Sprintf("voucher %s was not found", code)
	case VoucherInactive:
		return fmt.Sprintf("voucher %s is not active", code)
	case VoucherNotYetValid:
		return fmt.Sprintf("voucher %s is not valid yet", code)
	case VoucherExpired:
		return fmt.Sprintf("voucher %s has expired", code)
	case VoucherExhausted:
		return fmt.Sprintf("voucher %s has no remaining uses", code)
	default:
		panic(fmt.Sprintf("unknown voucher problem %q", string(p)))
	}
}

// NormalizeVoucherCode trims and upper-cases a code. ok is false when the
// result is not a well-formed code.
func NormalizeVoucherCode(raw string) (code string, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(raw))
	return code, voucherCodeShape.MatchString(code)
}

// Check reports the first problem preventing use of v at now, or "".
func (v Voucher) Check(now time.Time) VoucherProblem {
	switch {
	case !v.IsActive:
		return VoucherInactive
	case v.ValidFrom != nil && now.Before(*v.ValidFrom):
		return VoucherNotYetValid
	case v.ValidUntil != nil && now.After(*v.ValidUntil):
		return VoucherExpired
	case v.RemainingUses != nil && *v.RemainingUses <= 0:
		return VoucherExhausted
	}
	return ""
}
