package money

import "github.com/shopspring/decimal"

// Allocate distributes total across lines in proportion to their net
// amounts. Each share is rounded independently and clamped so it never
// exceeds its line's net. The shares are not reconciled against total:
// each rounding moves a share by at most 0.005, so for total <= sum(nets)
// the shares sum to within len(nets) * 0.005 of total.
//
// When the nets sum to zero the divisor is taken as 1.
func Allocate(total Amount, nets []Amount) []Amount {
	sum := decimal.Zero
	for _, n := range nets {
		sum = sum.Add(n.d)
	}
	if sum.IsZero() {
		sum = decimal.NewFromInt(1)
	}

	shares := make([]Amount, len(nets))
	for i, n := range nets {
		share := New(total.d.Mul(n.d).Div(sum))
		if n.Cmp(share) < 0 {
			share = n
		}
		shares[i] = share.NonNegative()
	}
	return shares
}
