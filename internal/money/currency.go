package money

import "github.com/shopspring/decimal"

const (
	RON = "RON"
	EUR = "EUR"
)

// DefaultDisplayRate converts RON to the EUR display amount. It is a fixed
// multiplier, not a market rate.
var DefaultDisplayRate = decimal.RequireFromString("0.20")

// Convert derives a display amount in the secondary currency. The result is
// for presentation only and is never stored as the source of truth.
func Convert(a Amount, rate decimal.Decimal) Amount {
	return a.MulRate(rate)
}
