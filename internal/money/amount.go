// Package money holds the fixed-point amount type and the allocation and
// conversion rules built on it.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every Amount is rounded to.
const Scale = 2

// Amount is a monetary value rounded to two fractional digits (half away
// from zero) on every construction. The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{}

// New rounds d to two fractional digits.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Scale)}
}

// FromInt returns a whole amount.
func FromInt(units int64) Amount {
	return Amount{d: decimal.NewFromInt(units)}
}

// FromCents returns cents/100.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -Scale)}
}

// Parse reads a decimal string such as "2000" or "19.99".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return New(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount { return New(a.d.Add(b.d)) }
func (a Amount) Sub(b Amount) Amount { return New(a.d.Sub(b.d)) }

// Times multiplies by a whole quantity.
func (a Amount) Times(qty int) Amount {
	return New(a.d.Mul(decimal.NewFromInt(int64(qty))))
}

// MulRate multiplies by a rate such as a VAT rate or display multiplier.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return New(a.d.Mul(rate))
}

// Percent returns pct% of a.
func (a Amount) Percent(pct decimal.Decimal) Amount {
	return New(a.d.Mul(pct).Div(decimal.NewFromInt(100)))
}

// NonNegative clamps a at zero.
func (a Amount) NonNegative() Amount {
	if a.d.IsNegative() {
		return Zero
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal { return a.d }
func (a Amount) IsZero() bool             { return a.d.IsZero() }
func (a Amount) IsNegative() bool         { return a.d.IsNegative() }
func (a Amount) IsPositive() bool         { return a.d.IsPositive() }
func (a Amount) Cmp(b Amount) int         { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool      { return a.d.Equal(b.d) }
func (a Amount) LessThanOrEqual(b Amount) bool {
	return a.d.LessThanOrEqual(b.d)
}

// String formats with exactly two fractional digits.
func (a Amount) String() string { return a.d.StringFixed(Scale) }

// MarshalJSON encodes the amount as a JSON number with two fractional digits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	*a = New(d)
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	*a = New(d)
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, x := range amounts {
		total = total.Add(x)
	}
	return total
}
