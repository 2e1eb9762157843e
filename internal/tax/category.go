package tax

import (
	"context"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/shopspring/decimal"
)

// EssentialCategory is the only product category taxed at the reduced rate.
const EssentialCategory = "Essential"

var (
	ReducedRate  = decimal.RequireFromString("0.11")
	StandardRate = decimal.RequireFromString("0.21")
)

// RateFor returns the VAT rate of a product category. Unknown and empty
// categories get the standard rate.
func RateFor(category string) decimal.Decimal {
	if category == EssentialCategory {
		return ReducedRate
	}
	return StandardRate
}

// CategoryCalculator applies a VAT rate chosen by product category to each
// line independently.
type CategoryCalculator struct{}

// NewCategoryCalculator creates the category-based VAT calculator.
func NewCategoryCalculator() Calculator {
	return &CategoryCalculator{}
}

// CalculateTax computes round(net × rate, 2) per line.
func (c *CategoryCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	result := &TaxResult{
		Lines:    make([]LineTax, len(params.LineItems)),
		TotalTax: money.Zero,
	}

	reduced := TaxBreakdown{Name: "Reduced VAT", Rate: ReducedRate}
	standard := TaxBreakdown{Name: "Standard VAT", Rate: StandardRate}

	for i, item := range params.LineItems {
		if item.NetAmount.IsNegative() {
			return nil, ErrNegativeTaxable
		}

		rate := RateFor(item.Category)
		vat := item.NetAmount.MulRate(rate)

		result.Lines[i] = LineTax{Rate: rate, Amount: vat}
		result.TotalTax = result.TotalTax.Add(vat)

		b := &standard
		if rate.Equal(ReducedRate) {
			b = &reduced
		}
		b.Taxable = b.Taxable.Add(item.NetAmount)
		b.Amount = b.Amount.Add(vat)
	}

	for _, b := range []TaxBreakdown{reduced, standard} {
		if !b.Taxable.IsZero() || !b.Amount.IsZero() {
			result.Breakdown = append(result.Breakdown, b)
		}
	}

	return result, nil
}
