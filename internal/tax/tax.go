package tax

import (
	"context"

	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/shopspring/decimal"
)

// Calculator defines the interface for tax calculation.
// Implementations: CategoryCalculator, MockCalculator
type Calculator interface {
	// CalculateTax computes VAT for every line item, in input order.
	CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error)
}

// TaxParams contains all information needed for tax calculation.
// Shipping is never part of it: shipping is not VAT-taxed.
type TaxParams struct {
	LineItems []LineItem
}

// LineItem represents a single item being taxed.
type LineItem struct {
	Description string
	Category    string       // "Essential" or any other product category
	NetAmount   money.Amount // net after discount
}

// TaxResult contains the calculated tax amount and breakdown.
type TaxResult struct {
	Lines     []LineTax
	TotalTax  money.Amount
	Breakdown []TaxBreakdown
}

// LineTax is the VAT of one line item.
type LineTax struct {
	Rate   decimal.Decimal
	Amount money.Amount
}

// TaxBreakdown aggregates tax for a single rate.
type TaxBreakdown struct {
	Name    string          // e.g., "Reduced VAT"
	Rate    decimal.Decimal // e.g., 0.11 for 11%
	Taxable money.Amount
	Amount  money.Amount
}
