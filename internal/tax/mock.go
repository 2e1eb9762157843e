package tax

import (
	"context"
)

// MockCalculator is a test implementation of Calculator.
type MockCalculator struct {
	CalculateTaxFunc func(ctx context.Context, params TaxParams) (*TaxResult, error)
	Calls            []TaxParams
}

// NewMockCalculator creates a mock that falls back to the category rates.
func NewMockCalculator() *MockCalculator {
	return &MockCalculator{}
}

// CalculateTax delegates to the configured function or to CategoryCalculator.
func (m *MockCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	m.Calls = append(m.Calls, params)
	if m.CalculateTaxFunc != nil {
		return m.CalculateTaxFunc(ctx, params)
	}
	return (&CategoryCalculator{}).CalculateTax(ctx, params)
}
