package shipping

import (
	"context"
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
)

// MockProvider is a test implementation of Provider.
type MockProvider struct {
	GetRateFunc     func(ctx context.Context, params RateParams) (*Rate, error)
	CreateLabelFunc func(ctx context.Context, params LabelParams) (*Label, error)
}

// NewMockProvider creates a new mock shipping provider for testing.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// GetRate delegates to the configured function or returns a flat 30.00.
func (m *MockProvider) GetRate(ctx context.Context, params RateParams) (*Rate, error) {
	if m.GetRateFunc != nil {
		return m.GetRateFunc(ctx, params)
	}
	return &Rate{Carrier: "mock", ServiceCode: ServiceStandard, Cost: money.FromInt(30)}, nil
}

// CreateLabel delegates to the configured function or returns a fixed label.
func (m *MockProvider) CreateLabel(ctx context.Context, params LabelParams) (*Label, error) {
	if m.CreateLabelFunc != nil {
		return m.CreateLabelFunc(ctx, params)
	}
	return &Label{TrackingNumber: "AWB-MOCK-" + params.ShipmentID, CreatedAt: time.Now()}, nil
}
