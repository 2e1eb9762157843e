package shipping

import (
	"context"
	"time"

	"github.com/dukerupert/fulfillment/internal/money"
)

// Service codes returned on a Rate.
const (
	ServiceStandard = "standard"
	ServicePriority = "priority"
)

// Provider defines the interface for shipping operations.
type Provider interface {
	// GetRate prices a shipment from its order total and the customer's
	// subscription tier.
	GetRate(ctx context.Context, params RateParams) (*Rate, error)

	// CreateLabel assigns a tracking number to a scheduled shipment.
	CreateLabel(ctx context.Context, params LabelParams) (*Label, error)
}

// RateParams contains parameters for calculating the shipping rate.
type RateParams struct {
	OrderTotal money.Amount
	Premium    bool
}

// Rate represents the shipping rate applied to a shipment.
type Rate struct {
	Carrier     string
	ServiceName string
	ServiceCode string
	Cost        money.Amount
}

// LabelParams contains parameters for creating a shipping label.
type LabelParams struct {
	ShipmentID string
	Priority   bool
	Date       time.Time
}

// Label represents a shipping label.
type Label struct {
	TrackingNumber string
	CreatedAt      time.Time
}
