package shipping

import (
	"context"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/money"
)

// Bracket charges Cost for order totals up to and including UpTo.
type Bracket struct {
	UpTo money.Amount
	Cost money.Amount
}

// DefaultBrackets is the standard shipping price list. Totals above the
// last bracket pay DefaultOverflowCost.
var (
	DefaultBrackets = []Bracket{
		{UpTo: money.FromInt(3000), Cost: money.FromInt(30)},
		{UpTo: money.FromInt(6000), Cost: money.FromInt(50)},
		{UpTo: money.FromInt(10000), Cost: money.FromInt(75)},
	}
	DefaultOverflowCost = money.FromInt(100)
)

// BracketProvider prices shipments with a step function of the order total.
// Premium subscribers ship for free.
type BracketProvider struct {
	carrier  string
	brackets []Bracket
	overflow money.Amount
}

// NewBracketProvider creates a provider over the default price list.
func NewBracketProvider(carrier string) *BracketProvider {
	return &BracketProvider{
		carrier:  carrier,
		brackets: DefaultBrackets,
		overflow: DefaultOverflowCost,
	}
}

// GetRate returns the cost for params. It never returns a negative cost.
func (p *BracketProvider) GetRate(ctx context.Context, params RateParams) (*Rate, error) {
	if params.OrderTotal.IsNegative() {
		return nil, ErrNegativeTotal
	}

	if params.Premium {
		return &Rate{
			Carrier:     p.carrier,
			ServiceName: "Priority (premium)",
			ServiceCode: ServicePriority,
			Cost:        money.Zero,
		}, nil
	}

	return &Rate{
		Carrier:     p.carrier,
		ServiceName: "Standard",
		ServiceCode: ServiceStandard,
		Cost:        p.costFor(params.OrderTotal),
	}, nil
}

func (p *BracketProvider) costFor(total money.Amount) money.Amount {
	for _, b := range p.brackets {
		if total.LessThanOrEqual(b.UpTo) {
			return b.Cost
		}
	}
	return p.overflow
}

// CreateLabel issues a tracking number of the form AWB-YYYYMMDD-XXXXXXXX.
func (p *BracketProvider) CreateLabel(ctx context.Context, params LabelParams) (*Label, error) {
	if params.ShipmentID == "" {
		return nil, ErrShipmentRequired
	}

	number, err := domain.NewReference("AWB", params.Date, 8)
	if err != nil {
		return nil, err
	}

	return &Label{TrackingNumber: number, CreatedAt: params.Date}, nil
}
