package routes

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dukerupert/fulfillment/internal/handler/api"
	"github.com/dukerupert/fulfillment/internal/middleware"
)

// ServerDeps contains what every HTTP surface needs
type ServerDeps struct {
	Logger         zerolog.Logger
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	Health         *api.HealthHandler
	RequestTimeout time.Duration
}

// OrderingDeps contains dependencies for the Ordering routes
type OrderingDeps struct {
	OrderHandler *api.OrderHandler

	// PlaceLimiter throttles order placement per client; nil disables it.
	PlaceLimiter *middleware.RateLimiter
}

// ShipmentDeps contains dependencies for the Shipment routes
type ShipmentDeps struct {
	ShipmentHandler *api.ShipmentHandler
}

// InvoicingDeps contains dependencies for the Invoicing routes
type InvoicingDeps struct {
	InvoiceHandler *api.InvoiceHandler
}
