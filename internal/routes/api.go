package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/fulfillment/internal/handler/api"
	"github.com/dukerupert/fulfillment/internal/middleware"
)

// NewServer builds the echo instance with the shared middleware chain and
// the operational routes (/health, /metrics). Context routes are added with
// the Register functions on the returned /api group.
func NewServer(deps ServerDeps) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = api.NewValidator()

	e.Use(middleware.RequestID())
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(middleware.Recover())

	if deps.Health != nil {
		e.GET("/health", deps.Health.Health)
	}
	if deps.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(deps.MetricsHandler))
	}

	g := e.Group("/api",
		middleware.Timeout(deps.RequestTimeout),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
	)
	return e, g
}

// RegisterOrderingRoutes registers the order commands and queries.
func RegisterOrderingRoutes(g *echo.Group, deps OrderingDeps) {
	h := deps.OrderHandler

	var place []echo.MiddlewareFunc
	if deps.PlaceLimiter != nil {
		place = append(place, deps.PlaceLimiter.Middleware())
	}
	g.POST("/orders", h.PlaceOrder, place...)
	g.GET("/orders/:id", h.GetOrder)
	g.POST("/orders/:id/cancel", h.CancelOrder)
	g.POST("/orders/:id/modify", h.ModifyOrder)
	g.POST("/orders/:id/return", h.ReturnOrder)
}

// RegisterShipmentRoutes registers the shipment queries.
func RegisterShipmentRoutes(g *echo.Group, deps ShipmentDeps) {
	g.GET("/shipments/:id", deps.ShipmentHandler.GetShipment)
	g.GET("/orders/:id/shipment", deps.ShipmentHandler.GetOrderShipment)
}

// RegisterInvoicingRoutes registers the invoice queries.
func RegisterInvoicingRoutes(g *echo.Group, deps InvoicingDeps) {
	g.GET("/invoices/:id", deps.InvoiceHandler.GetInvoice)
	g.GET("/shipments/:id/invoice", deps.InvoiceHandler.GetShipmentInvoice)
}
