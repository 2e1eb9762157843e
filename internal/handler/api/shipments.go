package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/service"
)

// ShipmentHandler serves shipment queries. Shipments are created and
// changed only by order events.
type ShipmentHandler struct {
	service service.ShipmentService
}

func NewShipmentHandler(svc service.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: svc}
}

type ShipmentResponse struct {
	ID                 uuid.UUID          `json:"shipmentId"`
	OrderID            uuid.UUID          `json:"orderId"`
	Status             string             `json:"status"`
	StatusReason       string             `json:"statusReason,omitempty"`
	TrackingNumber     string             `json:"trackingNumber"`
	Subtotal           money.Amount       `json:"subtotal"`
	DiscountAmount     money.Amount       `json:"discountAmount"`
	TotalAfterDiscount money.Amount       `json:"totalAfterDiscount"`
	ShippingCost       money.Amount       `json:"shippingCost"`
	TotalWithShipping  money.Amount       `json:"totalWithShipping"`
	Lines              []domain.OrderLine `json:"lines"`
	ScheduledAt        time.Time          `json:"scheduledAt"`
	DispatchedAt       *time.Time         `json:"dispatchedAt,omitempty"`
}

func shipmentResponse(r domain.ShipmentRecord) ShipmentResponse {
	return ShipmentResponse{
		ID:                 r.ID,
		OrderID:            r.OrderID,
		Status:             r.Status.String(),
		StatusReason:       r.StatusReason,
		TrackingNumber:     r.TrackingNumber,
		Subtotal:           r.Subtotal,
		DiscountAmount:     r.DiscountAmount,
		TotalAfterDiscount: r.TotalAfterDiscount,
		ShippingCost:       r.ShippingCost,
		TotalWithShipping:  r.TotalWithShipping,
		Lines:              r.Lines,
		ScheduledAt:        r.ScheduledAt,
		DispatchedAt:       r.DispatchedAt,
	}
}

// GetShipment handles GET /api/shipments/:id.
func (h *ShipmentHandler) GetShipment(c echo.Context) error {
	id, err := pathID(c, "id", "shipment.get")
	if err != nil {
		return err
	}
	rec, err := h.service.GetShipment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, shipmentResponse(*rec))
}

// GetOrderShipment handles GET /api/orders/:id/shipment.
func (h *ShipmentHandler) GetOrderShipment(c echo.Context) error {
	orderID, err := pathID(c, "id", "shipment.get_by_order")
	if err != nil {
		return err
	}
	rec, err := h.service.GetShipmentByOrderID(c.Request().Context(), orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, shipmentResponse(*rec))
}
