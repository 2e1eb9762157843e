package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/service"
)

// InvoiceHandler serves invoice queries.
type InvoiceHandler struct {
	service     service.InvoiceService
	displayRate decimal.Decimal
}

// NewInvoiceHandler renders a display total at displayRate next to the
// stored total.
func NewInvoiceHandler(svc service.InvoiceService, displayRate decimal.Decimal) *InvoiceHandler {
	if displayRate.IsZero() {
		displayRate = money.DefaultDisplayRate
	}
	return &InvoiceHandler{service: svc, displayRate: displayRate}
}

type InvoiceResponse struct {
	ID             uuid.UUID            `json:"invoiceId"`
	InvoiceNumber  string               `json:"invoiceNumber"`
	ShipmentID     uuid.UUID            `json:"shipmentId"`
	OrderID        uuid.UUID            `json:"orderId"`
	Status         string               `json:"status"`
	StatusReason   string               `json:"statusReason,omitempty"`
	PaymentStatus  string               `json:"paymentStatus"`
	TrackingNumber string               `json:"trackingNumber"`
	Currency       string               `json:"currency"`
	TotalDiscount  money.Amount         `json:"totalDiscount"`
	SubTotal       money.Amount         `json:"subTotal"`
	Tax            money.Amount         `json:"tax"`
	ShippingCost   money.Amount         `json:"shippingCost"`
	TotalAmount    money.Amount         `json:"totalAmount"`
	TotalInEur     money.Amount         `json:"totalInEur"`
	InvoiceDate    time.Time            `json:"invoiceDate"`
	DueDate        time.Time            `json:"dueDate"`
	Lines          []domain.InvoiceLine `json:"lines"`
}

func (h *InvoiceHandler) response(r domain.InvoiceRecord) InvoiceResponse {
	return InvoiceResponse{
		ID:             r.ID,
		InvoiceNumber:  r.InvoiceNumber,
		ShipmentID:     r.ShipmentID,
		OrderID:        r.OrderID,
		Status:         r.Status.String(),
		StatusReason:   r.StatusReason,
		PaymentStatus:  string(r.PaymentStatus),
		TrackingNumber: r.TrackingNumber,
		Currency:       r.Currency,
		TotalDiscount:  r.TotalDiscount,
		SubTotal:       r.SubTotal,
		Tax:            r.Tax,
		ShippingCost:   r.ShippingCost,
		TotalAmount:    r.TotalAmount,
		TotalInEur:     money.Convert(r.TotalAmount, h.displayRate),
		InvoiceDate:    r.InvoiceDate,
		DueDate:        r.DueDate,
		Lines:          r.Lines,
	}
}

// GetInvoice handles GET /api/invoices/:id.
func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	id, err := pathID(c, "id", "invoice.get")
	if err != nil {
		return err
	}
	rec, err := h.service.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response(*rec))
}

// GetShipmentInvoice handles GET /api/shipments/:id/invoice.
func (h *InvoiceHandler) GetShipmentInvoice(c echo.Context) error {
	shipmentID, err := pathID(c, "id", "invoice.get_by_shipment")
	if err != nil {
		return err
	}
	rec, err := h.service.GetInvoiceByShipmentID(c.Request().Context(), shipmentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response(*rec))
}
