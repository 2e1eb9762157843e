package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/service"
)

// OrderHandler serves the Ordering commands and queries.
type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{service: svc}
}

type PlaceOrderLine struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unitPrice"`
}

// PlaceOrderRequest is the body of POST /api/orders. Business rules
// (required fields, address for home delivery, voucher) are checked by the
// saga and come back as reasons; only the shape is validated here.
type PlaceOrderRequest struct {
	OrderID             string           `json:"orderId" validate:"omitempty,uuid"`
	UserID              string           `json:"userId"`
	PremiumSubscription bool             `json:"premiumSubscription"`
	Lines               []PlaceOrderLine `json:"lines" validate:"max=200"`
	Street              string           `json:"street"`
	City                string           `json:"city"`
	PostalCode          string           `json:"postalCode"`
	Phone               string           `json:"phone"`
	Email               string           `json:"email"`
	PickupMethod        string           `json:"pickupMethod"`
	PickupPointID       string           `json:"pickupPointId"`
	PaymentMethod       string           `json:"paymentMethod"`
	VoucherCode         string           `json:"voucherCode"`
}

func (r PlaceOrderRequest) unvalidated() domain.UnvalidatedOrder {
	lines := make([]domain.UnvalidatedOrderLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.UnvalidatedOrderLine{
			Name:        l.Name,
			Description: l.Description,
			Category:    l.Category,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
	}
	return domain.UnvalidatedOrder{
		OrderID:             r.OrderID,
		UserID:              r.UserID,
		PremiumSubscription: r.PremiumSubscription,
		Lines:               lines,
		Street:              r.Street,
		City:                r.City,
		PostalCode:          r.PostalCode,
		Phone:               r.Phone,
		Email:               r.Email,
		PickupMethod:        r.PickupMethod,
		PickupPointID:       r.PickupPointID,
		PaymentMethod:       r.PaymentMethod,
		VoucherCode:         r.VoucherCode,
	}
}

// ChangeRequest is the body of the lifecycle commands.
type ChangeRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type OrderResponse struct {
	ID                  uuid.UUID          `json:"orderId"`
	EventID             *uuid.UUID         `json:"eventId,omitempty"`
	Status              string             `json:"status"`
	StatusReason        string             `json:"statusReason,omitempty"`
	UserID              string             `json:"userId"`
	PremiumSubscription bool               `json:"premiumSubscription"`
	Subtotal            money.Amount       `json:"subtotal"`
	DiscountAmount      money.Amount       `json:"discountAmount"`
	Total               money.Amount       `json:"total"`
	VoucherCode         string             `json:"voucherCode,omitempty"`
	Lines               []domain.OrderLine `json:"lines"`
	PickupMethod        string             `json:"pickupMethod"`
	PaymentMethod       string             `json:"paymentMethod"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func orderResponse(r domain.OrderRecord) OrderResponse {
	return OrderResponse{
		ID:                  r.ID,
		Status:              r.Status.String(),
		StatusReason:        r.StatusReason,
		UserID:              r.UserID,
		PremiumSubscription: r.PremiumSubscription,
		Subtotal:            r.Subtotal,
		DiscountAmount:      r.DiscountAmount,
		Total:               r.Total,
		VoucherCode:         r.VoucherCode,
		Lines:               r.Lines,
		PickupMethod:        string(r.PickupMethod),
		PaymentMethod:       string(r.PaymentMethod),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// PlaceOrder handles POST /api/orders.
//
// 201: the order was stored and OrderStateChanged published.
// 422: the order was refused; the body lists every reason.
// 503: storage or the bus failed. Retrying with the same orderId never
// consumes the voucher twice.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	var req PlaceOrderRequest
	if err := bind(c, "order.place", &req); err != nil {
		return err
	}

	result, err := h.service.PlaceOrder(c.Request().Context(), req.unvalidated())
	if err != nil {
		return err
	}

	switch o := result.(type) {
	case domain.PublishedOrder:
		resp := orderResponse(o.Record)
		resp.EventID = &o.EventID
		return c.JSON(http.StatusCreated, resp)
	case domain.InvalidOrder:
		return c.JSON(http.StatusUnprocessableEntity, ReasonsResponse{Reasons: o.Reasons})
	default:
		return domain.Errorf(domain.EINTERNAL, "order.place", "order saga ended in state %s", result.CurrentState())
	}
}

// GetOrder handles GET /api/orders/:id.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := pathID(c, "id", "order.get")
	if err != nil {
		return err
	}
	rec, err := h.service.GetOrder(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderResponse(*rec))
}

// CancelOrder handles POST /api/orders/:id/cancel.
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	return h.lifecycle(c, "order.cancel", h.service.CancelOrder)
}

// ModifyOrder handles POST /api/orders/:id/modify.
func (h *OrderHandler) ModifyOrder(c echo.Context) error {
	return h.lifecycle(c, "order.modify", h.service.ModifyOrder)
}

// ReturnOrder handles POST /api/orders/:id/return.
func (h *OrderHandler) ReturnOrder(c echo.Context) error {
	return h.lifecycle(c, "order.return", h.service.ReturnOrder)
}

type orderCommand func(ctx context.Context, id uuid.UUID, reason string) (domain.ChangeResult[domain.OrderRecord], error)

func (h *OrderHandler) lifecycle(c echo.Context, op string, cmd orderCommand) error {
	id, err := pathID(c, "id", op)
	if err != nil {
		return err
	}
	var req ChangeRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, op, &req); err != nil {
			return err
		}
	}

	result, err := cmd(c.Request().Context(), id, req.Reason)
	if err != nil {
		return err
	}
	return change(c, result, func(r domain.OrderRecord) interface{} { return orderResponse(r) })
}
