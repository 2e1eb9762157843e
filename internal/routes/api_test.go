package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/bus"
	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/events"
	"github.com/dukerupert/fulfillment/internal/handler/api"
	"github.com/dukerupert/fulfillment/internal/memstore"
	"github.com/dukerupert/fulfillment/internal/middleware"
	"github.com/dukerupert/fulfillment/internal/money"
	"github.com/dukerupert/fulfillment/internal/routes"
	"github.com/dukerupert/fulfillment/internal/service"
	"github.com/dukerupert/fulfillment/internal/shipping"
	"github.com/dukerupert/fulfillment/internal/tax"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type server struct {
	echo      *echo.Echo
	bus       *bus.Memory
	shipments *memstore.ShipmentRepository
	invoices  *memstore.InvoiceRepository
}

func newServer(t *testing.T, healthy bool) *server {
	t.Helper()

	b := bus.NewMemory(zerolog.Nop())
	clock := service.WithClock(func() time.Time { return testNow })
	s := &server{
		bus:       b,
		shipments: memstore.NewShipmentRepository(),
		invoices:  memstore.NewInvoiceRepository(),
	}

	orders := service.NewOrderService(
		memstore.NewOrderRepository(),
		memstore.NewVoucherRepository(domain.Voucher{Code: "WELCOME10", DiscountPercent: decimal.NewFromInt(10), IsActive: true}),
		b, clock,
	)
	shipments := service.NewShipmentService(s.shipments, shipping.NewBracketProvider("test"), b, clock)
	invoices := service.NewInvoiceService(s.invoices, tax.NewCategoryCalculator(), b, service.InvoiceConfig{}, clock)

	reg := prometheus.NewRegistry()
	health := api.NewHealthHandler("test", map[string]func(context.Context) error{
		"store": func(context.Context) error {
			if !healthy {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	e, g := routes.NewServer(routes.ServerDeps{
		Logger:         zerolog.Nop(),
		Metrics:        middleware.NewMetrics(reg, "test"),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Health:         health,
	})
	routes.RegisterOrderingRoutes(g, routes.OrderingDeps{OrderHandler: api.NewOrderHandler(orders)})
	routes.RegisterShipmentRoutes(g, routes.ShipmentDeps{ShipmentHandler: api.NewShipmentHandler(shipments)})
	routes.RegisterInvoicingRoutes(g, routes.InvoicingDeps{InvoiceHandler: api.NewInvoiceHandler(invoices, money.DefaultDisplayRate)})
	s.echo = e
	return s
}

func (s *server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

const placeBody = `{
	"userId": "user-1",
	"lines": [
		{"name": "Laptop", "category": "Electronics", "quantity": 1, "unitPrice": 2000},
		{"name": "Mouse", "category": "Electronics", "quantity": 2, "unitPrice": "50.00"}
	],
	"street": "Strada Lunga 1",
	"city": "Cluj",
	"postalCode": "400000",
	"phone": "0712345678",
	"pickupMethod": "HomeDelivery",
	"paymentMethod": "CardOnline",
	"voucherCode": "welcome10"
}`

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPlaceOrder_Created(t *testing.T) {
	s := newServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/orders", placeBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	resp := decode[api.OrderResponse](t, rec)
	assert.Equal(t, "Placed", resp.Status)
	assert.Equal(t, "2100.00", resp.Subtotal.String())
	assert.Equal(t, "210.00", resp.DiscountAmount.String())
	assert.Equal(t, "1890.00", resp.Total.String())
	assert.Equal(t, "WELCOME10", resp.VoucherCode)
	require.NotNil(t, resp.EventID)
	assert.Len(t, s.bus.Messages(events.TopicOrders), 1)

	rec = s.do(t, http.MethodGet, "/api/orders/"+resp.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.OrderResponse](t, rec)
	assert.Equal(t, resp.ID, got.ID)
	assert.Len(t, got.Lines, 2)
}

func TestPlaceOrder_Refused(t *testing.T) {
	s := newServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/orders", `{"userId": "", "lines": [], "pickupMethod": "Drone", "paymentMethod": "CardOnline"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[api.ReasonsResponse](t, rec)
	assert.NotEmpty(t, resp.Reasons)
	assert.Empty(t, s.bus.Messages(events.TopicOrders))
}

func TestPlaceOrder_BadRequests(t *testing.T) {
	s := newServer(t, true)

	tests := []struct {
		name       string
		body       string
		wantFields map[string]string
	}{
		{"malformed json", `{"userId": `, nil},
		{
			"client order id is not a uuid",
			`{"orderId": "order-1"}`,
			map[string]string{"orderId": "must be a valid UUID"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/orders", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[middleware.ErrorBody](t, rec)
			assert.Equal(t, domain.EINVALID, body.Error.Code)
			assert.Equal(t, tt.wantFields, body.Error.Fields)
			assert.NotContains(t, rec.Body.String(), "PlaceOrderRequest")
		})
	}
}

func TestChangeOrder_ReasonTooLong(t *testing.T) {
	s := newServer(t, true)

	placed := decode[api.OrderResponse](t, s.do(t, http.MethodPost, "/api/orders", placeBody))
	body := `{"reason": "` + strings.Repeat("x", 501) + `"}`

	rec := s.do(t, http.MethodPost, "/api/orders/"+placed.ID.String()+"/cancel", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[middleware.ErrorBody](t, rec)
	assert.Equal(t, "Request validation failed", errBody.Error.Message)
	assert.Equal(t, map[string]string{"reason": "must be at most 500 characters"}, errBody.Error.Fields)
}

func TestOrderLifecycle(t *testing.T) {
	s := newServer(t, true)

	placed := decode[api.OrderResponse](t, s.do(t, http.MethodPost, "/api/orders", placeBody))
	path := "/api/orders/" + placed.ID.String()

	rec := s.do(t, http.MethodPost, path+"/cancel", `{"reason": "changed my mind"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[api.OrderResponse](t, rec)
	assert.Equal(t, "Cancelled", cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.StatusReason)

	rec = s.do(t, http.MethodPost, path+"/return", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	reasons := decode[api.ReasonsResponse](t, rec)
	require.Len(t, reasons.Reasons, 1)
	assert.Contains(t, reasons.Reasons[0], "cannot be returned")

	rec = s.do(t, http.MethodPost, "/api/orders/"+uuid.NewString()+"/modify", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[api.ReasonsResponse](t, rec).Reasons)
}

func TestGetOrder_Errors(t *testing.T) {
	s := newServer(t, true)

	rec := s.do(t, http.MethodGet, "/api/orders/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/orders/"+uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.ENOTFOUND, decode[middleware.ErrorBody](t, rec).Error.Code)
}

func TestShipmentAndInvoiceQueries(t *testing.T) {
	s := newServer(t, true)
	ctx := context.Background()

	orderID := uuid.New()
	shipment := domain.ShipmentRecord{
		ID:                 uuid.New(),
		OrderID:            orderID,
		UserID:             "user-1",
		PaymentMethod:      domain.CardOnline,
		Status:             domain.ShipmentScheduled,
		TrackingNumber:     "AWB-20250314-ABCDEFGH",
		Subtotal:           money.MustParse("2100"),
		DiscountAmount:     money.MustParse("210"),
		TotalAfterDiscount: money.MustParse("1890"),
		ShippingCost:       money.MustParse("30"),
		TotalWithShipping:  money.MustParse("1920"),
		ScheduledAt:        testNow,
	}
	_, _, err := s.shipments.Save(ctx, shipment)
	require.NoError(t, err)

	invoice := domain.InvoiceRecord{
		ID:            uuid.New(),
		ShipmentID:    shipment.ID,
		OrderID:       orderID,
		InvoiceNumber: "INV-20250314-000001",
		PaymentMethod: domain.CardOnline,
		PaymentStatus: domain.PaymentAuthorized,
		Status:        domain.InvoiceIssued,
		Currency:      money.RON,
		TotalAmount:   money.MustParse("2461.10"),
		InvoiceDate:   testNow,
		DueDate:       testNow.AddDate(0, 0, 30),
	}
	_, _, err = s.invoices.Save(ctx, invoice)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/orders/"+orderID.String()+"/shipment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	gotShipment := decode[api.ShipmentResponse](t, rec)
	assert.Equal(t, shipment.ID, gotShipment.ID)
	assert.Equal(t, "1920.00", gotShipment.TotalWithShipping.String())

	rec = s.do(t, http.MethodGet, "/api/shipments/"+shipment.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/shipments/"+shipment.ID.String()+"/invoice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	gotInvoice := decode[api.InvoiceResponse](t, rec)
	assert.Equal(t, "INV-20250314-000001", gotInvoice.InvoiceNumber)
	assert.Equal(t, "492.22", gotInvoice.TotalInEur.String())

	rec = s.do(t, http.MethodGet, "/api/invoices/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, true)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do(t, http.MethodGet, "/api/orders/"+uuid.NewString(), "")
	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",path="/api/orders/:id",status="404"} 1`)

	unhealthy := newServer(t, false)
	rec = unhealthy.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
