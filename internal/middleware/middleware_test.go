package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fulfillment/internal/domain"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EUNAVAILABLE, http.StatusServiceUnavailable},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForCode(tt.code))
		})
	}
}

func newEcho(handler echo.HandlerFunc, mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(RequestID(), RequestLogger(zerolog.Nop()), Recover())
	e.GET("/thing", handler, mw...)
	return e
}

func serve(e *echo.Echo, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "not found",
			err:         domain.ErrOrderNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    domain.ENOTFOUND,
			wantMessage: "Order not found",
		},
		{
			name:        "unavailable hides the cause",
			err:         domain.WrapError(errors.New("dial tcp: refused"), domain.EUNAVAILABLE, "order.persist", "Storage unavailable"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    domain.EUNAVAILABLE,
			wantMessage: "An internal error occurred. Please try again later.",
		},
		{
			name:        "plain error is internal",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    domain.EINTERNAL,
			wantMessage: "An internal error occurred. Please try again later.",
		},
		{
			name:        "echo error keeps its status",
			err:         echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests"),
			wantStatus:  http.StatusTooManyRequests,
			wantCode:    "rate_limited",
			wantMessage: "Too many requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(func(c echo.Context) error { return tt.err })
			rec := serve(e, nil)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t,
				`{"error":{"code":"`+tt.wantCode+`","message":"`+tt.wantMessage+`"}}`,
				rec.Body.String())
		})
	}
}

func TestErrorHandler_ValidationFields(t *testing.T) {
	err := domain.AddFieldError(nil, "request.validate", "orderId", "must be a valid UUID")
	err = domain.AddFieldError(err, "request.validate", "lines", "must have at most 200 items")

	e := newEcho(func(c echo.Context) error { return err })
	rec := serve(e, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{
		"code":"invalid",
		"message":"Request validation failed",
		"fields":{"orderId":"must be a valid UUID","lines":"must have at most 200 items"}
	}}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	var seen string
	e := newEcho(func(c echo.Context) error {
		seen = GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	rec := serve(e, map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", seen)

	rec = serve(e, nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)
}

func TestRecover(t *testing.T) {
	e := newEcho(func(c echo.Context) error { panic("nil map") })
	rec := serve(e, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	clock := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(RateLimiterConfig{
		Rate:      0.5,
		Burst:     2,
		IdleAfter: time.Minute,
		Key:       func(c echo.Context) string { return c.Request().Header.Get("X-Client") },
	})
	limiter.now = func() time.Time { return clock }
	t.Cleanup(limiter.Stop)

	e := newEcho(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, limiter.Middleware())

	a := map[string]string{"X-Client": "a"}
	assert.Equal(t, http.StatusNoContent, serve(e, a).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, a).Code)

	rec := serve(e, a)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, serve(e, map[string]string{"X-Client": "b"}).Code)

	clock = clock.Add(2 * time.Second)
	assert.Equal(t, http.StatusNoContent, serve(e, a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, a).Code)
}

func TestRateLimiter_SweepForgetsIdleClients(t *testing.T) {
	clock := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, IdleAfter: time.Minute})
	limiter.now = func() time.Time { return clock }
	t.Cleanup(limiter.Stop)

	require.True(t, limiter.Allow("a"))
	clock = clock.Add(30 * time.Second)
	require.True(t, limiter.Allow("b"))

	clock = clock.Add(45 * time.Second)
	limiter.sweep()

	limiter.mu.Lock()
	_, hasA := limiter.clients["a"]
	_, hasB := limiter.clients["b"]
	limiter.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB)

	limiter.Stop()
	limiter.Stop()
}

func TestMaxBodySize(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.POST("/thing", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, MaxBodySize(4))

	req := httptest.NewRequest(http.MethodPost, "/thing", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
