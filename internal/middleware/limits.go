package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize bounds command bodies; an order with many lines
	// stays well below it.
	DefaultMaxBodySize = 1 * MB

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// MaxBodySize rejects bodies larger than maxBytes with 413 and caps the
// reader for bodies of unknown length.
func MaxBodySize(maxBytes int64) echo.MiddlewareFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.ContentLength > maxBytes {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			return next(c)
		}
	}
}

// Timeout bounds the request context. Sagas and repositories observe the
// deadline; a handler that overruns fails with the storage or bus error it
// gets back.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	if d <= 0 {
		d = DefaultTimeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
