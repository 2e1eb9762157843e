package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dukerupert/fulfillment/internal/telemetry"
)

// Recover turns a handler panic into a 500 and reports it.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				panicErr, ok := r.(error)
				if !ok {
					panicErr = fmt.Errorf("%v", r)
				}
				ctx := c.Request().Context()
				zerolog.Ctx(ctx).Error().
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				telemetry.CaptureErrorFromContext(ctx, panicErr, map[string]interface{}{"path": c.Path()})
				err = fmt.Errorf("panic: %w", panicErr)
			}()
			return next(c)
		}
	}
}
