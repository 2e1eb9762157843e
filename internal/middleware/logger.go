package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger puts a request-scoped logger (method, path, request_id) in
// the request context, retrievable with zerolog.Ctx, and logs one line per
// completed request. It must run after RequestID.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			logger := base.With().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("request_id", GetRequestID(req.Context())).
				Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status
				// below is the one the client saw.
				c.Error(err)
			}

			status := c.Response().Status
			event := logger.Info()
			if status >= 500 {
				event = logger.Warn()
			}
			event.
				Int("status", status).
				Dur("duration", time.Since(start)).
				Int64("bytes", c.Response().Size).
				Msg("request")
			return nil
		}
	}
}
