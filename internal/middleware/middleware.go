// Package middleware holds the echo middleware shared by the HTTP surfaces
// of every bounded context, and the error handler that renders domain
// errors as JSON.
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dukerupert/fulfillment/internal/domain"
	"github.com/dukerupert/fulfillment/internal/telemetry"
)

type contextKey string

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorHandler renders errors returned by handlers. Domain errors map to a
// status by code; echo errors (unknown route, bad method, oversized body)
// keep their own status.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status  int
		code    string
		message string
		he      *echo.HTTPError
	)
	if errors.As(err, &he) {
		status = he.Code
		code = codeForStatus(status)
		message = http.StatusText(status)
		if m, ok := he.Message.(string); ok {
			message = m
		}
	} else {
		code = domain.ErrorCode(err)
		message = domain.ErrorMessage(err)
		status = StatusForCode(code)
	}

	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)
	event := logger.Info()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
		telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{
			"path":       c.Path(),
			"method":     c.Request().Method,
			"request_id": GetRequestID(ctx),
		})
	}
	event.Err(err).
		Str("code", code).
		Str("op", domain.ErrorOp(err)).
		Int("status", status).
		Msg("request failed")

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, ErrorBody{Error: ErrorDetail{
		Code:    code,
		Message: message,
		Fields:  domain.GetValidationFields(err),
	}})
}

// StatusForCode maps domain error codes to HTTP status codes.
func StatusForCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return domain.ENOTFOUND
	case status == http.StatusConflict:
		return domain.ECONFLICT
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusRequestEntityTooLarge:
		return "too_large"
	case status == http.StatusServiceUnavailable:
		return domain.EUNAVAILABLE
	case status >= http.StatusInternalServerError:
		return domain.EINTERNAL
	default:
		return domain.EINVALID
	}
}
