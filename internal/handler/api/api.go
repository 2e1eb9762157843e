// Package api exposes the bounded contexts over JSON. Handlers return
// domain errors and leave rendering them to middleware.ErrorHandler;
// business refusals are rendered here with their reasons.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// ReasonsResponse carries why a command was refused.
type ReasonsResponse struct {
	Reasons []string `json:"reasons"`
}

// Validator adapts the domain validator to echo.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: domain.Validator()}
}

// Validate reports each failing field under its JSON path with a message
// that names the rule, never the Go type.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return domain.Invalid("request.validate", "request could not be validated")
	}
	var out error
	for _, fe := range fields {
		out = domain.AddFieldError(out, "request.validate", fieldPath(fe), fieldMessage(fe))
	}
	return out
}

// fieldPath drops the root struct name from the namespace:
// "PlaceOrderRequest.lines[2].quantity" becomes "lines[2].quantity".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok || path == "" {
		return fe.Field()
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a phone number with 10 to 15 digits"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return "is not valid"
	}
}

// bind decodes and validates the request body into dst.
func bind(c echo.Context, op string, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return domain.Invalid(op, "request body is not valid JSON")
	}
	return c.Validate(dst)
}

func pathID(c echo.Context, param, op string) (uuid.UUID, error) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.EINVALID, op, "%s %q is not a valid UUID", param, raw)
	}
	return id, nil
}

// change renders the outcome of a lifecycle command.
func change[R any](c echo.Context, result domain.ChangeResult[R], render func(R) interface{}) error {
	switch r := result.(type) {
	case domain.Applied[R]:
		return c.JSON(http.StatusOK, render(r.Record))
	case domain.Rejected[R]:
		status := http.StatusConflict
		if r.NotFound {
			status = http.StatusNotFound
		}
		return c.JSON(status, ReasonsResponse{Reasons: r.Reasons})
	default:
		return domain.Errorf(domain.EINTERNAL, "api.change", "unexpected change result %T", result)
	}
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	service string
	checks  map[string]func(context.Context) error
}

// NewHealthHandler reports service and, for each named check, whether it
// passes. Any failing check makes the probe 503.
func NewHealthHandler(service string, checks map[string]func(context.Context) error) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

func (h *HealthHandler) Health(c echo.Context) error {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(c.Request().Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	return c.JSON(status, map[string]interface{}{
		"service": h.service,
		"checks":  results,
	})
}
