package email

import (
	"fmt"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// EmailError carries a domain error code so callers can tell a message that
// can never be delivered from a transient failure.
type EmailError struct {
	Code    string
	Message string
}

func (e *EmailError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *EmailError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *EmailError) ErrorMessage() string {
	return e.Message
}

func newEmailError(code, message string) *EmailError {
	return &EmailError{Code: code, Message: message}
}

var (
	// ErrInvalidFromAddress is returned when the from address is invalid.
	ErrInvalidFromAddress = newEmailError(domain.EINVALID, "Invalid from email address")

	// ErrInvalidToAddress is returned when a recipient address is invalid.
	ErrInvalidToAddress = newEmailError(domain.EINVALID, "Invalid to email address")
)

// ErrTemplateNotFound creates a template not found error.
func ErrTemplateNotFound(templateName string) error {
	return &EmailError{
		Code:    domain.ENOTFOUND,
		Message: fmt.Sprintf("Email template %s not found", templateName),
	}
}
