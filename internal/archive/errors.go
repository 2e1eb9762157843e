package archive

import (
	"fmt"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// ArchiveError is an archive failure with a domain error code.
type ArchiveError struct {
	Code    string
	Message string
}

func (e *ArchiveError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *ArchiveError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *ArchiveError) ErrorMessage() string {
	return e.Message
}

func newArchiveError(code, message string) *ArchiveError {
	return &ArchiveError{Code: code, Message: message}
}

var (
	// ErrBucketRequired is returned when the S3 bucket name is missing.
	ErrBucketRequired = newArchiveError(domain.EINVALID, "S3 bucket name is required")

	// ErrInvalidKey is returned for keys that are empty or escape the root.
	ErrInvalidKey = newArchiveError(domain.EINVALID, "invalid archive key")
)

// ErrDocumentNotFound creates an error for a missing document.
func ErrDocumentNotFound(key string) error {
	return &ArchiveError{
		Code:    domain.ENOTFOUND,
		Message: fmt.Sprintf("document not found: %s", key),
	}
}

// ErrUnknownProvider creates an error for unknown archive providers.
func ErrUnknownProvider(provider string) error {
	return &ArchiveError{
		Code:    domain.EINVALID,
		Message: fmt.Sprintf("unknown archive provider: %s", provider),
	}
}
