package service

import (
	"errors"

	"github.com/dukerupert/fulfillment/internal/domain"
)

// storageError wraps a repository failure that is not already a coded
// domain error.
func storageError(err error, op string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.WrapError(err, domain.EUNAVAILABLE, op, "Storage unavailable")
}
