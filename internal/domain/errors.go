package domain

import (
	"github.com/pkg/errors"
)

var (
	// ErrValidation is returned when caller input is rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for operations on an unknown device.
	ErrNotFound = errors.New("not found")
)

// NewValidation creates a validation error for field.
func NewValidation(field, reason string) error {
	return errors.Wrapf(ErrValidation, "invalid %s: %s", field, reason)
}

// NewNotFound creates a not-found error for an entity id.
func NewNotFound(entity string, id int64) error {
	return errors.Wrapf(ErrNotFound, "%s %d", entity, id)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
