// Package apperr defines the error taxonomy shared by the repository,
// service and handler layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a business-rule conflict such as a double booking.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a failure of the underlying store.
	ErrPersistence = errors.New("persistence failure")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ErrOverlap is returned when an event would overlap another event of the
// same owner.
var ErrOverlap = fmt.Errorf("%w: event overlap detected", ErrConflict)

// Invalid builds a validation error with a caller supplied message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PersistenceError wraps a driver error together with the failing operation.
type PersistenceError struct {
	Op  string
	Err error
}

// Persistence wraps err as a PersistenceError. A nil err yields nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports ErrPersistence as a match so callers can test the category
// without knowing the driver.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
