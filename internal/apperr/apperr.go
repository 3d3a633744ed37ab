// Package apperr defines the error kinds core operations return.
// Callers classify failures with errors.Is and map them to transport
// codes at the boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: a bad status value, a missing
	// required field, an unparseable date.
	ErrValidation = errors.New("validation failed")

	// ErrCredentials marks a failed username/password check.
	ErrCredentials = errors.New("invalid credentials")

	// ErrUnauthorized marks a role check failure; state is unchanged.
	ErrUnauthorized = errors.New("not authorized")

	// ErrLocked marks a mutation refused because the gating lock is set.
	ErrLocked = errors.New("resource locked")

	// ErrNotFound marks an operation against a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness violation on create.
	ErrConflict = errors.New("already exists")

	// ErrStorage marks an underlying store failure, including transaction
	// aborts. Never retried here; retry policy belongs to the caller.
	ErrStorage = errors.New("storage failure")
)

// Validationf builds a validation error with detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage wraps a store-level failure.
func Storage(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
