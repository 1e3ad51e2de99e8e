// Package apperr holds the error taxonomy shared by every store and handler.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a product, order or cart entry that does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks input rejected at a store boundary.
	ErrInvalid = errors.New("invalid")
	// ErrStorage marks a persisted blob that could not be read or written.
	ErrStorage = errors.New("storage failure")
	// ErrConflict marks a request that collides with one already handled.
	ErrConflict = errors.New("conflict")
)

// Invalidf wraps ErrInvalid with a formatted detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
