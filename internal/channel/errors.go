package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a specific entity id that does not exist on the
	// platform. Distinct from an empty collection.
	ErrNotFound = errors.New("entity not found")

	// ErrBackendUnavailable marks a platform that could not be reached,
	// timed out, or whose connection state is not healthy.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRateLimited marks a request rejected by the per-instance quota
	// before any platform I/O was performed.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError rejects malformed request parameters before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
