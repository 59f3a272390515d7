package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced to callers of the verification core.
var (
	// ErrInvalidInput is returned for missing or malformed required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenNotFound is returned when introspection yields no parsed mint.
	ErrTokenNotFound = errors.New("token not found")

	// ErrRateLimited is returned when a reporter exceeds the abuse window.
	ErrRateLimited = errors.New("rate limited")
)

// InvalidInput wraps ErrInvalidInput with a field-specific message.
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RateLimitError carries wait guidance for a rejected report.
type RateLimitError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: at most %d reports per %s, retry in %s",
		e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
