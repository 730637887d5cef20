package registry

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy for registry lookups
type Category string

const (
	// CategoryTransport indicates the request never produced a response
	CategoryTransport Category = "transport"

	// CategoryUpstreamStatus indicates the registry answered with a non-2xx status
	CategoryUpstreamStatus Category = "upstream_status"

	// CategoryBadData indicates the registry returned a body we could not decode
	CategoryBadData Category = "bad_data"

	// CategoryRetriesExhausted indicates every attempt failed
	CategoryRetriesExhausted Category = "retries_exhausted"

	// CategoryCanceled indicates the caller's context ended the lookup
	CategoryCanceled Category = "canceled"
)

// Sentinel errors for errors.Is checks
var (
	ErrNoIdentifiers    = errors.New("no identifiers to look up")
	ErrRetriesExhausted = errors.New("all retry attempts have failed")
)

// LookupError wraps a registry failure with its category
type LookupError struct {
	Category   Category
	Attempts   int
	StatusCode int
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *LookupError) Error() string {
	msg := fmt.Sprintf("registry lookup [%s]: %s", e.Category, e.Message)
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempt(s)", msg, e.Attempts)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap supports error unwrapping
func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// Is lets errors.Is(err, ErrRetriesExhausted) match an exhausted lookup
func (e *LookupError) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Category == CategoryRetriesExhausted
}

// Retryable reports whether another attempt may succeed
func (e *LookupError) Retryable() bool {
	return e.Category == CategoryTransport || e.Category == CategoryUpstreamStatus
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Retryable()
	}
	return false
}

// GetCategory extracts the category from an error
func GetCategory(err error) Category {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	return ""
}
