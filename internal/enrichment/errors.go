package enrichment

import (
	"errors"
	"fmt"
)

// Kind classifies a row-level failure.
type Kind string

const (
	// KindLookupMiss means the row's LEI had no record in the fetched batch.
	KindLookupMiss Kind = "lookup_miss"

	// KindArithmetic means the cost formula could not be evaluated.
	KindArithmetic Kind = "arithmetic"

	// KindInvalidInput means the row is missing a value the join or formula needs.
	KindInvalidInput Kind = "invalid_input"
)

// Sentinel errors for errors.Is checks.
var (
	ErrEntityNotFound = errors.New("no entity record for identifier")
	ErrZeroRate       = errors.New("rate must not be zero")
	ErrMissingLEI     = errors.New("lei is empty")
	ErrInvalidNumber  = errors.New("invalid number")
)

// RowError is a recoverable failure confined to one input row.
type RowError struct {
	Kind      Kind
	RowNumber int
	LEI       string
	Field     string
	Err       error
}

// Error implements the error interface.
func (e *RowError) Error() string {
	prefix := fmt.Sprintf("row %d", e.RowNumber)
	if e.LEI != "" {
		prefix = fmt.Sprintf("%s (lei %s)", prefix, e.LEI)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s [%s] field %q: %v", prefix, e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", prefix, e.Kind, e.Err)
}

// Unwrap supports errors.Is against the sentinels above.
func (e *RowError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a row error, or "" for other errors.
func KindOf(err error) Kind {
	var re *RowError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
