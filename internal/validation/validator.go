// =============================================================================
// LEI Enricher - Input Validation
// =============================================================================
//
// This module checks an input table before any registry call is made. Only
// the checks the join and the cost formulas depend on are performed:
//   - Required columns (lei, notional, rate) exist in the header
//   - Each row has a non-empty lei
//   - notional and rate parse as decimal numbers
//   - A zero rate is flagged as a warning
//
// Missing columns are fatal for the run. Row problems are reported with
// their row number so the pipeline can fail those rows individually.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/lei-enricher/internal/types"
)

// RequiredColumns are the columns every input must carry.
var RequiredColumns = []string{"lei", "notional", "rate"}

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is "error" (row or run cannot proceed) or "warning".
	Severity string

	// Field is the column that failed validation.
	Field string

	// Value is the offending value.
	Value string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the 1-indexed data row, or 0 for header problems.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.RowNumber == 0 {
		return fmt.Sprintf("[%s] column '%s': %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] row %d, field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION FUNCTIONS
// =============================================================================

// ValidateHeaders checks that every required column is present.
//
// RETURNS:
//   - One error per missing column; empty when the header is usable.
func ValidateHeaders(table *types.Table) []*ValidationError {
	var errs []*ValidationError
	for _, col := range RequiredColumns {
		if !table.HasColumn(col) {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Field:    col,
				Message:  "required column is missing",
			})
		}
	}
	return errs
}

// ValidateRow checks the values of one row.
//
// PARAMETERS:
//   - row: The data row.
//   - rowNumber: The 1-indexed data row number.
func ValidateRow(row types.Row, rowNumber int) []*ValidationError {
	var errs []*ValidationError

	if strings.TrimSpace(row["lei"]) == "" {
		errs = append(errs, &ValidationError{
			Severity:  SeverityError,
			Field:     "lei",
			Message:   "lei is required",
			RowNumber: rowNumber,
		})
	}

	for _, field := range []string{"notional", "rate"} {
		if msg := validateDecimal(row[field]); msg != "" {
			errs = append(errs, &ValidationError{
				Severity:  SeverityError,
				Field:     field,
				Value:     row[field],
				Message:   msg,
				RowNumber: rowNumber,
			})
		}
	}

	// A zero rate is valid input but has no NL cost.
	if rate, err := decimal.NewFromString(strings.TrimSpace(row["rate"])); err == nil && rate.IsZero() {
		errs = append(errs, &ValidationError{
			Severity:  SeverityWarning,
			Field:     "rate",
			Value:     row["rate"],
			Message:   "rate is zero; NL rows will fail",
			RowNumber: rowNumber,
		})
	}

	return errs
}

// Validate runs header and row checks over a whole table.
func Validate(table *types.Table) []*ValidationError {
	errs := ValidateHeaders(table)
	if len(errs) > 0 {
		return errs
	}
	for i, row := range table.Rows {
		errs = append(errs, ValidateRow(row, i+1)...)
	}
	return errs
}

// validateDecimal returns an error message, or "" when value is a number.
func validateDecimal(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "value is required"
	}
	if _, err := decimal.NewFromString(value); err != nil {
		return "must be a decimal number"
	}
	return ""
}

// FormatErrors formats validation errors for display.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d validation error(s):\n\n", len(errors)))
	for i, err := range errors {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
