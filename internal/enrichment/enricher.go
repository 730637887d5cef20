// =============================================================================
// LEI Enricher - Enrichment Function
// =============================================================================
//
// Enrich joins one transaction to its registry record and derives the
// jurisdiction-dependent transaction cost.
//
// ENRICHMENT STEPS:
//   1. Look the row's LEI up in the index (missing -> KindLookupMiss)
//   2. Copy legalName.name -> name
//   3. Join the BIC list with ", " -> bic
//   4. Apply the cost formula for the legal-address country, if any
//
// notional and rate are only parsed in step 4. A row whose country has no
// formula is never checked for them.
//
// The input Transaction is never modified; a new Enriched value is returned.
//
// =============================================================================

package enrichment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/lei-enricher/internal/registry"
	"github.com/ginjaninja78/lei-enricher/internal/types"
)

// Input column names.
const (
	ColumnLEI      = "lei"
	ColumnNotional = "notional"
	ColumnRate     = "rate"
)

// BICSeparator joins the BIC codes of an entity.
const BICSeparator = ", "

// =============================================================================
// DATA STRUCTURES
// =============================================================================

// Transaction is one parsed input row.
type Transaction struct {
	// RowNumber is the 1-indexed data row in the input file.
	RowNumber int

	LEI string

	// Source holds every input column, passed through unchanged.
	Source types.Row
}

// Status describes the outcome of enriching a row.
type Status string

const (
	StatusEnriched    Status = "enriched"
	StatusUnsupported Status = "unsupported_jurisdiction"
	StatusFailed      Status = "failed"
)

// Enriched is the result of enriching one Transaction.
type Enriched struct {
	Transaction Transaction

	Name    string
	BIC     string
	Country string

	// TransactionCosts is nil when no formula applies to Country.
	TransactionCosts *decimal.Decimal

	Status Status
}

// FormattedCosts renders the cost with two decimals, or "" when absent.
func (e Enriched) FormattedCosts() string {
	if e.TransactionCosts == nil {
		return ""
	}
	return e.TransactionCosts.StringFixedBank(CostPlaces)
}

// =============================================================================
// PARSING
// =============================================================================

// ParseTransaction converts a raw row into a Transaction.
//
// PARAMETERS:
//   - row: The input row, keyed by header.
//   - rowNumber: The 1-indexed data row number, used in error messages.
//
// RETURNS:
//   - The parsed Transaction. Source is populated even on error.
//   - A *RowError of KindInvalidInput when lei is empty.
func ParseTransaction(row types.Row, rowNumber int) (Transaction, error) {
	tx := Transaction{
		RowNumber: rowNumber,
		LEI:       strings.TrimSpace(row[ColumnLEI]),
		Source:    row,
	}

	if tx.LEI == "" {
		return tx, &RowError{Kind: KindInvalidInput, RowNumber: rowNumber, Field: ColumnLEI, Err: ErrMissingLEI}
	}
	return tx, nil
}

// Amounts parses the notional and rate columns.
//
// RETURNS:
//   - notional and rate as decimals.
//   - A *RowError of KindInvalidInput naming the first bad field.
func (tx Transaction) Amounts() (notional, rate decimal.Decimal, err error) {
	notional, err = parseDecimal(tx.Source[ColumnNotional])
	if err != nil {
		return notional, rate, &RowError{Kind: KindInvalidInput, RowNumber: tx.RowNumber, LEI: tx.LEI, Field: ColumnNotional, Err: err}
	}
	rate, err = parseDecimal(tx.Source[ColumnRate])
	if err != nil {
		return notional, rate, &RowError{Kind: KindInvalidInput, RowNumber: tx.RowNumber, LEI: tx.LEI, Field: ColumnRate, Err: err}
	}
	return notional, rate, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidNumber)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	return d, nil
}

// =============================================================================
// ENRICHMENT
// =============================================================================

// Enrich joins a transaction to its entity record and computes its cost.
//
// PARAMETERS:
//   - tx: The parsed transaction.
//   - index: The fetched entity batch, keyed by LEI. Read only.
//
// RETURNS:
//   - The Enriched row. Status is StatusUnsupported when the entity's
//     country has no cost formula; that is not an error.
//   - A *RowError of KindLookupMiss, KindInvalidInput or KindArithmetic on
//     failure. name and bic are filled whenever the entity was found.
func Enrich(tx Transaction, index *registry.Index) (Enriched, error) {
	out := Enriched{Transaction: tx, Status: StatusFailed}

	entity, ok := index.Get(tx.LEI)
	if !ok {
		return out, &RowError{
			Kind:      KindLookupMiss,
			RowNumber: tx.RowNumber,
			LEI:       tx.LEI,
			Err:       fmt.Errorf("%w %s", ErrEntityNotFound, tx.LEI),
		}
	}

	out.Name = entity.LegalName
	out.BIC = strings.Join(entity.BIC, BICSeparator)
	out.Country = entity.Country

	if !Supported(entity.Country) {
		out.Status = StatusUnsupported
		return out, nil
	}

	notional, rate, err := tx.Amounts()
	if err != nil {
		return out, err
	}

	costs, _, err := ComputeCosts(entity.Country, notional, rate)
	if err != nil {
		return out, &RowError{
			Kind:      KindArithmetic,
			RowNumber: tx.RowNumber,
			LEI:       tx.LEI,
			Field:     ColumnRate,
			Err:       err,
		}
	}

	out.TransactionCosts = &costs
	out.Status = StatusEnriched
	return out, nil
}

// =============================================================================
// RESULTS
// =============================================================================

// Result pairs an enriched row with its row-level error, if any.
type Result struct {
	Enriched
	Err error
}

// EnrichRow parses and enriches one raw row, capturing any failure in the
// returned Result rather than returning it.
func EnrichRow(row types.Row, rowNumber int, index *registry.Index) Result {
	tx, err := ParseTransaction(row, rowNumber)
	if err != nil {
		return Result{Enriched: Enriched{Transaction: tx, Status: StatusFailed}, Err: err}
	}
	enriched, err := Enrich(tx, index)
	return Result{Enriched: enriched, Err: err}
}

// Partition splits results into successes and failures, keeping order.
func Partition(results []Result) (ok, failed []Result) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		} else {
			ok = append(ok, r)
		}
	}
	return ok, failed
}
