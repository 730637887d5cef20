// =============================================================================
// LEI Enricher - Transaction Cost Formulas
// =============================================================================
//
// Transaction costs depend on the jurisdiction of the counterparty's legal
// address. Formulas are held in a table keyed by ISO country code so a new
// jurisdiction is added by registering a formula, not by editing Enrich.
//
// SUPPORTED JURISDICTIONS:
//   GB: round(notional * rate - notional, 2)
//   NL: round(abs(notional * (1 / rate) - notional), 2)
//
// Rounding is half-to-even at two decimal places.
//
// =============================================================================

package enrichment

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// CostPlaces is the number of decimal places costs are rounded to.
const CostPlaces = 2

// CostFormula computes the unrounded transaction cost for a notional and rate.
type CostFormula func(notional, rate decimal.Decimal) (decimal.Decimal, error)

var (
	formulasMu sync.RWMutex
	formulas   = map[string]CostFormula{
		"GB": gbCosts,
		"NL": nlCosts,
	}
)

// gbCosts: notional * rate - notional.
func gbCosts(notional, rate decimal.Decimal) (decimal.Decimal, error) {
	return notional.Mul(rate).Sub(notional), nil
}

// nlCosts: |notional * (1 / rate) - notional|. A zero rate is rejected.
func nlCosts(notional, rate decimal.Decimal) (decimal.Decimal, error) {
	if rate.IsZero() {
		return decimal.Zero, ErrZeroRate
	}
	return notional.Div(rate).Sub(notional).Abs(), nil
}

// Register adds or replaces the formula for a country code.
func Register(country string, formula CostFormula) {
	formulasMu.Lock()
	defer formulasMu.Unlock()
	formulas[normalizeCountry(country)] = formula
}

// Supported reports whether a cost formula exists for the country.
func Supported(country string) bool {
	_, ok := lookupFormula(country)
	return ok
}

// SupportedCountries returns the registered country codes, sorted.
func SupportedCountries() []string {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	out := make([]string, 0, len(formulas))
	for c := range formulas {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ComputeCosts evaluates and rounds the cost for a country.
// ok is false when the country has no formula.
func ComputeCosts(country string, notional, rate decimal.Decimal) (costs decimal.Decimal, ok bool, err error) {
	formula, ok := lookupFormula(country)
	if !ok {
		return decimal.Zero, false, nil
	}
	raw, err := formula(notional, rate)
	if err != nil {
		return decimal.Zero, true, err
	}
	return raw.RoundBank(CostPlaces), true, nil
}

func lookupFormula(country string) (CostFormula, bool) {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	f, ok := formulas[normalizeCountry(country)]
	return f, ok
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
