package enrichment

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/lei-enricher/internal/registry"
	"github.com/ginjaninja78/lei-enricher/internal/types"
)

func testIndex() *registry.Index {
	return registry.NewIndex([]registry.Entity{
		{LEI: "ABC123", LegalName: "Example Bank", BIC: []string{"AAAA", "BBBB"}, Country: "GB"},
		{LEI: "XYZ789", LegalName: "Voorbeeld N.V.", BIC: []string{"CCCC"}, Country: "NL"},
		{LEI: "DEF456", LegalName: "Beispiel AG", BIC: nil, Country: "DE"},
	})
}

func mustTx(t *testing.T, lei, notional, rate string) Transaction {
	t.Helper()
	tx, err := ParseTransaction(types.Row{"lei": lei, "notional": notional, "rate": rate}, 1)
	require.NoError(t, err)
	return tx
}

func TestEnrich_GB(t *testing.T) {
	out, err := Enrich(mustTx(t, "ABC123", "1000", "1.2"), testIndex())
	require.NoError(t, err)

	assert.Equal(t, "Example Bank", out.Name)
	assert.Equal(t, "AAAA, BBBB", out.BIC)
	assert.Equal(t, "GB", out.Country)
	assert.Equal(t, StatusEnriched, out.Status)
	require.NotNil(t, out.TransactionCosts)
	assert.Equal(t, "200.00", out.FormattedCosts())
}

func TestEnrich_NL(t *testing.T) {
	out, err := Enrich(mustTx(t, "XYZ789", "1000", "1.25"), testIndex())
	require.NoError(t, err)

	assert.Equal(t, "CCCC", out.BIC)
	assert.Equal(t, StatusEnriched, out.Status)
	assert.Equal(t, "200.00", out.FormattedCosts())
}

func TestEnrich_NL_RateBelowOneIsAbsolute(t *testing.T) {
	// 1000 / 0.8 - 1000 = 250
	out, err := Enrich(mustTx(t, "XYZ789", "1000", "0.8"), testIndex())
	require.NoError(t, err)
	assert.Equal(t, "250.00", out.FormattedCosts())
}

func TestEnrich_NL_ZeroRate(t *testing.T) {
	tx := mustTx(t, "XYZ789", "1000", "0")
	out, err := Enrich(tx, testIndex())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroRate)
	assert.Equal(t, KindArithmetic, KindOf(err))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Nil(t, out.TransactionCosts)
}

func TestEnrich_GB_ZeroRateIsDefined(t *testing.T) {
	out, err := Enrich(mustTx(t, "ABC123", "1000", "0"), testIndex())
	require.NoError(t, err)
	assert.Equal(t, "-1000.00", out.FormattedCosts())
}

func TestEnrich_UnsupportedCountry(t *testing.T) {
	out, err := Enrich(mustTx(t, "DEF456", "1000", "1.2"), testIndex())
	require.NoError(t, err)

	assert.Equal(t, "Beispiel AG", out.Name)
	assert.Equal(t, "", out.BIC)
	assert.Equal(t, StatusUnsupported, out.Status)
	assert.Nil(t, out.TransactionCosts)
	assert.Equal(t, "", out.FormattedCosts())
}

func TestEnrich_MissingEntity(t *testing.T) {
	tx := mustTx(t, "NOPE00", "1000", "1.2")
	out, err := Enrich(tx, testIndex())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.Equal(t, KindLookupMiss, KindOf(err))
	assert.Contains(t, err.Error(), "NOPE00")
	assert.Equal(t, StatusFailed, out.Status)

	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "NOPE00", re.LEI)
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	row := types.Row{"lei": "ABC123", "notional": "1000", "rate": "1.2", "trade_id": "T1"}
	tx, err := ParseTransaction(row, 1)
	require.NoError(t, err)

	_, err = Enrich(tx, testIndex())
	require.NoError(t, err)

	assert.Equal(t, types.Row{"lei": "ABC123", "notional": "1000", "rate": "1.2", "trade_id": "T1"}, row)
}

func TestEnrich_RoundingIsHalfToEven(t *testing.T) {
	// 100 * 1.00125 - 100 = 0.125 -> 0.12
	out, err := Enrich(mustTx(t, "ABC123", "100", "1.00125"), testIndex())
	require.NoError(t, err)
	assert.Equal(t, "0.12", out.FormattedCosts())

	// 100 * 1.00135 - 100 = 0.135 -> 0.14
	out, err = Enrich(mustTx(t, "ABC123", "100", "1.00135"), testIndex())
	require.NoError(t, err)
	assert.Equal(t, "0.14", out.FormattedCosts())
}

func TestEnrich_MatchesIndependentFormula(t *testing.T) {
	cases := []struct {
		lei, notional, rate string
	}{
		{"ABC123", "2500000", "1.0734"},
		{"ABC123", "12.5", "0.9"},
		{"XYZ789", "2500000", "1.0734"},
		{"XYZ789", "333.33", "3"},
	}

	for _, tc := range cases {
		t.Run(tc.lei+"_"+tc.notional+"_"+tc.rate, func(t *testing.T) {
			tx := mustTx(t, tc.lei, tc.notional, tc.rate)
			out, err := Enrich(tx, testIndex())
			require.NoError(t, err)

			notional := decimal.RequireFromString(tc.notional)
			rate := decimal.RequireFromString(tc.rate)

			var want decimal.Decimal
			if out.Country == "GB" {
				want = notional.Mul(rate).Sub(notional)
			} else {
				want = notional.Div(rate).Sub(notional).Abs()
			}
			assert.True(t, want.RoundBank(2).Equal(*out.TransactionCosts),
				"want %s got %s", want.RoundBank(2), out.TransactionCosts)
		})
	}
}

func TestParseTransaction_EmptyLEI(t *testing.T) {
	tx, err := ParseTransaction(types.Row{"lei": " ", "notional": "1", "rate": "1"}, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLEI)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, "1", tx.Source["notional"])

	var re *RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "lei", re.Field)
	assert.Equal(t, 7, re.RowNumber)
}

func TestParseTransaction_LeavesAmountsUnparsed(t *testing.T) {
	tx, err := ParseTransaction(types.Row{"lei": " DEF456 ", "notional": "", "rate": "n/a"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "DEF456", tx.LEI)
}

func TestEnrich_InvalidAmounts(t *testing.T) {
	cases := []struct {
		name  string
		row   types.Row
		field string
	}{
		{"bad notional", types.Row{"lei": "ABC123", "notional": "abc", "rate": "1"}, "notional"},
		{"empty rate", types.Row{"lei": "XYZ789", "notional": "1", "rate": ""}, "rate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := ParseTransaction(tc.row, 7)
			require.NoError(t, err)

			out, err := Enrich(tx, testIndex())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidNumber)
			assert.Equal(t, KindInvalidInput, KindOf(err))
			assert.Equal(t, StatusFailed, out.Status)
			assert.NotEmpty(t, out.Name, "name is filled once the entity is found")

			var re *RowError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tc.field, re.Field)
			assert.Equal(t, 7, re.RowNumber)
		})
	}
}

func TestEnrich_UnsupportedCountrySkipsAmounts(t *testing.T) {
	idx := registry.NewIndex([]registry.Entity{
		{LEI: "DEF456", LegalName: "Beispiel AG", BIC: []string{"DDDD"}, Country: "DE"},
	})

	for _, row := range []types.Row{
		{"lei": "DEF456", "notional": "", "rate": "1.2"},
		{"lei": "DEF456", "notional": "1000", "rate": "n/a"},
	} {
		out, err := Enrich(mustTx(t, row["lei"], row["notional"], row["rate"]), idx)
		require.NoError(t, err)
		assert.Equal(t, StatusUnsupported, out.Status)
		assert.Equal(t, "Beispiel AG", out.Name)
		assert.Equal(t, "DDDD", out.BIC)
		assert.Equal(t, "", out.FormattedCosts())
	}
}

func TestRegister_AddsJurisdiction(t *testing.T) {
	assert.False(t, Supported("FR"))

	Register("fr", func(notional, rate decimal.Decimal) (decimal.Decimal, error) {
		return notional.Mul(rate), nil
	})
	t.Cleanup(func() {
		formulasMu.Lock()
		delete(formulas, "FR")
		formulasMu.Unlock()
	})

	assert.True(t, Supported("FR"))
	costs, ok, err := ComputeCosts("FR", decimal.NewFromInt(10), decimal.RequireFromString("0.015"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.15", costs.StringFixed(2))
}

func TestEnrichRow_CapturesErrors(t *testing.T) {
	idx := testIndex()
	results := []Result{
		EnrichRow(types.Row{"lei": "ABC123", "notional": "1000", "rate": "1.2"}, 1, idx),
		EnrichRow(types.Row{"lei": "MISSING", "notional": "1000", "rate": "1.2"}, 2, idx),
		EnrichRow(types.Row{"lei": "XYZ789", "notional": "x", "rate": "1.2"}, 3, idx),
		EnrichRow(types.Row{"lei": "DEF456", "notional": "", "rate": "1.2"}, 4, idx),
	}

	ok, failed := Partition(results)
	require.Len(t, ok, 2)
	require.Len(t, failed, 2)

	assert.Equal(t, 1, ok[0].Transaction.RowNumber)
	assert.Equal(t, StatusUnsupported, ok[1].Status)
	assert.Equal(t, KindLookupMiss, KindOf(failed[0].Err))
	assert.Equal(t, KindInvalidInput, KindOf(failed[1].Err))
	assert.Equal(t, StatusFailed, failed[1].Status)
	assert.Equal(t, "x", failed[1].Transaction.Source["notional"])
	assert.Equal(t, "Voorbeeld N.V.", failed[1].Name)
}

func TestSupportedCountries(t *testing.T) {
	assert.Equal(t, []string{"GB", "NL"}, SupportedCountries())
	assert.True(t, Supported("gb"))
	assert.False(t, Supported("DE"))
}
