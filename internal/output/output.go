// =============================================================================
// LEI Enricher - Output Writer
// =============================================================================
//
// This module turns enrichment results into the output table and writes it
// to disk. The output keeps every input column in its original order and
// appends the enrichment columns after them.
//
// OUTPUT COLUMNS:
//   <input columns...>, name, bic, transaction_costs
//   [, enrichment_status, enrichment_error]   (when status columns are on)
//
// An input column that already carries one of these names is overwritten in
// place rather than duplicated.
//
// FORMATS:
//   - .xlsx -> Excel workbook (excelize)
//   - anything else -> delimited text
//
// Files are written to a temporary sibling first and renamed into place, so
// a failed write never leaves a partial output file behind.
//
// =============================================================================

package output

import (
	"github.com/ginjaninja78/lei-enricher/internal/enrichment"
	"github.com/ginjaninja78/lei-enricher/internal/types"
)

// Added column names.
const (
	ColumnName   = "name"
	ColumnBIC    = "bic"
	ColumnCosts  = "transaction_costs"
	ColumnStatus = "enrichment_status"
	ColumnError  = "enrichment_error"
)

// =============================================================================
// TABLE BUILDING
// =============================================================================

// BuildTable assembles the output table from enrichment results.
//
// PARAMETERS:
//   - inputHeaders: The input column order.
//   - results: One result per input row, in input order.
//   - withStatus: Whether to add the status and error columns.
//
// RETURNS:
//   - A new table. The source rows are not modified.
func BuildTable(inputHeaders []string, results []enrichment.Result, withStatus bool) *types.Table {
	table := &types.Table{
		Headers: append([]string(nil), inputHeaders...),
		Rows:    make([]types.Row, 0, len(results)),
	}

	table.AddColumn(ColumnName)
	table.AddColumn(ColumnBIC)
	table.AddColumn(ColumnCosts)
	if withStatus {
		table.AddColumn(ColumnStatus)
		table.AddColumn(ColumnError)
	}

	for _, r := range results {
		row := r.Transaction.Source.Clone()
		row[ColumnName] = r.Name
		row[ColumnBIC] = r.BIC
		row[ColumnCosts] = r.FormattedCosts()

		if withStatus {
			row[ColumnStatus] = string(r.Status)
			row[ColumnError] = ""
			if r.Err != nil {
				row[ColumnError] = r.Err.Error()
			}
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}
