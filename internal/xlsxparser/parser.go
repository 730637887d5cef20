// =============================================================================
// LEI Enricher - XLSX Input Parser
// =============================================================================
//
// This module loads transactions from an Excel workbook instead of a CSV.
// The sheet is read the same way as a CSV file: the first row is the header,
// later non-empty rows are data. Cell values are read as displayed text so
// numbers keep the precision they were entered with.
//
// SHEET SELECTION:
//   - An explicit sheet name is used when given
//   - Otherwise the first sheet in the workbook is used
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/lei-enricher/internal/types"
)

// Parse reads a transaction sheet from an XLSX workbook.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - sheetName: The sheet to read. Empty selects the first sheet.
//
// RETURNS:
//   - The parsed table.
//   - An error if the workbook or sheet cannot be read.
func Parse(filePath, sheetName string) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	headers := cleanHeaders(rows[0])
	table := &types.Table{
		Headers:    headers,
		Rows:       make([]types.Row, 0, len(rows)-1),
		SourceFile: filePath,
	}

	for _, raw := range rows[1:] {
		if len(raw) == 0 || isRowEmpty(raw) {
			continue
		}
		row := make(types.Row, len(headers))
		for i, header := range headers {
			if i < len(raw) {
				row[header] = raw[i]
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// cleanHeaders trims headers, names empty columns by position and makes
// repeated names unique.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return types.UniqueHeaders(cleaned)
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
