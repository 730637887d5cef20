// =============================================================================
// LEI Enricher - CSV Parser Module
// =============================================================================
//
// This module loads the transaction CSV. The first row is the header; every
// later non-empty row is a data row. Columns the enrichment does not use are
// carried through untouched so they can be written back out.
//
// FEATURES:
//   - Configurable delimiter via CSVSettings
//   - UTF-8 byte order mark on the header is removed
//   - Ragged rows are padded with empty values
//   - Repeated header names get a ".1", ".2" suffix
//   - Cell values are stored exactly as read; readers trim where they need to
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/lei-enricher/internal/config"
	"github.com/ginjaninja78/lei-enricher/internal/types"
)

const utf8BOM = "\ufeff"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The parsed table, SourceFile set to filePath.
//   - An error if the file cannot be read or has no header.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.SourceFile = filePath
	return table, nil
}

// ParseReader reads CSV data from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers := cleanHeaders(allRows[0])

	table := &types.Table{
		Headers: headers,
		Rows:    make([]types.Row, 0, len(allRows)-1),
	}

	for _, raw := range allRows[1:] {
		if isRowEmpty(raw) {
			continue
		}
		table.Rows = append(table.Rows, toRow(raw, headers))
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = Delimiter(settings)

	// Allow a variable number of fields per row.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// Delimiter resolves the configured delimiter name to a rune.
// Names such as "tab" and "pipe" are accepted alongside literal characters.
func Delimiter(settings config.CSVSettings) rune {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	}
	if len(settings.Delimiter) > 0 {
		return rune(settings.Delimiter[0])
	}
	return ','
}

// cleanHeaders trims headers, strips a BOM, names empty columns and makes
// repeated names unique.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, utf8BOM)
		}
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return types.UniqueHeaders(cleaned)
}

// toRow maps raw values onto headers. Missing trailing values become "".
func toRow(raw []string, headers []string) types.Row {
	row := make(types.Row, len(headers))
	for i, header := range headers {
		if i < len(raw) {
			row[header] = raw[i]
		} else {
			row[header] = ""
		}
	}
	return row
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

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GetUniqueValues returns the distinct non-empty values of a column in
// first-seen order.
//
// PARAMETERS:
//   - table: The parsed table.
//   - header: The column header to extract.
func GetUniqueValues(table *types.Table, header string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, row := range table.Rows {
		value := strings.TrimSpace(row[header])
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		unique = append(unique, value)
	}

	return unique
}
