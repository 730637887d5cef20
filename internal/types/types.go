// =============================================================================
// LEI Enricher - Shared Types
// =============================================================================
//
// This package contains the tabular types shared by the input loaders, the
// pipeline and the output writers. Keeping them here avoids import cycles
// between:
//   - csvparser / xlsxparser (produce a Table)
//   - pipeline               (reads rows, builds the output Table)
//   - output                 (writes a Table)
//
// =============================================================================

package types

import "fmt"

// =============================================================================
// TABLE TYPES
// =============================================================================

// Row is a single data row keyed by column header.
// Values are kept exactly as read so that pass-through columns are written
// back unchanged.
type Row map[string]string

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of rows sharing a header.
type Table struct {
	// Headers holds the column names in file order.
	Headers []string

	// Rows holds the data rows in file order.
	Rows []Row

	// SourceFile is the path the table was loaded from (empty for built tables).
	SourceFile string
}

// HasColumn reports whether the table has the given header.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// AddColumn appends a header if it is not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Headers = append(t.Headers, name)
	}
}

// Values returns the row values ordered by Headers.
func (t *Table) Values(row Row) []string {
	values := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		values[i] = row[h]
	}
	return values
}

// UniqueHeaders suffixes repeated header names with ".1", ".2" and so on,
// so every column keeps its own key in a Row. The first occurrence keeps
// its name.
func UniqueHeaders(headers []string) []string {
	out := make([]string, len(headers))
	taken := make(map[string]bool, len(headers))
	for _, h := range headers {
		taken[h] = true
	}

	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			out[i] = h
			continue
		}
		name := fmt.Sprintf("%s.%d", h, n)
		for taken[name] {
			n++
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h] = n + 1
		taken[name] = true
		out[i] = name
	}
	return out
}
