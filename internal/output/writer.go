package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/lei-enricher/internal/config"
	"github.com/ginjaninja78/lei-enricher/internal/csvparser"
	"github.com/ginjaninja78/lei-enricher/internal/types"
)

// DefaultSheetName is the sheet written to XLSX output.
const DefaultSheetName = "Output"

// IsXLSX reports whether a path names an Excel workbook.
func IsXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

// Write writes the table to path, choosing the format from the extension.
//
// PARAMETERS:
//   - path: The destination file.
//   - table: The output table.
//   - settings: CSV settings used for delimited output.
func Write(path string, table *types.Table, settings config.CSVSettings) error {
	if IsXLSX(path) {
		return WriteXLSX(path, table)
	}
	return WriteCSV(path, table, settings)
}

// WriteCSV writes the table as delimited text with a header row.
func WriteCSV(path string, table *types.Table, settings config.CSVSettings) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		w.Comma = csvparser.Delimiter(settings)

		if err := w.Write(table.Headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for i, row := range table.Rows {
			if err := w.Write(table.Values(row)); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}

		w.Flush()
		return w.Error()
	})
}

// WriteXLSX writes the table to a single-sheet workbook.
// Every cell is written as text so values round-trip exactly.
func WriteXLSX(path string, table *types.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, 1, table.Headers); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := setRow(f, i+2, table.Values(row)); err != nil {
			return err
		}
	}

	return writeAtomic(path, func(out *os.File) error {
		if _, err := f.WriteTo(out); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		return nil
	})
}

func setRow(f *excelize.File, rowNumber int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", rowNumber, err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(DefaultSheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNumber, err)
	}
	return nil
}

// writeAtomic writes to a temporary file next to path and renames it over
// path once fn succeeds.
func writeAtomic(path string, fn func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}

	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
