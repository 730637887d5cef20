// =============================================================================
// LEI Enricher - File Manager Utility
// =============================================================================
//
// This module provides the file utilities used around an enrichment run:
//   - Directory management
//   - File naming for run artifacts
//   - Row error log generation
//   - YAML run summary generation
//
// RUN ARTIFACTS:
//   - The enriched output file is written by the output package
//   - A row error log is written only when at least one row failed
//   - A run summary is written when enabled in the configuration
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// timestampLayout is used in generated file names.
const timestampLayout = "20060102_150405"

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates dir and any missing parents.
//
// RETURNS:
//   - An error if the directory cannot be created.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     Any key in params, e.g. {run_id}.
//   - params: Extra placeholder values.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//
//	format: "enrichment_errors_{timestamp}_{run_id}.log"
//	params: {"run_id": "1b4e28ba"}
//	output: "enrichment_errors_20240115_143022_1b4e28ba.log"
func GenerateFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format(timestampLayout),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// ShortID returns the first block of a UUID string for use in file names.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single failed row.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	LEI          string
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a text log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//   - runID: The run identifier, included in the file name and header.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir, runID string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	logFileName := GenerateFileName("enrichment_errors_{timestamp}_{run_id}.log",
		map[string]string{"run_id": ShortID(runID)})
	logPath := filepath.Join(outputDir, logFileName)

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "LEI Enricher - Error Log\n"+
		"Run ID: %s\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		runID,
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.LEI != "" {
			fmt.Fprintf(writer, "  LEI:            %s\n", entry.LEI)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary describes one enrichment run.
type RunSummary struct {
	RunID        string        `yaml:"run_id"`
	StartTime    time.Time     `yaml:"start_time"`
	EndTime      time.Time     `yaml:"end_time"`
	Duration     time.Duration `yaml:"duration"`
	InputFile    string        `yaml:"input_file"`
	OutputFile   string        `yaml:"output_file"`
	ErrorLogFile string        `yaml:"error_log_file,omitempty"`
	Counts       SummaryCounts `yaml:"counts"`
	Failures     []FailedRow   `yaml:"failures,omitempty"`
}

// SummaryCounts holds the row tallies of a run.
type SummaryCounts struct {
	Rows        int `yaml:"rows"`
	Identifiers int `yaml:"identifiers"`
	Entities    int `yaml:"entities"`
	Enriched    int `yaml:"enriched"`
	Unsupported int `yaml:"unsupported_jurisdiction"`
	Failed      int `yaml:"failed"`
}

// FailedRow is a short record of a failed row.
type FailedRow struct {
	RowNumber int    `yaml:"row"`
	LEI       string `yaml:"lei,omitempty"`
	Kind      string `yaml:"kind"`
	Message   string `yaml:"message"`
}

// WriteSummaryLog writes a run summary as YAML.
//
// PARAMETERS:
//   - summary: The run summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	summaryFileName := GenerateFileName("run_summary_{timestamp}_{run_id}.yaml",
		map[string]string{"run_id": ShortID(summary.RunID)})
	summaryPath := filepath.Join(outputDir, summaryFileName)

	data, err := yaml.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
