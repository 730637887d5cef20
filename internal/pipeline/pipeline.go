// =============================================================================
// LEI Enricher - Pipeline Driver
// =============================================================================
//
// This module runs one enrichment job from input file to output file.
//
// PIPELINE:
//   1. Load the input rows (CSV or XLSX)
//   2. Check the required columns are present
//   3. Collect the unique identifiers in first-seen order
//   4. Fetch all entity records in one registry lookup
//   5. Enrich every row against the fetched index
//   6. Apply the row-failure policy
//   7. Write the output file, the error log and the run summary
//
// A failed registry lookup stops the run before anything is written. Row
// failures are kept in the output with status "failed" unless the
// configuration asks for the run to stop on the first bad row.
//
// CONCURRENCY:
//   Rows are independent and the index is read only after it is built, so
//   step 5 runs on a bounded errgroup. Each worker writes only its own slot
//   of the result slice, which keeps output order equal to input order.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/lei-enricher/internal/config"
	"github.com/ginjaninja78/lei-enricher/internal/csvparser"
	"github.com/ginjaninja78/lei-enricher/internal/enrichment"
	"github.com/ginjaninja78/lei-enricher/internal/output"
	"github.com/ginjaninja78/lei-enricher/internal/registry"
	"github.com/ginjaninja78/lei-enricher/internal/types"
	"github.com/ginjaninja78/lei-enricher/internal/validation"
	"github.com/ginjaninja78/lei-enricher/internal/xlsxparser"
	"github.com/ginjaninja78/lei-enricher/pkg/utils"
)

// Progress messages.
const (
	MsgReadingInput      = "Reading CSV data."
	MsgReadingRegistry   = "Reading lei data from external API."
	MsgBeginEnrichment   = "Begin Enrichment."
	MsgEnrichmentDone    = "Enrichment Completed."
	MsgOutputFileCreated = "Output File Created."
)

var (
	// ErrMissingColumns is returned when the input lacks a required column.
	ErrMissingColumns = errors.New("input is missing required columns")

	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrRowFailures is returned when rows failed and the configuration does
	// not allow the run to continue past them.
	ErrRowFailures = errors.New("rows failed enrichment")
)

// =============================================================================
// DATA STRUCTURES
// =============================================================================

// Lookuper fetches entity records for a set of identifiers.
// *registry.Client satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, leis []string) ([]registry.Entity, error)
}

// Result represents the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and artifact names.
	RunID string

	InputFile    string
	OutputFile   string
	ErrorLogFile string
	SummaryFile  string

	Stats Stats

	// Failures holds the failed rows in input order.
	Failures []enrichment.Result
}

// Stats contains run statistics.
type Stats struct {
	Rows        int
	Identifiers int
	Entities    int
	Enriched    int
	Unsupported int
	Failed      int
	Duration    time.Duration
}

// Pipeline runs enrichment jobs.
type Pipeline struct {
	cfg      *config.MainConfig
	lookuper Lookuper
	logger   zerolog.Logger
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Pipeline.
//
// PARAMETERS:
//   - cfg: The loaded configuration. Nil uses config.Default(). A
//     MaxConcurrency below 1 uses config.DefaultMaxConcurrency.
//   - lookuper: The registry used for the entity lookup.
//   - logger: Receives progress and diagnostics.
func New(cfg *config.MainConfig, lookuper Lookuper, logger zerolog.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.MaxConcurrency < 1 {
		clamped := *cfg
		clamped.MaxConcurrency = config.DefaultMaxConcurrency
		cfg = &clamped
	}
	return &Pipeline{
		cfg:      cfg,
		lookuper: lookuper,
		logger:   logger,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the enrichment pipeline.
//
// PARAMETERS:
//   - ctx: Cancels the registry lookup and the dispatch of further rows.
//   - inputPath: The transaction file. Empty uses the configured input.
//   - outputPath: The output file. Empty uses the configured output.
//
// RETURNS:
//   - The run Result. It is returned alongside ErrRowFailures so the caller
//     can report the failed rows.
//   - An error when the run could not complete. No output file is written
//     in that case.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	startTime := time.Now()

	if inputPath == "" {
		inputPath = p.cfg.InputFile
	}
	if outputPath == "" {
		outputPath = p.cfg.OutputFile
	}

	result := &Result{
		RunID:     uuid.New().String(),
		InputFile: inputPath,
	}
	log := p.logger.With().Str("run_id", result.RunID).Logger()

	// =========================================================================
	// STEP 1: LOAD INPUT
	// =========================================================================

	log.Info().Str("file", inputPath).Msg(MsgReadingInput)

	table, err := p.Load(inputPath)
	if err != nil {
		return nil, err
	}
	result.Stats.Rows = len(table.Rows)
	log.Debug().
		Str("source", table.SourceFile).
		Int("rows", len(table.Rows)).
		Strs("columns", table.Headers).
		Msg("input loaded")

	// =========================================================================
	// STEP 2: CHECK REQUIRED COLUMNS
	// =========================================================================

	if errs := validation.ValidateHeaders(table); len(errs) > 0 {
		missing := make([]string, len(errs))
		for i, e := range errs {
			missing[i] = e.Field
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	// =========================================================================
	// STEP 3-4: FETCH ENTITY RECORDS
	// =========================================================================

	leis := csvparser.GetUniqueValues(table, enrichment.ColumnLEI)
	result.Stats.Identifiers = len(leis)

	var entities []registry.Entity
	if len(leis) > 0 {
		log.Info().Int("identifiers", len(leis)).Msg(MsgReadingRegistry)

		entities, err = p.lookuper.Lookup(ctx, leis)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch entity records: %w", err)
		}
	}
	index := registry.NewIndex(entities)
	result.Stats.Entities = index.Len()

	// =========================================================================
	// STEP 5: ENRICH ROWS
	// =========================================================================

	log.Info().Int("rows", len(table.Rows)).Msg(MsgBeginEnrichment)

	results, err := p.enrichRows(ctx, table.Rows, index)
	if err != nil {
		return nil, err
	}

	log.Info().Msg(MsgEnrichmentDone)

	// =========================================================================
	// STEP 6: ROW-FAILURE POLICY
	// =========================================================================

	_, result.Failures = enrichment.Partition(results)
	p.tally(result, results)

	for _, f := range result.Failures {
		log.Warn().
			Int("row", f.Transaction.RowNumber).
			Str("lei", f.Transaction.LEI).
			Str("kind", string(enrichment.KindOf(f.Err))).
			Msg(f.Err.Error())
	}

	if len(result.Failures) > 0 && !p.cfg.ShouldContinueOnError() {
		result.ErrorLogFile = p.writeErrorLog(log, result)
		result.Stats.Duration = time.Since(startTime)
		return result, fmt.Errorf("%w: %d of %d rows", ErrRowFailures, len(result.Failures), len(results))
	}

	// =========================================================================
	// STEP 7: WRITE ARTIFACTS
	// =========================================================================

	outTable := output.BuildTable(table.Headers, results, p.cfg.WantStatusColumns())
	if err := output.Write(outputPath, outTable, p.cfg.CSVSettings); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	result.OutputFile = outputPath
	log.Info().Str("file", outputPath).Msg(MsgOutputFileCreated)

	result.ErrorLogFile = p.writeErrorLog(log, result)
	result.Stats.Duration = time.Since(startTime)

	if p.cfg.WriteSummary {
		path, err := utils.WriteSummaryLog(p.summary(result, startTime), p.cfg.ErrorLogDir)
		if err != nil {
			log.Warn().Err(err).Msg("failed to write run summary")
		} else {
			result.SummaryFile = path
		}
	}

	log.Info().
		Int("rows", result.Stats.Rows).
		Int("enriched", result.Stats.Enriched).
		Int("unsupported", result.Stats.Unsupported).
		Int("failed", result.Stats.Failed).
		Dur("duration", result.Stats.Duration).
		Msg("run complete")

	return result, nil
}

// Load reads the input table, choosing the parser from the extension.
func (p *Pipeline) Load(inputPath string) (*types.Table, error) {
	if !utils.FileExists(inputPath) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
	}

	var (
		table *types.Table
		err   error
	)
	if strings.EqualFold(filepath.Ext(inputPath), ".xlsx") {
		table, err = xlsxparser.Parse(inputPath, p.cfg.InputSheet)
	} else {
		table, err = csvparser.Parse(inputPath, p.cfg.CSVSettings)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", inputPath, err)
	}
	return table, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// enrichRows enriches every row with at most MaxConcurrency in flight.
func (p *Pipeline) enrichRows(ctx context.Context, rows []types.Row, index *registry.Index) ([]enrichment.Result, error) {
	results := make([]enrichment.Result, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = enrichment.EnrichRow(row, i+1, index)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// tally fills the row counters.
func (p *Pipeline) tally(result *Result, results []enrichment.Result) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			result.Stats.Failed++
		case r.Status == enrichment.StatusUnsupported:
			result.Stats.Unsupported++
		default:
			result.Stats.Enriched++
		}
	}
}

// writeErrorLog records failed rows. A failure to write the log is logged,
// not returned, since the output is already on disk.
func (p *Pipeline) writeErrorLog(log zerolog.Logger, result *Result) string {
	if len(result.Failures) == 0 {
		return ""
	}

	now := time.Now()
	entries := make([]utils.ErrorLogEntry, 0, len(result.Failures))
	for _, f := range result.Failures {
		entry := utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     filepath.Base(result.InputFile),
			ErrorType:    string(enrichment.KindOf(f.Err)),
			ErrorMessage: f.Err.Error(),
			RowNumber:    f.Transaction.RowNumber,
			LEI:          f.Transaction.LEI,
		}
		var re *enrichment.RowError
		if errors.As(f.Err, &re) && re.Field != "" {
			entry.FieldName = re.Field
			entry.FieldValue = f.Transaction.Source[re.Field]
		}
		entries = append(entries, entry)
	}

	path, err := utils.WriteErrorLog(entries, p.cfg.ErrorLogDir, result.RunID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to write error log")
		return ""
	}
	log.Info().Str("file", path).Int("errors", len(entries)).Msg("error log written")
	return path
}

// summary converts a Result to the on-disk summary form.
func (p *Pipeline) summary(result *Result, startTime time.Time) utils.RunSummary {
	s := utils.RunSummary{
		RunID:        result.RunID,
		StartTime:    startTime,
		EndTime:      startTime.Add(result.Stats.Duration),
		Duration:     result.Stats.Duration,
		InputFile:    result.InputFile,
		OutputFile:   result.OutputFile,
		ErrorLogFile: result.ErrorLogFile,
		Counts: utils.SummaryCounts{
			Rows:        result.Stats.Rows,
			Identifiers: result.Stats.Identifiers,
			Entities:    result.Stats.Entities,
			Enriched:    result.Stats.Enriched,
			Unsupported: result.Stats.Unsupported,
			Failed:      result.Stats.Failed,
		},
	}
	for _, f := range result.Failures {
		s.Failures = append(s.Failures, utils.FailedRow{
			RowNumber: f.Transaction.RowNumber,
			LEI:       f.Transaction.LEI,
			Kind:      string(enrichment.KindOf(f.Err)),
			Message:   f.Err.Error(),
		})
	}
	return s
}
