// =============================================================================
// LEI Enricher - Enrich Command
// =============================================================================
//
// This file defines the 'enrich' command, which runs the enrichment pipeline
// over one transaction file.
//
// COMMAND USAGE:
//   enricher enrich [flags]
//
// FLAGS:
//   --input   : The transaction file (default from config, then Data.csv)
//   --output  : The output file (default from config, then Output.csv)
//   --dry-run : Validate the input without calling the registry or writing
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/lei-enricher/internal/logger"
	"github.com/ginjaninja78/lei-enricher/internal/pipeline"
	"github.com/ginjaninja78/lei-enricher/internal/registry"
	"github.com/ginjaninja78/lei-enricher/internal/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// enrichOptions holds the enrich command flags.
type enrichOptions struct {
	input  string
	output string
	dryRun bool
}

var enrichOpts enrichOptions

// =============================================================================
// ENRICH COMMAND DEFINITION
// =============================================================================

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a transaction file with registry data and transaction costs",
	Long: `The enrich command reads the transaction file, fetches the registry record
for every distinct LEI in a single lookup, and writes the output file with
name, bic and transaction_costs columns added.

If the registry cannot be reached after all retries, nothing is written and
the command exits with status 1.

Rows that cannot be enriched are kept in the output with
enrichment_status=failed and listed in an error log, unless
continue_on_error is false in the configuration.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrich(cmd, enrichOpts)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().StringVar(&enrichOpts.input, "input", "", "Path to the transaction file (CSV or XLSX)")
	enrichCmd.Flags().StringVar(&enrichOpts.output, "output", "", "Path to the output file (.csv or .xlsx)")
	enrichCmd.Flags().BoolVar(&enrichOpts.dryRun, "dry-run", false, "Validate the input without calling the registry or writing output")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runEnrich runs the pipeline and prints the run report.
func runEnrich(cmd *cobra.Command, opts enrichOptions) error {
	log := logger.FromContext(cmd.Context())
	out := cmd.OutOrStdout()

	client := registry.NewClient(mainConfig.Registry, &http.Client{}, log)
	p := pipeline.New(mainConfig, client, log)

	if opts.dryRun {
		return runDryRun(out, p, opts.input)
	}

	result, err := p.Run(cmd.Context(), opts.input, opts.output)
	if result != nil {
		printReport(out, result, err)
	}
	if err != nil {
		if category := registry.GetCategory(err); category != "" {
			log.Error().Err(err).Str("category", string(category)).Msg("registry lookup failed, no output written")
		}
		return err
	}
	return nil
}

// runDryRun loads and validates the input and prints the findings.
func runDryRun(out io.Writer, p *pipeline.Pipeline, input string) error {
	if input == "" {
		input = mainConfig.InputFile
	}

	table, err := p.Load(input)
	if err != nil {
		return err
	}

	errs := validation.Validate(table)
	fmt.Fprintf(out, "=== Dry Run: %s ===\n", input)
	fmt.Fprintf(out, "Rows:    %d\n", len(table.Rows))
	fmt.Fprintf(out, "Columns: %d\n", len(table.Headers))
	fmt.Fprintln(out, validation.FormatErrors(errs))

	// Row problems are reported; only a missing column would stop a real run.
	if headerErrs := validation.ValidateHeaders(table); len(headerErrs) > 0 {
		return fmt.Errorf("%w: %d column(s)", pipeline.ErrMissingColumns, len(headerErrs))
	}
	return nil
}

// printReport writes the run summary to out. runErr is the error Run
// returned alongside the result, if any.
func printReport(out io.Writer, result *pipeline.Result, runErr error) {
	if runErr != nil {
		fmt.Fprintln(out, "=== Enrichment Aborted ===")
		fmt.Fprintf(out, "Reason:        %v\n", runErr)
	} else {
		fmt.Fprintln(out, "=== Enrichment Complete ===")
	}
	fmt.Fprintf(out, "Run ID:        %s\n", result.RunID)
	fmt.Fprintf(out, "Rows:          %d\n", result.Stats.Rows)
	fmt.Fprintf(out, "Enriched:      %d\n", result.Stats.Enriched)
	fmt.Fprintf(out, "Unsupported:   %d\n", result.Stats.Unsupported)
	fmt.Fprintf(out, "Failed:        %d\n", result.Stats.Failed)
	fmt.Fprintf(out, "Time elapsed:  %s\n", result.Stats.Duration)

	if result.OutputFile != "" {
		fmt.Fprintf(out, "Output:        %s\n", result.OutputFile)
	}
	if result.ErrorLogFile != "" {
		fmt.Fprintf(out, "Error log:     %s\n", result.ErrorLogFile)
	}
	if result.SummaryFile != "" {
		fmt.Fprintf(out, "Summary:       %s\n", result.SummaryFile)
	}
}
