// =============================================================================
// LEI Enricher - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (enricher)            runs 'enrich' with the defaults
//   ├── enrichCmd (enricher enrich)
//   ├── lookupCmd (enricher lookup)
//   └── versionCmd (enricher version)
//
// CONFIGURATION:
//   Before any command runs, the root command:
//   1. Loads config.yaml (a missing file means defaults)
//   2. Applies .env and ENRICHER_* environment overrides
//   3. Builds the logger and stores it on the command context
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/lei-enricher/internal/config"
	"github.com/ginjaninja78/lei-enricher/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// mainConfig is loaded once per invocation by loadRuntime.
var mainConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "enricher",
	Short: "LEI Enricher - Add legal entity data and transaction costs to trade files",
	Long: `LEI Enricher reads a transaction file, looks up every legal entity
identifier in the GLEIF registry and writes the file back out with the
entity's legal name, its BIC codes and the jurisdiction-specific
transaction cost.

Run without a subcommand, it enriches Data.csv into Output.csv in the
current directory.

Example Usage:
  enricher                                 # Data.csv -> Output.csv
  enricher enrich --input trades.xlsx      # Read an Excel workbook
  enricher enrich --dry-run                # Check the input only
  enricher lookup 5493001KJTIIGC8Y1R12     # Show registry data`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadRuntime(cmd)
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrich(cmd, enrichOptions{})
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command and exits with status 1 on error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// loadRuntime loads the configuration and attaches a logger to the
// command context.
func loadRuntime(cmd *cobra.Command) error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
	mainConfig = cfg

	log := logger.NewConsole(cmd.ErrOrStderr(), cfg.LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx, log))

	log.Debug().Str("config", cfgFile).Str("log_level", cfg.LogLevel).Msg("configuration loaded")
	return nil
}
