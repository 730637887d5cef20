// =============================================================================
// LEI Enricher - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// CONFIGURATION SOURCES (later sources win):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. Main config file (config.yaml), optional
//   3. A .env file in the working directory, optional
//   4. ENRICHER_* environment variables
//
// Every field can be left unset: running the tool with no config file and no
// environment reads Data.csv and writes Output.csv against the public GLEIF
// registry.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. ENRICHER_REGISTRY_BASE_URL.
const EnvPrefix = "ENRICHER"

// Default values.
const (
	DefaultInputFile      = "Data.csv"
	DefaultOutputFile     = "Output.csv"
	DefaultRegistryURL    = "https://api.gleif.org/api/v1/lei-records"
	DefaultMaxAttempts    = 3
	DefaultBatchSize      = 200
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxConcurrency = 4
	DefaultLogLevel       = "info"
	DefaultErrorLogDir    = "."
	DefaultCSVDelimiter   = ","
	DefaultEnvFile        = ".env"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// InputFile is the transaction file to enrich (.csv or .xlsx).
	// Default: "Data.csv"
	InputFile string `yaml:"input_file" envconfig:"INPUT_FILE" validate:"required"`

	// InputSheet selects the worksheet when the input is an XLSX workbook.
	// Empty means the first sheet.
	InputSheet string `yaml:"input_sheet" envconfig:"INPUT_SHEET"`

	// OutputFile is where the enriched table is written (.csv or .xlsx).
	// Default: "Output.csv"
	OutputFile string `yaml:"output_file" envconfig:"OUTPUT_FILE" validate:"required"`

	// ErrorLogDir is where the row error log and run summary are written.
	// Default: "."
	ErrorLogDir string `yaml:"error_log_dir" envconfig:"ERROR_LOG_DIR"`

	// WriteSummary enables the YAML run summary file.
	WriteSummary bool `yaml:"write_summary" envconfig:"WRITE_SUMMARY"`

	// CSVSettings controls how CSV input is read.
	CSVSettings CSVSettings `yaml:"csv_settings" envconfig:"CSV"`

	// =========================================================================
	// REGISTRY SETTINGS
	// =========================================================================

	// Registry configures the LEI registry client.
	Registry RegistryConfig `yaml:"registry" envconfig:"REGISTRY"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of rows enriched concurrently.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"gte=1"`

	// ContinueOnError determines whether row failures (unknown LEI, zero
	// rate, bad numbers) are reported per row or abort the whole run.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR"`

	// StatusColumns adds enrichment_status and enrichment_error to the output.
	// Default: true
	StatusColumns *bool `yaml:"status_columns" envconfig:"STATUS_COLUMNS"`
}

// RegistryConfig holds the LEI registry client settings.
type RegistryConfig struct {
	// BaseURL is the lei-records endpoint.
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`

	// MaxAttempts is the number of tries per request before giving up.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"gte=1,lte=10"`

	// RetryDelay is a fixed pause between attempts. Zero means retry at once.
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"gte=0"`

	// Timeout bounds each HTTP request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`

	// BatchSize caps the identifiers sent per request (and the page size asked for).
	// Default: 200
	BatchSize int `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"gte=1,lte=200"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the configuration from a YAML file, a .env file and
// the environment.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file is
//     not an error; defaults are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be parsed or the result is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// No file: defaults and environment only.
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnvironment(&config, DefaultEnvFile); err != nil {
		return nil, err
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyEnvironment loads an optional .env file and overlays ENRICHER_*
// variables. Unset variables leave the YAML values untouched.
func applyEnvironment(config *MainConfig, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputFile == "" {
		config.InputFile = DefaultInputFile
	}
	if config.OutputFile == "" {
		config.OutputFile = DefaultOutputFile
	}
	if config.ErrorLogDir == "" {
		config.ErrorLogDir = DefaultErrorLogDir
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = DefaultCSVDelimiter
	}
	if config.Registry.BaseURL == "" {
		config.Registry.BaseURL = DefaultRegistryURL
	}
	if config.Registry.MaxAttempts == 0 {
		config.Registry.MaxAttempts = DefaultMaxAttempts
	}
	if config.Registry.Timeout == 0 {
		config.Registry.Timeout = DefaultRequestTimeout
	}
	if config.Registry.BatchSize == 0 {
		config.Registry.BatchSize = DefaultBatchSize
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.ContinueOnError == nil {
		config.ContinueOnError = boolPtr(true)
	}
	if config.StatusColumns == nil {
		config.StatusColumns = boolPtr(true)
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return err
	}

	if config.ErrorLogDir != "" {
		if err := os.MkdirAll(config.ErrorLogDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", config.ErrorLogDir, err)
		}
	}

	return nil
}

// ShouldContinueOnError reports the effective row-failure policy.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// WantStatusColumns reports whether the status columns are written.
func (c *MainConfig) WantStatusColumns() bool {
	return c.StatusColumns == nil || *c.StatusColumns
}

func boolPtr(b bool) *bool {
	return &b
}
