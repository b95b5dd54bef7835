// =============================================================================
// ITBP Report Generator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the run configuration.
//
// CONFIGURATION FILE:
//   config.yaml: catalog source, input/output locations, archive naming,
//   logging and CSV input settings.
//
// PRECEDENCE (lowest to highest):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. config.yaml
//   3. ITBP_* environment variables and CLI flags (bound in cmd/ with viper)
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCatalogURL is the published export of the catalog workbook.
const DefaultCatalogURL = "https://docs.google.com/spreadsheets/d/1WqXYeykuKGfi1Ho5MAFGB52tRIMndIJ_/export?format=xlsx"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// CATALOG SETTINGS
	// =========================================================================

	// CatalogURL is where the catalog workbook is fetched from.
	// Accepts http(s):// URLs, gs://bucket/object URIs and local paths.
	CatalogURL string `yaml:"catalog_url"`

	// CatalogTimeout bounds the catalog download.
	// Default: 15s
	CatalogTimeout time.Duration `yaml:"catalog_timeout"`

	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for settlement detail files when no files are
	// passed on the command line.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the report archive and the run summary.
	// A gs://bucket/prefix destination uploads the archive instead.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ArchiveNameFormat defines the archive file name.
	// Placeholders:
	//   {timestamp} - Run timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Run date (YYYYMMDD)
	//   {run_id}    - Run identifier (UUID)
	// Default: "Reportes_ITBP_{timestamp}.zip"
	ArchiveNameFormat string `yaml:"archive_name_format"`

	// SkipSummary disables the processing summary text file.
	SkipSummary bool `yaml:"skip_summary"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log encoder.
	// Valid values: "console", "json"
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// CSVSettings applies to settlement detail files exported as CSV.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV detail files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), ";" (semicolon), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the file.
	// Valid values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.CatalogURL == "" {
		config.CatalogURL = DefaultCatalogURL
	}
	if config.CatalogTimeout <= 0 {
		config.CatalogTimeout = 15 * time.Second
	}
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.ArchiveNameFormat == "" {
		config.ArchiveNameFormat = "Reportes_ITBP_{timestamp}.zip"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
}

// Validate checks option values that defaults cannot repair.
func Validate(config *MainConfig) error {
	switch strings.ToLower(config.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be \"console\" or \"json\", got %q", config.LogFormat)
	}

	switch strings.ToUpper(config.CSVSettings.Encoding) {
	case "UTF-8", "UTF8", "ISO-8859-1", "LATIN1", "WINDOWS-1252", "CP1252":
	default:
		return fmt.Errorf("unsupported csv encoding %q", config.CSVSettings.Encoding)
	}

	if len([]rune(config.CSVSettings.Delimiter)) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", config.CSVSettings.Delimiter)
	}

	if !strings.HasSuffix(strings.ToLower(config.ArchiveNameFormat), ".zip") {
		return fmt.Errorf("archive_name_format must end in .zip, got %q", config.ArchiveNameFormat)
	}

	return nil
}
