// =============================================================================
// ITBP Report Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (itbp)
//   ├── generateCmd (itbp generate)
//   ├── catalogsCmd (itbp catalogs)
//   └── versionCmd  (itbp version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads config.yaml (a missing file at the default path means defaults)
//   2. Applies ITBP_* environment variables and CLI flags through viper
//   3. Builds the zerolog logger and stores it in the command context
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/itbp-report-generator/internal/config"
	"github.com/ginjaninja78/itbp-report-generator/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// defaultConfigFile is read when present; --config makes the file required.
const defaultConfigFile = "config.yaml"

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig is the effective configuration of the running command.
var appConfig *config.MainConfig

// overrides resolves ITBP_* environment variables and bound flags.
var overrides = newOverrides()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "itbp",
	Short: "ITBP Report Generator - Build ERP ledger imports from settlement details",
	Long: `ITBP Report Generator reads per-merchant settlement detail files
("Detalle_liquidación" exports), matches them against the ITBP reference
catalogs and produces the Procesado and Revenue ledger workbooks for every
country and reporting period, bundled into a single zip archive.

Example Usage:
  itbp generate                          # Process every file in the input directory
  itbp generate detalle.xlsx otro.csv    # Process specific files
  itbp generate --dry-run                # Build reports without storing them
  itbp catalogs                          # Check the reference catalogs`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		appConfig = cfg

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log, err := logger.New(level, cfg.LogFormat)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context(), log))
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().String("catalog-url", "", "Catalog workbook location (http(s)://, gs:// or local path)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")

	bindFlag("catalog_url", rootCmd.PersistentFlags().Lookup("catalog-url"))
	bindFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func newOverrides() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ITBP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// bindFlag makes a flag override the config key when it is set.
func bindFlag(key string, flag *pflag.Flag) {
	if err := overrides.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag for %s: %v", key, err))
	}
}

// loadConfig reads the config file and applies overrides. A missing file is
// only an error when its path was given explicitly.
func loadConfig(explicit bool) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.Default()
	}

	applyOverrides(overrides, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyOverrides copies every key set in v onto cfg.
func applyOverrides(v *viper.Viper, cfg *config.MainConfig) {
	if v.IsSet("catalog_url") {
		cfg.CatalogURL = v.GetString("catalog_url")
	}
	if v.IsSet("catalog_timeout") {
		cfg.CatalogTimeout = v.GetDuration("catalog_timeout")
	}
	if v.IsSet("input_dir") {
		cfg.InputDir = v.GetString("input_dir")
	}
	if v.IsSet("output_dir") {
		cfg.OutputDir = v.GetString("output_dir")
	}
	if v.IsSet("archive_name_format") {
		cfg.ArchiveNameFormat = v.GetString("archive_name_format")
	}
	if v.IsSet("skip_summary") {
		cfg.SkipSummary = v.GetBool("skip_summary")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.LogFormat = v.GetString("log_format")
	}
}
