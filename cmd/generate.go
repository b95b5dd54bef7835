// =============================================================================
// ITBP Report Generator - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which runs the full report
// pipeline.
//
// COMMAND USAGE:
//   itbp generate [files...] [flags]
//
// FLAGS:
//   --input-dir   : Directory scanned for .xlsx/.xls/.csv files when no files are given
//   --output      : Local directory or gs://bucket/prefix for the archive
//   --catalog-url : Catalog workbook location (root flag)
//   --dry-run     : Build every report without storing anything
//
// PROCESSING PIPELINE:
//   1. Resolve the input files
//   2. Validate and read the detail files
//   3. Fetch the reference catalogs
//   4. Build the Procesado and Revenue reports per (country, period)
//   5. Zip and store the reports, write the run summary
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/ginjaninja78/itbp-report-generator/internal/generator"
	"github.com/ginjaninja78/itbp-report-generator/internal/logger"
	"github.com/ginjaninja78/itbp-report-generator/internal/storage"
	"github.com/ginjaninja78/itbp-report-generator/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun builds the reports without storing the archive or the summary.
var dryRun bool

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate the Procesado and Revenue ledger reports",
	Long: `The generate command reads settlement detail files, joins them with the
reference catalogs and writes one Procesado and one Revenue workbook per
country and reporting period, bundled into a zip archive.

Files passed as arguments are processed in order. Without arguments every
.xlsx, .xls and .csv file in the input directory is processed.

A partition whose country is missing from the Procesadora catalog is skipped
with a warning. A partition that fails does not stop the others; failures
are listed in the run summary.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		inputs := args
		if len(inputs) == 0 {
			var err error
			inputs, err = utils.DiscoverInputFiles(appConfig.InputDir)
			if err != nil {
				return fmt.Errorf("failed to discover input files: %w", err)
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no .xlsx, .xls or .csv files found in %s", appConfig.InputDir)
			}
		}

		g := generator.New(appConfig, storage.New(), log)
		result, err := g.Run(ctx, inputs, generator.Options{DryRun: dryRun})
		if err != nil {
			return err
		}

		printResult(cmd, result)

		if len(result.Failed) > 0 {
			return fmt.Errorf("%d partition(s) failed", len(result.Failed))
		}
		return nil
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Build reports without storing the archive",
	)

	generateCmd.Flags().String("input-dir", "", "Directory scanned for detail files")
	generateCmd.Flags().String("output", "", "Output directory or gs://bucket/prefix")

	bindFlag("input_dir", generateCmd.Flags().Lookup("input-dir"))
	bindFlag("output_dir", generateCmd.Flags().Lookup("output"))
}

// =============================================================================
// OUTPUT
// =============================================================================

func printResult(cmd *cobra.Command, result *generator.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "=== ITBP Report Generator ===")
	for _, name := range result.FileNames() {
		fmt.Fprintf(out, "  ✓ %s\n", name)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(out, "  - %s %s: skipped (%s)\n", s.Country, s.Period, s.Message)
	}
	for _, f := range result.Failed {
		fmt.Fprintf(out, "  ✗ %s %s: %s\n", f.Country, f.Period, f.Message)
	}

	fmt.Fprintf(out, "\nInput files:     %d\n", len(result.InputFiles))
	fmt.Fprintf(out, "Transactions:    %d\n", result.Transactions)
	fmt.Fprintf(out, "Partitions:      %d\n", result.Partitions)
	fmt.Fprintf(out, "Generated files: %d\n", len(result.Tables))
	fmt.Fprintf(out, "Time elapsed:    %s\n", result.EndTime.Sub(result.StartTime))

	switch {
	case result.ArchiveLocation != "":
		fmt.Fprintf(out, "Archive:         %s\n", result.ArchiveLocation)
	case result.ArchiveName != "":
		fmt.Fprintf(out, "Archive:         %s (dry run, not stored)\n", result.ArchiveName)
	default:
		fmt.Fprintln(out, "No files generated.")
	}
}
