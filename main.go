// =============================================================================
// ITBP Report Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   itbp generate       - Build the Procesado and Revenue reports
//   itbp catalogs       - Fetch and validate the reference catalogs
//   itbp version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Readers, catalogs, ledger rules, writers, storage
//   - pkg/           : Shared file and run-summary utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/itbp-report-generator/cmd"
)

func main() {
	cmd.Execute()
}
