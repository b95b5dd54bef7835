// =============================================================================
// ITBP Report Generator - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the generator:
//   - Settlement detail file discovery (.xlsx and .csv)
//   - Archive file naming
//   - Run summary generation
//
// Office lock files ("~$Detalle.xlsx") and hidden files are never picked up
// as input.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InputExtensions are the settlement detail formats the generator reads.
var InputExtensions = []string{".xlsx", ".xls", ".csv"}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the input files directly under dir.
//
// PARAMETERS:
//   - dir: The directory to scan (not recursive).
//   - extensions: The accepted extensions, case-insensitive.
//     If empty, InputExtensions is used.
//
// RETURNS:
//   - The matching file paths, sorted by name.
//   - An error if the directory cannot be read.
func DiscoverInputFiles(dir string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = InputExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if hasExtension(name, extensions) {
			result = append(result, filepath.Join(dir, name))
		}
	}

	sort.Strings(result)
	return result, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// =============================================================================
// ARCHIVE FILE NAMING
// =============================================================================

// GenerateArchiveName builds the report archive name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - now as YYYYMMDD_HHMMSS
//     {date}      - now as YYYYMMDD
//     {time}      - now as HHMMSS
//   - params: Extra placeholder values, e.g. {"run_id": "..."}.
//   - now: The reference time.
//
// RETURNS:
//   - The file name, always ending in .zip.
//
// EXAMPLE:
//
//	format: "Reportes_ITBP_{timestamp}.zip"
//	output: "Reportes_ITBP_20240318_101500.zip"
func GenerateArchiveName(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
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

	if !strings.HasSuffix(strings.ToLower(result), ".zip") {
		result += ".zip"
	}
	return result
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a generation run.
type RunSummary struct {
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	InputFiles   []string
	Transactions int
	Partitions   int
	Archive      string
	Generated    []string
	Skipped      []PartitionIssue
	Failed       []PartitionIssue
}

// PartitionIssue describes a partition that produced no reports.
type PartitionIssue struct {
	Country string
	Period  string
	Message string
}

// SummaryFileName names the summary written next to an archive.
func SummaryFileName(runID string, now time.Time) string {
	return fmt.Sprintf("resumen_%s_%s.txt", now.Format("20060102_150405"), shortID(runID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// WriteRunSummary writes a human-readable run summary.
//
// PARAMETERS:
//   - w: The destination.
//   - summary: The run summary.
//
// RETURNS:
//   - An error if writing fails.
func WriteRunSummary(w io.Writer, summary RunSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	fmt.Fprintf(writer, "ITBP Report Generator - Run Summary\n%s\n", rule)
	fmt.Fprintf(writer, "Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String())

	fmt.Fprintf(writer, "Statistics:\n"+
		"  Input Files:        %d\n"+
		"  Transactions:       %d\n"+
		"  Partitions:         %d\n"+
		"  Generated Files:    %d\n"+
		"  Skipped Partitions: %d\n"+
		"  Failed Partitions:  %d\n\n",
		len(summary.InputFiles),
		summary.Transactions,
		summary.Partitions,
		len(summary.Generated),
		len(summary.Skipped),
		len(summary.Failed))

	if summary.Archive != "" {
		fmt.Fprintf(writer, "Archive: %s\n\n", summary.Archive)
	}

	writeList(writer, "Input Files:\n", thin, summary.InputFiles)
	writeList(writer, "Generated Files:\n", thin, summary.Generated)
	writeIssues(writer, "Skipped Partitions:\n", thin, summary.Skipped)
	writeIssues(writer, "Failed Partitions:\n", thin, summary.Failed)

	writer.WriteString(rule + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}

func writeList(w *bufio.Writer, title, rule string, items []string) {
	if len(items) == 0 {
		return
	}
	w.WriteString(title + rule)
	for _, item := range items {
		fmt.Fprintf(w, "  %s\n", item)
	}
	w.WriteString("\n")
}

func writeIssues(w *bufio.Writer, title, rule string, issues []PartitionIssue) {
	if len(issues) == 0 {
		return
	}
	w.WriteString(title + rule)
	for _, issue := range issues {
		fmt.Fprintf(w, "  Country: %s\n", issue.Country)
		fmt.Fprintf(w, "  Period:  %s\n", issue.Period)
		fmt.Fprintf(w, "  Reason:  %s\n\n", issue.Message)
	}
}
