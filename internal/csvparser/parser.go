// =============================================================================
// ITBP Report Generator - CSV Parser Module
// =============================================================================
//
// This module parses settlement detail files that were exported as CSV
// instead of XLSX. It produces the same header-keyed Sheet as the XLSX
// parser, so the rest of the pipeline does not care about the file format.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, tab)
//   - UTF-8, ISO-8859-1 and Windows-1252 input (Latin American exports)
//   - UTF-8 byte order mark stripped from the first header
//   - Ragged rows tolerated (missing trailing cells become blank)
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/itbp-report-generator/internal/config"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/ginjaninja78/itbp-report-generator/internal/xlsxparser"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the main configuration.
//
// RETURNS:
//   - A pointer to the Sheet containing the parsed data.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*types.Sheet, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sheet, err := ParseReader(file, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	sheet.Name = filepath.Base(filePath)
	sheet.SourceFile = filePath

	return sheet, nil
}

// ParseReader parses CSV content from a reader.
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Sheet, error) {
	decoded := decodeReader(bufio.NewReader(r), settings.Encoding)

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers := cleanHeaders(allRows[0])
	sheet := &types.Sheet{
		Headers: headers,
		Rows:    []map[string]string{},
	}

	for i := 1; i < len(allRows); i++ {
		row := allRows[i]
		if isRowEmpty(row) {
			continue
		}

		record := make(map[string]string, len(headers))
		for j, header := range headers {
			if header == "" {
				continue
			}
			if j < len(row) {
				record[header] = strings.TrimSpace(row[j])
			} else {
				record[header] = ""
			}
		}
		sheet.Rows = append(sheet.Rows, record)
		sheet.RowNumbers = append(sheet.RowNumbers, i+1)
	}

	return sheet, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	if settings.Delimiter != "" {
		reader.Comma = []rune(settings.Delimiter)[0]
	}

	// Allow a variable number of fields per record.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// decodeReader wraps the reader with a decoder for non-UTF-8 encodings.
func decodeReader(r io.Reader, encoding string) io.Reader {
	switch strings.ToUpper(encoding) {
	case "ISO-8859-1", "LATIN1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return r
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders strips the byte order mark and normalizes header spelling.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cleaned[i] = xlsxparser.NormalizeHeader(h)
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
