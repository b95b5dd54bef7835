// =============================================================================
// ITBP Report Generator - XLSX Sheet Parser
// =============================================================================
//
// This module is responsible for reading XLSX workbooks into header-keyed
// Sheets. It is used for two kinds of input:
//   - Settlement detail files ("Detalle_liquidación"): first sheet only
//   - The catalog workbook: named sheets (ITBP, Transaction Type, Procesadora)
//   - Legacy .xls detail exports (xls.go)
//
// SHEET STRUCTURE (Expected Layout):
//   Row 1 holds the column headers, data starts on row 2.
//
//   | merchant_id | merchant_name | country | processor_name | createddate | ...
//   |-------------|---------------|---------|----------------|-------------|
//   | 1000001     | Tienda Uno    | Peru    | Niubiz         | 2024-01-10  |
//
// HEADER NORMALIZATION:
//   Headers are NFC-normalized, non-breaking spaces are folded into plain
//   spaces and surrounding whitespace is trimmed. Catalog exports mix
//   NBSP-separated VAT headers with the plain-space spelling.
//
// CELL VALUES:
//   Cells are read raw (no number formatting applied) so amounts keep their
//   full precision and dates arrive either as text or as Excel serials.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// LAYOUT CONFIGURATION
// =============================================================================

// SheetLayout defines where the header row and the data rows live.
// Row indices are 0-based.
type SheetLayout struct {
	// HeaderRow is the row containing the column headers.
	// Default: 0 (Row 1)
	HeaderRow int

	// DataStartRow is the first data row.
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultSheetLayout returns the default layout.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		HeaderRow:    0, // Row 1
		DataStartRow: 1, // Row 2
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads the first sheet of an XLSX file.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//
// RETURNS:
//   - The parsed Sheet, with SourceFile set to path.
//   - An error if the file cannot be opened or has no sheets.
func ParseFile(path string) (*types.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	return parseFirstSheet(f, path)
}

// ParseNamedSheets reads the requested sheets from an in-memory workbook.
//
// PARAMETERS:
//   - data: The raw XLSX bytes.
//   - source: A label for error messages (URL, path or object name).
//   - names: The sheet names to read.
//
// RETURNS:
//   - A map of Sheets keyed by the requested name.
//   - A *MissingSheetError when a requested sheet does not exist.
//   - An error if the workbook cannot be opened or read.
func ParseNamedSheets(data []byte, source string, names ...string) (map[string]*types.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	sheets := make(map[string]*types.Sheet, len(names))
	for _, name := range names {
		if !present[name] {
			return nil, &MissingSheetError{Source: source, Sheet: name}
		}

		sheet, err := parseSheet(f, name, DefaultSheetLayout())
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s' of %s: %w", name, source, err)
		}
		sheet.SourceFile = source
		sheets[name] = sheet
	}

	return sheets, nil
}

// MissingSheetError reports a workbook lacking a required sheet.
type MissingSheetError struct {
	Source string
	Sheet  string
}

func (e *MissingSheetError) Error() string {
	return fmt.Sprintf("workbook %s has no sheet named '%s'", e.Source, e.Sheet)
}

// parseFirstSheet reads the first sheet of an open workbook.
func parseFirstSheet(f *excelize.File, source string) (*types.Sheet, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", source)
	}

	sheet, err := parseSheet(f, sheetName, DefaultSheetLayout())
	if err != nil {
		return nil, fmt.Errorf("error parsing sheet '%s' of %s: %w", sheetName, source, err)
	}
	sheet.SourceFile = source

	return sheet, nil
}

// parseSheet reads one sheet into a header-keyed Sheet.
func parseSheet(f *excelize.File, sheetName string, layout SheetLayout) (*types.Sheet, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return buildSheet(sheetName, rows, layout), nil
}

// buildSheet turns raw rows into a header-keyed Sheet.
func buildSheet(sheetName string, rows [][]string, layout SheetLayout) *types.Sheet {
	sheet := &types.Sheet{
		Name: sheetName,
		Rows: []map[string]string{},
	}

	if len(rows) <= layout.HeaderRow {
		return sheet
	}

	headers := make([]string, len(rows[layout.HeaderRow]))
	for i, h := range rows[layout.HeaderRow] {
		headers[i] = NormalizeHeader(h)
	}
	sheet.Headers = headers

	for i := layout.DataStartRow; i < len(rows); i++ {
		row := rows[i]

		// Skip empty rows.
		if len(row) == 0 || isRowEmpty(row) {
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

	return sheet
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NormalizeHeader folds header spelling variants into one canonical form.
func NormalizeHeader(h string) string {
	h = norm.NFC.String(h)
	h = strings.ReplaceAll(h, "\u00a0", " ")
	return strings.TrimSpace(h)
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
