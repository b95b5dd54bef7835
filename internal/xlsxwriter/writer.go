// =============================================================================
// ITBP Report Generator - XLSX Report Writer
// =============================================================================
//
// This module serializes a report Table into a single-sheet XLSX workbook:
//
//   Row 1:  the column header (bold)
//   Row 2+: one row per ledger posting
//
// Cells of the table's numeric columns are written as numbers so the ERP
// import and spreadsheet sums see amounts, not text. Blank cells stay empty.
//
// =============================================================================

package xlsxwriter

import (
	"fmt"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single report sheet.
const SheetName = "Sheet1"

// Write renders a table as XLSX bytes.
//
// PARAMETERS:
//   - table: The report to write. Rows shorter than the header are padded.
//
// RETURNS:
//   - The workbook bytes.
//   - An error if a numeric cell cannot be parsed or the workbook cannot be
//     written.
func Write(table types.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	numeric := make(map[int]bool, len(table.NumericColumns))
	for _, name := range table.NumericColumns {
		for i, c := range table.Columns {
			if c == name {
				numeric[i] = true
			}
		}
	}

	for r, row := range table.Rows {
		values := make([]interface{}, len(table.Columns))
		for i := range table.Columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			values[i], err = cellValue(cell, numeric[i])
			if err != nil {
				return nil, fmt.Errorf("row %d column '%s': %w", r+2, table.Columns[i], err)
			}
		}

		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(addr, values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// maxFloatDigits is the number of significant digits a float64 cell holds
// exactly.
const maxFloatDigits = 15

// cellValue converts a table cell to the value written to the sheet.
// Amounts are written as numbers; an amount with more significant digits
// than a float64 holds is written as text so no digit is lost.
func cellValue(cell string, numeric bool) (interface{}, error) {
	if cell == "" {
		return nil, nil
	}
	if !numeric {
		return cell, nil
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", cell, err)
	}
	if d.NumDigits() > maxFloatDigits {
		return d.String(), nil
	}
	return d.InexactFloat64(), nil
}
