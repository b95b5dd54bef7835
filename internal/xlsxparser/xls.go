package xlsxparser

import (
	"fmt"
	"path/filepath"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/shakinm/xlsReader/xls"
)

// ParseXLSFile reads the first sheet of a legacy BIFF (.xls) workbook.
// Older settlement exports still arrive in this format. The result has the
// same shape as ParseFile: row 1 is the header, empty rows are skipped.
func ParseXLSFile(path string) (*types.Sheet, error) {
	workbook, err := xls.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	if workbook.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	ws, err := workbook.GetSheet(0)
	if err != nil || ws == nil {
		return nil, fmt.Errorf("error parsing first sheet of %s: %v", path, err)
	}

	var rows [][]string
	for i := 0; i <= int(ws.GetNumberRows()); i++ {
		row, err := ws.GetRow(i)
		if err != nil || row == nil {
			rows = append(rows, nil)
			continue
		}

		var cells []string
		for _, col := range row.GetCols() {
			if col != nil {
				cells = append(cells, col.GetString())
			} else {
				cells = append(cells, "")
			}
		}
		rows = append(rows, cells)
	}

	sheet := buildSheet(filepath.Base(path), rows, DefaultSheetLayout())
	sheet.SourceFile = path
	return sheet, nil
}
