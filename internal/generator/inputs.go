package generator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/itbp-report-generator/internal/config"
	"github.com/ginjaninja78/itbp-report-generator/internal/csvparser"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/ginjaninja78/itbp-report-generator/internal/validation"
	"github.com/ginjaninja78/itbp-report-generator/internal/xlsxparser"
)

// LoadTransactions reads and validates every detail file and concatenates
// their transactions in file order. No deduplication is performed.
//
// The first invalid file aborts the load; the error names the file.
func LoadTransactions(paths []string, csvSettings config.CSVSettings) ([]types.Transaction, error) {
	var all []types.Transaction
	for _, path := range paths {
		sheet, err := readSheet(path, csvSettings)
		if err != nil {
			return nil, err
		}

		txns, err := validation.ToTransactions(sheet)
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
	}
	return all, nil
}

func readSheet(path string, csvSettings config.CSVSettings) (*types.Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvparser.Parse(path, csvSettings)
	case ".xlsx", ".xlsm":
		return xlsxparser.ParseFile(path)
	case ".xls":
		return xlsxparser.ParseXLSFile(path)
	default:
		return nil, fmt.Errorf("unsupported input file %s: expected .xlsx, .xls or .csv", path)
	}
}
