// =============================================================================
// ITBP Report Generator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xlsxparser / csvparser (produce Sheets)
//   - validation (checks Sheets, builds Transactions)
//   - partition, ledger, generator (consume Transactions)
//   - xlsxwriter, packager (consume NamedTables)
//
// =============================================================================

package types

import "time"

// =============================================================================
// TABULAR TYPES
// =============================================================================

// Sheet is a header-keyed view of one worksheet or CSV file.
type Sheet struct {
	// Name is the worksheet name, or the file name for CSV input.
	Name string

	// SourceFile is the path or URI the sheet was read from.
	// Used in error messages so the offending file can be located.
	SourceFile string

	// Headers contains the column headers in file order.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// RowNumbers holds the 1-based file row of each entry in Rows.
	RowNumbers []int
}

// RowNumber returns the file row of Rows[i], or i+2 when unknown.
func (s *Sheet) RowNumber(i int) int {
	if i < len(s.RowNumbers) {
		return s.RowNumbers[i]
	}
	return i + 2
}

// HasColumn reports whether the sheet carries the given header.
func (s *Sheet) HasColumn(name string) bool {
	for _, h := range s.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// RenameColumn renames a header and the matching key in every row.
// It is a no-op when the old header is absent or the new one already exists.
func (s *Sheet) RenameColumn(oldName, newName string) {
	if !s.HasColumn(oldName) || s.HasColumn(newName) {
		return
	}
	for i, h := range s.Headers {
		if h == oldName {
			s.Headers[i] = newName
		}
	}
	for _, row := range s.Rows {
		if v, ok := row[oldName]; ok {
			row[newName] = v
			delete(row, oldName)
		}
	}
}

// Table is an ordered, fixed-schema report ready to be written as a sheet.
type Table struct {
	// Columns is the header row, in output order.
	Columns []string

	// Rows holds one string cell per column.
	Rows [][]string

	// NumericColumns lists the columns whose non-blank cells are written
	// as numbers instead of text.
	NumericColumns []string
}

// NamedTable pairs an output file name with its report.
type NamedTable struct {
	Name  string
	Table Table
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// Transaction is one settled payment event from a settlement detail file.
// Amount fields are kept as raw cell text; the ledger builder coerces them.
type Transaction struct {
	MerchantID    string
	MerchantName  string
	Country       string
	ProcessorName string
	PaymentMethod string
	Type          string
	CurrencyCode  string

	// CreatedDate is the transaction creation date (createddate).
	CreatedDate time.Time

	// PaymentDate is the settlement payment date (fecha_pago).
	// The zero value means the cell was blank or unparseable.
	PaymentDate time.Time

	ApprovedAmount string
	Commission     string
	CommissionTax  string

	// SourceFile and SourceRow locate the record for error reporting.
	SourceFile string
	SourceRow  int
}
