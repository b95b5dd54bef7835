// =============================================================================
// ITBP Report Generator - Input Validation
// =============================================================================
//
// This module validates settlement detail sheets and converts them into
// Transactions. It runs before any partition is processed, so every error
// returned here aborts the run.
//
// VALIDATION RULES:
//   1. The sheet must carry a "country" column
//   2. Every row must have a parseable "createddate"
//   3. "fecha_pago" is coerced: unparseable values become the zero date
//   4. Amount cells are passed through untouched (the ledger builder coerces)
//
// ERROR HANDLING:
//   Each error names the file, and where relevant the column, row and value,
//   so the offending cell can be located in the workbook.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// DETAIL FILE COLUMNS
// =============================================================================

const (
	ColumnMerchantID     = "merchant_id"
	ColumnMerchantName   = "merchant_name"
	ColumnCountry        = "country"
	ColumnProcessorName  = "processor_name"
	ColumnPaymentMethod  = "payment_method"
	ColumnTxnType        = "transaction_type"
	ColumnCurrencyCode   = "currency_code"
	ColumnCreatedDate    = "createddate"
	ColumnPaymentDate    = "fecha_pago"
	ColumnApprovedAmount = "approved_transaction_amount"
	ColumnCommission     = "kushki_commission"
	ColumnCommissionTax  = "iva_kushki_commission"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

var (
	// ErrMissingColumn is wrapped by errors for absent required columns.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidDate is wrapped by errors for unparseable required dates.
	ErrInvalidDate = errors.New("invalid date")
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	// File is the path or URI of the offending file.
	File string

	// Sheet is the worksheet name (blank for CSV input).
	Sheet string

	// Column is the header involved.
	Column string

	// Row is the 1-based file row, or 0 when the error concerns the file.
	Row int

	// Value is the offending cell value.
	Value string

	// Err is the sentinel describing the failure.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.File)
	if e.Sheet != "" {
		fmt.Fprintf(&b, " [%s]", e.Sheet)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	fmt.Fprintf(&b, ": %v '%s'", e.Err, e.Column)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// VALIDATION FUNCTIONS
// =============================================================================

// RequireColumns checks that every named column is present in the sheet.
// The first missing column is reported.
func RequireColumns(sheet *types.Sheet, columns ...string) error {
	for _, column := range columns {
		if !sheet.HasColumn(column) {
			return &ValidationError{
				File:   sheet.SourceFile,
				Sheet:  sheet.Name,
				Column: column,
				Err:    ErrMissingColumn,
			}
		}
	}
	return nil
}

// ToTransactions validates a detail sheet and converts its rows.
//
// PARAMETERS:
//   - sheet: A settlement detail sheet (XLSX first sheet or CSV file).
//
// RETURNS:
//   - The transactions in sheet order.
//   - A *ValidationError when the country column is absent or a
//     creation date cannot be parsed.
func ToTransactions(sheet *types.Sheet) ([]types.Transaction, error) {
	if err := RequireColumns(sheet, ColumnCountry); err != nil {
		return nil, err
	}

	txns := make([]types.Transaction, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		created, err := ParseDate(row[ColumnCreatedDate])
		if err != nil {
			return nil, &ValidationError{
				File:   sheet.SourceFile,
				Sheet:  sheet.Name,
				Column: ColumnCreatedDate,
				Row:    sheet.RowNumber(i),
				Value:  row[ColumnCreatedDate],
				Err:    ErrInvalidDate,
			}
		}

		// Payment dates are coerced: a bad cell only blanks the
		// external document number.
		paid, _ := ParseDate(row[ColumnPaymentDate])

		txns = append(txns, types.Transaction{
			MerchantID:     normalizeID(row[ColumnMerchantID]),
			MerchantName:   row[ColumnMerchantName],
			Country:        row[ColumnCountry],
			ProcessorName:  row[ColumnProcessorName],
			PaymentMethod:  row[ColumnPaymentMethod],
			Type:           row[ColumnTxnType],
			CurrencyCode:   row[ColumnCurrencyCode],
			CreatedDate:    created,
			PaymentDate:    paid,
			ApprovedAmount: row[ColumnApprovedAmount],
			Commission:     row[ColumnCommission],
			CommissionTax:  row[ColumnCommissionTax],
			SourceFile:     sheet.SourceFile,
			SourceRow:      sheet.RowNumber(i),
		})
	}

	return txns, nil
}

// =============================================================================
// DATE PARSING
// =============================================================================

// dateLayouts lists the accepted text layouts, most specific first.
// Day-first layouts are used for slashed dates (Latin American exports).
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02-01-2006",
}

// ParseDate parses a cell holding a date as text or as an Excel serial.
// The wall-clock date and time written in the cell are kept and returned in
// UTC; a zone offset in the text never moves the calendar day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid excel serial %q: %w", value, err)
		}
		return t, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// normalizeID drops the ".0" suffix spreadsheets add to integer ids.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimSuffix(id, ".0")
}
