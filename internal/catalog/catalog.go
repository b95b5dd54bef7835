// =============================================================================
// ITBP Report Generator - Reference Catalogs
// =============================================================================
//
// This module loads the three reference catalogs the ledger builder joins
// against. They live in one workbook, usually a Google Sheets export:
//
//   | Sheet            | Key              | Used for                          |
//   |------------------|------------------|-----------------------------------|
//   | ITBP             | merchant_id      | accounts, dimensions, VAT fields  |
//   | Transaction Type | transaction_type | ledger description (descripcion)  |
//   | Procesadora      | País             | processor counterparty account    |
//
// The workbook is fetched once per run. Any fetch or parse failure is fatal:
// a partial catalog would silently drop ledger rows.
//
// =============================================================================

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/itbp-report-generator/internal/storage"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/ginjaninja78/itbp-report-generator/internal/validation"
	"github.com/ginjaninja78/itbp-report-generator/internal/xlsxparser"
	"github.com/rs/zerolog"
	"github.com/schollz/closestmatch"
)

// =============================================================================
// SHEET AND COLUMN NAMES
// =============================================================================

const (
	SheetITBP       = "ITBP"
	SheetTxnTypes   = "Transaction Type"
	SheetProcessors = "Procesadora"
)

// ITBP sheet columns.
const (
	ColumnMerchantID         = "merchant_id"
	ColumnAccount            = "RUC_Contable_ITBP"
	ColumnPostingGroup       = "PostingGroup2_proveedor"
	ColumnVATRevenueType     = "VAT Registration Type KCP Revenue"
	ColumnVATRevenueNo       = "VAT Registration No.Revenue"
	ColumnPayableMovement    = "TipoMovimientoCXP"
	ColumnDim2               = "DIM2"
	ColumnDim3               = "DIM3"
	ColumnDim4               = "DIM4"
	ColumnRevenueMovement    = "TipoMovimientoIng"
	ColumnRevenueAccount     = "CuentaIng"
	ColumnRevenueTaxAccount  = "CuentaIva"
	ColumnTxnType            = "transaction_type"
	ColumnTxnDescription     = "descripcion_txn"
	ColumnCountry            = "País"
	ColumnCountryUnaccented  = "Pais"
	ColumnCounterAccount     = "Cuenta Contrapartida"
	ColumnCounterMovement    = "Tipo mov. Contrapartida"
	ColumnProcessorVATType   = "VAT Registration Type KCP"
	ColumnProcessorVATNumber = `VAT Registration No."`
)

var (
	// ErrMissingSheet is wrapped when the workbook lacks a catalog sheet.
	ErrMissingSheet = errors.New("catalog sheet not found")

	// ErrFetch is wrapped when the catalog source cannot be retrieved.
	ErrFetch = errors.New("catalog fetch failed")
)

// =============================================================================
// CATALOG TYPES
// =============================================================================

// Merchant is one ITBP row: the ledger attributes of a merchant.
type Merchant struct {
	MerchantID        string
	Account           string
	PostingGroup      string
	VATRevenueType    string
	VATRevenueNo      string
	PayableMovement   string
	Dim2              string
	Dim3              string
	Dim4              string
	RevenueMovement   string
	RevenueAccount    string
	RevenueTaxAccount string
}

// Processor is one Procesadora row: the counterparty leg of a country.
type Processor struct {
	Country   string
	Account   string
	Movement  string
	VATType   string
	VATNumber string
}

// Catalogs holds the three reference tables, keyed for lookup.
type Catalogs struct {
	// Merchants is keyed by merchant id.
	Merchants map[string]Merchant

	// TxnDescriptions maps a transaction type to its descripcion_txn.
	TxnDescriptions map[string]string

	// Processors is keyed by upper-cased, trimmed country name.
	Processors map[string]Processor

	// Source is where the catalogs were loaded from.
	Source string
}

// Merchant looks up a merchant by id.
func (c *Catalogs) Merchant(id string) (Merchant, bool) {
	m, ok := c.Merchants[strings.TrimSpace(id)]
	return m, ok
}

// Description returns the ledger description of a transaction type, or ""
// when the type is not mapped.
func (c *Catalogs) Description(txnType string) string {
	return c.TxnDescriptions[strings.TrimSpace(txnType)]
}

// Processor looks up the processor leg of a country, ignoring case.
func (c *Catalogs) Processor(country string) (Processor, bool) {
	p, ok := c.Processors[CountryKey(country)]
	return p, ok
}

// SuggestCountry returns the catalog country whose name is closest to
// country, or "" when nothing is similar. Used to hint at typos when a
// lookup misses.
func (c *Catalogs) SuggestCountry(country string) string {
	if len(c.Processors) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.Processors))
	for key := range c.Processors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	match := closestmatch.New(keys, []int{2, 3}).Closest(CountryKey(country))
	if match == "" {
		return ""
	}
	return c.Processors[match].Country
}

// CountryKey is the case-insensitive lookup form of a country name.
func CountryKey(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

// =============================================================================
// LOADING
// =============================================================================

// Load fetches the catalog workbook and parses it.
//
// PARAMETERS:
//   - ctx: Bounds the fetch (timeouts, cancellation).
//   - fetcher: Retrieves the workbook bytes (HTTP, GCS or local file).
//   - source: The workbook location.
//   - log: Receives duplicate-key warnings.
//
// RETURNS:
//   - The parsed Catalogs.
//   - An error wrapping ErrFetch when the source cannot be retrieved, or a
//     parse error from Parse.
func Load(ctx context.Context, fetcher storage.Fetcher, source string, log zerolog.Logger) (*Catalogs, error) {
	data, err := fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return Parse(data, source, log)
}

// Parse builds Catalogs from raw workbook bytes.
func Parse(data []byte, source string, log zerolog.Logger) (*Catalogs, error) {
	sheets, err := xlsxparser.ParseNamedSheets(data, source, SheetITBP, SheetTxnTypes, SheetProcessors)
	if err != nil {
		var missing *xlsxparser.MissingSheetError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSheet, missing.Error())
		}
		return nil, fmt.Errorf("failed to parse catalog workbook: %w", err)
	}

	sheets[SheetProcessors].RenameColumn(ColumnCountryUnaccented, ColumnCountry)

	cat := &Catalogs{Source: source}

	if cat.Merchants, err = parseMerchants(sheets[SheetITBP], log); err != nil {
		return nil, err
	}
	if cat.TxnDescriptions, err = parseTxnTypes(sheets[SheetTxnTypes], log); err != nil {
		return nil, err
	}
	if cat.Processors, err = parseProcessors(sheets[SheetProcessors], log); err != nil {
		return nil, err
	}

	return cat, nil
}

// =============================================================================
// SHEET PARSERS
// =============================================================================

func parseMerchants(sheet *types.Sheet, log zerolog.Logger) (map[string]Merchant, error) {
	err := validation.RequireColumns(sheet,
		ColumnMerchantID, ColumnAccount, ColumnPostingGroup, ColumnVATRevenueType,
		ColumnVATRevenueNo, ColumnPayableMovement, ColumnDim2, ColumnDim3, ColumnDim4,
		ColumnRevenueMovement, ColumnRevenueAccount, ColumnRevenueTaxAccount)
	if err != nil {
		return nil, err
	}

	merchants := make(map[string]Merchant, len(sheet.Rows))
	for i, row := range sheet.Rows {
		id := strings.TrimSuffix(row[ColumnMerchantID], ".0")
		if id == "" {
			continue
		}
		if _, dup := merchants[id]; dup {
			log.Warn().Str("merchant_id", id).Int("row", sheet.RowNumber(i)).
				Msg("Duplicate merchant in ITBP catalog, keeping first entry")
			continue
		}
		merchants[id] = Merchant{
			MerchantID:        id,
			Account:           row[ColumnAccount],
			PostingGroup:      row[ColumnPostingGroup],
			VATRevenueType:    row[ColumnVATRevenueType],
			VATRevenueNo:      row[ColumnVATRevenueNo],
			PayableMovement:   row[ColumnPayableMovement],
			Dim2:              row[ColumnDim2],
			Dim3:              row[ColumnDim3],
			Dim4:              row[ColumnDim4],
			RevenueMovement:   row[ColumnRevenueMovement],
			RevenueAccount:    row[ColumnRevenueAccount],
			RevenueTaxAccount: row[ColumnRevenueTaxAccount],
		}
	}
	return merchants, nil
}

func parseTxnTypes(sheet *types.Sheet, log zerolog.Logger) (map[string]string, error) {
	if err := validation.RequireColumns(sheet, ColumnTxnType, ColumnTxnDescription); err != nil {
		return nil, err
	}

	descriptions := make(map[string]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		txnType := row[ColumnTxnType]
		if txnType == "" {
			continue
		}
		if _, dup := descriptions[txnType]; dup {
			log.Warn().Str("transaction_type", txnType).Int("row", sheet.RowNumber(i)).
				Msg("Duplicate transaction type in catalog, keeping first entry")
			continue
		}
		descriptions[txnType] = row[ColumnTxnDescription]
	}
	return descriptions, nil
}

func parseProcessors(sheet *types.Sheet, log zerolog.Logger) (map[string]Processor, error) {
	err := validation.RequireColumns(sheet,
		ColumnCountry, ColumnCounterAccount, ColumnCounterMovement,
		ColumnProcessorVATType, ColumnProcessorVATNumber)
	if err != nil {
		return nil, err
	}

	processors := make(map[string]Processor, len(sheet.Rows))
	for i, row := range sheet.Rows {
		key := CountryKey(row[ColumnCountry])
		if key == "" {
			continue
		}
		if _, dup := processors[key]; dup {
			log.Warn().Str("country", row[ColumnCountry]).Int("row", sheet.RowNumber(i)).
				Msg("Duplicate country in Procesadora catalog, keeping first entry")
			continue
		}
		processors[key] = Processor{
			Country:   row[ColumnCountry],
			Account:   row[ColumnCounterAccount],
			Movement:  row[ColumnCounterMovement],
			VATType:   row[ColumnProcessorVATType],
			VATNumber: row[ColumnProcessorVATNumber],
		}
	}
	return processors, nil
}
