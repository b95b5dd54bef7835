// =============================================================================
// ITBP Report Generator - Ledger Row Builder
// =============================================================================
//
// This module turns one (country, output group) partition of settlement
// transactions into the two ledger exports imported by the ERP:
//
//   Procesado_<Country>_<YYYYMMDD>.xlsx
//     Accounts-payable postings per merchant, plus the processor
//     counterparty postings that balance them.
//
//   Revenue_<Country>_<YYYYMMDD>.xlsx
//     Commission revenue and commission tax (IVA) postings per merchant.
//
// POSTING RULES:
//   - Reversing types (REVERSE, CHARGEBACK, VOID, REFUND) post to debit,
//     every other type posts to credit.
//   - Rows that post nothing are dropped; zero amounts render blank.
//   - Document numbers are weekly: W<ISO week>-<yy> of the creation date.
//   - Country variations (dimension routing, currency tag, generation type,
//     counterparty document) live in countryRules.
//
// The builder holds no state between partitions.
//
// =============================================================================

package ledger

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/itbp-report-generator/internal/catalog"
	"github.com/ginjaninja78/itbp-report-generator/internal/partition"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/rs/zerolog"
)

// Report kinds, used as file name prefixes.
const (
	KindProcesado = "Procesado"
	KindRevenue   = "Revenue"
)

// ErrCountryNotMapped is returned when the partition's country has no entry
// in the Procesadora catalog. The partition should be skipped.
var ErrCountryNotMapped = errors.New("country not found in processor catalog")

// =============================================================================
// BUILDER
// =============================================================================

// Builder builds ledger reports against a fixed set of catalogs.
type Builder struct {
	catalogs *catalog.Catalogs
	log      zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cat *catalog.Catalogs, log zerolog.Logger) *Builder {
	return &Builder{
		catalogs: cat,
		log:      log,
	}
}

// Reports holds the posting rows of one partition before they are laid out
// as tables.
type Reports struct {
	Procesado []Row
	Revenue   []Row
}

// Build produces the Procesado and Revenue reports of a partition.
//
// PARAMETERS:
//   - p: Transactions sharing one country and output group.
//
// RETURNS:
//   - Two named tables: Procesado first, then Revenue.
//   - An error wrapping ErrCountryNotMapped when the country has no
//     processor accounts. A warning naming the country is logged.
func (b *Builder) Build(p partition.Partition) ([]types.NamedTable, error) {
	reports, err := b.Rows(p)
	if err != nil {
		return nil, err
	}

	return []types.NamedTable{
		{Name: FileName(KindProcesado, p), Table: toTable(reports.Procesado)},
		{Name: FileName(KindRevenue, p), Table: toTable(reports.Revenue)},
	}, nil
}

// Rows runs the posting pipeline of a partition and returns the rows of
// both reports.
func (b *Builder) Rows(p partition.Partition) (Reports, error) {
	proc, ok := b.catalogs.Processor(p.Country)
	if !ok {
		event := b.log.Warn().
			Str("country", p.Country).
			Str("period", p.PeriodKey())
		if suggestion := b.catalogs.SuggestCountry(p.Country); suggestion != "" {
			event = event.Str("did_you_mean", suggestion)
		}
		event.Msgf("No processor accounts found for '%s', skipping partition", p.Country)
		return Reports{}, fmt.Errorf("%w: '%s' (period %s)", ErrCountryNotMapped, p.Country, p.PeriodKey())
	}

	rule := ruleFor(p.Country)

	entries := describe(aggregate(enrich(p.Transactions, b.catalogs)), b.catalogs)
	if dropped := len(p.Transactions) - countJoined(p.Transactions, b.catalogs); dropped > 0 {
		b.log.Debug().
			Str("country", p.Country).
			Str("period", p.PeriodKey()).
			Int("dropped", dropped).
			Msg("Transactions without ITBP merchant mapping excluded")
	}

	procesado := payableRows(entries, rule)
	procesado = append(procesado, counterpartyRows(entries, rule, proc)...)

	return Reports{
		Procesado: procesado,
		Revenue:   revenueRows(entries, rule),
	}, nil
}

// FileName names a report file: <Kind>_<Country>_<YYYYMMDD>.xlsx.
func FileName(kind string, p partition.Partition) string {
	return fmt.Sprintf("%s_%s_%s.xlsx", kind, p.Country, p.PeriodKey())
}

func countJoined(txns []types.Transaction, cat *catalog.Catalogs) int {
	n := 0
	for _, tx := range txns {
		if _, ok := cat.Merchant(tx.MerchantID); ok {
			n++
		}
	}
	return n
}
