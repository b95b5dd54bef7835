package ledger

import (
	"cmp"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/catalog"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PIPELINE STAGES
// =============================================================================
//
// Each stage takes and returns a slice of entries and never mutates its
// input:
//
//   enrich -> aggregate -> describe -> payableRows / revenueRows
//                                           |
//                                           v
//                                    counterpartyRows
//
// =============================================================================

// entry is a transaction joined with its merchant's ledger attributes.
type entry struct {
	key groupKey

	Approved      decimal.Decimal
	Commission    decimal.Decimal
	CommissionTax decimal.Decimal

	// Description is the descripcion_txn of the transaction type.
	Description string
}

// groupKey holds every attribute entries are aggregated by. Merchant is
// determined by MerchantID, so ordering ignores it.
type groupKey struct {
	PaymentDate   time.Time
	CreatedDate   time.Time
	MerchantID    string
	MerchantName  string
	Currency      string
	PaymentMethod string
	TxnType       string
	Processor     string
	Merchant      catalog.Merchant
}

func (a groupKey) compare(b groupKey) int {
	return cmp.Or(
		a.PaymentDate.Compare(b.PaymentDate),
		a.CreatedDate.Compare(b.CreatedDate),
		cmp.Compare(a.MerchantID, b.MerchantID),
		cmp.Compare(a.MerchantName, b.MerchantName),
		cmp.Compare(a.Currency, b.Currency),
		cmp.Compare(a.PaymentMethod, b.PaymentMethod),
		cmp.Compare(a.TxnType, b.TxnType),
		cmp.Compare(a.Processor, b.Processor),
	)
}

// enrich inner-joins transactions to the ITBP catalog and coerces amounts.
// Transactions of unmapped merchants are dropped.
func enrich(txns []types.Transaction, cat *catalog.Catalogs) []entry {
	entries := make([]entry, 0, len(txns))
	for _, tx := range txns {
		merchant, ok := cat.Merchant(tx.MerchantID)
		if !ok {
			continue
		}
		entries = append(entries, entry{
			key: groupKey{
				PaymentDate:   truncateDay(tx.PaymentDate),
				CreatedDate:   truncateDay(tx.CreatedDate),
				MerchantID:    merchant.MerchantID,
				MerchantName:  strings.TrimSpace(tx.MerchantName),
				Currency:      strings.TrimSpace(tx.CurrencyCode),
				PaymentMethod: strings.ToUpper(strings.TrimSpace(tx.PaymentMethod)),
				TxnType:       strings.TrimSpace(tx.Type),
				Processor:     strings.TrimSpace(tx.ProcessorName),
				Merchant:      merchant,
			},
			Approved:      ParseAmount(tx.ApprovedAmount),
			Commission:    ParseAmount(tx.Commission),
			CommissionTax: ParseAmount(tx.CommissionTax),
		})
	}
	return entries
}

// aggregate sums the amounts of entries sharing a groupKey. The result is
// ordered by key.
func aggregate(entries []entry) []entry {
	index := make(map[groupKey]int, len(entries))
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		i, ok := index[e.key]
		if !ok {
			index[e.key] = len(out)
			out = append(out, e)
			continue
		}
		out[i].Approved = out[i].Approved.Add(e.Approved)
		out[i].Commission = out[i].Commission.Add(e.Commission)
		out[i].CommissionTax = out[i].CommissionTax.Add(e.CommissionTax)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].key.compare(out[j].key) < 0
	})
	return out
}

// describe left-joins entries to the transaction type catalog. Unmapped
// types keep a blank description.
func describe(entries []entry, cat *catalog.Catalogs) []entry {
	out := make([]entry, len(entries))
	for i, e := range entries {
		e.Description = cat.Description(e.key.TxnType)
		out[i] = e
	}
	return out
}

// =============================================================================
// ROW BUILDERS
// =============================================================================

// payableRows builds the merchant-side Procesado rows, zero rows dropped.
func payableRows(entries []entry, rule countryRule) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		m := e.key.Merchant
		debit, credit := split(e.key.TxnType, e.Approved)
		row := Row{
			Movement:         m.PayableMovement,
			Account:          m.Account,
			RegisteredOn:     e.key.CreatedDate,
			Document:         DocumentNumber(e.key.CreatedDate),
			Description:      joinDescription(e.Description, e.key.MerchantName),
			Debit:            debit,
			Credit:           credit,
			ExternalDocument: formatDate(e.key.PaymentDate),
			PostingGroup:     m.PostingGroup,
			Dims:             rule.routeDims(m.Dim2, m.Dim3, m.Dim4),
			Currency:         rule.currencyTag(e.key.Currency),
		}
		if row.IsZero() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// counterKey groups Procesado rows into one processor posting.
type counterKey struct {
	RegisteredOn time.Time
	Document     string
	Description  string
	Currency     string
}

// counterpartyRows mirrors the merchant-side postings against the
// processor's control account. Amounts are summed per counterKey and
// swapped: merchant credits become a processor debit and the reverse. A
// group holding both debits and credits yields two rows so that every row
// stays one-sided.
func counterpartyRows(entries []entry, rule countryRule, proc catalog.Processor) []Row {
	type totals struct {
		debit, credit decimal.Decimal
	}

	sums := make(map[counterKey]*totals)
	var keys []counterKey
	for _, e := range entries {
		debit, credit := split(e.key.TxnType, e.Approved)
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		k := counterKey{
			RegisteredOn: e.key.CreatedDate,
			Document:     DocumentNumber(e.key.CreatedDate),
			Description:  e.Description,
			Currency:     rule.currencyTag(e.key.Currency),
		}
		t, ok := sums[k]
		if !ok {
			t = &totals{}
			sums[k] = t
			keys = append(keys, k)
		}
		t.debit = t.debit.Add(debit)
		t.credit = t.credit.Add(credit)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		return cmp.Or(
			a.RegisteredOn.Compare(b.RegisteredOn),
			cmp.Compare(a.Document, b.Document),
			cmp.Compare(a.Description, b.Description),
			cmp.Compare(a.Currency, b.Currency),
		) < 0
	})

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		t := sums[k]
		base := Row{
			Movement:         proc.Movement,
			Account:          proc.Account,
			RegisteredOn:     k.RegisteredOn,
			Document:         k.Document,
			Description:      joinDescription(k.Description, processorLabel),
			ExternalDocument: rule.counterDocument,
			VATType:          proc.VATType,
			VATNumber:        proc.VATNumber,
			Currency:         k.Currency,
		}
		if !t.credit.IsZero() {
			r := base
			r.Debit = t.credit
			rows = append(rows, r)
		}
		if !t.debit.IsZero() {
			r := base
			r.Credit = t.debit
			rows = append(rows, r)
		}
	}
	return rows
}

// revenueRows builds the commission (REVENUE) rows followed by the
// commission tax (IVA REVENUE) rows, zero rows dropped.
func revenueRows(entries []entry, rule countryRule) []Row {
	build := func(e entry, prefix, account string, amount decimal.Decimal) Row {
		m := e.key.Merchant
		debit, credit := split(e.key.TxnType, amount)
		return Row{
			Movement:         m.RevenueMovement,
			Account:          account,
			RegisteredOn:     e.key.CreatedDate,
			Document:         DocumentNumber(e.key.CreatedDate),
			Description:      joinDescription(prefix, e.key.MerchantName),
			Debit:            debit,
			Credit:           credit,
			GenerationType:   rule.generationType,
			ExternalDocument: formatDate(e.key.PaymentDate),
			PostingGroup:     m.PostingGroup,
			CounterType:      m.PayableMovement,
			CounterAccount:   m.Account,
			Dims:             rule.routeDims(m.Dim2, m.Dim3, m.Dim4),
			VATType:          m.VATRevenueType,
			VATNumber:        m.VATRevenueNo,
			Currency:         rule.currencyTag(e.key.Currency),
		}
	}

	rows := make([]Row, 0, 2*len(entries))
	for _, e := range entries {
		if r := build(e, "REVENUE", e.key.Merchant.RevenueAccount, e.Commission); !r.IsZero() {
			rows = append(rows, r)
		}
	}
	for _, e := range entries {
		if r := build(e, "IVA REVENUE", e.key.Merchant.RevenueTaxAccount, e.CommissionTax); !r.IsZero() {
			rows = append(rows, r)
		}
	}
	return rows
}

// =============================================================================
// HELPERS
// =============================================================================

// split places an amount on the debit side for reversing types and on the
// credit side otherwise.
func split(txnType string, amount decimal.Decimal) (debit, credit decimal.Decimal) {
	if IsReversing(txnType) {
		return amount, decimal.Zero
	}
	return decimal.Zero, amount
}

// ParseAmount coerces a raw amount cell. Blank or unparseable cells are zero.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DocumentNumber is the weekly accounting document of a creation date:
// W<ISO week>-<two-digit year>.
func DocumentNumber(created time.Time) string {
	_, week := created.ISOWeek()
	return fmt.Sprintf("W%02d-%s", week, created.Format("06"))
}

// formatDate renders a date as dd/mm/YYYY, or "" for the zero date.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
