package ledger

import (
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT SCHEMA
// =============================================================================

const (
	ColumnDebit  = "Importe debe"
	ColumnCredit = "Importe haber"

	// ColumnVATType and ColumnVATNumber are spelled with non-breaking spaces,
	// as the ERP import expects.
	ColumnVATType   = "VAT\u00a0Registration\u00a0Type\u00a0KCP"
	ColumnVATNumber = "VAT\u00a0Registration\u00a0No.\""
)

// Columns is the fixed header of both the Procesado and Revenue reports.
var Columns = []string{
	"Tipo mov.",
	"Nº cuenta",
	"Fecha registro",
	"Tipo documento",
	"Nº documento",
	"Descripción",
	"Importe",
	ColumnDebit,
	ColumnCredit,
	"Cód. términos pago",
	"Tipo de registro gen.",
	"Nº documento externo",
	"PostingGroup2",
	"Prepayment",
	"Tipo contrapartida",
	"Cta. Contrapartida",
	"DIM 1",
	"DIM 2",
	"DIM 3",
	"DIM 4",
	"DIM 5",
	"DIM 6",
	"DIM 7",
	"DIM 8",
	ColumnVATType,
	ColumnVATNumber,
	"Cód. divisa",
}

// dateLayout is the dd/mm/YYYY rendering of registration and payment dates.
const dateLayout = "02/01/2006"

// Row is one ledger posting.
type Row struct {
	Movement         string
	Account          string
	RegisteredOn     time.Time
	Document         string
	Description      string
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	GenerationType   string
	ExternalDocument string
	PostingGroup     string
	CounterType      string
	CounterAccount   string

	// Dims holds DIM 1 .. DIM 8.
	Dims [8]string

	VATType   string
	VATNumber string
	Currency  string
}

// IsZero reports whether the row posts nothing.
func (r Row) IsZero() bool {
	return r.Debit.IsZero() && r.Credit.IsZero()
}

// cells renders the row in Columns order. Zero amounts render blank.
func (r Row) cells() []string {
	cells := make([]string, 0, len(Columns))
	cells = append(cells,
		r.Movement,
		r.Account,
		r.RegisteredOn.Format(dateLayout),
		"",
		r.Document,
		r.Description,
		"",
		amountCell(r.Debit),
		amountCell(r.Credit),
		"",
		r.GenerationType,
		r.ExternalDocument,
		r.PostingGroup,
		"",
		r.CounterType,
		r.CounterAccount,
	)
	cells = append(cells, r.Dims[:]...)
	cells = append(cells, r.VATType, r.VATNumber, r.Currency)
	return cells
}

func amountCell(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// toTable lays rows out on the report schema.
func toTable(rows []Row) types.Table {
	table := types.Table{
		Columns:        append([]string(nil), Columns...),
		Rows:           make([][]string, 0, len(rows)),
		NumericColumns: []string{ColumnDebit, ColumnCredit},
	}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.cells())
	}
	return table
}
