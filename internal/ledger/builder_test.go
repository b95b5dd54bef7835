package ledger

import (
	"bytes"
	"testing"
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/catalog"
	"github.com/ginjaninja78/itbp-report-generator/internal/partition"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// FIXTURES
// =============================================================================

func testCatalogs() *catalog.Catalogs {
	merchant := func(id, account string) catalog.Merchant {
		return catalog.Merchant{
			MerchantID:        id,
			Account:           account,
			PostingGroup:      "PG-" + id,
			VATRevenueType:    "RUC",
			VATRevenueNo:      "2055" + id,
			PayableMovement:   "Proveedor",
			Dim2:              "D2",
			Dim3:              "D3",
			Dim4:              "D4",
			RevenueMovement:   "Cuenta",
			RevenueAccount:    "7010",
			RevenueTaxAccount: "4011",
		}
	}

	return &catalog.Catalogs{
		Merchants: map[string]catalog.Merchant{
			"1001": merchant("1001", "RUC-1001"),
			"1002": merchant("1002", "RUC-1002"),
		},
		TxnDescriptions: map[string]string{
			"SALE":   "VENTA",
			"REFUND": "DEVOLUCION",
		},
		Processors: map[string]catalog.Processor{
			"PERU":            {Country: "Peru", Account: "PROC-PE", Movement: "Banco", VATType: "RUC", VATNumber: "2000"},
			"CHILE":           {Country: "Chile", Account: "PROC-CL", Movement: "Banco", VATType: "RUT", VATNumber: "3000"},
			"CHILE OPERADORA": {Country: "Chile Operadora", Account: "PROC-CLO", Movement: "Banco", VATType: "RUT", VATNumber: "3001"},
			"ECUADOR":         {Country: "Ecuador", Account: "PROC-EC", Movement: "Banco"},
		},
	}
}

var (
	created = time.Date(2024, 3, 13, 9, 30, 0, 0, time.UTC)
	paid    = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
)

func txn(merchant, txnType, currency, approved, commission, tax string) types.Transaction {
	return types.Transaction{
		MerchantID:     merchant,
		MerchantName:   "Tienda " + merchant,
		ProcessorName:  "Niubiz",
		PaymentMethod:  "card",
		Type:           txnType,
		CurrencyCode:   currency,
		CreatedDate:    created,
		PaymentDate:    paid,
		ApprovedAmount: approved,
		Commission:     commission,
		CommissionTax:  tax,
	}
}

func part(country string, txns ...types.Transaction) partition.Partition {
	for i := range txns {
		txns[i].Country = country
	}
	return partition.Partition{
		Country:      country,
		Period:       partition.OutputGroup(created),
		Transactions: txns,
	}
}

func col(name string) int {
	for i, c := range Columns {
		if c == name {
			return i
		}
	}
	panic("unknown column " + name)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestBuild_PeruUSD(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	p := part("Peru",
		txn("1001", "SALE", "USD", "100", "", ""),
		txn("1001", "SALE", "USD", "50", "0", "0"),
	)

	tables, err := b.Build(p)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "Procesado_Peru_20240313.xlsx", tables[0].Name)
	assert.Equal(t, "Revenue_Peru_20240313.xlsx", tables[1].Name)

	proc := tables[0].Table
	assert.Equal(t, Columns, proc.Columns)
	assert.Equal(t, []string{ColumnDebit, ColumnCredit}, proc.NumericColumns)
	require.Len(t, proc.Rows, 2)

	merchantRow := proc.Rows[0]
	assert.Equal(t, "Proveedor", merchantRow[col("Tipo mov.")])
	assert.Equal(t, "RUC-1001", merchantRow[col("Nº cuenta")])
	assert.Equal(t, "13/03/2024", merchantRow[col("Fecha registro")])
	assert.Equal(t, "W11-24", merchantRow[col("Nº documento")])
	assert.Equal(t, "VENTA Tienda 1001", merchantRow[col("Descripción")])
	assert.Equal(t, "", merchantRow[col(ColumnDebit)])
	assert.Equal(t, "150", merchantRow[col(ColumnCredit)])
	assert.Equal(t, "14/03/2024", merchantRow[col("Nº documento externo")])
	assert.Equal(t, "PG-1001", merchantRow[col("PostingGroup2")])
	assert.Equal(t, "D3", merchantRow[col("DIM 3")])
	assert.Equal(t, "", merchantRow[col("DIM 7")])
	assert.Equal(t, "USD", merchantRow[col("Cód. divisa")])

	counter := proc.Rows[1]
	assert.Equal(t, "Banco", counter[col("Tipo mov.")])
	assert.Equal(t, "PROC-PE", counter[col("Nº cuenta")])
	assert.Equal(t, "VENTA KUSHKI ACQUIRER PROCESSOR", counter[col("Descripción")])
	assert.Equal(t, "150", counter[col(ColumnDebit)])
	assert.Equal(t, "", counter[col(ColumnCredit)])
	assert.Equal(t, "169922", counter[col("Nº documento externo")])
	assert.Equal(t, "RUC", counter[col(ColumnVATType)])
	assert.Equal(t, "2000", counter[col(ColumnVATNumber)])
	assert.Equal(t, "USD", counter[col("Cód. divisa")])

	assert.Empty(t, tables[1].Table.Rows, "no commission means no revenue rows")
}

func TestBuild_PeruRevenue(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	tables, err := b.Build(part("Peru",
		txn("1001", "SALE", "PEN", "100", "2.5", "0.45"),
		txn("1001", "SALE", "PEN", "50", "1.0", "0.18"),
	))
	require.NoError(t, err)

	rev := tables[1].Table
	require.Len(t, rev.Rows, 2)

	revenue, tax := rev.Rows[0], rev.Rows[1]
	assert.Equal(t, "REVENUE Tienda 1001", revenue[col("Descripción")])
	assert.Equal(t, "7010", revenue[col("Nº cuenta")])
	assert.Equal(t, "3.5", revenue[col(ColumnCredit)])
	assert.Equal(t, "Compra", revenue[col("Tipo de registro gen.")])
	assert.Equal(t, "Cuenta", revenue[col("Tipo mov.")])
	assert.Equal(t, "Proveedor", revenue[col("Tipo contrapartida")])
	assert.Equal(t, "RUC-1001", revenue[col("Cta. Contrapartida")])
	assert.Equal(t, "RUC", revenue[col(ColumnVATType)])
	assert.Equal(t, "20551001", revenue[col(ColumnVATNumber)])
	assert.Equal(t, "", revenue[col("Cód. divisa")], "only USD is tagged")

	assert.Equal(t, "IVA REVENUE Tienda 1001", tax[col("Descripción")])
	assert.Equal(t, "4011", tax[col("Nº cuenta")])
	assert.Equal(t, "0.63", tax[col(ColumnCredit)])
}

func TestBuild_CountryNotMapped(t *testing.T) {
	var buf bytes.Buffer
	b := NewBuilder(testCatalogs(), zerolog.New(&buf))

	tables, err := b.Build(part("Bolivia", txn("1001", "SALE", "BOB", "10", "", "")))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCountryNotMapped)
	assert.Nil(t, tables)
	assert.Contains(t, err.Error(), "Bolivia")
	assert.Contains(t, buf.String(), "Bolivia")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestBuild_CountryLookupIgnoresCase(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	tables, err := b.Build(part("peru", txn("1001", "SALE", "USD", "10", "", "")))
	require.NoError(t, err)
	assert.Equal(t, "Procesado_peru_20240313.xlsx", tables[0].Name)
	assert.Equal(t, "USD", tables[0].Table.Rows[0][col("Cód. divisa")])
}

func TestBuild_UnmappedMerchantAndType(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	reports, err := b.Rows(part("Ecuador",
		txn("9999", "SALE", "USD", "500", "5", "1"),
		txn("1002", "CAPTURE", "USD", "20", "", ""),
	))
	require.NoError(t, err)

	require.Len(t, reports.Procesado, 2)
	assert.Equal(t, "RUC-1002", reports.Procesado[0].Account)
	assert.Equal(t, "Tienda 1002", reports.Procesado[0].Description)
	assert.Equal(t, "", reports.Procesado[0].Currency, "USD is only tagged for Peru")
	assert.Equal(t, "KUSHKI ACQUIRER PROCESSOR", reports.Procesado[1].Description)
	assert.Equal(t, "", reports.Procesado[1].ExternalDocument)
	assert.Empty(t, reports.Revenue)
}

func TestBuild_MalformedAmountsAreZero(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	reports, err := b.Rows(part("Peru",
		txn("1001", "SALE", "PEN", "abc", "1,5", ""),
		txn("1002", "SALE", "PEN", "12.30", "n/a", "0.2"),
	))
	require.NoError(t, err)

	require.Len(t, reports.Procesado, 2)
	assert.Equal(t, "RUC-1002", reports.Procesado[0].Account)
	assert.True(t, decimal.RequireFromString("12.3").Equal(reports.Procesado[0].Credit))

	require.Len(t, reports.Revenue, 1)
	assert.Equal(t, "IVA REVENUE Tienda 1002", reports.Revenue[0].Description)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func mixedPartition(country string) partition.Partition {
	return part(country,
		txn("1001", "SALE", "USD", "100", "2", "0.36"),
		txn("1001", "REFUND", "USD", "30", "0.6", "0.1"),
		txn("1001", "CHARGEBACK", "USD", "15", "", ""),
		txn("1002", "VOID", "USD", "7.5", "0.2", ""),
		txn("1002", "CAPTURE", "USD", "40", "0.8", "0.14"),
		txn("1002", "REVERSE", "PEN", "3", "", "0.05"),
		txn("1002", "SALE", "PEN", "0", "0", "0"),
	)
}

func TestBuild_RowsAreOneSided(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	for _, country := range []string{"Peru", "Chile", "Ecuador"} {
		tables, err := b.Build(mixedPartition(country))
		require.NoError(t, err)

		for _, table := range tables {
			for _, row := range table.Table.Rows {
				debit, credit := row[col(ColumnDebit)], row[col(ColumnCredit)]
				assert.True(t, (debit == "") != (credit == ""),
					"%s %s: debit=%q credit=%q", country, table.Name, debit, credit)
			}
		}
	}
}

func TestBuild_ReversingTypesPostToDebit(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	for _, txnType := range []string{"SALE", "CAPTURE", "REVERSE", "CHARGEBACK", "VOID", "REFUND"} {
		reports, err := b.Rows(part("Peru", txn("1001", txnType, "USD", "10", "1", "0.18")))
		require.NoError(t, err)

		merchantRows := append([]Row{reports.Procesado[0]}, reports.Revenue...)
		require.Len(t, merchantRows, 3)
		for _, r := range merchantRows {
			if IsReversing(txnType) {
				assert.False(t, r.Debit.IsZero(), "%s %s", txnType, r.Description)
				assert.True(t, r.Credit.IsZero(), "%s %s", txnType, r.Description)
			} else {
				assert.True(t, r.Debit.IsZero(), "%s %s", txnType, r.Description)
				assert.False(t, r.Credit.IsZero(), "%s %s", txnType, r.Description)
			}
		}
	}
}

func TestBuild_ChileMovesDim3ToDim7(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	for _, country := range []string{"Chile", "Chile Operadora", "Peru", "Ecuador"} {
		reports, err := b.Rows(mixedPartition(country))
		require.NoError(t, err)

		moved := country == "Chile" || country == "Chile Operadora"
		rows := append(append([]Row{}, reports.Procesado...), reports.Revenue...)
		for _, r := range rows {
			if r.Account == testCatalogs().Processors[catalog.CountryKey(country)].Account {
				continue
			}
			if moved {
				assert.Equal(t, "", r.Dims[2], country)
				assert.Equal(t, "D3", r.Dims[6], country)
			} else {
				assert.Equal(t, "D3", r.Dims[2], country)
				assert.Equal(t, "", r.Dims[6], country)
			}
		}
	}
}

func TestBuild_CounterpartyBalances(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	reports, err := b.Rows(mixedPartition("Peru"))
	require.NoError(t, err)

	type key struct{ date, doc, desc, currency string }
	merchantSide := map[key]decimal.Decimal{}
	processorSide := map[key]decimal.Decimal{}

	for _, r := range reports.Procesado {
		if r.Account == "PROC-PE" {
			desc := r.Description[:len(r.Description)-len(processorLabel)]
			k := key{r.RegisteredOn.String(), r.Document, desc, r.Currency}
			processorSide[k] = processorSide[k].Add(r.Credit).Sub(r.Debit)
			continue
		}
		desc := ""
		switch {
		case len(r.Description) > len("VENTA ") && r.Description[:6] == "VENTA ":
			desc = "VENTA "
		case len(r.Description) > len("DEVOLUCION ") && r.Description[:11] == "DEVOLUCION ":
			desc = "DEVOLUCION "
		}
		k := key{r.RegisteredOn.String(), r.Document, desc, r.Currency}
		merchantSide[k] = merchantSide[k].Add(r.Debit).Sub(r.Credit)
	}

	require.NotEmpty(t, processorSide)
	require.Equal(t, len(merchantSide), len(processorSide))
	for k, v := range merchantSide {
		assert.True(t, v.Equal(processorSide[k]), "%v: merchant %s processor %s", k, v, processorSide[k])
	}
}

func TestBuild_MixedCounterpartyGroupSplits(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	// Both types are unmapped, so they share a blank description.
	reports, err := b.Rows(part("Ecuador",
		txn("1002", "CAPTURE", "USD", "100", "", ""),
		txn("1002", "VOID", "USD", "30", "", ""),
	))
	require.NoError(t, err)

	require.Len(t, reports.Procesado, 4)
	counter := reports.Procesado[2:]
	assert.True(t, decimal.NewFromInt(100).Equal(counter[0].Debit))
	assert.True(t, counter[0].Credit.IsZero())
	assert.True(t, decimal.NewFromInt(30).Equal(counter[1].Credit))
	assert.True(t, counter[1].Debit.IsZero())
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewBuilder(testCatalogs(), zerolog.Nop())

	first, err := b.Build(mixedPartition("Peru"))
	require.NoError(t, err)

	p := mixedPartition("Peru")
	for i, j := 0, len(p.Transactions)-1; i < j; i, j = i+1, j-1 {
		p.Transactions[i], p.Transactions[j] = p.Transactions[j], p.Transactions[i]
	}
	second, err := b.Build(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestDocumentNumber(t *testing.T) {
	assert.Equal(t, "W11-24", DocumentNumber(created))
	assert.Equal(t, "W53-21", DocumentNumber(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "W01-24", DocumentNumber(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)))
}

func TestParseAmount(t *testing.T) {
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("abc").IsZero())
	assert.True(t, ParseAmount(" 12.50 ").Equal(decimal.RequireFromString("12.5")))
	assert.True(t, ParseAmount("1.5E-2").Equal(decimal.RequireFromString("0.015")))
	assert.True(t, ParseAmount("-3").Equal(decimal.NewFromInt(-3)))
}
