package catalog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ginjaninja78/itbp-report-generator/internal/storage"
	"github.com/ginjaninja78/itbp-report-generator/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var itbpHeader = []interface{}{
	"merchant_id", "RUC_Contable_ITBP", "PostingGroup2_proveedor",
	"VAT Registration Type KCP Revenue", "VAT Registration No.Revenue",
	"TipoMovimientoCXP", "DIM2", "DIM3", "DIM4",
	"TipoMovimientoIng", "CuentaIng", "CuentaIva",
}

// buildWorkbook writes the given sheets (name -> rows, header first) to
// XLSX bytes.
func buildWorkbook(t *testing.T, sheets map[string][][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func validSheets() map[string][][]interface{} {
	return map[string][][]interface{}{
		SheetITBP: {
			itbpHeader,
			{"1001", "RUC-1", "PG-A", "RUC", "2055", "Proveedor", "D2", "D3", "D4", "Cuenta", "7010", "4011"},
			{"1001", "RUC-dup", "", "", "", "", "", "", "", "", "", ""},
			{"1002", "RUC-2", "PG-B", "RUC", "2056", "Proveedor", "", "", "", "Cuenta", "7011", "4012"},
		},
		SheetTxnTypes: {
			{"transaction_type", "descripcion_txn"},
			{"SALE", "VENTA"},
			{"REFUND", "DEVOLUCION"},
		},
		SheetProcessors: {
			// Unaccented country header and NBSP-spelled VAT header.
			{"Pais", "Cuenta Contrapartida", "Tipo mov. Contrapartida", "VAT\u00a0Registration\u00a0Type\u00a0KCP", "VAT\u00a0Registration\u00a0No.\""},
			{"Peru", "PROC-PE", "Banco", "RUC", "2000"},
			{" peru ", "PROC-DUP", "", "", ""},
			{"Chile Operadora", "PROC-CL", "Banco", "RUT", "3000"},
		},
	}
}

func TestParse(t *testing.T) {
	data := buildWorkbook(t, validSheets())

	cat, err := Parse(data, "catalogo.xlsx", zerolog.Nop())
	require.NoError(t, err)

	assert.Len(t, cat.Merchants, 2)
	m, ok := cat.Merchant("1001")
	require.True(t, ok)
	assert.Equal(t, "RUC-1", m.Account, "first duplicate wins")
	assert.Equal(t, "7010", m.RevenueAccount)
	assert.Equal(t, "D3", m.Dim3)

	assert.Equal(t, "VENTA", cat.Description("SALE"))
	assert.Equal(t, "", cat.Description("VOID"))

	p, ok := cat.Processor("PERU")
	require.True(t, ok)
	assert.Equal(t, "PROC-PE", p.Account)
	assert.Equal(t, "RUC", p.VATType)
	assert.Equal(t, "2000", p.VATNumber)

	_, ok = cat.Processor("chile operadora")
	assert.True(t, ok)
	_, ok = cat.Processor("Bolivia")
	assert.False(t, ok)
}

func TestParse_DuplicateWarning(t *testing.T) {
	var buf bytes.Buffer
	_, err := Parse(buildWorkbook(t, validSheets()), "catalogo.xlsx", zerolog.New(&buf))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Duplicate merchant")
	assert.Contains(t, buf.String(), "Duplicate country")
}

func TestParse_MissingSheet(t *testing.T) {
	sheets := validSheets()
	delete(sheets, SheetProcessors)

	_, err := Parse(buildWorkbook(t, sheets), "catalogo.xlsx", zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSheet)
	assert.Contains(t, err.Error(), "Procesadora")
}

func TestParse_MissingColumn(t *testing.T) {
	sheets := validSheets()
	sheets[SheetTxnTypes] = [][]interface{}{{"transaction_type"}, {"SALE"}}

	_, err := Parse(buildWorkbook(t, sheets), "catalogo.xlsx", zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrMissingColumn)
	assert.Contains(t, err.Error(), "descripcion_txn")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("<html>login required</html>"), "https://example.test", zerolog.Nop())
	assert.Error(t, err)
}

func TestLoad_HTTP(t *testing.T) {
	data := buildWorkbook(t, validSheets())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	cat, err := Load(context.Background(), storage.New(), srv.URL, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, srv.URL, cat.Source)
	assert.Len(t, cat.Processors, 2)
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestLoad_FetchFailure(t *testing.T) {
	_, err := Load(context.Background(), failingFetcher{}, "https://sheets.example", zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSuggestCountry(t *testing.T) {
	cat := &Catalogs{Processors: map[string]Processor{
		"PERU":            {Country: "Peru"},
		"CHILE OPERADORA": {Country: "Chile Operadora"},
	}}

	assert.Equal(t, "Chile Operadora", cat.SuggestCountry("chile operador"))
	assert.Equal(t, "", (&Catalogs{}).SuggestCountry("Peru"))
}
