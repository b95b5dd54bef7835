package xlsxparser

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newWorkbook(t *testing.T) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"merchant_id", " País ", "VAT\u00a0Registration\u00a0Type\u00a0KCP", "approved_transaction_amount"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"1001", " Peru ", "RUC", 100.25}))
	// Row 3 left empty.
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"1002", "Chile"}))
	return f
}

func TestParseFile(t *testing.T) {
	f := newWorkbook(t)
	path := filepath.Join(t.TempDir(), "detalle.xlsx")
	require.NoError(t, f.SaveAs(path))

	sheet, err := ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", sheet.Name)
	assert.Equal(t, path, sheet.SourceFile)
	assert.Equal(t, []string{"merchant_id", "País", "VAT Registration Type KCP", "approved_transaction_amount"}, sheet.Headers)

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Peru", sheet.Rows[0]["País"])
	assert.Equal(t, "RUC", sheet.Rows[0]["VAT Registration Type KCP"])
	assert.Equal(t, "100.25", sheet.Rows[0]["approved_transaction_amount"])

	// Short rows are padded with blanks.
	assert.Equal(t, "", sheet.Rows[1]["approved_transaction_amount"])
	assert.Equal(t, []int{2, 4}, sheet.RowNumbers)
	assert.Equal(t, 4, sheet.RowNumber(1))
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.xlsx")
}

func TestParseFile_HeaderOnly(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"merchant_id", "country"}))

	path := filepath.Join(t.TempDir(), "upload.xlsx")
	require.NoError(t, f.SaveAs(path))

	sheet, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, sheet.SourceFile)
	assert.Equal(t, []string{"merchant_id", "country"}, sheet.Headers)
	assert.Empty(t, sheet.Rows)
}

func TestParseNamedSheets_Invalid(t *testing.T) {
	_, err := ParseNamedSheets([]byte("not a workbook"), "broken.xlsx", "ITBP")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.xlsx")
}

func TestParseNamedSheets(t *testing.T) {
	f := newWorkbook(t)
	_, err := f.NewSheet("Procesadora")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Procesadora", "A1", &[]interface{}{"Pais", "Cuenta Contrapartida"}))
	require.NoError(t, f.SetSheetRow("Procesadora", "A2", &[]interface{}{"Peru", "PROC-PE"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	sheets, err := ParseNamedSheets(buf.Bytes(), "catalogo.xlsx", "Sheet1", "Procesadora")
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	proc := sheets["Procesadora"]
	assert.Equal(t, "catalogo.xlsx", proc.SourceFile)
	require.Len(t, proc.Rows, 1)
	assert.Equal(t, "PROC-PE", proc.Rows[0]["Cuenta Contrapartida"])

	_, err = ParseNamedSheets(buf.Bytes(), "catalogo.xlsx", "ITBP")
	var missing *MissingSheetError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ITBP", missing.Sheet)
	assert.Contains(t, err.Error(), "catalogo.xlsx")
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"merchant_id", "merchant_id"},
		{"  country\t", "country"},
		{"Pai\u0301s", "Pa\u00eds"},
		{"VAT\u00a0Registration\u00a0No.\"", "VAT Registration No.\""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.in), tt.in)
	}
}

func TestBuildSheet(t *testing.T) {
	rows := [][]string{
		{"merchant_id", "", "country", "", ""},
		{"1001", "x", "Peru", "", ""},
		{"", "", "", "", ""},
		nil,
		{"1002"},
	}

	sheet := buildSheet("detalle.xls", rows, DefaultSheetLayout())

	assert.Equal(t, "detalle.xls", sheet.Name)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, map[string]string{"merchant_id": "1001", "country": "Peru"}, sheet.Rows[0])
	assert.Equal(t, map[string]string{"merchant_id": "1002", "country": ""}, sheet.Rows[1])
	assert.Equal(t, []int{2, 5}, sheet.RowNumbers)
	assert.True(t, sheet.HasColumn("country"))
}

func TestBuildSheet_NoRows(t *testing.T) {
	sheet := buildSheet("empty", nil, DefaultSheetLayout())
	assert.Empty(t, sheet.Headers)
	assert.Empty(t, sheet.Rows)
}

func TestParseXLSFile_Missing(t *testing.T) {
	_, err := ParseXLSFile(filepath.Join(t.TempDir(), "viejo.xls"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "viejo.xls")
}
