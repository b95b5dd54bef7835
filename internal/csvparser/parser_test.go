package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/itbp-report-generator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseReader_UTF8(t *testing.T) {
	input := "\ufeffmerchant_id,country,merchant_name\n" +
		"1001,Peru,Tienda Uno\n" +
		",,\n" +
		"1002,Chile\n"

	sheet, err := ParseReader(strings.NewReader(input), config.CSVSettings{Delimiter: ","})
	require.NoError(t, err)

	assert.Equal(t, []string{"merchant_id", "country", "merchant_name"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Tienda Uno", sheet.Rows[0]["merchant_name"])
	assert.Equal(t, "", sheet.Rows[1]["merchant_name"])
	assert.Equal(t, 2, sheet.RowNumber(0))
	assert.Equal(t, 4, sheet.RowNumber(1))
}

func TestParseReader_Latin1Semicolon(t *testing.T) {
	utf8Body := "país;merchant_name\nPerú;Panadería\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().String(utf8Body)
	require.NoError(t, err)

	sheet, err := ParseReader(strings.NewReader(latin1), config.CSVSettings{Delimiter: ";", Encoding: "ISO-8859-1"})
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "Perú", sheet.Rows[0]["país"])
	assert.Equal(t, "Panadería", sheet.Rows[0]["merchant_name"])
}

func TestParseReader_Empty(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), config.CSVSettings{Delimiter: ","})
	assert.Error(t, err)
}

func TestParse_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detalle.csv")
	require.NoError(t, os.WriteFile(path, []byte("country\nPeru\n"), 0644))

	sheet, err := Parse(path, config.CSVSettings{Delimiter: ","})
	require.NoError(t, err)
	assert.Equal(t, "detalle.csv", sheet.Name)
	assert.Equal(t, path, sheet.SourceFile)
	assert.True(t, sheet.HasColumn("country"))
}
