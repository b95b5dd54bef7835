package ledger

import (
	"strings"

	"github.com/ginjaninja78/itbp-report-generator/internal/catalog"
	"github.com/ginjaninja78/itbp-report-generator/internal/partition"
)

// countryRule holds the per-country posting variations.
type countryRule struct {
	// dim3AsDim7 moves the merchant's DIM3 value to DIM 7.
	dim3AsDim7 bool

	// taggedCurrencies are stamped in "Cód. divisa"; other currencies
	// leave it blank.
	taggedCurrencies []string

	// generationType is stamped on revenue and tax rows.
	generationType string

	// counterDocument is the external document number of processor
	// counterparty rows.
	counterDocument string
}

// countryRules is keyed by catalog.CountryKey. Countries without an entry
// use the zero rule.
var countryRules = map[string]countryRule{
	"CHILE":           {dim3AsDim7: true},
	"CHILE OPERADORA": {dim3AsDim7: true},
	"PERU": {
		taggedCurrencies: []string{"USD"},
		generationType:   "Compra",
		counterDocument:  "169922",
	},
}

func ruleFor(country string) countryRule {
	return countryRules[catalog.CountryKey(country)]
}

// currencyTag returns the currency stamp for a row, or "".
func (r countryRule) currencyTag(currency string) string {
	for _, c := range r.taggedCurrencies {
		if currency == c {
			return currency
		}
	}
	return ""
}

// routeDims fills DIM 2, 3, 4 and 7 from the merchant dimensions.
func (r countryRule) routeDims(dim2, dim3, dim4 string) [8]string {
	var dims [8]string
	dims[1] = dim2
	dims[3] = dim4
	if r.dim3AsDim7 {
		dims[6] = dim3
	} else {
		dims[2] = dim3
	}
	return dims
}

// reversingTypes post to debit; every other type posts to credit.
var reversingTypes = map[string]bool{
	"REVERSE":    true,
	"CHARGEBACK": true,
	"VOID":       true,
	"REFUND":     true,
}

// IsReversing reports whether a transaction type posts to debit.
func IsReversing(txnType string) bool {
	return reversingTypes[txnType]
}

// processorLabel suffixes the description of counterparty rows.
var processorLabel = partition.AcquirerProcessor

func joinDescription(parts ...string) string {
	return strings.TrimSpace(strings.Join(parts, " "))
}
