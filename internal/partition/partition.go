// Package partition applies the pre-partition corrections to a settlement
// dataset and splits it into (country, output group) batches.
package partition

import (
	"strings"
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/types"
)

const (
	// AcquirerProcessor is the canonical processor label of the in-house
	// acquirer. Compared after trimming and upper-casing.
	AcquirerProcessor = "KUSHKI ACQUIRER PROCESSOR"

	// ReservedMerchantID is only valid for acquirer-processed transactions.
	ReservedMerchantID = "20000000107065050000"

	countryChile          = "CHILE"
	countryChileOperadora = "Chile Operadora"
)

// Partition is one batch of transactions sharing a country and output group.
type Partition struct {
	Country      string
	Period       time.Time
	Transactions []types.Transaction
}

// PeriodKey renders the period as YYYYMMDD.
func (p Partition) PeriodKey() string {
	return p.Period.Format("20060102")
}

// OutputGroup returns the reporting date of a transaction created at t.
// Friday, Saturday and Sunday roll forward to Sunday; other days map to
// themselves. The time of day is dropped.
func OutputGroup(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	// Monday=0 .. Sunday=6
	weekday := (int(day.Weekday()) + 6) % 7
	if weekday >= 4 {
		return day.AddDate(0, 0, 6-weekday)
	}
	return day
}

// IsAcquirer reports whether a processor name is the acquirer label.
func IsAcquirer(processor string) bool {
	return strings.ToUpper(strings.TrimSpace(processor)) == AcquirerProcessor
}

// Correct returns a corrected copy of txns:
//   - records for ReservedMerchantID are dropped unless acquirer-processed
//   - Chile records processed by the acquirer become "Chile Operadora"
//
// The input slice is not modified.
func Correct(txns []types.Transaction) []types.Transaction {
	out := make([]types.Transaction, 0, len(txns))
	for _, tx := range txns {
		acquirer := IsAcquirer(tx.ProcessorName)

		if strings.TrimSpace(tx.MerchantID) == ReservedMerchantID && !acquirer {
			continue
		}
		if acquirer && strings.ToUpper(strings.TrimSpace(tx.Country)) == countryChile {
			tx.Country = countryChileOperadora
		}
		out = append(out, tx)
	}
	return out
}

// Split groups txns by country and output group. Partitions are returned in
// the order their country, then their period, first appears in txns.
func Split(txns []types.Transaction) []Partition {
	type key struct {
		country string
		period  time.Time
	}

	index := make(map[key]int)
	countryOrder := []string{}
	byCountry := make(map[string][]int)
	var parts []Partition

	for _, tx := range txns {
		k := key{country: tx.Country, period: OutputGroup(tx.CreatedDate)}
		i, ok := index[k]
		if !ok {
			i = len(parts)
			index[k] = i
			parts = append(parts, Partition{Country: k.country, Period: k.period})
			if _, seen := byCountry[k.country]; !seen {
				countryOrder = append(countryOrder, k.country)
			}
			byCountry[k.country] = append(byCountry[k.country], i)
		}
		parts[i].Transactions = append(parts[i].Transactions, tx)
	}

	ordered := make([]Partition, 0, len(parts))
	for _, country := range countryOrder {
		for _, i := range byCountry[country] {
			ordered = append(ordered, parts[i])
		}
	}
	return ordered
}
