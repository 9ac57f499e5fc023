package catalog

import (
	"sort"

	"github.com/shopspring/decimal"
)

const Currency = "AED"

// Price band cutoffs in AED.
var (
	tierLowMax    = decimal.NewFromInt(3)
	tierMediumMax = decimal.NewFromInt(6)
)

var entries = []PriceEntry{
	newEntry("weather-reporter", "Weather Reporter", 3, "data",
		[]string{"Current conditions lookup", "Natural-language report"}, "~30 seconds"),
	newEntry("doc-summarizer", "Document Summarizer", 4, "documents",
		[]string{"PDF and URL input", "Multi-language output"}, "~1 minute"),
	newEntry("job-post-writer", "Job Post Writer", 5, "writing",
		[]string{"Structured job description", "Tone matching"}, "~1 minute"),
	newEntry("data-analyzer", "Data Analyzer", 8, "data",
		[]string{"CSV upload", "Trend analysis", "Chart-ready output"}, "~2 minutes"),
	newEntry("incident-analyst", "Incident Analyst", 10, "engineering",
		[]string{"Multi-turn diagnosis", "Root-cause report", "Chat turns are free"}, "interactive"),
}

func newEntry(slug, name string, price int64, category string, features []string, estimated string) PriceEntry {
	p := decimal.NewFromInt(price)
	return PriceEntry{
		Slug:          slug,
		Name:          name,
		Price:         p,
		Currency:      Currency,
		Category:      category,
		Features:      features,
		EstimatedTime: estimated,
		PriceDisplay:  FormatPrice(p, Currency),
	}
}

// GetPrice looks up an entry by slug.
func GetPrice(slug string) (*PriceEntry, bool) {
	for i := range entries {
		if entries[i].Slug == slug {
			e := entries[i]
			return &e, true
		}
	}
	return nil, false
}

// ListAll returns every entry sorted ascending by price.
func ListAll() []PriceEntry {
	out := make([]PriceEntry, len(entries))
	copy(out, entries)
	sortByPrice(out)
	return out
}

// ListByCategory returns matching entries sorted ascending by price.
// Unknown categories yield an empty slice.
func ListByCategory(category string) []PriceEntry {
	out := []PriceEntry{}
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	sortByPrice(out)
	return out
}

// SumPrices totals the prices for the given slugs; unknown slugs contribute
// zero.
func SumPrices(slugs []string) decimal.Decimal {
	sum := decimal.Zero
	for _, slug := range slugs {
		if e, ok := GetPrice(slug); ok {
			sum = sum.Add(e.Price)
		}
	}
	return sum
}

// FormatPrice renders an amount as "X.XX CUR".
func FormatPrice(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}

// Tierize partitions the catalog at the fixed price cutoffs.
func Tierize() Tiers {
	var t Tiers
	for _, e := range ListAll() {
		switch {
		case e.Price.LessThanOrEqual(tierLowMax):
			t.Low = append(t.Low, e)
		case e.Price.LessThanOrEqual(tierMediumMax):
			t.Medium = append(t.Medium, e)
		default:
			t.High = append(t.High, e)
		}
	}
	return t
}

// CheapestPrice returns the lowest catalog price, used for balance status
// estimates.
func CheapestPrice() decimal.Decimal {
	all := ListAll()
	if len(all) == 0 {
		return decimal.Zero
	}
	return all[0].Price
}

func sortByPrice(list []PriceEntry) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Price.LessThan(list[j].Price)
	})
}
