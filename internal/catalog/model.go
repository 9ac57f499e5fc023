package catalog

import "github.com/shopspring/decimal"

// PriceEntry describes one agent in the marketplace. Entries are build-time
// configuration; there is no lifecycle.
type PriceEntry struct {
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	Features      []string        `json:"features"`
	EstimatedTime string          `json:"estimated_time"`
	PriceDisplay  string          `json:"price_display"`
}

// Tiers partitions the catalog by price band.
type Tiers struct {
	Low    []PriceEntry `json:"low"`
	Medium []PriceEntry `json:"medium"`
	High   []PriceEntry `json:"high"`
}
