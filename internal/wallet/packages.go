package wallet

import "github.com/shopspring/decimal"

// Package is one fixed top-up offer. Price equals the face amount; the bonus
// is credited on top. Exactly one package is flagged popular and at most one
// carries a bonus.
type Package struct {
	ID      string          `json:"id"`
	Amount  decimal.Decimal `json:"amount"`
	Bonus   decimal.Decimal `json:"bonus"`
	Label   string          `json:"label"`
	Popular bool            `json:"popular"`
}

var packages = []Package{
	{ID: "wallet_10", Amount: decimal.NewFromInt(10), Bonus: decimal.Zero, Label: "Starter"},
	{ID: "wallet_25", Amount: decimal.NewFromInt(25), Bonus: decimal.Zero, Label: "Regular"},
	{ID: "wallet_50", Amount: decimal.NewFromInt(50), Bonus: decimal.Zero, Label: "Power", Popular: true},
	{ID: "wallet_100", Amount: decimal.NewFromInt(100), Bonus: decimal.NewFromInt(10), Label: "Pro"},
}

// GetPackage looks up a package by id.
func GetPackage(id string) (*Package, bool) {
	for i := range packages {
		if packages[i].ID == id {
			p := packages[i]
			return &p, true
		}
	}
	return nil, false
}

// TotalAmount returns amount plus bonus, zero for unknown packages.
func TotalAmount(id string) decimal.Decimal {
	p, ok := GetPackage(id)
	if !ok {
		return decimal.Zero
	}
	return p.Amount.Add(p.Bonus)
}

// ListPackages returns the full catalog.
func ListPackages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

// PopularPackage returns the package flagged popular.
func PopularPackage() *Package {
	for i := range packages {
		if packages[i].Popular {
			p := packages[i]
			return &p
		}
	}
	return nil
}
