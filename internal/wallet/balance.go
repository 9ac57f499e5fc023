package wallet

import "github.com/shopspring/decimal"

// Status cutoffs in AED.
var (
	lowBalanceMax    = decimal.NewFromInt(5)
	mediumBalanceMax = decimal.NewFromInt(20)
)

// HasSufficientBalance reports whether balance covers required. The boundary
// is inclusive: an exact match is sufficient.
func HasSufficientBalance(balance, required decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(required)
}

// FormatBalance renders a balance as "X.XX AED".
func FormatBalance(balance decimal.Decimal) string {
	return balance.StringFixed(2) + " AED"
}

// ClassifyStatus buckets a balance at the fixed cutoffs: below 5 is low,
// below 20 is medium, anything else is high.
func ClassifyStatus(balance decimal.Decimal) BalanceStatus {
	switch {
	case balance.LessThan(lowBalanceMax):
		return BalanceStatus{
			Status:  "low",
			Color:   "red",
			Message: "Your balance is running low. Top up to keep using agents.",
		}
	case balance.LessThan(mediumBalanceMax):
		return BalanceStatus{
			Status:  "medium",
			Color:   "orange",
			Message: "You have a few uses left.",
		}
	default:
		return BalanceStatus{
			Status:  "high",
			Color:   "green",
			Message: "You're all set.",
		}
	}
}

// UsageCount returns how many uses of an agent the balance covers.
func UsageCount(balance, unitPrice decimal.Decimal) int {
	if !unitPrice.IsPositive() || balance.IsNegative() {
		return 0
	}
	return int(balance.Div(unitPrice).IntPart())
}

// RecommendTopUp picks a package for the given balance and unit price:
// below one use, the smallest package covering three uses (or the first
// package when none does); below two uses, the popular package; otherwise
// no recommendation.
func RecommendTopUp(balance, unitPrice decimal.Decimal) *Package {
	if !unitPrice.IsPositive() {
		return nil
	}

	if balance.LessThan(unitPrice) {
		target := unitPrice.Mul(decimal.NewFromInt(3))
		for i := range packages {
			if packages[i].Amount.GreaterThanOrEqual(target) {
				p := packages[i]
				return &p
			}
		}
		p := packages[0]
		return &p
	}

	if balance.LessThan(unitPrice.Mul(decimal.NewFromInt(2))) {
		return PopularPackage()
	}

	return nil
}

// ValidateBalance rejects negative values and values above the ceiling.
func ValidateBalance(balance decimal.Decimal) ValidationResult {
	if balance.IsNegative() {
		return ValidationResult{IsValid: false, Error: "balance cannot be negative"}
	}
	if balance.GreaterThan(MaxBalance) {
		return ValidationResult{IsValid: false, Error: "balance cannot exceed " + FormatBalance(MaxBalance)}
	}
	return ValidationResult{IsValid: true}
}
