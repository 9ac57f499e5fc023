package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeTopUp      = "topup"
	TypeAgentUsage = "agent_usage"
	TypeRefund     = "refund"
)

// MaxBalance is the application-wide wallet ceiling in AED.
var MaxBalance = decimal.NewFromInt(1000)

// Account holds the authoritative balance for one user. Created lazily at
// zero the first time a user touches the wallet.
type Account struct {
	ID        int             `db:"id" json:"id"`
	UserID    int             `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Currency  string          `db:"currency" json:"currency"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is one append-only audit row. balance_after records the
// authoritative balance at the moment the entry was applied.
type Transaction struct {
	ID                int             `db:"id" json:"id"`
	AccountID         int             `db:"account_id" json:"account_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Type              string          `db:"type" json:"type"`
	Description       string          `db:"description" json:"description"`
	AgentSlug         *string         `db:"agent_slug" json:"agent_slug,omitempty"`
	CheckoutSessionID *string         `db:"checkout_session_id" json:"checkout_session_id,omitempty"`
	IdempotencyKey    *string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	BalanceAfter      decimal.Decimal `db:"balance_after" json:"balance_after"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// Entry is one logical debit or credit to apply. A non-nil IdempotencyKey
// makes replays return the originally recorded balance instead of applying
// twice.
type Entry struct {
	Amount            decimal.Decimal
	Type              string
	Description       string
	AgentSlug         *string
	CheckoutSessionID *string
	IdempotencyKey    *string
}

// BalanceStatus classifies a balance for display.
type BalanceStatus struct {
	Status  string `json:"status"`
	Color   string `json:"color"`
	Message string `json:"message"`
}

// ValidationResult reports whether a balance value is acceptable.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

type WalletResponse struct {
	Balance        decimal.Decimal `json:"balance"`
	BalanceDisplay string          `json:"balance_display"`
	Currency       string          `json:"currency"`
	Status         BalanceStatus   `json:"status"`
	UsesRemaining  int             `json:"uses_remaining"`
	Recommendation *Package        `json:"recommended_package,omitempty"`
}
