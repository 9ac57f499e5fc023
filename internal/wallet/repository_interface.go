package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	GetOrCreateAccount(ctx context.Context, userID int) (*Account, error)
	Apply(ctx context.Context, userID int, entry Entry) (decimal.Decimal, error)
	Transactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
}
