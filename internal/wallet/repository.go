package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceCeiling      = errors.New("balance would exceed the wallet ceiling")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const accountColumns = `id, user_id, balance, currency, created_at, updated_at`

func (r *repository) GetOrCreateAccount(ctx context.Context, userID int) (*Account, error) {
	a := &Account{}
	err := r.db.GetContext(ctx, a,
		`SELECT `+accountColumns+` FROM wallet_accounts WHERE user_id = $1`, userID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallet_accounts (user_id)
		 VALUES ($1)
		 RETURNING `+accountColumns,
		userID,
	).StructScan(a)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// Apply performs one debit or credit as a single transaction: lock the
// account row, replay-check the idempotency key, enforce the floor and
// ceiling, update the balance, append the audit row. The returned balance is
// authoritative; callers must never compute their own.
func (r *repository) Apply(ctx context.Context, userID int, entry Entry) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	var a Account
	err = tx.QueryRowxContext(ctx,
		`SELECT `+accountColumns+`
		 FROM wallet_accounts
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&a)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, err
		}
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO wallet_accounts (user_id)
			 VALUES ($1)
			 RETURNING `+accountColumns,
			userID,
		).StructScan(&a)
		if err != nil {
			return decimal.Zero, err
		}
	}

	// The replay check has to happen under the row lock. A concurrent
	// application of the same key commits while we wait on FOR UPDATE, so a
	// check before the lock would miss it and the audit insert would trip the
	// unique index instead of replaying.
	if entry.IdempotencyKey != nil {
		var recorded decimal.Decimal
		err = tx.GetContext(ctx, &recorded,
			`SELECT balance_after FROM wallet_transactions WHERE idempotency_key = $1`,
			*entry.IdempotencyKey)
		if err == nil {
			// Already applied; the first application's balance stands.
			return recorded, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, err
		}
	}

	newBalance := a.Balance.Add(entry.Amount)
	if newBalance.IsNegative() {
		return decimal.Zero, ErrInsufficientBalance
	}
	if newBalance.GreaterThan(MaxBalance) {
		return decimal.Zero, ErrBalanceCeiling
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE wallet_accounts
		 SET balance = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, a.ID,
	)
	if err != nil {
		return decimal.Zero, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (account_id, amount, type, description, agent_slug, checkout_session_id, idempotency_key, balance_after)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, entry.Amount, entry.Type, entry.Description,
		entry.AgentSlug, entry.CheckoutSessionID, entry.IdempotencyKey, newBalance,
	)
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

func (r *repository) Transactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var accountID int
	err := r.db.GetContext(ctx, &accountID,
		`SELECT id FROM wallet_accounts WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, account_id, amount, type, description, agent_slug, checkout_session_id, idempotency_key, balance_after, created_at
		FROM wallet_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}
