package payment

import (
	"context"
	"errors"

	"agentsouk/internal/apperr"
	"agentsouk/internal/logger"
	"agentsouk/internal/metrics"
	"agentsouk/internal/user"
	"agentsouk/internal/wallet"

	"github.com/shopspring/decimal"
)

var ErrUnknownPackage = errors.New("unknown wallet package")

type Notifier interface {
	SendTopUpReceipt(ctx context.Context, email, name, packageLabel, amountDisplay, balanceDisplay string) error
}

// TopUpIntent points the client at the processor's hosted checkout page.
type TopUpIntent struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// ConfirmResult reports the outcome of a verify or webhook confirmation.
// Credited is false when the session was not paid or was already applied.
type ConfirmResult struct {
	SessionID      string           `json:"session_id"`
	Paid           bool             `json:"paid"`
	Credited       decimal.Decimal  `json:"credited"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
	BalanceDisplay string           `json:"balance_display,omitempty"`
}

type Service interface {
	StartTopUp(ctx context.Context, userID int, packageID string) (*TopUpIntent, error)
	Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error)
}

type service struct {
	processor  Processor
	walletRepo wallet.Repository
	userRepo   user.Repository
	notifier   Notifier
	returnURL  string
}

func NewService(processor Processor, walletRepo wallet.Repository, userRepo user.Repository, notifier Notifier, returnURL string) Service {
	return &service{
		processor:  processor,
		walletRepo: walletRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		returnURL:  returnURL,
	}
}

// StartTopUp creates a hosted checkout session for a catalog package. The
// wallet ceiling is enforced up front so users are not sent to pay for a
// credit that would be rejected.
func (s *service) StartTopUp(ctx context.Context, userID int, packageID string) (*TopUpIntent, error) {
	pkg, ok := wallet.GetPackage(packageID)
	if !ok {
		return nil, ErrUnknownPackage
	}

	account, err := s.walletRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load wallet", err)
	}

	total := pkg.Amount.Add(pkg.Bonus)
	if v := wallet.ValidateBalance(account.Balance.Add(total)); !v.IsValid {
		return nil, apperr.New(apperr.KindValidation, v.Error)
	}

	session, err := s.processor.CreateCheckoutSession(ctx, CheckoutParams{
		PackageID:  packageID,
		UserID:     userID,
		Amount:     pkg.Amount,
		Currency:   "AED",
		SuccessURL: s.returnURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.returnURL + "?cancelled=1",
	})
	if err != nil {
		metrics.RecordCheckoutSession("failed")
		return nil, err
	}

	metrics.RecordCheckoutSession("created")
	return &TopUpIntent{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// Confirm verifies a session with the processor and credits the wallet. The
// session ID doubles as the idempotency key, so the redirect and the webhook
// can both confirm the same session and only one credit lands.
func (s *service) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	status, err := s.processor.VerifySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if status.PaymentStatus != PaymentStatusPaid {
		return &ConfirmResult{SessionID: sessionID, Paid: false}, nil
	}

	pkg, ok := wallet.GetPackage(status.PackageID)
	if !ok {
		return nil, ErrUnknownPackage
	}

	total := pkg.Amount.Add(pkg.Bonus)
	balance, err := s.walletRepo.Apply(ctx, status.UserID, wallet.Entry{
		Amount:            total,
		Type:              wallet.TypeTopUp,
		Description:       "Wallet top-up: " + pkg.Label,
		CheckoutSessionID: &sessionID,
		IdempotencyKey:    &sessionID,
	})
	if err != nil {
		if errors.Is(err, wallet.ErrBalanceCeiling) {
			return nil, apperr.Wrap(apperr.KindValidation, "credit would exceed the wallet ceiling", err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to credit wallet", err)
	}

	metrics.RecordWalletTopUp()
	metrics.RecordCheckoutSession("completed")

	if s.notifier != nil {
		u, err := s.userRepo.FindByID(ctx, status.UserID)
		if err == nil && u != nil {
			if err := s.notifier.SendTopUpReceipt(ctx, u.Email, u.Name, pkg.Label,
				wallet.FormatBalance(total), wallet.FormatBalance(balance)); err != nil {
				logger.Error("failed to queue top-up receipt", "session_id", sessionID, "error", err)
			}
		}
	}

	return &ConfirmResult{
		SessionID:      sessionID,
		Paid:           true,
		Credited:       total,
		Balance:        &balance,
		BalanceDisplay: wallet.FormatBalance(balance),
	}, nil
}
