package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentsouk/internal/apperr"
	"agentsouk/internal/catalog"
	"agentsouk/internal/logger"
	"agentsouk/internal/metrics"
	"agentsouk/internal/user"
	"agentsouk/internal/wallet"
	"agentsouk/internal/weather"
	"agentsouk/internal/webhook"

	"github.com/google/uuid"
)

var ErrUnknownAgent = errors.New("unknown agent")

type Notifier interface {
	SendLowBalanceAlert(ctx context.Context, email, name, balanceDisplay string) error
}

type Service interface {
	Run(ctx context.Context, userID int, slug string, req RunRequest) (*RunResponse, error)
	Chat(ctx context.Context, userID int, req ChatRequest) (*ChatResponse, error)
	Report(ctx context.Context, userID int, sessionID string) (*RunResponse, error)
	Transcript(ctx context.Context, userID int, sessionID string) ([]Turn, error)
	History(ctx context.Context, userID, limit, offset int) ([]Run, error)
}

type service struct {
	runRepo     RunRepository
	walletRepo  wallet.Repository
	userRepo    user.Repository
	webhooks    *webhook.Client
	weather     *weather.Client
	transcripts *TranscriptStore
	notifier    Notifier
}

func NewService(
	runRepo RunRepository,
	walletRepo wallet.Repository,
	userRepo user.Repository,
	webhooks *webhook.Client,
	weatherClient *weather.Client,
	transcripts *TranscriptStore,
	notifier Notifier,
) Service {
	return &service{
		runRepo:     runRepo,
		walletRepo:  walletRepo,
		userRepo:    userRepo,
		webhooks:    webhooks,
		weather:     weatherClient,
		transcripts: transcripts,
		notifier:    notifier,
	}
}

// Run executes one paid agent invocation: validate the input, check the
// balance, make exactly one webhook call, then debit. A failed debit does
// not withhold output the user already paid compute for; it is surfaced in
// the response and the run is recorded as debit_failed.
func (s *service) Run(ctx context.Context, userID int, slug string, req RunRequest) (*RunResponse, error) {
	def, ok := GetDefinition(slug)
	if !ok {
		return nil, ErrUnknownAgent
	}
	entry, ok := catalog.GetPrice(slug)
	if !ok {
		return nil, ErrUnknownAgent
	}

	if err := def.Validate(req); err != nil {
		return nil, err
	}

	account, err := s.walletRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load wallet", err)
	}
	if !wallet.HasSufficientBalance(account.Balance, entry.Price) {
		return nil, apperr.New(apperr.KindInsufficient,
			fmt.Sprintf("balance %s does not cover %s", wallet.FormatBalance(account.Balance), entry.PriceDisplay))
	}

	instruction := def.Instruction(req.Input)
	if slug == "weather-reporter" && s.weather != nil {
		conditions, err := s.weather.Current(ctx, req.Input["city"])
		if err != nil {
			metrics.RecordAgentRun(slug, RunStatusFailed)
			return nil, err
		}
		instruction += fmt.Sprintf(" Current conditions: %.1fC, %s.", conditions.TempC, conditions.Description)
	}

	runID := uuid.NewString()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = runID
	}

	var result webhook.Result
	if def.InputMode == InputMultipart {
		fields := map[string]string{"message": instruction, "sessionId": sessionID}
		for k, v := range req.Input {
			fields[k] = v
		}
		result, err = s.webhooks.InvokeMultipart(ctx, def.WebhookPath, fields, "file", req.FileName, req.File)
	} else {
		result, err = s.webhooks.Invoke(ctx, def.WebhookPath, webhook.Envelope{
			Text:      instruction,
			SessionID: sessionID,
		})
	}
	if err != nil {
		s.recordRun(ctx, &Run{ID: runID, UserID: userID, AgentSlug: slug, Status: RunStatusFailed, Price: entry.Price})
		metrics.RecordAgentRun(slug, RunStatusFailed)
		return nil, err
	}

	resp := &RunResponse{
		RunID:     runID,
		AgentSlug: slug,
		Output:    result.Content,
		Variant:   string(result.Variant),
		Price:     entry.Price,
	}

	s.settle(ctx, userID, runID, entry, resp)
	return resp, nil
}

// settle debits the run price with the run ID as idempotency key and fills
// in the balance fields. The response output stands even when the debit
// fails.
func (s *service) settle(ctx context.Context, userID int, runID string, entry *catalog.PriceEntry, resp *RunResponse) {
	slug := entry.Slug
	balanceAfter, err := s.walletRepo.Apply(ctx, userID, wallet.Entry{
		Amount:         entry.Price.Neg(),
		Type:           wallet.TypeAgentUsage,
		Description:    "Agent run: " + entry.Name,
		AgentSlug:      &slug,
		IdempotencyKey: &runID,
	})
	if err != nil {
		logger.Error("agent run debit failed", "run_id", runID, "agent", slug, "error", err)
		metrics.RecordWalletDebit("failed")
		metrics.RecordAgentRun(slug, RunStatusDebitFailed)
		resp.DebitError = "The charge could not be applied. Support has been notified."
		s.recordRun(ctx, &Run{ID: runID, UserID: userID, AgentSlug: slug, Status: RunStatusDebitFailed, Price: entry.Price})
		return
	}

	metrics.RecordWalletDebit("success")
	metrics.RecordAgentRun(slug, RunStatusSuccess)
	resp.BalanceAfter = &balanceAfter
	resp.BalanceDisplay = wallet.FormatBalance(balanceAfter)
	s.recordRun(ctx, &Run{ID: runID, UserID: userID, AgentSlug: slug, Status: RunStatusSuccess, Price: entry.Price})

	if wallet.ClassifyStatus(balanceAfter).Status == "low" && s.notifier != nil {
		u, err := s.userRepo.FindByID(ctx, userID)
		if err == nil && u != nil {
			if err := s.notifier.SendLowBalanceAlert(ctx, u.Email, u.Name, wallet.FormatBalance(balanceAfter)); err != nil {
				logger.Error("failed to queue low balance alert", "user_id", userID, "error", err)
			}
		}
	}
}

func (s *service) recordRun(ctx context.Context, run *Run) {
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		logger.Error("failed to record agent run", "run_id", run.ID, "error", err)
	}
}

// Chat relays one free incident-analyst turn and appends both sides to the
// session transcript. Only the final report is billed.
func (s *service) Chat(ctx context.Context, userID int, req ChatRequest) (*ChatResponse, error) {
	def, ok := GetDefinition("incident-analyst")
	if !ok {
		return nil, ErrUnknownAgent
	}

	result, err := s.webhooks.Invoke(ctx, def.WebhookPath, webhook.Envelope{
		Text:      req.Message,
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.transcripts.Append(ctx, userID, req.SessionID, Turn{Role: "user", Content: req.Message, At: nowUTC()}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store transcript", err)
	}
	if err := s.transcripts.Append(ctx, userID, req.SessionID, Turn{Role: "assistant", Content: result.Content, At: nowUTC()}); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store transcript", err)
	}

	turns, err := s.transcripts.Load(ctx, userID, req.SessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load transcript", err)
	}

	metrics.RecordChatTurn()
	return &ChatResponse{SessionID: req.SessionID, Reply: result.Content, Turns: len(turns)}, nil
}

// Report generates the billed incident report from an accumulated
// transcript. The debit follows the same single-call, single-debit path as
// a plain run.
func (s *service) Report(ctx context.Context, userID int, sessionID string) (*RunResponse, error) {
	def, ok := GetDefinition("incident-analyst")
	if !ok {
		return nil, ErrUnknownAgent
	}
	entry, ok := catalog.GetPrice("incident-analyst")
	if !ok {
		return nil, ErrUnknownAgent
	}

	turns, err := s.transcripts.Load(ctx, userID, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load transcript", err)
	}
	if len(turns) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no conversation to report on")
	}

	account, err := s.walletRepo.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load wallet", err)
	}
	if !wallet.HasSufficientBalance(account.Balance, entry.Price) {
		return nil, apperr.New(apperr.KindInsufficient,
			fmt.Sprintf("balance %s does not cover %s", wallet.FormatBalance(account.Balance), entry.PriceDisplay))
	}

	var b strings.Builder
	b.WriteString("Produce a structured incident report with root cause, impact and remediation steps from this conversation.")
	for _, t := range turns {
		fmt.Fprintf(&b, "\n%s: %s", t.Role, t.Content)
	}

	runID := uuid.NewString()
	result, err := s.webhooks.Invoke(ctx, def.WebhookPath, webhook.Envelope{
		Text:      b.String(),
		SessionID: sessionID,
	})
	if err != nil {
		s.recordRun(ctx, &Run{ID: runID, UserID: userID, AgentSlug: entry.Slug, Status: RunStatusFailed, Price: entry.Price})
		metrics.RecordAgentRun(entry.Slug, RunStatusFailed)
		return nil, err
	}

	resp := &RunResponse{
		RunID:     runID,
		AgentSlug: entry.Slug,
		Output:    result.Content,
		Variant:   string(result.Variant),
		Price:     entry.Price,
	}
	s.settle(ctx, userID, runID, entry, resp)
	return resp, nil
}

func (s *service) Transcript(ctx context.Context, userID int, sessionID string) ([]Turn, error) {
	turns, err := s.transcripts.Load(ctx, userID, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load transcript", err)
	}
	return turns, nil
}

func (s *service) History(ctx context.Context, userID, limit, offset int) ([]Run, error) {
	return s.runRepo.RunsByUser(ctx, userID, limit, offset)
}
