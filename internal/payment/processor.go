package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agentsouk/internal/apperr"

	"github.com/shopspring/decimal"
)

// CheckoutParams describes one hosted checkout session to create. Metadata
// travels to the processor and comes back on verification, so the credit can
// be applied without server-side session state.
type CheckoutParams struct {
	PackageID  string          `json:"package_id"`
	UserID     int             `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	SuccessURL string          `json:"success_url"`
	CancelURL  string          `json:"cancel_url"`
}

// CheckoutSession is the processor's handle for a created session.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionStatus is the processor's view of a session after the user has
// been through (or abandoned) the hosted checkout page.
type SessionStatus struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	PackageID     string `json:"package_id"`
	UserID        int    `json:"user_id"`
}

const PaymentStatusPaid = "paid"

// Processor creates and verifies hosted checkout sessions.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (*SessionStatus, error)
}

type processorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewProcessor(baseURL, apiKey string) Processor {
	return &processorClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *processorClient) configured() bool {
	return p.baseURL != "" && p.apiKey != ""
}

func (p *processorClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if !p.configured() {
		return nil, apperr.New(apperr.KindConfig, "payment processor is not configured")
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to encode checkout params", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build checkout request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var session CheckoutSession
	if err := p.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (p *processorClient) VerifySession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	if !p.configured() {
		return nil, apperr.New(apperr.KindConfig, "payment processor is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build verify request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var status SessionStatus
	if err := p.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (p *processorClient) do(req *http.Request, out interface{}) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "payment processor call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "failed to read processor response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := apperr.FromStatus(resp.StatusCode)
		return apperr.New(kind, fmt.Sprintf("payment processor returned status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "failed to decode processor response", err)
	}
	return nil
}
