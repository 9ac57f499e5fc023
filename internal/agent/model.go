package agent

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"agentsouk/internal/apperr"

	"github.com/shopspring/decimal"
)

type InputMode string

const (
	InputJSON      InputMode = "json"
	InputMultipart InputMode = "multipart"
)

// Definition describes how one agent accepts input and where its workflow
// webhook lives. Catalog pricing stays in the catalog package; definitions
// only carry the mechanics.
type Definition struct {
	Slug        string
	WebhookPath string
	InputMode   InputMode
	// Required input field names. Every field must be non-empty.
	Required []string
	// FileOrURL additionally requires either an uploaded file or a "url"
	// input field.
	FileOrURL bool
}

var definitions = map[string]Definition{
	"weather-reporter": {
		Slug:        "weather-reporter",
		WebhookPath: "/run/weather-reporter",
		InputMode:   InputJSON,
		Required:    []string{"city"},
	},
	"doc-summarizer": {
		Slug:        "doc-summarizer",
		WebhookPath: "/run/doc-summarizer",
		InputMode:   InputMultipart,
		Required:    []string{"language"},
		FileOrURL:   true,
	},
	"job-post-writer": {
		Slug:        "job-post-writer",
		WebhookPath: "/run/job-post-writer",
		InputMode:   InputJSON,
		Required:    []string{"title", "company", "description", "seniority", "contract_type", "location"},
	},
	"data-analyzer": {
		Slug:        "data-analyzer",
		WebhookPath: "/run/data-analyzer",
		InputMode:   InputMultipart,
		Required:    []string{},
		FileOrURL:   true,
	},
	"incident-analyst": {
		Slug:        "incident-analyst",
		WebhookPath: "/run/incident-analyst",
		InputMode:   InputJSON,
		Required:    []string{"summary"},
	},
}

// GetDefinition looks up an agent definition by slug.
func GetDefinition(slug string) (Definition, bool) {
	def, ok := definitions[slug]
	return def, ok
}

// Validate checks the request against the definition's input rules before
// any network call is made.
func (d Definition) Validate(req RunRequest) error {
	var missing []string
	for _, field := range d.Required {
		if strings.TrimSpace(req.Input[field]) == "" {
			missing = append(missing, field)
		}
	}

	if d.FileOrURL && req.File == nil && strings.TrimSpace(req.Input["url"]) == "" {
		missing = append(missing, "file or url")
	}

	if len(missing) > 0 {
		return apperr.New(apperr.KindValidation,
			"missing required fields: "+strings.Join(missing, ", "))
	}

	return nil
}

// Instruction synthesizes the natural-language instruction embedded in the
// webhook envelope.
func (d Definition) Instruction(input map[string]string) string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Run the %s agent with the following input.", d.Slug)
	for _, k := range keys {
		if v := strings.TrimSpace(input[k]); v != "" {
			fmt.Fprintf(&b, " %s: %s.", k, v)
		}
	}
	return b.String()
}

// RunRequest is one submission to an agent.
type RunRequest struct {
	Input     map[string]string
	SessionID string
	File      io.Reader
	FileName  string
}

// RunResponse carries the generated output. BalanceAfter is the
// authoritative post-debit balance. DebitError is set when the generation
// succeeded but the debit failed; the output is still delivered.
type RunResponse struct {
	RunID          string           `json:"run_id"`
	AgentSlug      string           `json:"agent_slug"`
	Output         string           `json:"output"`
	Variant        string           `json:"variant"`
	Price          decimal.Decimal  `json:"price"`
	BalanceAfter   *decimal.Decimal `json:"balance_after,omitempty"`
	BalanceDisplay string           `json:"balance_display,omitempty"`
	DebitError     string           `json:"debit_error,omitempty"`
}

// Run is one recorded agent invocation.
type Run struct {
	ID        string          `db:"id" json:"id"`
	UserID    int             `db:"user_id" json:"user_id"`
	AgentSlug string          `db:"agent_slug" json:"agent_slug"`
	Status    string          `db:"status" json:"status"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

const (
	RunStatusSuccess     = "success"
	RunStatusFailed      = "failed"
	RunStatusDebitFailed = "debit_failed"
)

// Turn is one entry in an incident-analyst transcript.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Turns     int    `json:"turns"`
}
