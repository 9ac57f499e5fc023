package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"agentsouk/internal/apperr"
)

// Envelope is the JSON payload workflow webhooks expect:
// {"message": {"text": ...}, "sessionId": ..., <extra fields>}.
type Envelope struct {
	Text      string
	SessionID string
	Extra     map[string]interface{}
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	payload := map[string]interface{}{
		"message":   map[string]string{"text": e.Text},
		"sessionId": e.SessionID,
	}
	for k, v := range e.Extra {
		payload[k] = v
	}
	return json.Marshal(payload)
}

// Client posts to the external workflow engine. One call per run, no retry;
// a failed call surfaces to the user.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a webhook base URL was provided.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Invoke posts a JSON envelope to the webhook at path and decodes the
// response into a tagged Result.
func (c *Client) Invoke(ctx context.Context, path string, envelope Envelope) (Result, error) {
	if !c.Configured() {
		return Result{}, apperr.New(apperr.KindConfig, "agent webhook URL is not configured")
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// InvokeMultipart posts form fields plus one file to the webhook at path.
func (c *Client) InvokeMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file io.Reader) (Result, error) {
	if !c.Configured() {
		return Result{}, apperr.New(apperr.KindConfig, "agent webhook URL is not configured")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to write form field", err)
		}
	}

	if file != nil {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to create form file", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to copy file into form", err)
		}
	}

	if err := writer.Close(); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) (Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnavailable, "webhook call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUpstream, "failed to read webhook response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := apperr.FromStatus(resp.StatusCode)
		return Result{}, apperr.New(kind, fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}

	return Decode(body), nil
}
