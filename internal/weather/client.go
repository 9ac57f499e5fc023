// Package weather wraps the hosted weather API used to enrich the
// weather-reporter agent's prompt with current conditions.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"agentsouk/internal/apperr"
)

type Conditions struct {
	City        string  `json:"city"`
	TempC       float64 `json:"temp_c"`
	Description string  `json:"description"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type currentResponse struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// Current fetches current conditions for a city.
func (c *Client) Current(ctx context.Context, city string) (*Conditions, error) {
	if c.apiKey == "" {
		return nil, apperr.New(apperr.KindConfig, "weather API key is not configured")
	}

	u, err := url.Parse(c.baseURL + "/current.json")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "invalid weather API URL", err)
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("q", city)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build weather request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "weather API call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := apperr.FromStatus(resp.StatusCode)
		return nil, apperr.New(kind, fmt.Sprintf("weather API returned status %d", resp.StatusCode))
	}

	var parsed currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "failed to decode weather response", err)
	}

	return &Conditions{
		City:        parsed.Location.Name,
		TempC:       parsed.Current.TempC,
		Description: parsed.Current.Condition.Text,
	}, nil
}
