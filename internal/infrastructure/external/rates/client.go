// Package rates provides the HTTP spot-rate client behind the RateSource
// port. The client is deliberately retry-free; the converter decides what a
// fetch failure means.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
)

// Config holds rate source configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client fetches spot rates from a frankfurter-compatible JSON API:
// GET {base}/latest?from=EUR&to=USD -> {"rates": {"USD": 1.1012}}
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new rate source client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ port.RateSource = (*Client)(nil)

type latestResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// SpotRate fetches the current rate for one currency pair
func (c *Client) SpotRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest?from=%s&to=%s", c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch spot rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate response: %w", err)
	}

	raw, ok := payload.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate source response missing %s rate", to)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", raw.String(), err)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("rate source returned non-positive rate %s", rate.String())
	}

	c.logger.Debug("Fetched spot rate",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("rate", rate.String()))
	return rate, nil
}
