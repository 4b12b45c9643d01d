package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config scopes the processor credentials to the client that uses them.
// It is passed explicitly at construction, never read from globals.
type Config struct {
	BaseURL  string
	APIKey   string
	Currency string
}

type AuthorizationRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	OrderID     uint
}

type Authorization struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client authorizes a charge with the external processor. Exactly one
// call is made per checkout attempt; the orchestrator decides
// commit-or-rollback from the outcome.
type Client interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*Authorization, error)
}

type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) Authorize(ctx context.Context, areq AuthorizationRequest) (*Authorization, error) {
	currency := areq.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(areq.AmountMinor, 10))
	form.Set("currency", currency)
	form.Set("description", areq.Description)
	form.Set("metadata[order_id]", strconv.FormatUint(uint64(areq.OrderID), 10))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/payment_intents",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("authorization failed with status %d: %s", resp.StatusCode, body)
	}

	var auth Authorization
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if auth.ID == "" {
		return nil, fmt.Errorf("authorization response missing id")
	}

	return &auth, nil
}
