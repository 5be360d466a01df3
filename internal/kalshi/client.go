package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the configuration for the Kalshi client.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64       // sustained rate ceiling, shared by all callers
	Timeout           time.Duration // total per-call timeout
	MaxRetries        int           // retry attempts for transient failures
	RetryDelay        time.Duration // initial backoff delay
	BackoffFactor     float64       // backoff multiplier per attempt
}

// Client is the single choke point for all Kalshi API calls. It
// enforces a shared rate budget, signs every request, and maps HTTP
// outcomes onto the typed error set in errors.go.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	limiter       *rate.Limiter
	signer        *Signer
	maxRetries    int
	retryDelay    time.Duration
	backoffFactor float64
}

// NewClient creates a new rate-limited Kalshi client.
func NewClient(cfg Config, signer *Signer) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10 // Kalshi allows ~10 req/s
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = 2.0
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		signer:        signer,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		backoffFactor: cfg.BackoffFactor,
	}
}

// request performs one signed API call. Network-level failures are
// retried with exponential backoff; HTTP error statuses are not — they
// are classified and returned as typed errors so the caller can decide
// whether to skip, abort, or escalate.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("kalshi: marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Every wire attempt spends one token from the shared budget.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("kalshi: build request: %w", err)
		}

		headers, err := c.signer.Headers(method, path, time.Now())
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt == c.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffFactor)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt == c.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffFactor)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return respBody, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, &AuthError{Body: string(respBody)}
		default:
			return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
		}
	}

	return nil, &TransientError{Op: method + " " + path, Err: lastErr}
}

// GetBalance fetches the account balance in dollars. Kalshi reports
// cents on the wire.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	raw, err := c.request(ctx, http.MethodGet, "/portfolio/balance", nil, nil)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Balance *int64 `json:"balance"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Balance == nil {
		return 0, &MalformedResponseError{Op: "GetBalance", Field: "balance"}
	}
	return float64(*resp.Balance) / 100.0, nil
}

// ListMarkets fetches markets filtered by status, up to limit records.
func (c *Client) ListMarkets(ctx context.Context, status string, limit int) ([]Market, error) {
	query := url.Values{}
	query.Set("status", status)
	query.Set("limit", strconv.Itoa(limit))

	raw, err := c.request(ctx, http.MethodGet, "/markets", query, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Markets []Market `json:"markets"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Markets == nil {
		return nil, &MalformedResponseError{Op: "ListMarkets", Field: "markets"}
	}
	return resp.Markets, nil
}

// GetMarket fetches one market record by id.
func (c *Client) GetMarket(ctx context.Context, id string) (*Market, error) {
	raw, err := c.request(ctx, http.MethodGet, "/markets/"+id, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Market *Market `json:"market"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Market == nil {
		return nil, &MalformedResponseError{Op: "GetMarket", Field: "market"}
	}
	return resp.Market, nil
}

// PlaceOrder submits an order and returns the confirmation. A missing
// order field in the response means the fill is unconfirmed and is
// reported as a malformed response.
func (c *Client) PlaceOrder(ctx context.Context, marketID, side string, count int, orderType string) (*Order, error) {
	body := map[string]interface{}{
		"market_id": marketID,
		"side":      side,
		"count":     count,
		"type":      orderType,
	}

	raw, err := c.request(ctx, http.MethodPost, "/orders", nil, body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Order *Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Order == nil {
		return nil, &MalformedResponseError{Op: "PlaceOrder", Field: "order"}
	}
	return resp.Order, nil
}
