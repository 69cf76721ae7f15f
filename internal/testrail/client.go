// Package testrail provides an HTTP client for the TestRail API (v2).
//
// The client uses hashicorp/go-retryablehttp for automatic retry with backoff
// and jitter, which keeps result publishing resilient to the network hiccups
// common at the end of long CI runs.
//
// TestRail reports service-level failures inside an otherwise well-formed
// response body, so SendPost/SendGet return the raw body even for non-2xx
// statuses and callers extract the failure with GetError. An error return
// means the request itself could not be completed.
//
// Usage:
//
//	client := testrail.NewClient("https://example.testrail.io", user, key, logger)
//	raw, err := client.SendGet(ctx, "get_run/42")
//	if msg := client.GetError(raw); msg != "" { ... }
package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/qaops/testrail-reporter/internal/version"
)

// apiPrefix is the URL prefix of the TestRail REST API.
const apiPrefix = "/index.php?/api/v2/"

// Client is the HTTP client for the TestRail API.
// It wraps go-retryablehttp for automatic retry with backoff.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a new Client configured with retryable HTTP settings.
// The baseURL should be the root of the TestRail instance
// (e.g., "https://example.testrail.io"); username and apiKey authenticate
// every request via HTTP basic auth.
//
// The client is configured with:
//   - RetryMax: 3 retries
//   - RetryWaitMin: 1 second
//   - RetryWaitMax: 10 seconds
//   - Backoff: Linear jitter (prevents thundering herd)
//   - Timeout: 30 seconds per request
func NewClient(baseURL, username, apiKey string, logger *slog.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Backoff = retryablehttp.LinearJitterBackoff

	// Disable retryablehttp's internal logging - we use slog instead
	retryClient.Logger = nil

	retryClient.HTTPClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: retryClient.StandardClient(),
		baseURL:    baseURL,
		username:   username,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// SendPost sends a JSON POST request to the given API path (relative,
// e.g. "add_results_for_cases/42") and returns the raw response body.
func (c *Client) SendPost(ctx context.Context, path string, body any) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body == nil {
		body = struct{}{}
	}
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, &buf)
}

// SendGet sends a GET request to the given API path and returns the raw
// response body.
func (c *Client) SendGet(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	url := c.baseURL + apiPrefix + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}

	req.SetBasicAuth(c.username, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "testrail-reporter/"+version.Version)

	c.logger.Debug("testrail request",
		slog.String("method", method),
		slog.String("path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	// Always close response body to prevent connection leaks
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s: %w", path, err)
	}

	c.logger.Debug("testrail response",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(raw)),
	)

	// TestRail puts validation failures in the body of 4xx responses; those
	// are surfaced via GetError, not as a request error.
	if len(raw) == 0 && resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s %s returned status %d with empty body", method, path, resp.StatusCode)
	}

	return raw, nil
}

// GetError extracts a service-reported error message from a response body.
// Returns the empty string when the response indicates success. Responses
// that are not JSON objects (e.g. result arrays) never carry an error.
func (c *Client) GetError(raw json.RawMessage) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return envelope.Error
}
