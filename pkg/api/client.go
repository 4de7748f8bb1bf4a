// Package api is the REST command client for the chat backend. Commands
// issued here (connect a server, execute a tool) are acknowledged over HTTP,
// but their completion is observed through the event channel: the backend
// broadcasts server_status_update and tool_execution_result events as
// commands take effect.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/mcpstudio/chatlink/pkg/logging"
	"github.com/mcpstudio/chatlink/pkg/ratelimit"
)

// APIError is a non-2xx response from the backend. Detail carries the
// backend's error message when one was provided.
type APIError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// ClientConfig holds configuration for the REST client.
type ClientConfig struct {
	// BaseURL is the backend's HTTP root, e.g. "http://localhost:8000".
	BaseURL string

	Timeout   time.Duration
	RateLimit ratelimit.Rate

	MaxRetries uint
	RetryDelay time.Duration

	Logger logging.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig(baseURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
		RateLimit: ratelimit.Rate{
			Limit:    10,
			Interval: time.Second,
		},
		MaxRetries: 3,
		RetryDelay: time.Second,
		Logger:     logging.NewLogger(),
	}
}

// Client issues commands against the backend's REST API with rate limiting
// and retries.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    ratelimit.RateLimiter
	logger     logging.Logger
}

// NewClient creates a REST client for the given configuration.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig("http://localhost:8000")
	}
	if config.Logger == nil {
		config.Logger = logging.NewLogger()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: ratelimit.NewTokenBucketLimiter(config.RateLimit),
		logger:  config.Logger,
	}
}

// SetRateLimit updates the rate limiter configuration.
func (c *Client) SetRateLimit(limit ratelimit.Rate) error {
	return c.limiter.SetLimit(limit)
}

// doJSON performs one API call: rate limit, retry on transport errors and
// retryable status codes, decode the JSON body into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait error: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request body: %w", err)
		}
	}

	var respBody []byte
	var statusCode int

	err := retry.Do(
		func() error {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, url, reader)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("error creating request: %w", err))
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("http request error: %w", err)
			}
			defer resp.Body.Close()

			respBody, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("error reading response body: %w", err)
			}
			statusCode = resp.StatusCode

			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("retryable status code: %d", resp.StatusCode)
			}
			return nil
		},
		retry.Attempts(c.config.MaxRetries),
		retry.Delay(c.config.RetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying request",
				logging.Int("attempt", int(n)+1),
				logging.String("url", url),
				logging.Error(err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries, err)
	}

	if statusCode < 200 || statusCode >= 300 {
		return &APIError{
			StatusCode: statusCode,
			Detail:     errorDetail(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// errorDetail extracts the backend's {"detail": ...} error message.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
		return strings.TrimSpace(string(body))
	}
	return payload.Detail
}
