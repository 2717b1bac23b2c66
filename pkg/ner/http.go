package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/City-of-Helsinki/text-anonymizer/internal/resilience"
)

const defaultTimeout = 10 * time.Second

// Client calls a recognition service's /analyze endpoint. The service is
// optional infrastructure: transient failures are retried with backoff,
// repeated failures open a circuit that skips the service for a cooldown,
// and in both cases the client logs a warning and reports no entities, so
// the rest of the pipeline still runs.
type Client struct {
	url     string
	http    *http.Client
	logger  *slog.Logger
	retryer *resilience.Retryer
	breaker *resilience.Breaker
}

// ClientOption adjusts Client construction.
type ClientOption func(*Client)

// WithTimeout replaces the default 10s per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRetryConfig replaces the default retry behavior.
func WithRetryConfig(cfg resilience.RetryConfig) ClientOption {
	return func(c *Client) { c.retryer = resilience.NewRetryer(cfg) }
}

// WithBreakerConfig replaces the default circuit-breaker thresholds.
func WithBreakerConfig(cfg resilience.BreakerConfig) ClientOption {
	return func(c *Client) { c.breaker = resilience.NewBreaker(cfg) }
}

// NewClient returns a Client for the service at baseURL, for example
// "http://ner-service:8001".
func NewClient(baseURL string, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:     baseURL + "/analyze",
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.With("component", "ner"),
		retryer: resilience.NewRetryer(resilience.DefaultRetryConfig()),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerConfig()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type analyzeResponse struct {
	Entities []Entity `json:"entities"`
}

// Analyze sends text to the recognition service and returns the entities it
// found. Cancellation of ctx is the only error surfaced to the caller.
func (c *Client) Analyze(ctx context.Context, text, language string) ([]Entity, error) {
	var entities []Entity
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.retryer.Do(ctx, func(ctx context.Context) error {
			found, err := c.analyzeOnce(ctx, text, language)
			if err != nil {
				return err
			}
			entities = found
			return nil
		})
	})
	switch {
	case err == nil:
		return entities, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, resilience.ErrOpen):
		c.logger.Warn("Recognition service circuit open, skipping call")
		return nil, nil
	default:
		c.logger.Warn("Recognition service unavailable, continuing without model entities", "error", err)
		return nil, nil
	}
}

func (c *Client) analyzeOnce(ctx context.Context, text, language string) ([]Entity, error) {
	body, err := json.Marshal(analyzeRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.Transient(fmt.Errorf("ner: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ner: unexpected status %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return nil, resilience.Transient(err)
		}
		return nil, err
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ner: decode response: %w", err)
	}
	return out.Entities, nil
}

// retryableStatus reports whether a status code signals a transient
// upstream condition.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
