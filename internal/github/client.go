// Package github is a minimal GraphQL client for the handful of queries the
// generator needs. It speaks to api.github.com/graphql with a bearer token
// and nothing else; no REST surface is used.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/logging"
)

// ErrAntiAbuse is returned when GitHub answers 403. The anti-abuse limit is
// not worth retrying inside one run; the caller salvages its state instead.
var ErrAntiAbuse = errors.New("too many requests: GitHub anti-abuse limit hit (403)")

const maxResponseBytes = 10 * 1024 * 1024

// Recorder counts API calls per operation. *usage.Tracker satisfies it.
type Recorder interface {
	Record(op string)
}

// Config carries everything the client needs.
type Config struct {
	BaseURL     string
	Token       string
	Login       string
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	MinInterval time.Duration
}

// DefaultConfig returns sensible defaults for the given credentials.
func DefaultConfig(token, login string) Config {
	return Config{
		BaseURL:     "https://api.github.com/graphql",
		Token:       token,
		Login:       login,
		UserAgent:   "statsgen",
		Timeout:     2 * time.Minute,
		MaxRetries:  3,
		MinInterval: 100 * time.Millisecond,
	}
}

// Client executes GraphQL queries against the GitHub API.
type Client struct {
	baseURL     string
	token       string
	login       string
	userAgent   string
	maxRetries  int
	minInterval time.Duration
	httpClient  *http.Client
	recorder    Recorder

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a client with default settings.
func NewClient(token, login string) *Client {
	return NewClientWithConfig(DefaultConfig(token, login))
}

// NewClientWithConfig creates a client with custom settings.
func NewClientWithConfig(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		login:       cfg.Login,
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
		minInterval: cfg.MinInterval,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SetRecorder installs an API call counter.
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// Login returns the account the client queries for.
func (c *Client) Login() string {
	return c.login
}

func (c *Client) record(op string) {
	if c.recorder != nil {
		c.recorder.Record(op)
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// execute posts one GraphQL query and unmarshals the data payload into out.
// Transport failures and 429 responses are retried with exponential backoff;
// 403 aborts immediately with ErrAntiAbuse.
func (c *Client) execute(ctx context.Context, op, query string, variables map[string]any, out any) error {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[%s] executing query, %d variables", op, len(variables))

	if c.token == "" {
		logging.APIError("[%s] access token not configured", op)
		return fmt.Errorf("access token not configured")
	}

	c.record(op)

	// Rate limiting
	c.mu.Lock()
	if wait := c.minInterval - time.Since(c.lastRequest); wait > 0 {
		if err := sleepContext(ctx, wait); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("%s aborted while pacing requests: %w", op, err)
		}
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := graphQLRequest{Query: query, Variables: variables}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			logging.APIWarn("[%s] retry %d/%d after %v", op, i, c.maxRetries, lastErr)
			if err := sleepContext(ctx, time.Duration(1<<uint(i-1))*time.Second); err != nil {
				return fmt.Errorf("%s aborted during retry backoff: %w", op, err)
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusForbidden {
			logging.APIError("[%s] 403 after %v", op, time.Since(startTime))
			return ErrAntiAbuse
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var envelope graphQLEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if len(envelope.Errors) > 0 {
			return fmt.Errorf("%s API error: %s", op, envelope.Errors[0].Message)
		}

		if out != nil {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return fmt.Errorf("failed to decode %s data: %w", op, err)
			}
		}

		logging.API("[%s] completed in %v", op, time.Since(startTime))
		return nil
	}

	logging.APIError("[%s] max retries exceeded after %v: %v", op, time.Since(startTime), lastErr)
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sleepContext waits for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
