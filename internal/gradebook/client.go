// Package gradebook reports final quiz results to the external REST backend.
// The coordinator calls it fire-and-forget from the final-reveal path only;
// failures are logged and never retried, and never touch room state.
package gradebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"liveroom/pkg/protocol"
)

// Config locates the external backend. An empty BaseURL puts the client in
// skip mode so the coordinator runs standalone.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates the client. Timeout defaults to five seconds.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// RecordQuizResult POSTs one scored submission. In skip mode it is a no-op.
func (c *Client) RecordQuizResult(ctx context.Context, result *protocol.QuizResult) error {
	if c.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode quiz result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/gradebook/results", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gradebook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gradebook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gradebook rejected result: status %d", resp.StatusCode)
	}
	return nil
}
