// Package metering reports billable generation usage to the metering
// service.
//
// Usage is recorded before a job is submitted to the provider. When the
// caller is identified and recording fails, the job must not run; the job
// layer enforces that by treating a Record error as fatal.
package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miragelabs/mirage/internal/log"
)

// Event is one billable generation attempt. Model is empty when usage is
// recorded before endpoint resolution.
type Event struct {
	Subject     string    `json:"subject"`
	Verse       string    `json:"verse,omitempty"`
	Plan        string    `json:"plan,omitempty"`
	Tool        string    `json:"tool"`
	Description string    `json:"description,omitempty"`
	Model       string    `json:"model,omitempty"`
	CallID      string    `json:"call_id,omitempty"`
	At          time.Time `json:"at"`
}

// Config holds client construction parameters.
type Config struct {
	// BaseURL is the metering API root.
	BaseURL string

	// APIKey authenticates event posts.
	APIKey string

	// Timeout bounds one Record call.
	Timeout time.Duration
}

// Client posts usage events to the metering service. Safe for concurrent
// use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  log.Logger
}

// NewClient creates a metering client.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("metering base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("metering API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Record posts one usage event. A non-2xx answer is an error; the caller
// decides whether that blocks the work being metered.
func (c *Client) Record(ctx context.Context, ev Event) error {
	if ev.Subject == "" {
		return fmt.Errorf("metering event subject is required")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding metering event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating metering request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metering request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("metering rejected event (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.logger.Debug("usage recorded", "subject", ev.Subject, "tool", ev.Tool, "model", ev.Model)
	return nil
}
