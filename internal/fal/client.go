// Package fal is a client for the generation provider's HTTP APIs.
//
// The provider runs two surfaces. The queue API hosts long-running
// generation jobs behind a submit/status/result lifecycle; the synchronous
// API serves small utility models (embedders, background removal) that
// answer within one request. Queue calls use a long timeout sized for
// generation latency, sync calls a short one, and submissions pass through
// a rate limiter so a burst of agents cannot flood the provider.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/miragelabs/mirage/internal/log"
)

var (
	// ErrNoRequestID indicates a submission response without a request_id.
	// The job handle cannot be built without one, so this is a hard error.
	ErrNoRequestID = errors.New("submission response missing request_id")
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error (status %d) at %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// Config holds client construction parameters.
type Config struct {
	// APIKey authenticates every call.
	APIKey string

	// BaseURL is the queue API root.
	BaseURL string

	// SyncBaseURL is the synchronous API root.
	SyncBaseURL string

	// QueueTimeout bounds queue API calls and artifact downloads.
	QueueTimeout time.Duration

	// SyncTimeout bounds synchronous calls.
	SyncTimeout time.Duration

	// SubmitPerSecond caps job submissions per second.
	SubmitPerSecond int
}

// Client talks to the provider. Safe for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	syncBaseURL string
	queueClient *http.Client
	syncClient  *http.Client
	limiter     *rate.Limiter
	logger      log.Logger
}

// NewClient creates a provider client.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if cfg.SyncBaseURL == "" {
		cfg.SyncBaseURL = cfg.BaseURL
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 5 * time.Minute
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 30 * time.Second
	}
	if cfg.SubmitPerSecond <= 0 {
		cfg.SubmitPerSecond = 5
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		syncBaseURL: strings.TrimSuffix(cfg.SyncBaseURL, "/"),
		queueClient: &http.Client{Timeout: cfg.QueueTimeout},
		syncClient:  &http.Client{Timeout: cfg.SyncTimeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.SubmitPerSecond), cfg.SubmitPerSecond),
		logger:      logger,
	}, nil
}

// QueueSubmission is the provider's acknowledgment of a queued job.
type QueueSubmission struct {
	RequestID   string `json:"request_id"`
	ResponseURL string `json:"response_url,omitempty"`
	StatusURL   string `json:"status_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

// QueueStatus is one point-in-time snapshot of a queued job.
type QueueStatus struct {
	Status        string `json:"status"`
	QueuePosition *int   `json:"queue_position,omitempty"`
	ResponseURL   string `json:"response_url,omitempty"`
}

// Submit enqueues a job on model with the given payload.
//
// Model paths are case-sensitive on the provider side and callers routinely
// hand them over miscapitalized, so a 404 on a path with upper-case letters
// triggers exactly one retry against the lower-cased path.
func (c *Client) Submit(ctx context.Context, model string, payload map[string]any) (*QueueSubmission, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for submission slot: %w", err)
	}

	sub, err := c.submitOnce(ctx, model, payload)
	if err == nil {
		return sub, nil
	}

	var apiErr *APIError
	lower := strings.ToLower(model)
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && lower != model {
		c.logger.Warn("submission path not found, retrying lower-cased",
			"model", model, "retry_model", lower)
		return c.submitOnce(ctx, lower, payload)
	}
	return nil, err
}

func (c *Client) submitOnce(ctx context.Context, model string, payload map[string]any) (*QueueSubmission, error) {
	var sub QueueSubmission
	endpoint := c.queueURL(model)
	if err := c.call(ctx, c.queueClient, http.MethodPost, endpoint, payload, &sub); err != nil {
		return nil, err
	}
	if sub.RequestID == "" {
		return nil, fmt.Errorf("%w (endpoint %s)", ErrNoRequestID, endpoint)
	}
	return &sub, nil
}

// Status fetches the current lifecycle state of a queued job. It is a
// single non-blocking query; polling cadence is the caller's business.
func (c *Client) Status(ctx context.Context, model, requestID string) (*QueueStatus, error) {
	var status QueueStatus
	endpoint := c.queueURL(model) + "/requests/" + requestID + "/status"
	if err := c.call(ctx, c.queueClient, http.MethodGet, endpoint, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Result fetches the final payload of a completed job. The shape varies by
// model (an object, an array, even a bare URL string), so the payload comes
// back undecoded for the caller to pick apart.
func (c *Client) Result(ctx context.Context, model, requestID string) (any, error) {
	var payload any
	endpoint := c.queueURL(model) + "/requests/" + requestID
	if err := c.call(ctx, c.queueClient, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Run calls a synchronous model and decodes its response into out.
// Used for utility models that answer inline (embedders, background
// removal), never for queued generation.
func (c *Client) Run(ctx context.Context, model string, payload, out any) error {
	endpoint := c.syncBaseURL + "/" + strings.TrimPrefix(model, "/")
	return c.call(ctx, c.syncClient, http.MethodPost, endpoint, payload, out)
}

// Download fetches artifact bytes from url, returning them with the
// response content type. Artifacts can be large, so the long queue timeout
// applies.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating download request: %w", err)
	}

	resp, err := c.queueClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", &APIError{StatusCode: resp.StatusCode, Endpoint: url, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading artifact body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) queueURL(model string) string {
	return c.baseURL + "/" + strings.TrimPrefix(model, "/")
}

// call issues one JSON request and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, client *http.Client, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
	}
	return nil
}
