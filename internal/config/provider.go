package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// FalConfig holds the generation provider's queue API configuration.
//
// The provider exposes two surfaces: a queue API (submit/status/result for
// long-running jobs) and a synchronous API (small utility models such as
// embedders). They live on different hosts and carry different timeout
// expectations, so both base URLs are configurable.
type FalConfig struct {
	// APIKey authenticates every provider call (FAL_KEY).
	// SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`

	// BaseURL is the queue API root (default: https://queue.fal.run).
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// SyncBaseURL is the synchronous API root (default: https://fal.run).
	SyncBaseURL string `mapstructure:"sync_base_url" json:"sync_base_url"`

	// QueueTimeoutSeconds bounds queue API calls. Jobs run for minutes,
	// so this is deliberately long (default: 300).
	QueueTimeoutSeconds int `mapstructure:"queue_timeout_seconds" json:"queue_timeout_seconds"`

	// SyncTimeoutSeconds bounds synchronous calls (default: 30).
	SyncTimeoutSeconds int `mapstructure:"sync_timeout_seconds" json:"sync_timeout_seconds"`

	// SubmitPerSecond caps job submissions per second (default: 5).
	SubmitPerSecond int `mapstructure:"submit_per_second" json:"submit_per_second"`
}

// QueueTimeout returns the queue API timeout as a duration.
func (c FalConfig) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutSeconds) * time.Second
}

// SyncTimeout returns the synchronous API timeout as a duration.
func (c FalConfig) SyncTimeout() time.Duration {
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}

// MarshalJSON masks the API key.
func (c FalConfig) MarshalJSON() ([]byte, error) {
	type alias FalConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal fal config: %w", err)
	}
	return data, nil
}
