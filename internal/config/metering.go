package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// MeteringConfig holds the usage accounting endpoint configuration.
//
// When BaseURL is empty no recorder is constructed. Authenticated
// invocations then fail before submission: usage that cannot be accounted
// must not reach the provider.
type MeteringConfig struct {
	// APIKey authenticates usage events (MIRAGE_METERING_API_KEY).
	// SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`

	// BaseURL is the usage event endpoint root. Empty disables metering.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// TimeoutSeconds bounds a single usage event post (default: 10).
	TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// Enabled reports whether metering is configured.
func (c MeteringConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Timeout returns the metering call timeout as a duration.
func (c MeteringConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MarshalJSON masks the API key.
func (c MeteringConfig) MarshalJSON() ([]byte, error) {
	type alias MeteringConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal metering config: %w", err)
	}
	return data, nil
}
