package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// StorageConfig holds the owned asset storage configuration.
//
// Generated artifacts are re-uploaded here so asset URLs outlive the
// provider's retention window. When BaseURL is empty the feature is off
// and result tools fall back to provider-hosted URLs.
type StorageConfig struct {
	// APIKey authenticates uploads (MIRAGE_STORAGE_API_KEY).
	// SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`

	// BaseURL is the upload endpoint root. Empty disables re-upload.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// PublicBaseURL is the root under which uploaded assets are served.
	// Defaults to BaseURL when empty.
	PublicBaseURL string `mapstructure:"public_base_url" json:"public_base_url"`

	// UploadTimeoutSeconds bounds a single artifact upload (default: 120).
	UploadTimeoutSeconds int `mapstructure:"upload_timeout_seconds" json:"upload_timeout_seconds"`
}

// Enabled reports whether asset re-upload is configured.
func (c StorageConfig) Enabled() bool {
	return c.BaseURL != ""
}

// UploadTimeout returns the upload timeout as a duration.
func (c StorageConfig) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

// MarshalJSON masks the API key.
func (c StorageConfig) MarshalJSON() ([]byte, error) {
	type alias StorageConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal storage config: %w", err)
	}
	return data, nil
}
