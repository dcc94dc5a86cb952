package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// 0. Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Namespace validation. The verse lands in storage URL paths, so
	// separators would corrupt them.
	if c.Verse == "" {
		return fmt.Errorf("%w: verse cannot be empty", ErrInvalidVerse)
	}
	if strings.ContainsAny(c.Verse, "/ ") {
		return fmt.Errorf("%w: verse %q must not contain slashes or spaces", ErrInvalidVerse, c.Verse)
	}

	// 2. Log level validation
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q (use debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	// 3. Provider validation (required for all generation operations)
	if c.Fal.APIKey == "" {
		return fmt.Errorf("%w: FAL_KEY environment variable is required\n"+
			"Get your API key at: https://fal.ai/dashboard/keys", ErrMissingProviderKey)
	}
	if err := validateHTTPURL(c.Fal.BaseURL); err != nil {
		return fmt.Errorf("%w: fal.base_url: %v", ErrInvalidProviderURL, err)
	}
	if err := validateHTTPURL(c.Fal.SyncBaseURL); err != nil {
		return fmt.Errorf("%w: fal.sync_base_url: %v", ErrInvalidProviderURL, err)
	}
	if c.Fal.QueueTimeoutSeconds < 1 || c.Fal.QueueTimeoutSeconds > 3600 {
		return fmt.Errorf("%w: fal.queue_timeout_seconds must be between 1 and 3600, got %d",
			ErrInvalidTimeout, c.Fal.QueueTimeoutSeconds)
	}
	if c.Fal.SyncTimeoutSeconds < 1 || c.Fal.SyncTimeoutSeconds > 600 {
		return fmt.Errorf("%w: fal.sync_timeout_seconds must be between 1 and 600, got %d",
			ErrInvalidTimeout, c.Fal.SyncTimeoutSeconds)
	}
	if c.Fal.SubmitPerSecond < 1 || c.Fal.SubmitPerSecond > 100 {
		return fmt.Errorf("%w: fal.submit_per_second must be between 1 and 100, got %d",
			ErrInvalidSubmitRate, c.Fal.SubmitPerSecond)
	}

	// 4. Storage validation (only when enabled)
	if c.Storage.Enabled() {
		if err := validateHTTPURL(c.Storage.BaseURL); err != nil {
			return fmt.Errorf("%w: storage.base_url: %v", ErrInvalidStorageConfig, err)
		}
		if c.Storage.APIKey == "" {
			return fmt.Errorf("%w: storage.api_key is required when storage.base_url is set",
				ErrInvalidStorageConfig)
		}
		if c.Storage.PublicBaseURL != "" {
			if err := validateHTTPURL(c.Storage.PublicBaseURL); err != nil {
				return fmt.Errorf("%w: storage.public_base_url: %v", ErrInvalidStorageConfig, err)
			}
		}
		if c.Storage.UploadTimeoutSeconds < 1 || c.Storage.UploadTimeoutSeconds > 3600 {
			return fmt.Errorf("%w: storage.upload_timeout_seconds must be between 1 and 3600, got %d",
				ErrInvalidStorageConfig, c.Storage.UploadTimeoutSeconds)
		}
	}

	// 5. Metering validation (only when enabled)
	if c.Metering.Enabled() {
		if err := validateHTTPURL(c.Metering.BaseURL); err != nil {
			return fmt.Errorf("%w: metering.base_url: %v", ErrInvalidMeteringConfig, err)
		}
		if c.Metering.TimeoutSeconds < 1 || c.Metering.TimeoutSeconds > 600 {
			return fmt.Errorf("%w: metering.timeout_seconds must be between 1 and 600, got %d",
				ErrInvalidMeteringConfig, c.Metering.TimeoutSeconds)
		}
	}

	// 6. Auth secret validation (only when set; serve mode may run open)
	if c.Server.AuthSecret != "" && len(c.Server.AuthSecret) < 32 {
		return fmt.Errorf("%w: server.auth_secret must be at least 32 characters (got %d)",
			ErrInvalidAuthSecret, len(c.Server.AuthSecret))
	}

	// 7. Database URL validation (only when set; enables style search)
	if c.DatabaseURL != "" {
		parsed, err := url.Parse(c.DatabaseURL)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDatabaseURL, err)
		}
		if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
			return fmt.Errorf("%w: must start with postgres:// or postgresql://, got %q",
				ErrInvalidDatabaseURL, parsed.Scheme)
		}
	}

	return nil
}

// validateHTTPURL checks that s is an absolute http(s) URL.
func validateHTTPURL(s string) error {
	if s == "" {
		return fmt.Errorf("URL is empty")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is empty")
	}
	return nil
}

// parseLogLevel accepts the level strings internal/log understands.
func parseLogLevel(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "warning", "error":
		return s, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}
