// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.mirage/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Fal: generation provider queue endpoints and credentials (provider.go)
//   - Storage: owned asset storage upload endpoint (storage.go)
//   - Metering: usage accounting endpoint (metering.go)
//   - Server: HTTP transport address and auth secret (server.go)
//   - Catalog: style catalog sources and search database (catalog.go)
//   - Datadog: APM tracing via the local agent (observability.go)
//
// Security: sensitive fields are masked in MarshalJSON; the config
// directory is created with 0750 permissions.
//
// Error handling uses sentinel errors checked with errors.Is(), wrapped
// with fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingProviderKey indicates the generation provider API key is missing.
	ErrMissingProviderKey = errors.New("missing provider API key")

	// ErrInvalidProviderURL indicates a provider endpoint URL is malformed.
	ErrInvalidProviderURL = errors.New("invalid provider URL")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidSubmitRate indicates the submission rate limit is out of range.
	ErrInvalidSubmitRate = errors.New("invalid submit rate")

	// ErrInvalidStorageConfig indicates the asset storage section is inconsistent.
	ErrInvalidStorageConfig = errors.New("invalid storage configuration")

	// ErrInvalidMeteringConfig indicates the metering section is inconsistent.
	ErrInvalidMeteringConfig = errors.New("invalid metering configuration")

	// ErrInvalidAuthSecret indicates the auth secret is too short.
	ErrInvalidAuthSecret = errors.New("invalid auth secret")

	// ErrInvalidDatabaseURL indicates the catalog database URL is malformed.
	ErrInvalidDatabaseURL = errors.New("invalid database URL")

	// ErrInvalidLogLevel indicates the log level string is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidVerse indicates the default verse identifier is unusable.
	ErrInvalidVerse = errors.New("invalid verse")
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, secrets), update MarshalJSON
// here or on the nested section struct.
type Config struct {
	// Verse is the default namespace for stored assets when no caller
	// identity supplies one.
	Verse string `mapstructure:"verse" json:"verse"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Generation provider (see provider.go)
	Fal FalConfig `mapstructure:"fal" json:"fal"`

	// Owned asset storage (see storage.go)
	Storage StorageConfig `mapstructure:"storage" json:"storage"`

	// Usage metering (see metering.go)
	Metering MeteringConfig `mapstructure:"metering" json:"metering"`

	// HTTP transport (see server.go)
	Server ServerConfig `mapstructure:"server" json:"server"`

	// Style catalog (see catalog.go)
	Catalog CatalogConfig `mapstructure:"catalog" json:"catalog"`

	// DatabaseURL enables the style search store when set.
	// SENSITIVE: masked in MarshalJSON (the URL may embed credentials).
	DatabaseURL string `mapstructure:"database_url" json:"database_url"`

	// Observability (see observability.go)
	Datadog DatadogConfig `mapstructure:"datadog" json:"datadog"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Configuration directory: ~/.mirage/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mirage")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// A missing file is not an error: defaults plus env cover it.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("verse", "default")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Generation provider defaults. Queue calls poll long-running jobs,
	// so their timeout is far above the sync/discovery timeout.
	viper.SetDefault("fal.base_url", "https://queue.fal.run")
	viper.SetDefault("fal.sync_base_url", "https://fal.run")
	viper.SetDefault("fal.queue_timeout_seconds", 300)
	viper.SetDefault("fal.sync_timeout_seconds", 30)
	viper.SetDefault("fal.submit_per_second", 5)

	// Asset storage defaults (disabled until base_url is configured)
	viper.SetDefault("storage.base_url", "")
	viper.SetDefault("storage.public_base_url", "")
	viper.SetDefault("storage.upload_timeout_seconds", 120)

	// Metering defaults (disabled until base_url is configured)
	viper.SetDefault("metering.base_url", "")
	viper.SetDefault("metering.timeout_seconds", 10)

	// HTTP transport defaults
	viper.SetDefault("server.addr", ":8080")

	// Style catalog defaults (embedded styles only until a dir is set)
	viper.SetDefault("catalog.styles_dir", "")
	viper.SetDefault("catalog.embed_model", "fal-ai/any-llm/embeddings")
	viper.SetDefault("catalog.search_limit", 5)

	// Datadog defaults
	viper.SetDefault("datadog.agent_host", "localhost:4318")
	viper.SetDefault("datadog.environment", "dev")
	viper.SetDefault("datadog.service_name", "mirage")
}

// bindEnvVariables binds environment variables explicitly. Secrets are
// env-only so they never have to live in config.yaml.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Generation provider credentials and endpoint override
	mustBind("fal.api_key", "FAL_KEY")
	mustBind("fal.base_url", "MIRAGE_FAL_BASE_URL")
	mustBind("fal.sync_base_url", "MIRAGE_FAL_SYNC_BASE_URL")

	// Asset storage
	mustBind("storage.api_key", "MIRAGE_STORAGE_API_KEY")
	mustBind("storage.base_url", "MIRAGE_STORAGE_BASE_URL")

	// Metering
	mustBind("metering.api_key", "MIRAGE_METERING_API_KEY")
	mustBind("metering.base_url", "MIRAGE_METERING_BASE_URL")

	// HTTP transport auth secret (serve mode only)
	mustBind("server.auth_secret", "MIRAGE_AUTH_SECRET")

	// Style search store
	mustBind("database_url", "DATABASE_URL")

	// Namespace override
	mustBind("verse", "MIRAGE_VERSE")

	// Logging
	mustBind("log_level", "MIRAGE_LOG_LEVEL")

	// Datadog API key (optional, for observability)
	mustBind("datadog.api_key", "DD_API_KEY")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-block characters (U+2588) cannot collide with substrings of real
// secrets the way "****" or "[REDACTED]" can.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer ones keep the
// first and last two characters for debugging utility. This defends
// against accidental logging, not against an adversary with log access.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - DatabaseURL (may embed credentials)
//   - Fal.APIKey, Storage.APIKey, Metering.APIKey, Server.AuthSecret,
//     Datadog.APIKey (via the nested structs' MarshalJSON)
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DatabaseURL = maskSecret(a.DatabaseURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
