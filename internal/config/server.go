package config

import (
	"encoding/json"
	"fmt"
)

// ServerConfig holds the streamable HTTP transport configuration
// (serve mode only; the stdio transport needs none of this).
type ServerConfig struct {
	// Addr is the listen address (default: ":8080").
	Addr string `mapstructure:"addr" json:"addr"`

	// AuthSecret verifies bearer tokens on incoming requests
	// (MIRAGE_AUTH_SECRET). Empty runs the transport unauthenticated.
	// SENSITIVE: masked in MarshalJSON.
	AuthSecret string `mapstructure:"auth_secret" json:"auth_secret"`
}

// MarshalJSON masks the auth secret.
func (c ServerConfig) MarshalJSON() ([]byte, error) {
	type alias ServerConfig
	a := alias(c)
	a.AuthSecret = maskSecret(a.AuthSecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal server config: %w", err)
	}
	return data, nil
}
