package gozba

import "time"

// Config represents the configuration for the Gozba core API client.
type Config struct {
	// BaseURL is the base URL of the core API, e.g. https://api.gozba.rs/api
	BaseURL string

	// APIKey authenticates the gateway itself against the core API.
	APIKey string

	// Timeout bounds a single round-trip. Zero means the default of 30s.
	Timeout time.Duration
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.APIKey == "" {
		return ErrInvalidConfig
	}
	return nil
}
