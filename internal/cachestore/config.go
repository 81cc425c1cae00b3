package cachestore

import "time"

// Config holds the configuration for the tag-aware store.
type Config struct {
	// Capacity presizes the entry map for the expected number of live
	// entries. Zero lets the map grow from its minimum size.
	// Must be non-negative. Default: 4096.
	Capacity int

	// DefaultTTL applies when a put supplies no positive TTL of its own.
	// Must be greater than 0. Default: 5 minutes.
	DefaultTTL time.Duration

	// SweepInterval sets how often the background sweeper drops expired
	// entries. Zero disables the sweeper entirely; expiry is still
	// enforced lazily on every access. Must be non-negative.
	SweepInterval time.Duration

	// Clock supplies the store's notion of now. Nil means time.Now.
	Clock func() time.Time
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:      4096,
		DefaultTTL:    5 * time.Minute,
		SweepInterval: 0,
	}
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.Capacity < 0 {
		return &ConfigError{Field: "Capacity", Message: "must be non-negative"}
	}

	if c.DefaultTTL <= 0 {
		return &ConfigError{Field: "DefaultTTL", Message: "must be greater than 0"}
	}

	if c.SweepInterval < 0 {
		return &ConfigError{Field: "SweepInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
