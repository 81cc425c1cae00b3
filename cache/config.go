package cache

import (
	"time"

	"github.com/phonoteca/go-query-cache/internal/cachestore"
)

// Config exposes store configuration options for consumers of the cache
// package.
type Config struct {
	// Capacity presizes the store for the expected number of live entries.
	Capacity int

	// DefaultTTL applies when a cached call supplies no positive TTL.
	DefaultTTL time.Duration

	// SweepInterval, when positive, runs a background sweep that drops
	// expired entries. Lazy expiry on access keeps results correct without
	// it; the sweep only bounds memory held by entries nothing reads again.
	SweepInterval time.Duration

	// Clock overrides the store's time source. Nil means time.Now. Tests
	// inject a fake clock to pin TTL boundaries.
	Clock func() time.Time
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cachestore.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewStore constructs the default tag-aware store implementation using the
// provided configuration.
func NewStore(cfg Config) (Store, error) {
	return cachestore.New(cfg.toInternal())
}

func (c Config) toInternal() cachestore.Config {
	return cachestore.Config{
		Capacity:      c.Capacity,
		DefaultTTL:    c.DefaultTTL,
		SweepInterval: c.SweepInterval,
		Clock:         c.Clock,
	}
}

func convertFromInternal(cfg cachestore.Config) Config {
	return Config{
		Capacity:      cfg.Capacity,
		DefaultTTL:    cfg.DefaultTTL,
		SweepInterval: cfg.SweepInterval,
		Clock:         cfg.Clock,
	}
}
