package library

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phonoteca/go-query-cache/cache"
)

// Duration wraps time.Duration so policy files can write "30s" or "5m"
// instead of nanosecond integers.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler using time.ParseDuration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration back in time.Duration syntax.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// OpPolicy is the cache policy for one read operation: how stale its results
// may get and which tags its entries carry for invalidation.
type OpPolicy struct {
	TTL  Duration `yaml:"ttl"`
	Tags []string `yaml:"tags"`
}

// Policy maps read operations to their cache policies. It is the single
// place where staleness tolerance and invalidation scope are decided;
// call sites carry neither.
type Policy struct {
	Operations map[string]OpPolicy `yaml:"operations"`
}

// DefaultPolicy returns the built-in policy for the library's read
// operations. Recency-sensitive listings run short TTLs; single-track
// lookups run long ones because their invalidation is precise.
func DefaultPolicy() Policy {
	return Policy{
		Operations: map[string]OpPolicy{
			OpSearchTracks: {
				TTL:  Duration{30 * time.Second},
				Tags: []string{"tracks"},
			},
			OpRecentTracks: {
				TTL:  Duration{30 * time.Second},
				Tags: []string{"tracks"},
			},
			OpPopularTracks: {
				TTL:  Duration{5 * time.Minute},
				Tags: []string{"tracks", "tracks:popular"},
			},
			OpFavoriteTracks: {
				TTL:  Duration{2 * time.Minute},
				Tags: []string{"tracks", "tracks:favorites"},
			},
			OpGetTrack: {
				TTL:  Duration{10 * time.Minute},
				Tags: []string{"tracks", "track:{id}"},
			},
		},
	}
}

// LoadPolicy reads a YAML policy file and merges it over the defaults:
// operations in the file replace their default policy, operations it leaves
// out keep theirs.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	var file Policy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	for op, p := range file.Operations {
		policy.Operations[op] = p
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

// Validate checks that every operation carries at least one tag and no
// negative TTL. An entry without tags could never be invalidated.
func (p Policy) Validate() error {
	for op, pol := range p.Operations {
		if op == "" {
			return fmt.Errorf("policy has an operation with an empty name")
		}
		if len(pol.Tags) == 0 {
			return fmt.Errorf("operation %q: at least one tag is required", op)
		}
		for _, tag := range pol.Tags {
			if tag == "" {
				return fmt.Errorf("operation %q: empty tag", op)
			}
		}
		if pol.TTL.Duration < 0 {
			return fmt.Errorf("operation %q: ttl must be non-negative", op)
		}
	}
	return nil
}

// TTLFor returns the TTL for op, or zero when the policy does not know it;
// zero defers to the store's default TTL.
func (p Policy) TTLFor(op string) time.Duration {
	return p.Operations[op].TTL.Duration
}

// RegisterTags installs every operation's tag templates into the table the
// cache resolves tags from. Called once while wiring.
func (p Policy) RegisterTags(table *cache.TagTable) {
	for op, pol := range p.Operations {
		table.Register(op, pol.Tags...)
	}
}
