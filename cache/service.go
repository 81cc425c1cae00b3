package cache

import "time"

// KeyBuilder derives a cache key from an operation name plus its argument
// set. Implementations must be pure: the same operation and semantically
// equal arguments always yield an equal key, independent of process or
// call order. Arguments that cannot be encoded deterministically are
// rejected with an error rather than hashed unreliably.
type KeyBuilder interface {
	BuildKey(op string, args []any, kwargs map[string]any) (string, error)
}

// TagResolver derives the set of invalidation tags a cached result depends
// on, given the operation and the arguments it was called with. Tags scope
// later invalidation: a write declares patterns, and every entry holding a
// matching tag is evicted.
type TagResolver interface {
	TagsFor(op string, args []any, kwargs map[string]any) ([]string, error)
}

// Store holds tagged query results until they expire or are invalidated.
// It is exported so other packages can supply alternate backends; the
// default is the in-process store built by NewStore.
//
// All methods are safe for concurrent use. Get and Put on the same key are
// linearized per key: Get never returns an expired value and never leaves
// one behind.
type Store interface {
	// Get returns the value stored under key, or ok=false when the key is
	// absent or its entry has expired. Expired entries are removed as a
	// side effect of the lookup.
	Get(key string) (value any, ok bool)

	// Put stores value under key, overwriting any existing entry. The
	// entry carries the given tags and expires ttl from now; a
	// non-positive ttl falls back to the store's default TTL.
	Put(key string, value any, tags []string, ttl time.Duration)

	// PutIfFresh stores like Put unless the store's version has advanced
	// past version, which happens on every Invalidate or Clear. It reports
	// whether the value was stored. Callers snapshot Version before
	// computing a value so a result computed before an invalidation is
	// never stored after it.
	PutIfFresh(version uint64, key string, value any, tags []string, ttl time.Duration) bool

	// Version returns the current invalidation version.
	Version() uint64

	// Delete removes the entry stored under exactly key and reports whether
	// one was present. Like Invalidate, it advances the store version so an
	// overlapping fill for the key cannot restore the deleted value.
	Delete(key string) bool

	// Invalidate removes every entry whose tag set contains at least one
	// tag matching pattern and returns the number removed. A tag matches
	// when the pattern equals the tag or a colon-delimited segment prefix
	// of it: tag "a:b:c" matches patterns "a", "a:b", and "a:b:c", but not
	// "a:b:d".
	Invalidate(pattern string) int

	// Clear removes all entries. Intended for tests and administrative
	// resets, not the hot path.
	Clear()

	// Len reports the current number of entries, including any whose TTL
	// has lapsed but which no access has evicted yet.
	Len() int

	// Close stops the background sweeper when one was configured. The
	// store remains usable afterwards; Close is idempotent.
	Close()
}
