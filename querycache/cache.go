package querycache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/phonoteca/go-query-cache/cache"
)

// ErrInvalidResultType reports a cache hit whose stored value does not match
// the result type the call site expects. It means two operations collided on
// one key with different result types, which is a programming error at the
// call sites, not a runtime condition.
var ErrInvalidResultType = errors.New("cached value has unexpected type")

// ErrRecursiveCompute reports a compute function that re-entered the cache
// for a key already being computed in the same call chain. Failing fast here
// is what keeps single-flight from deadlocking on itself.
var ErrRecursiveCompute = errors.New("recursive cached call for in-flight key")

// Query describes one cached read call.
type Query struct {
	// Op is the logical operation name, e.g. "search_tracks".
	Op string

	// Args holds positional arguments in call order. Primitives only; see
	// cache.KeyBuilder.
	Args []any

	// Kwargs holds named arguments. Primitives only. Iteration order never
	// matters: keys are sorted by name during key construction.
	Kwargs map[string]any

	// TTL bounds how stale this call site tolerates its result. Different
	// operations choose different TTLs (recency-sensitive lists run short,
	// rarely-changing ones long). Non-positive falls back to the store's
	// default.
	TTL time.Duration
}

// ComputeFn produces a fresh value on a cache miss.
type ComputeFn[T any] func(ctx context.Context) (T, error)

// Cache is the cached-query entry point. Read collaborators call Do with an
// operation, its arguments, a TTL, and a compute closure; write
// collaborators call Invalidate with the patterns their mutation affects,
// immediately after the write is durably applied.
//
// Values flow through the cache unchanged: a caller cannot tell a hit from a
// miss except through Stats. Callers must treat returned values as shared
// and not mutate them.
type Cache struct {
	store cache.Store
	keys  cache.KeyBuilder
	tags  cache.TagResolver
	stats *cache.StatsCollector
	log   *slog.Logger
	sf    *singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger routes the cache's debug logging (invalidation sweeps,
// discarded fills) to l. The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithSingleFlight collapses concurrent misses for the same key into one
// compute whose result every waiting caller shares. Each caller still
// observes at most one compute per call; recursion on an in-flight key fails
// with ErrRecursiveCompute instead of deadlocking.
func WithSingleFlight() Option {
	return func(c *Cache) {
		c.sf = new(singleflight.Group)
	}
}

// New assembles a Cache from a store, a key builder, and a tag resolver.
// Most callers build these through pkg/di; tests wire isolated instances
// directly.
func New(store cache.Store, keys cache.KeyBuilder, tags cache.TagResolver, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		keys:  keys,
		tags:  tags,
		stats: cache.NewStatsCollector(),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do returns the cached value for q, or invokes compute exactly once,
// stores the result tagged for later invalidation, and returns it. Hits
// return without suspension; misses suspend only for compute. A compute
// failure caches nothing and propagates unchanged.
//
// Do is a package-level function because methods cannot carry type
// parameters; it delegates to the untyped core and re-asserts the result.
func Do[T any](ctx context.Context, c *Cache, q Query, compute ComputeFn[T]) (T, error) {
	var zero T

	result, err := c.do(ctx, q, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: operation %q holds %T", ErrInvalidResultType, q.Op, result)
	}
	return typed, nil
}

// do carries the untyped hit/miss flow shared by every instantiation of Do.
func (c *Cache) do(ctx context.Context, q Query, compute func(context.Context) (any, error)) (any, error) {
	key, err := c.keys.BuildKey(q.Op, q.Args, q.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("build key for %q: %w", q.Op, err)
	}

	// Tags are derivable before the result exists; resolving them up front
	// fails bad calls without wasting a compute.
	tags, err := c.tags.TagsFor(q.Op, q.Args, q.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("derive tags for %q: %w", q.Op, err)
	}
	tags = mergeTags(tags, extraTagsFromContext(ctx))

	if value, ok := c.store.Get(key); ok {
		c.stats.RecordHit()
		return value, nil
	}
	c.stats.RecordMiss()

	if inFlight(ctx, key) {
		return nil, fmt.Errorf("%w: %s", ErrRecursiveCompute, key)
	}
	ctx = markInFlight(ctx, key)

	if c.sf != nil {
		value, err, _ := c.sf.Do(key, func() (any, error) {
			return c.fill(ctx, key, tags, q.TTL, compute)
		})
		return value, err
	}
	return c.fill(ctx, key, tags, q.TTL, compute)
}

// fill computes a fresh value and stores it, unless an invalidation ran
// while compute was in flight; then the value is returned to this caller but
// not cached, since the write that triggered the invalidation may have
// changed its truth.
func (c *Cache) fill(ctx context.Context, key string, tags []string, ttl time.Duration, compute func(context.Context) (any, error)) (any, error) {
	version := c.store.Version()

	value, err := compute(ctx)
	if err != nil {
		// Nothing is cached and the recorded miss stands: no put follows.
		return nil, err
	}

	if !c.store.PutIfFresh(version, key, value, tags, ttl) {
		c.log.Debug("fill discarded after invalidation", "key", key)
	}
	return value, nil
}

// Invalidate is the invalidation trigger: write paths call it synchronously
// right after their write is durably applied, passing every pattern the
// mutation affects. It returns the number of entries removed across all
// patterns. Unknown patterns remove nothing and are not an error.
func (c *Cache) Invalidate(patterns ...string) int {
	removed := 0
	for _, p := range patterns {
		removed += c.store.Invalidate(p)
	}
	c.stats.RecordInvalidation(removed)
	c.log.Debug("cache invalidated", "patterns", patterns, "removed", removed)
	return removed
}

// Forget removes the entry for exactly one query, identified the same way
// Do identifies it. It reports whether an entry was present. Most write
// paths invalidate by pattern; Forget serves the narrow case where a caller
// knows the one query it made stale.
func (c *Cache) Forget(q Query) (bool, error) {
	key, err := c.keys.BuildKey(q.Op, q.Args, q.Kwargs)
	if err != nil {
		return false, fmt.Errorf("build key for %q: %w", q.Op, err)
	}

	removed := c.store.Delete(key)
	if removed {
		c.stats.RecordInvalidation(1)
	}
	c.log.Debug("cache entry forgotten", "key", key, "removed", removed)
	return removed, nil
}

// Clear removes every entry. For tests and administrative resets; a normal
// write path invalidates by pattern instead.
func (c *Cache) Clear() {
	c.store.Clear()
}

// Stats snapshots the effectiveness counters together with the current
// entry count.
func (c *Cache) Stats() cache.StatsSnapshot {
	return c.stats.Snapshot(c.store.Len())
}

// ResetStats zeroes the counters. Stored entries are untouched.
func (c *Cache) ResetStats() {
	c.stats.Reset()
}

// Close releases the store's background resources.
func (c *Cache) Close() {
	c.store.Close()
}
