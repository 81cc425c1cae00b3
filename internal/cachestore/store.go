// Package cachestore implements the in-process tag-aware store behind the
// public cache.Store interface.
//
// Entries live in an xsync map and are immutable once stored: a put replaces
// the whole entry, so readers never observe a half-updated one. Hits take
// the map's lock-free read path. Fills (put) and invalidation sweeps are
// ordered by a store-wide RWMutex plus a version counter, which is what lets
// the wrapper discard a result computed before an invalidation instead of
// resurrecting it afterwards.
package cachestore

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// entry is one cached result. The tag slice is owned by the store; it is
// copied on the way in and never handed out.
type entry struct {
	value     any
	tags      []string
	createdAt time.Time
	expiresAt time.Time
}

// expired reports whether the entry's TTL has lapsed at now. The boundary
// instant itself counts as expired: an entry is valid only while
// now < expiresAt.
func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// TagStore holds tagged query results with per-entry expiry.
//
// Locking discipline: Get never takes fillMu (hits stay lock-free), Put and
// PutIfFresh take it shared, Invalidate and Clear take it exclusively. With
// fills excluded during a sweep, the sweep's Range observes every entry a
// committed fill produced, and any fill that started before the sweep fails
// its version check afterwards. Expired-entry deletion needs no fence: a
// dead entry cannot go stale twice.
type TagStore struct {
	entries *xsync.MapOf[string, entry]
	version atomic.Uint64
	fillMu  sync.RWMutex

	defaultTTL time.Duration
	now        func() time.Time

	stopSweep chan struct{}
	closeOnce sync.Once
}

// New creates a TagStore after validating the configuration.
func New(cfg Config) (*TagStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	var opts []func(*xsync.MapConfig)
	if cfg.Capacity > 0 {
		opts = append(opts, xsync.WithPresize(cfg.Capacity))
	}

	s := &TagStore{
		entries:    xsync.NewMapOf[string, entry](opts...),
		defaultTTL: cfg.DefaultTTL,
		now:        now,
	}

	if cfg.SweepInterval > 0 {
		s.stopSweep = make(chan struct{})
		go s.sweepLoop(cfg.SweepInterval)
	}

	return s, nil
}

// Get returns the value stored under key. Absent and expired keys both
// report ok=false; an expired entry is deleted as a side effect, re-checked
// under the per-key lock so a fresh replacement racing in is left alone.
func (s *TagStore) Get(key string) (any, bool) {
	e, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}

	now := s.now()
	if !e.expired(now) {
		return e.value, true
	}

	s.entries.Compute(key, func(old entry, loaded bool) (entry, bool) {
		if !loaded || old.expired(now) {
			return entry{}, true
		}
		return old, false
	})
	return nil, false
}

// Put stores value under key, overwriting any existing entry.
func (s *TagStore) Put(key string, value any, tags []string, ttl time.Duration) {
	e := s.newEntry(value, tags, ttl)

	s.fillMu.RLock()
	defer s.fillMu.RUnlock()
	s.entries.Store(key, e)
}

// PutIfFresh stores value unless Invalidate or Clear advanced the store
// version past the one the caller observed. The version cannot move while
// the shared lock is held, so the check and the store are atomic with
// respect to invalidation.
func (s *TagStore) PutIfFresh(version uint64, key string, value any, tags []string, ttl time.Duration) bool {
	e := s.newEntry(value, tags, ttl)

	s.fillMu.RLock()
	defer s.fillMu.RUnlock()

	if s.version.Load() != version {
		return false
	}
	s.entries.Store(key, e)
	return true
}

// Version returns the current invalidation version.
func (s *TagStore) Version() uint64 {
	return s.version.Load()
}

// Delete removes the entry stored under key and reports whether one was
// present. It fences like Invalidate: an overlapping fill for the key fails
// its version check instead of restoring the deleted value.
func (s *TagStore) Delete(key string) bool {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	s.version.Add(1)

	removed := false
	s.entries.Compute(key, func(_ entry, loaded bool) (entry, bool) {
		removed = loaded
		return entry{}, true
	})
	return removed
}

// Invalidate removes every entry holding at least one tag that matches
// pattern and returns the number removed. An empty pattern removes nothing.
func (s *TagStore) Invalidate(pattern string) int {
	if pattern == "" {
		return 0
	}

	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	s.version.Add(1)

	removed := 0
	s.entries.Range(func(key string, e entry) bool {
		if !matchesAny(e.tags, pattern) {
			return true
		}
		// Fills are excluded while the exclusive lock is held, so the
		// entry can only have been deleted by a concurrent expiry check,
		// never replaced; loaded means it is still the one we matched.
		s.entries.Compute(key, func(_ entry, loaded bool) (entry, bool) {
			if loaded {
				removed++
			}
			return entry{}, true
		})
		return true
	})
	return removed
}

// Clear removes all entries and advances the version so in-flight fills are
// discarded.
func (s *TagStore) Clear() {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()

	s.version.Add(1)
	s.entries.Clear()
}

// Len reports the number of stored entries, counting any whose TTL lapsed
// without an access to evict them.
func (s *TagStore) Len() int {
	return s.entries.Size()
}

// Close stops the background sweeper if one was configured. Idempotent; the
// store remains usable afterwards.
func (s *TagStore) Close() {
	s.closeOnce.Do(func() {
		if s.stopSweep != nil {
			close(s.stopSweep)
		}
	})
}

func (s *TagStore) newEntry(value any, tags []string, ttl time.Duration) entry {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	return entry{
		value:     value,
		tags:      append([]string(nil), tags...),
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

func (s *TagStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopSweep:
			return
		}
	}
}

// sweepExpired drops entries whose TTL lapsed with nothing reading them.
// Each candidate is re-checked under the per-key lock so a fresh fill that
// raced the scan survives.
func (s *TagStore) sweepExpired() int {
	now := s.now()
	removed := 0
	s.entries.Range(func(key string, e entry) bool {
		if !e.expired(now) {
			return true
		}
		s.entries.Compute(key, func(old entry, loaded bool) (entry, bool) {
			if !loaded || old.expired(now) {
				if loaded {
					removed++
				}
				return entry{}, true
			}
			return old, false
		})
		return true
	})
	return removed
}

// MatchTag reports whether tag matches pattern: the pattern must equal the
// tag or be a colon-delimited segment prefix of it. Tag "a:b:c" matches
// patterns "a", "a:b", and "a:b:c", but not "a:b:d" and not the bare string
// prefix "a:b:cc".
func MatchTag(tag, pattern string) bool {
	if pattern == "" {
		return false
	}
	if tag == pattern {
		return true
	}
	return len(tag) > len(pattern) &&
		strings.HasPrefix(tag, pattern) &&
		tag[len(pattern)] == ':'
}

func matchesAny(tags []string, pattern string) bool {
	for _, t := range tags {
		if MatchTag(t, pattern) {
			return true
		}
	}
	return false
}
