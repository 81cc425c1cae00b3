package cache

import "github.com/puzpuzpuz/xsync/v3"

// StatsSnapshot is a point-in-time view of the cache effectiveness counters.
// Invalidations counts entries removed by invalidation sweeps, not the
// number of sweeps.
type StatsSnapshot struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	Entries       int64
}

// HitRate returns Hits / (Hits + Misses), or 0 before any lookup has
// happened.
func (s StatsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StatsCollector accumulates hit, miss, and invalidation counts. It is
// purely observational and never influences cache behavior. The counters are
// striped so parallel request goroutines do not contend on a single cache
// line.
type StatsCollector struct {
	hits          *xsync.Counter
	misses        *xsync.Counter
	invalidations *xsync.Counter
}

// NewStatsCollector creates a collector with all counters at zero.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		hits:          xsync.NewCounter(),
		misses:        xsync.NewCounter(),
		invalidations: xsync.NewCounter(),
	}
}

// RecordHit counts a read served from the store.
func (c *StatsCollector) RecordHit() { c.hits.Inc() }

// RecordMiss counts a read that required recomputation.
func (c *StatsCollector) RecordMiss() { c.misses.Inc() }

// RecordInvalidation adds the number of entries an invalidation removed.
func (c *StatsCollector) RecordInvalidation(count int) {
	c.invalidations.Add(int64(count))
}

// Snapshot captures the counters together with the entry count reported by
// the store.
func (c *StatsCollector) Snapshot(entries int) StatsSnapshot {
	return StatsSnapshot{
		Hits:          c.hits.Value(),
		Misses:        c.misses.Value(),
		Invalidations: c.invalidations.Value(),
		Entries:       int64(entries),
	}
}

// Reset zeroes every counter. Expiry or invalidation of individual entries
// never resets counters; only an explicit call does.
func (c *StatsCollector) Reset() {
	c.hits.Reset()
	c.misses.Reset()
	c.invalidations.Reset()
}
