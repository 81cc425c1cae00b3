// Package metrics exposes a cache's effectiveness counters to Prometheus.
//
// The cache keeps its own counters; the exporter only reads a snapshot at
// scrape time and reports it as const metrics. Nothing is double counted
// and the exporter holds no state of its own, so registering it has no
// effect on cache behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/phonoteca/go-query-cache/cache"
)

// StatsSource yields a point-in-time view of the cache counters. Both
// querycache.Cache and library.Manager satisfy it.
type StatsSource interface {
	Stats() cache.StatsSnapshot
}

// Exporter implements prometheus.Collector over a StatsSource.
//
// Register one per cache: prometheus.MustRegister(metrics.NewExporter(qc)).
type Exporter struct {
	source StatsSource

	hits          *prometheus.Desc
	misses        *prometheus.Desc
	invalidations *prometheus.Desc
	entries       *prometheus.Desc
}

// NewExporter creates an exporter reading from source.
func NewExporter(source StatsSource) *Exporter {
	return &Exporter{
		source: source,
		hits: prometheus.NewDesc(
			"querycache_hits_total",
			"Total number of reads served from the cache.",
			nil, nil,
		),
		misses: prometheus.NewDesc(
			"querycache_misses_total",
			"Total number of reads that required recomputation.",
			nil, nil,
		),
		invalidations: prometheus.NewDesc(
			"querycache_invalidations_total",
			"Total number of entries removed by invalidation.",
			nil, nil,
		),
		entries: prometheus.NewDesc(
			"querycache_entries",
			"Current number of cached entries.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.hits
	ch <- e.misses
	ch <- e.invalidations
	ch <- e.entries
}

// Collect implements prometheus.Collector. Each scrape reads one snapshot,
// so the four series are consistent with each other within a scrape.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	stats := e.source.Stats()

	ch <- prometheus.MustNewConstMetric(e.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(e.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(e.invalidations, prometheus.CounterValue, float64(stats.Invalidations))
	ch <- prometheus.MustNewConstMetric(e.entries, prometheus.GaugeValue, float64(stats.Entries))
}

var _ prometheus.Collector = (*Exporter)(nil)
