package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/phonoteca/go-query-cache/cache"
	"github.com/phonoteca/go-query-cache/pkg/testsupport"
	"github.com/phonoteca/go-query-cache/querycache"
)

// stubSource returns a fixed snapshot, so scrape output is exact.
type stubSource struct {
	snapshot cache.StatsSnapshot
}

func (s stubSource) Stats() cache.StatsSnapshot { return s.snapshot }

func TestExporter_Collect(t *testing.T) {
	exporter := NewExporter(stubSource{snapshot: cache.StatsSnapshot{
		Hits:          12,
		Misses:        4,
		Invalidations: 3,
		Entries:       2,
	}})

	expected := `
# HELP querycache_entries Current number of cached entries.
# TYPE querycache_entries gauge
querycache_entries 2
# HELP querycache_hits_total Total number of reads served from the cache.
# TYPE querycache_hits_total counter
querycache_hits_total 12
# HELP querycache_invalidations_total Total number of entries removed by invalidation.
# TYPE querycache_invalidations_total counter
querycache_invalidations_total 3
# HELP querycache_misses_total Total number of reads that required recomputation.
# TYPE querycache_misses_total counter
querycache_misses_total 4
`

	if err := testutil.CollectAndCompare(exporter, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected scrape output: %v", err)
	}
}

func TestExporter_Describe(t *testing.T) {
	exporter := NewExporter(stubSource{})

	ch := make(chan *prometheus.Desc, 8)
	exporter.Describe(ch)
	close(ch)

	var count int
	for range ch {
		count++
	}
	if count != 4 {
		t.Errorf("expected 4 metric descriptions, got %d", count)
	}
}

func TestExporter_Registration(t *testing.T) {
	registry := prometheus.NewRegistry()
	exporter := NewExporter(stubSource{})

	if err := registry.Register(exporter); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if len(families) != 4 {
		t.Errorf("expected 4 metric families, got %d", len(families))
	}
}

// TestExporter_LiveCache scrapes a real cache after a miss, a hit, and an
// invalidation, checking the exporter reflects the cache's own counters.
func TestExporter_LiveCache(t *testing.T) {
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	tags := cache.NewTagTable()
	tags.Register("get_value", "values")

	qc := querycache.New(store, cache.NewKeyBuilder(), tags)
	defer qc.Close()

	ctx := context.Background()
	query := querycache.Query{Op: "get_value", Args: []any{1}}
	compute := func(ctx context.Context) (string, error) { return "v", nil }

	if _, err := querycache.Do(ctx, qc, query, compute); err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if _, err := querycache.Do(ctx, qc, query, compute); err != nil {
		t.Fatalf("second Do() failed: %v", err)
	}
	if removed := qc.Invalidate("values"); removed != 1 {
		t.Fatalf("expected Invalidate to remove 1 entry, got %d", removed)
	}

	exporter := NewExporter(qc)

	expected := testsupport.LoadReader(t, testsupport.FixturePath("scrape.txt"))
	if err := testutil.CollectAndCompare(exporter, expected); err != nil {
		t.Errorf("unexpected scrape output: %v", err)
	}
}
