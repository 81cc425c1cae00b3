// Package querycache provides the cached-query entry point that sits between
// a manager layer and its repository layer.
//
// # Overview
//
// Read paths hand the cache an operation name, the call's arguments, a TTL,
// and a compute closure; write paths hand it the invalidation patterns their
// mutation affects. The cache decides whether a previously computed result
// is still valid, expires results in bounded time, and removes exactly the
// entries a write could have made stale, never the whole cache and never
// too little.
//
// The compute operation is an explicit closure passed at the call site; the
// cache carries no knowledge of methods, receivers, or query shapes, and any
// value a compute returns can be cached, including composite pagination
// results.
//
// # Basic Usage
//
// Wire a Cache once at startup and inject it into every collaborator:
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	tags := cache.NewTagTable()
//	tags.Register("search_tracks", "tracks")
//	tags.Register("get_track", "tracks", "track:{id}")
//
//	qc := querycache.New(store, cache.NewKeyBuilder(), tags)
//
// Read call sites pass their compute closure and per-operation TTL:
//
//	page, err := querycache.Do(ctx, qc, querycache.Query{
//		Op:     "search_tracks",
//		Kwargs: map[string]any{"q": "jazz", "limit": 20, "offset": 0},
//		TTL:    time.Minute,
//	}, func(ctx context.Context) (TrackPage, error) {
//		return repo.SearchTracks(ctx, "jazz", 20, 0)
//	})
//
// Write call sites invalidate after the durable write, synchronously:
//
//	if err := repo.InsertTrack(ctx, track); err != nil {
//		return err
//	}
//	qc.Invalidate("tracks")
//
// # Hit/miss contract
//
//   - A hit returns the stored value unchanged, without suspension.
//   - A miss invokes compute exactly once for this call, stores the result
//     tagged by the resolver, and returns it. Hit and miss are otherwise
//     indistinguishable to the caller; only Stats tells them apart.
//   - A compute failure caches nothing and propagates unchanged. The call
//     records a miss with no subsequent put.
//
// Concurrent misses for the same key from independent callers each compute
// independently and the store keeps the last write. WithSingleFlight
// collapses them into one shared compute instead. Either way, a compute that
// re-enters the cache for its own key fails fast with ErrRecursiveCompute
// rather than recursing or deadlocking.
//
// # Invalidation
//
// Entries carry the tags derived for their operation. Invalidate matches
// patterns against tags by colon-delimited segment prefix, so a track
// deletion can run
//
//	qc.Invalidate("tracks", "track:42")
//
// sweeping every list-style entry (tagged "tracks" or deeper) plus the
// single-entry caches for id 42, while leaving unrelated domains alone.
// Declaring the full pattern set per mutation kind is the write path's
// responsibility; forgetting one is a silent-staleness bug no runtime check
// can catch, which is why the library package enumerates and tests its
// mutation table exhaustively.
//
// A result computed concurrently with an invalidation is returned to its
// caller but not stored: the store's version fence discards fills that began
// before the sweep.
//
// # See Also
//
// For key construction, tag derivation, and store semantics, see the cache
// package. For container wiring, see pkg/di.
package querycache
