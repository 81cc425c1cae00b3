// Package cache provides the contracts and building blocks for query-result
// caching with tag-based invalidation.
//
// # Overview
//
// This package exports the interfaces the caching layer is assembled from,
// together with their default implementations:
//
//   - Store: holds tagged entries with per-entry expiry; supports get with
//     lazy expiry, put, pattern invalidation, and clear
//   - KeyBuilder: derives a deterministic cache key from an operation name
//     and its arguments
//   - TagResolver: derives the invalidation tags a result depends on
//   - StatsCollector: hit/miss/invalidation counters and snapshots
//
// The querycache package composes these into the cached-call entry point
// most applications use; this package is the extension surface for callers
// that need to swap one piece out.
//
// # Keys
//
// The default key builder accepts numbers, strings, booleans, nil, and
// nested slices of these. It rejects maps, structs, funcs, and channels with
// ErrUnsupportedArg: their encodings depend on iteration order or identity,
// and a key that differs between two equal calls silently turns every read
// into a miss. Keyword arguments are sorted by name, so
//
//	BuildKey("search_tracks", nil, map[string]any{"q": "jazz", "limit": 20})
//	BuildKey("search_tracks", nil, map[string]any{"limit": 20, "q": "jazz"})
//
// produce the same key.
//
// # Tags and invalidation patterns
//
// A tag names a data domain a cached result depends on, hierarchically via
// colon-delimited segments: "tracks", "tracks:favorites", "track:42". An
// invalidation pattern matches a tag when it equals the tag or a segment
// prefix of it, so invalidating "tracks" sweeps every list-style entry while
// "track:42" touches only caches scoped to that one id.
//
// Tag derivation is configuration: register each operation's templates once
// at startup,
//
//	tags := cache.NewTagTable()
//	tags.Register("search_tracks", "tracks")
//	tags.Register("get_track", "tracks", "track:{id}")
//
// and the table expands placeholders from the call's arguments.
//
// # Store semantics
//
// The default store (built by NewStore) removes expired entries as a side
// effect of Get, so a stale value never escapes. Invalidate and Clear advance
// a version counter; PutIfFresh discards values computed before the version
// moved, which keeps a slow compute from resurrecting data a later write
// already invalidated.
package cache
