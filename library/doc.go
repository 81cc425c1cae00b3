// Package library is the music-library backend the query cache fronts: a
// bun-backed track repository, a cache policy mapping each read operation to
// a TTL and invalidation tags, and a Manager that serves reads through the
// cache and invalidates after writes.
//
// The package doubles as the reference wiring for the cache packages; an
// application caching a different domain follows the same shape with its own
// operations and tags.
package library
