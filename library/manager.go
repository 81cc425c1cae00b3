package library

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phonoteca/go-query-cache/cache"
	"github.com/phonoteca/go-query-cache/querycache"
)

// Read operation names. They double as cache key prefixes and as the keys of
// the tag policy, so they are fixed identifiers rather than derived from
// method names.
const (
	OpSearchTracks   = "search_tracks"
	OpRecentTracks   = "recent_tracks"
	OpPopularTracks  = "popular_tracks"
	OpFavoriteTracks = "favorite_tracks"
	OpGetTrack       = "get_track"
)

// TrackStore is the persistence surface the manager runs on. TrackRepository
// implements it; tests substitute counting fakes.
type TrackStore interface {
	Search(ctx context.Context, q string, page Page) (*TrackPage, error)
	Recent(ctx context.Context, limit int) ([]*Track, error)
	Popular(ctx context.Context, limit int) ([]*Track, error)
	Favorites(ctx context.Context, page Page) (*TrackPage, error)
	ByID(ctx context.Context, id string) (*Track, error)
	Insert(ctx context.Context, track *Track) error
	Update(ctx context.Context, track *Track) error
	Delete(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	IncrementPlayCount(ctx context.Context, id string) error
}

// Manager is the cached front of the track store. Reads go through the
// query cache with the policy's TTL and tags; writes hit the store first and
// invalidate the affected patterns immediately after the write is applied,
// never before.
type Manager struct {
	store  TrackStore
	cache  *querycache.Cache
	policy Policy
	log    *slog.Logger
	now    func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPolicy replaces the default cache policy. The policy's tags must
// already be registered on the cache's tag table.
func WithPolicy(p Policy) ManagerOption {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithManagerLogger routes the manager's write logging to l.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// withClock injects the manager's notion of now for tests.
func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager builds a Manager over a store and an already-wired query cache.
// The cache's tag table must carry this manager's operations; pkg/di wires
// both sides consistently.
func NewManager(store TrackStore, qc *querycache.Cache, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		cache:  qc,
		policy: DefaultPolicy(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SearchTracks returns one page of tracks matching q, served from cache when
// a previous identical search is still fresh.
func (m *Manager) SearchTracks(ctx context.Context, q string, page Page) (*TrackPage, error) {
	page = page.normalized()
	query := querycache.Query{
		Op:     OpSearchTracks,
		Kwargs: map[string]any{"q": q, "limit": page.Limit, "offset": page.Offset},
		TTL:    m.policy.TTLFor(OpSearchTracks),
	}
	return querycache.Do(ctx, m.cache, query, func(ctx context.Context) (*TrackPage, error) {
		return m.store.Search(ctx, q, page)
	})
}

// RecentTracks returns the most recently added tracks.
func (m *Manager) RecentTracks(ctx context.Context, limit int) ([]*Track, error) {
	query := querycache.Query{
		Op:     OpRecentTracks,
		Kwargs: map[string]any{"limit": limit},
		TTL:    m.policy.TTLFor(OpRecentTracks),
	}
	return querycache.Do(ctx, m.cache, query, func(ctx context.Context) ([]*Track, error) {
		return m.store.Recent(ctx, limit)
	})
}

// PopularTracks returns the most played tracks.
func (m *Manager) PopularTracks(ctx context.Context, limit int) ([]*Track, error) {
	query := querycache.Query{
		Op:     OpPopularTracks,
		Kwargs: map[string]any{"limit": limit},
		TTL:    m.policy.TTLFor(OpPopularTracks),
	}
	return querycache.Do(ctx, m.cache, query, func(ctx context.Context) ([]*Track, error) {
		return m.store.Popular(ctx, limit)
	})
}

// FavoriteTracks returns one page of favorite tracks.
func (m *Manager) FavoriteTracks(ctx context.Context, page Page) (*TrackPage, error) {
	page = page.normalized()
	query := querycache.Query{
		Op:     OpFavoriteTracks,
		Kwargs: map[string]any{"limit": page.Limit, "offset": page.Offset},
		TTL:    m.policy.TTLFor(OpFavoriteTracks),
	}
	return querycache.Do(ctx, m.cache, query, func(ctx context.Context) (*TrackPage, error) {
		return m.store.Favorites(ctx, page)
	})
}

// GetTrack returns a single track by id.
func (m *Manager) GetTrack(ctx context.Context, id string) (*Track, error) {
	query := querycache.Query{
		Op:     OpGetTrack,
		Kwargs: map[string]any{"id": id},
		TTL:    m.policy.TTLFor(OpGetTrack),
	}
	return querycache.Do(ctx, m.cache, query, func(ctx context.Context) (*Track, error) {
		return m.store.ByID(ctx, id)
	})
}

// CreateTrack stores a new track, assigning an id and timestamps when the
// caller left them empty, then evicts the listings the new row belongs in.
func (m *Manager) CreateTrack(ctx context.Context, track *Track) (*Track, error) {
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	now := m.now().UTC()
	if track.AddedAt.IsZero() {
		track.AddedAt = now
	}
	track.UpdatedAt = now

	if err := m.store.Insert(ctx, track); err != nil {
		return nil, err
	}

	patterns := []string{"tracks"}
	if track.Favorite {
		patterns = append(patterns, "tracks:favorites")
	}
	m.invalidate(ctx, "create_track", patterns)
	return track, nil
}

// UpdateTrack replaces a track's stored fields. The previous row state is
// unknown here, so the favorites listing is always evicted; a track may have
// just left or joined it.
func (m *Manager) UpdateTrack(ctx context.Context, track *Track) (*Track, error) {
	track.UpdatedAt = m.now().UTC()

	if err := m.store.Update(ctx, track); err != nil {
		return nil, err
	}

	m.invalidate(ctx, "update_track", []string{"tracks", "tracks:favorites", trackPattern(track.ID)})
	return track, nil
}

// DeleteTrack removes a track. The row is loaded first so the eviction can
// tell whether the favorites listing is affected.
func (m *Manager) DeleteTrack(ctx context.Context, id string) error {
	track, err := m.store.ByID(ctx, id)
	if err != nil {
		return err
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	patterns := []string{"tracks", trackPattern(id)}
	if track.Favorite {
		patterns = append(patterns, "tracks:favorites")
	}
	m.invalidate(ctx, "delete_track", patterns)
	return nil
}

// SetFavorite flips a track's favorite flag and evicts both the track and
// the listings membership changes move it between.
func (m *Manager) SetFavorite(ctx context.Context, id string, favorite bool) error {
	if err := m.store.SetFavorite(ctx, id, favorite); err != nil {
		return err
	}

	m.invalidate(ctx, "set_favorite", []string{"tracks", "tracks:favorites", trackPattern(id)})
	return nil
}

// RecordPlay bumps a track's play count. Only the popularity listing and the
// track itself are evicted: play counts shown inside other cached listings
// may lag until their TTL, which is an accepted trade for keeping
// high-frequency plays from flushing every list.
func (m *Manager) RecordPlay(ctx context.Context, id string) error {
	if err := m.store.IncrementPlayCount(ctx, id); err != nil {
		return err
	}

	m.invalidate(ctx, "record_play", []string{"tracks:popular", trackPattern(id)})
	return nil
}

// CacheStats exposes the cache effectiveness counters.
func (m *Manager) CacheStats() cache.StatsSnapshot {
	return m.cache.Stats()
}

// trackPattern builds the entity-scoped pattern for one track, sanitized the
// same way tag expansion sanitizes the id, so the pattern always matches the
// tag the read side derived.
func trackPattern(id string) string {
	return "track:" + cache.TagValue(id)
}

// invalidate runs after the mutation is applied; the removed count is only
// logged, a mutation never fails on cache bookkeeping.
func (m *Manager) invalidate(ctx context.Context, mutation string, patterns []string) {
	removed := m.cache.Invalidate(patterns...)
	m.log.DebugContext(ctx, "invalidated after mutation",
		"mutation", mutation,
		"patterns", patterns,
		"removed", removed,
	)
}
