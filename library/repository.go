package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// TrackRepository reads and writes tracks through bun. It knows nothing
// about caching; Manager layers the cache on top.
type TrackRepository struct {
	db *bun.DB
}

// NewTrackRepository wraps an already-configured bun handle. The caller owns
// the connection lifecycle.
func NewTrackRepository(db *bun.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// InitSchema creates the tracks table and its listing indexes if they do not
// exist yet. Safe to call on every startup.
func (r *TrackRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*Track)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create tracks table: %w", err)
	}

	indexes := []struct {
		name   string
		column string
	}{
		{name: "idx_tracks_favorite", column: "favorite"},
		{name: "idx_tracks_play_count", column: "play_count"},
		{name: "idx_tracks_added_at", column: "added_at"},
	}
	for _, idx := range indexes {
		if _, err := r.db.NewCreateIndex().
			Model((*Track)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Search returns tracks whose title, artist, or album contains q, ordered by
// artist then title, along with the total match count.
func (r *TrackRepository) Search(ctx context.Context, q string, page Page) (*TrackPage, error) {
	page = page.normalized()
	pattern := "%" + q + "%"

	var tracks []*Track
	total, err := r.db.NewSelect().
		Model(&tracks).
		Where("(t.title LIKE ?) OR (t.artist LIKE ?) OR (t.album LIKE ?)", pattern, pattern, pattern).
		OrderExpr("t.artist ASC, t.title ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("search tracks %q: %w", q, err)
	}
	return &TrackPage{Tracks: tracks, Total: total}, nil
}

// Recent returns the most recently added tracks, newest first.
func (r *TrackRepository) Recent(ctx context.Context, limit int) ([]*Track, error) {
	if limit <= 0 {
		limit = 50
	}

	var tracks []*Track
	if err := r.db.NewSelect().
		Model(&tracks).
		OrderExpr("t.added_at DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("recent tracks: %w", err)
	}
	return tracks, nil
}

// Popular returns the most played tracks, highest play count first.
func (r *TrackRepository) Popular(ctx context.Context, limit int) ([]*Track, error) {
	if limit <= 0 {
		limit = 50
	}

	var tracks []*Track
	if err := r.db.NewSelect().
		Model(&tracks).
		OrderExpr("t.play_count DESC, t.title ASC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("popular tracks: %w", err)
	}
	return tracks, nil
}

// Favorites returns the favorite tracks, ordered by artist then title, along
// with the total favorite count.
func (r *TrackRepository) Favorites(ctx context.Context, page Page) (*TrackPage, error) {
	page = page.normalized()

	var tracks []*Track
	total, err := r.db.NewSelect().
		Model(&tracks).
		Where("t.favorite = ?", true).
		OrderExpr("t.artist ASC, t.title ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("favorite tracks: %w", err)
	}
	return &TrackPage{Tracks: tracks, Total: total}, nil
}

// ByID returns the track with the given id, or ErrTrackNotFound.
func (r *TrackRepository) ByID(ctx context.Context, id string) (*Track, error) {
	track := new(Track)
	err := r.db.NewSelect().
		Model(track).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
		}
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	return track, nil
}

// Insert stores a new track.
func (r *TrackRepository) Insert(ctx context.Context, track *Track) error {
	if _, err := r.db.NewInsert().Model(track).Exec(ctx); err != nil {
		return fmt.Errorf("insert track %s: %w", track.ID, err)
	}
	return nil
}

// Update replaces the stored row for track's id with track's fields.
func (r *TrackRepository) Update(ctx context.Context, track *Track) error {
	res, err := r.db.NewUpdate().
		Model(track).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update track %s: %w", track.ID, err)
	}
	return errIfNoRows(res, track.ID)
}

// Delete removes the track with the given id.
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().
		Model((*Track)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete track %s: %w", id, err)
	}
	return errIfNoRows(res, id)
}

// SetFavorite flips the favorite flag on the track with the given id.
func (r *TrackRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := r.db.NewUpdate().
		Model((*Track)(nil)).
		Set("favorite = ?", favorite).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set favorite on track %s: %w", id, err)
	}
	return errIfNoRows(res, id)
}

// IncrementPlayCount adds one play to the track with the given id. The
// increment runs in SQL so concurrent plays never lose counts.
func (r *TrackRepository) IncrementPlayCount(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().
		Model((*Track)(nil)).
		Set("play_count = play_count + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record play for track %s: %w", id, err)
	}
	return errIfNoRows(res, id)
}

func errIfNoRows(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for track %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	return nil
}
