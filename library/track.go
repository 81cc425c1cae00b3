package library

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ErrTrackNotFound reports a lookup or mutation that referenced a track id
// with no matching row.
var ErrTrackNotFound = errors.New("track not found")

// Track is one entry in the music library.
type Track struct {
	bun.BaseModel `bun:"table:tracks,alias:t"`

	ID           string    `bun:"id,pk" json:"id"`
	Title        string    `bun:"title,notnull" json:"title"`
	Artist       string    `bun:"artist,notnull" json:"artist"`
	Album        string    `bun:"album" json:"album"`
	Genre        string    `bun:"genre" json:"genre"`
	DurationSecs int       `bun:"duration_secs" json:"duration_secs"`
	PlayCount    int64     `bun:"play_count,notnull,default:0" json:"play_count"`
	Favorite     bool      `bun:"favorite,notnull,default:false" json:"favorite"`
	AddedAt      time.Time `bun:"added_at,notnull" json:"added_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Page bounds a listing query.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// normalized applies the listing defaults: a missing limit returns one page
// of 50, never everything.
func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// TrackPage is one page of tracks together with the total match count.
type TrackPage struct {
	Tracks []*Track `json:"tracks"`
	Total  int      `json:"total"`
}
