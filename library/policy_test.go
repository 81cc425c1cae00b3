package library_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phonoteca/go-query-cache/cache"
	"github.com/phonoteca/go-query-cache/library"
	"github.com/phonoteca/go-query-cache/pkg/testsupport"
)

func TestDefaultPolicy(t *testing.T) {
	policy := library.DefaultPolicy()
	require.NoError(t, policy.Validate())

	ops := []string{
		library.OpSearchTracks,
		library.OpRecentTracks,
		library.OpPopularTracks,
		library.OpFavoriteTracks,
		library.OpGetTrack,
	}
	for _, op := range ops {
		pol, ok := policy.Operations[op]
		require.True(t, ok, "default policy is missing %s", op)
		assert.NotEmpty(t, pol.Tags, "%s has no tags", op)
		assert.Greater(t, pol.TTL.Duration, time.Duration(0), "%s has no TTL", op)
	}

	assert.Contains(t, policy.Operations[library.OpFavoriteTracks].Tags, "tracks:favorites")
	assert.Contains(t, policy.Operations[library.OpGetTrack].Tags, "track:{id}")
}

func TestLoadPolicy(t *testing.T) {
	policy, err := library.LoadPolicy(testsupport.FixturePath("policy.yaml"))
	require.NoError(t, err)

	// The file override replaces the default search TTL.
	assert.Equal(t, 10*time.Second, policy.TTLFor(library.OpSearchTracks))

	// Operations the file does not mention keep their defaults.
	assert.Equal(t, 10*time.Minute, policy.TTLFor(library.OpGetTrack))

	// The file may introduce operations of its own.
	byGenre, ok := policy.Operations["tracks_by_genre"]
	require.True(t, ok)
	assert.Equal(t, time.Minute, byGenre.TTL.Duration)
	assert.Equal(t, []string{"tracks", "genre:{genre}"}, byGenre.Tags)
}

func TestLoadPolicy_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := library.LoadPolicy("testdata/does-not-exist.yaml")
		assert.Error(t, err)
	})

	t.Run("malformed duration", func(t *testing.T) {
		path := testsupport.TempFile(t, []byte("operations:\n  search_tracks:\n    ttl: fast\n    tags: [tracks]\n"))

		_, err := library.LoadPolicy(path)
		assert.ErrorContains(t, err, "parse duration")
	})

	t.Run("operation without tags", func(t *testing.T) {
		path := testsupport.TempFile(t, []byte("operations:\n  search_tracks:\n    ttl: 10s\n    tags: []\n"))

		_, err := library.LoadPolicy(path)
		assert.ErrorContains(t, err, "at least one tag")
	})
}

func TestPolicy_TTLFor_UnknownOperation(t *testing.T) {
	policy := library.DefaultPolicy()
	assert.Equal(t, time.Duration(0), policy.TTLFor("never_registered"),
		"unknown operations defer to the store default TTL")
}

func TestPolicy_RegisterTags(t *testing.T) {
	table := cache.NewTagTable()
	library.DefaultPolicy().RegisterTags(table)

	tags, err := table.TagsFor(library.OpGetTrack, nil, map[string]any{"id": 42})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tracks", "track:42"}, tags)

	tags, err = table.TagsFor(library.OpFavoriteTracks, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tracks", "tracks:favorites"}, tags)
}
