package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

func setupTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s, &clock
}

func TestStore_RecordAndRecent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	jazz := station.Station{ID: "s1", Name: "Jazz"}
	rock := station.Station{ID: "s2", Name: "Rock"}

	require.NoError(t, s.Record(ctx, jazz, track.Track{ID: "t1", SongName: "So What", ArtistName: "Miles Davis", Duration: 9 * time.Minute}))
	require.NoError(t, s.Record(ctx, rock, track.Track{ID: "t2", SongName: "Paranoid", ArtistName: "Black Sabbath"}))
	require.NoError(t, s.Record(ctx, jazz, track.Track{ID: "t3", SongName: "Take Five", ArtistName: "Dave Brubeck", AlbumName: "Time Out"}))

	recent, err := s.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "t3", recent[0].ID)
	assert.Equal(t, "Time Out", recent[0].AlbumName)
	assert.Equal(t, "t1", recent[1].ID)
	assert.Equal(t, 9*time.Minute, recent[1].Duration)

	limited, err := s.Recent(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "t3", limited[0].ID)

	none, err := s.Recent(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_LatestAndPrune(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()

	st := station.Station{ID: "s1", Name: "Jazz"}
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, st, track.Track{ID: id, SongName: id, ArtistName: "x"}))
	}

	latest, err := s.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "c", latest[0].Track.ID)
	assert.Equal(t, "Jazz", latest[0].StationName)
	assert.True(t, clock.Equal(latest[0].PlayedAt))

	removed, err := s.Prune(ctx, clock.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	latest, err = s.Latest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, latest, 2)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), station.Station{ID: "s"}, track.Track{ID: "t"}))
	require.NoError(t, s.Close())

	// Schema creation is idempotent and data survives a reopen.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	recent, err := s.Recent(context.Background(), "s", 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
