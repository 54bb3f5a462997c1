// Package history stores the tracks a listener has heard in SQLite.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

const (
	appName    = "radiobox"
	dbFileName = "history.db"
)

// Entry is one played track.
type Entry struct {
	ID          int64
	StationID   string
	StationName string
	Track       track.Track
	PlayedAt    time.Time
}

// Store is the listening history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns the history database path under the XDG data dir.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens (creating if needed) the database at path. An empty path uses
// DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve history path")
		}
		path = p
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create history directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history %s", path)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init history schema")
	}

	zlog.Debug().Msgf("history: opened %s", path)
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends t as played on st.
func (s *Store) Record(ctx context.Context, st station.Station, t track.Track) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO played (station_id, station_name, track_id, song_name, artist_name, album_name, duration_ms, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.Name, t.ID, t.SongName, t.ArtistName, t.AlbumName,
		t.Duration.Milliseconds(), s.now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "failed to record played track")
	}
	return nil
}

// Recent returns up to limit tracks most recently played on the station,
// newest first.
func (s *Store) Recent(ctx context.Context, stationID string, limit int) ([]track.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, station_id, station_name, track_id, song_name, artist_name, album_name, duration_ms, played_at
		FROM played
		WHERE station_id = ?
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, stationID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	tracks := make([]track.Track, len(entries))
	for i, e := range entries {
		tracks[i] = e.Track
	}
	return tracks, nil
}

// Latest returns up to limit entries across all stations, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, station_id, station_name, track_id, song_name, artist_name, album_name, duration_ms, played_at
		FROM played
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	return scanEntries(rows)
}

// Prune deletes entries played before t and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM played WHERE played_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune history")
	}
	return res.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			album      sql.NullString
			durationMS int64
			playedAt   int64
		)
		if err := rows.Scan(&e.ID, &e.StationID, &e.StationName, &e.Track.ID, &e.Track.SongName,
			&e.Track.ArtistName, &album, &durationMS, &playedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan history row")
		}
		e.Track.AlbumName = album.String
		e.Track.Duration = time.Duration(durationMS) * time.Millisecond
		e.PlayedAt = time.UnixMilli(playedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read history rows")
	}
	return entries, nil
}
