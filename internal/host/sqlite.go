package host

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// SQLiteHost implements [LibraryQuery], [PlaylistStore], and [QueueStore]
// against a local SQLite database. It serves as the reference host adapter
// for standalone runs; a real host integration replaces it behind the same
// interfaces.
type SQLiteHost struct {
	db *sql.DB
}

// NewSQLiteHost wraps an open database connection. Call [Migrate] first on
// fresh databases.
func NewSQLiteHost(db *sql.DB) *SQLiteHost {
	return &SQLiteHost{db: db}
}

// AddTrack inserts a track into the library, generating an ID when absent.
// Normalized lookup keys are computed on write so batch lookups stay indexed.
func (h *SQLiteHost) AddTrack(ctx context.Context, track models.Track) (models.Track, error) {
	if track.ID == "" {
		track.ID = shared.GenerateID()
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO library_tracks (id, title, artist, album, duration, track_key, artist_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		track.ID,
		track.Title,
		track.Artist,
		track.Album,
		track.Duration,
		shared.NormalizeTrackKey(track.Title, track.Artist),
		shared.NormalizeName(track.Artist),
	)
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to insert track: %w", err)
	}

	return track, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (h *SQLiteHost) tracksByColumn(ctx context.Context, column string, keys []string) (map[string][]models.Track, error) {
	result := make(map[string][]models.Track, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	// rowid order is the host's default ordering; ties resolve against it.
	query := fmt.Sprintf(`
		SELECT %s, id, title, artist, album, duration
		FROM library_tracks
		WHERE %s IN (%s)
		ORDER BY rowid
	`, column, column, placeholders(len(keys)))

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var track models.Track
		if err := rows.Scan(&key, &track.ID, &track.Title, &track.Artist, &track.Album, &track.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		result[key] = append(result[key], track)
	}

	return result, rows.Err()
}

// TracksByKeys resolves normalized "title|artist" keys to library tracks.
func (h *SQLiteHost) TracksByKeys(ctx context.Context, keys []string) (map[string][]models.Track, error) {
	return h.tracksByColumn(ctx, "track_key", keys)
}

// TracksByArtistKeys resolves normalized artist names to their tracks.
func (h *SQLiteHost) TracksByArtistKeys(ctx context.Context, keys []string) (map[string][]models.Track, error) {
	return h.tracksByColumn(ctx, "artist_key", keys)
}

// FindPlaylist returns the playlist with the given name under the parent, or
// nil when none exists.
func (h *SQLiteHost) FindPlaylist(ctx context.Context, parentID, name string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := h.db.QueryRowContext(ctx, `
		SELECT p.id, p.parent_id, p.name, COUNT(pt.track_id)
		FROM playlists p
		LEFT JOIN playlist_tracks pt ON pt.playlist_id = p.id
		WHERE p.parent_id = ? AND p.name = ?
		GROUP BY p.id
		ORDER BY p.rowid
		LIMIT 1
	`, parentID, name).Scan(&playlist.ID, &playlist.ParentID, &playlist.Name, &playlist.TrackCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find playlist: %w", err)
	}
	return &playlist, nil
}

// CreatePlaylist creates a new empty playlist under the parent.
func (h *SQLiteHost) CreatePlaylist(ctx context.Context, parentID, name string) (*models.Playlist, error) {
	playlist := models.Playlist{
		ID:       shared.GenerateID(),
		ParentID: parentID,
		Name:     name,
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO playlists (id, parent_id, name) VALUES (?, ?, ?)`,
		playlist.ID, playlist.ParentID, playlist.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	return &playlist, nil
}

// ClearPlaylist removes all tracks from a playlist.
func (h *SQLiteHost) ClearPlaylist(ctx context.Context, playlistID string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist: %w", err)
	}
	return nil
}

// PlaylistTrackIDs lists the track IDs currently in a playlist, in order.
func (h *SQLiteHost) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position`,
		playlistID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlist tracks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddTracks appends tracks to the end of a playlist.
func (h *SQLiteHost) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_tracks WHERE playlist_id = ?`,
		playlistID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to determine next position: %w", err)
	}

	for i, trackID := range trackIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`,
			playlistID, trackID, next+i,
		); err != nil {
			return fmt.Errorf("failed to append track: %w", err)
		}
	}

	return tx.Commit()
}

// QueueTrackIDs lists the track IDs currently in the play queue.
func (h *SQLiteHost) QueueTrackIDs(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT track_id FROM play_queue ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Enqueue appends tracks to the end of the play queue.
func (h *SQLiteHost) Enqueue(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, trackID := range trackIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO play_queue (track_id) VALUES (?)`, trackID); err != nil {
			return fmt.Errorf("failed to enqueue track: %w", err)
		}
	}

	return tx.Commit()
}
