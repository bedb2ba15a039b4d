package host

import (
	"context"

	"github.com/remo-imparato/matchmonkey/internal/models"
)

// LibraryQuery provides batched lookups against the host media library.
// Keys are normalized with [shared.NormalizeTrackKey] / [shared.NormalizeName];
// each key maps to zero or more tracks in the host's default ordering.
type LibraryQuery interface {
	// TracksByKeys resolves normalized "title|artist" keys to library tracks.
	TracksByKeys(ctx context.Context, keys []string) (map[string][]models.Track, error)

	// TracksByArtistKeys resolves normalized artist names to that artist's tracks.
	TracksByArtistKeys(ctx context.Context, keys []string) (map[string][]models.Track, error)
}

// PlaylistStore provides the playlist commands the synchronizer consumes.
type PlaylistStore interface {
	// FindPlaylist returns the playlist with the given name under the parent,
	// or nil when no such playlist exists.
	FindPlaylist(ctx context.Context, parentID, name string) (*models.Playlist, error)

	// CreatePlaylist creates a new playlist under the parent.
	CreatePlaylist(ctx context.Context, parentID, name string) (*models.Playlist, error)

	// ClearPlaylist removes all tracks from a playlist.
	ClearPlaylist(ctx context.Context, playlistID string) error

	// PlaylistTrackIDs lists the track IDs currently in a playlist, in order.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// AddTracks appends tracks to the end of a playlist.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// QueueStore provides access to the play queue.
type QueueStore interface {
	// QueueTrackIDs lists the track IDs currently in the play queue.
	QueueTrackIDs(ctx context.Context) ([]string, error)

	// Enqueue appends tracks to the end of the play queue.
	Enqueue(ctx context.Context, trackIDs []string) error
}
