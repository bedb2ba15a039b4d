// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// FakeHost is an in-memory test double for the host capability interfaces
// [host.LibraryQuery], [host.PlaylistStore], and [host.QueueStore].
type FakeHost struct {
	mu        sync.Mutex
	tracks    []models.Track
	playlists map[string]*models.Playlist
	contents  map[string][]string // playlist ID -> track IDs
	queue     []string

	FindErr   error // forced error for FindPlaylist
	CreateErr error // forced error for CreatePlaylist
	QueryErr  error // forced error for library lookups
}

func NewFakeHost() *FakeHost {
	return &FakeHost{
		playlists: make(map[string]*models.Playlist),
		contents:  make(map[string][]string),
	}
}

// AddTrack seeds a library track, generating an ID when absent.
func (f *FakeHost) AddTrack(track models.Track) models.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	if track.ID == "" {
		track.ID = shared.GenerateID()
	}
	f.tracks = append(f.tracks, track)
	return track
}

func (f *FakeHost) TracksByKeys(ctx context.Context, keys []string) (map[string][]models.Track, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[string][]models.Track)
	for _, key := range keys {
		for _, track := range f.tracks {
			if shared.NormalizeTrackKey(track.Title, track.Artist) == key {
				result[key] = append(result[key], track)
			}
		}
	}
	return result, nil
}

func (f *FakeHost) TracksByArtistKeys(ctx context.Context, keys []string) (map[string][]models.Track, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[string][]models.Track)
	for _, key := range keys {
		for _, track := range f.tracks {
			if shared.NormalizeName(track.Artist) == key {
				result[key] = append(result[key], track)
			}
		}
	}
	return result, nil
}

func (f *FakeHost) FindPlaylist(ctx context.Context, parentID, name string) (*models.Playlist, error) {
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, pl := range f.playlists {
		if pl.ParentID == parentID && pl.Name == name {
			copied := *pl
			copied.TrackCount = len(f.contents[pl.ID])
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *FakeHost) CreatePlaylist(ctx context.Context, parentID, name string) (*models.Playlist, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pl := &models.Playlist{ID: shared.GenerateID(), ParentID: parentID, Name: name}
	f.playlists[pl.ID] = pl
	return pl, nil
}

func (f *FakeHost) ClearPlaylist(ctx context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[playlistID] = nil
	return nil
}

func (f *FakeHost) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.contents[playlistID]...), nil
}

func (f *FakeHost) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents[playlistID] = append(f.contents[playlistID], trackIDs...)
	return nil
}

func (f *FakeHost) QueueTrackIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queue...), nil
}

func (f *FakeHost) Enqueue(ctx context.Context, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, trackIDs...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
