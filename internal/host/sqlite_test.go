package host

import (
	"context"
	"testing"

	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

func newTestHost(t *testing.T) *SQLiteHost {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewSQLiteHost(db)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestTracksByKeys(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	seed := []models.Track{
		{Title: "Genesis", Artist: "Justice"},
		{Title: "D.A.N.C.E.", Artist: "Justice"},
		{Title: "A New Error", Artist: "Moderat"},
	}
	for _, track := range seed {
		if _, err := h.AddTrack(ctx, track); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}

	keys := []string{
		shared.NormalizeTrackKey("Genesis", "Justice"),
		shared.NormalizeTrackKey("Missing", "Nobody"),
	}

	got, err := h.TracksByKeys(ctx, keys)
	if err != nil {
		t.Fatalf("TracksByKeys() error = %v", err)
	}

	if len(got[keys[0]]) != 1 {
		t.Errorf("got %d tracks for %q, want 1", len(got[keys[0]]), keys[0])
	}
	if len(got[keys[1]]) != 0 {
		t.Errorf("got %d tracks for missing key, want 0", len(got[keys[1]]))
	}
}

func TestTracksByArtistKeys(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	for _, track := range []models.Track{
		{Title: "Genesis", Artist: "Justice"},
		{Title: "D.A.N.C.E.", Artist: "Justice"},
		{Title: "Rusty Nails", Artist: "Moderat"},
	} {
		if _, err := h.AddTrack(ctx, track); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}

	key := shared.NormalizeName("Justice")
	got, err := h.TracksByArtistKeys(ctx, []string{key})
	if err != nil {
		t.Fatalf("TracksByArtistKeys() error = %v", err)
	}

	if len(got[key]) != 2 {
		t.Fatalf("got %d tracks for Justice, want 2", len(got[key]))
	}
	// Insertion order is the host's default ordering.
	if got[key][0].Title != "Genesis" {
		t.Errorf("first track = %q, want Genesis", got[key][0].Title)
	}
}

func TestTracksByKeysEmptyInput(t *testing.T) {
	h := newTestHost(t)
	got, err := h.TracksByKeys(context.Background(), nil)
	if err != nil {
		t.Fatalf("TracksByKeys() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	if pl, err := h.FindPlaylist(ctx, "", "Discovered"); err != nil || pl != nil {
		t.Fatalf("FindPlaylist() on empty store = (%v, %v), want (nil, nil)", pl, err)
	}

	created, err := h.CreatePlaylist(ctx, "", "Discovered")
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}

	found, err := h.FindPlaylist(ctx, "", "Discovered")
	if err != nil {
		t.Fatalf("FindPlaylist() error = %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("FindPlaylist() = %+v, want playlist %s", found, created.ID)
	}

	trackA, _ := h.AddTrack(ctx, models.Track{Title: "Genesis", Artist: "Justice"})
	trackB, _ := h.AddTrack(ctx, models.Track{Title: "Rusty Nails", Artist: "Moderat"})

	if err := h.AddTracks(ctx, created.ID, []string{trackA.ID, trackB.ID}); err != nil {
		t.Fatalf("AddTracks() error = %v", err)
	}

	ids, err := h.PlaylistTrackIDs(ctx, created.ID)
	if err != nil {
		t.Fatalf("PlaylistTrackIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != trackA.ID || ids[1] != trackB.ID {
		t.Fatalf("PlaylistTrackIDs() = %v, want [%s %s]", ids, trackA.ID, trackB.ID)
	}

	// Appending preserves positions across calls.
	trackC, _ := h.AddTrack(ctx, models.Track{Title: "Bad Kingdom", Artist: "Moderat"})
	if err := h.AddTracks(ctx, created.ID, []string{trackC.ID}); err != nil {
		t.Fatalf("AddTracks() second call error = %v", err)
	}
	ids, _ = h.PlaylistTrackIDs(ctx, created.ID)
	if len(ids) != 3 || ids[2] != trackC.ID {
		t.Fatalf("PlaylistTrackIDs() after append = %v", ids)
	}

	if err := h.ClearPlaylist(ctx, created.ID); err != nil {
		t.Fatalf("ClearPlaylist() error = %v", err)
	}
	ids, _ = h.PlaylistTrackIDs(ctx, created.ID)
	if len(ids) != 0 {
		t.Fatalf("expected empty playlist after clear, got %v", ids)
	}
}

func TestFindPlaylistScopedToParent(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	parent, err := h.CreatePlaylist(ctx, "", "MatchMonkey")
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if _, err := h.CreatePlaylist(ctx, parent.ID, "Discovered"); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}

	if pl, err := h.FindPlaylist(ctx, "", "Discovered"); err != nil || pl != nil {
		t.Errorf("FindPlaylist() at root = (%v, %v), want (nil, nil)", pl, err)
	}
	if pl, err := h.FindPlaylist(ctx, parent.ID, "Discovered"); err != nil || pl == nil {
		t.Errorf("FindPlaylist() under parent = (%v, %v), want a playlist", pl, err)
	}
}

func TestQueue(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	trackA, _ := h.AddTrack(ctx, models.Track{Title: "Genesis", Artist: "Justice"})
	trackB, _ := h.AddTrack(ctx, models.Track{Title: "Rusty Nails", Artist: "Moderat"})

	if err := h.Enqueue(ctx, []string{trackA.ID}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := h.Enqueue(ctx, []string{trackB.ID}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	ids, err := h.QueueTrackIDs(ctx)
	if err != nil {
		t.Fatalf("QueueTrackIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != trackA.ID || ids[1] != trackB.ID {
		t.Fatalf("QueueTrackIDs() = %v, want [%s %s]", ids, trackA.ID, trackB.ID)
	}
}
