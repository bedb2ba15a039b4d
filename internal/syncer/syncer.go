// package syncer writes matched tracks to a playlist or the play queue.
//
// Writes are idempotent: running the same discovery twice against the same
// target adds nothing the second time.
package syncer

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/host"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// Syncer resolves the sync target and applies match results to it.
type Syncer struct {
	playlists host.PlaylistStore
	queue     host.QueueStore
	logger    *log.Logger
}

// NewSyncer creates a syncer over the host's playlist and queue stores.
func NewSyncer(playlists host.PlaylistStore, queue host.QueueStore, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Syncer{playlists: playlists, queue: queue, logger: logger}
}

// TargetName returns the playlist name for a run: the configured name, or one
// derived from the seed when none is configured.
func TargetName(seed models.SeedCriteria, cfg shared.SyncConfig) string {
	if cfg.PlaylistName != "" {
		return cfg.PlaylistName
	}
	return fmt.Sprintf("Discovered: %s", seed.Label())
}

// ResolveTarget finds or creates the playlist the run writes to. In queue mode
// no playlist is involved and the target points at the play queue. Resolution
// failures wrap ErrTargetResolution.
func (s *Syncer) ResolveTarget(ctx context.Context, seed models.SeedCriteria, cfg shared.SyncConfig) (models.SyncTarget, error) {
	target := models.SyncTarget{
		QueueMode:        cfg.QueueMode,
		ClearBeforeWrite: cfg.ClearBeforeWrite,
	}
	if cfg.QueueMode {
		return target, nil
	}

	name := TargetName(seed, cfg)
	playlist, err := s.playlists.FindPlaylist(ctx, cfg.ParentPlaylist, name)
	if err != nil {
		return target, fmt.Errorf("%w: find %q: %v", shared.ErrTargetResolution, name, err)
	}
	if playlist == nil {
		playlist, err = s.playlists.CreatePlaylist(ctx, cfg.ParentPlaylist, name)
		if err != nil {
			return target, fmt.Errorf("%w: create %q: %v", shared.ErrTargetResolution, name, err)
		}
		s.logger.Info("created playlist", "name", name, "id", playlist.ID)
	}

	target.Playlist = playlist
	return target, nil
}

// TargetTrackIDs returns the IDs currently in the target, for use as matching
// context before Apply runs.
func (s *Syncer) TargetTrackIDs(ctx context.Context, target models.SyncTarget) (map[string]bool, error) {
	var ids []string
	var err error
	if target.QueueMode {
		ids, err = s.queue.QueueTrackIDs(ctx)
	} else if target.Playlist != nil {
		ids, err = s.playlists.PlaylistTrackIDs(ctx, target.Playlist.ID)
	}
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	return present, nil
}

// Apply writes matched tracks to the target in match order. Tracks already
// present are skipped and counted as duplicates; ClearBeforeWrite empties a
// playlist target first (the play queue is never cleared).
func (s *Syncer) Apply(ctx context.Context, target models.SyncTarget, results []models.MatchResult) (written, duplicatesSkipped int, err error) {
	if target.ClearBeforeWrite && !target.QueueMode && target.Playlist != nil {
		if err := s.playlists.ClearPlaylist(ctx, target.Playlist.ID); err != nil {
			return 0, 0, fmt.Errorf("failed to clear playlist %q: %w", target.Playlist.Name, err)
		}
		s.logger.Info("cleared playlist", "name", target.Playlist.Name)
	}

	present, err := s.TargetTrackIDs(ctx, target)
	if err != nil {
		return 0, 0, err
	}

	toAdd := make([]string, 0, len(results))
	for _, r := range results {
		if r.Track == nil {
			continue
		}
		if present[r.Track.ID] {
			duplicatesSkipped++
			continue
		}
		toAdd = append(toAdd, r.Track.ID)
		present[r.Track.ID] = true
	}

	if len(toAdd) == 0 {
		return 0, duplicatesSkipped, nil
	}

	if target.QueueMode {
		err = s.queue.Enqueue(ctx, toAdd)
	} else {
		err = s.playlists.AddTracks(ctx, target.Playlist.ID, toAdd)
	}
	if err != nil {
		return 0, duplicatesSkipped, err
	}

	s.logger.Info("tracks written", "count", len(toAdd), "duplicates_skipped", duplicatesSkipped, "queue_mode", target.QueueMode)
	return len(toAdd), duplicatesSkipped, nil
}
