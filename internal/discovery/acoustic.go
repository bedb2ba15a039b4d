package discovery

import (
	"context"
	"fmt"

	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/remote"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// acousticStrategy discovers tracks acoustically similar to a set of seed
// tracks. Each seed is resolved to the acoustic service's catalog through an
// album search, its audio features are fetched, and recommendations are
// requested per seed. Seeds the service cannot resolve are skipped;
// recommendations from all resolved seeds are aggregated, keeping the best
// relevance for tracks recommended more than once.
type acousticStrategy struct {
	deps Deps
}

func (s *acousticStrategy) Name() string { return "acoustic-similarity" }

func (s *acousticStrategy) Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error) {
	logger := s.deps.logger()
	limit := s.deps.limit()

	seeds := seed.SeedTracks
	if max := s.deps.seedLimit(); len(seeds) > max {
		seeds = seeds[:max]
	}

	var aggregated []models.Candidate
	resolved := 0

	for _, track := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref, err := s.resolveTrack(ctx, track)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			logger.Debug("seed track not in acoustic catalog", "title", track.Title, "artist", track.Artist)
			continue
		}
		resolved++

		features, err := s.deps.Acoustic.AudioFeatures(ctx, ref.ID)
		if err != nil {
			return nil, err
		}

		recs, err := s.deps.Acoustic.Recommendations(ctx, []string{ref.ID}, features, limit)
		if err != nil {
			return nil, err
		}
		aggregated = append(aggregated, recs...)
	}

	if resolved == 0 {
		logger.Warn("no seed tracks resolved against the acoustic service", "seeds", len(seeds))
		return nil, nil
	}
	return finalize(aggregated, s.Name(), limit), nil
}

// resolveTrack maps a library track to the acoustic service's catalog via an
// album search. Returns nil when the service does not know the track.
func (s *acousticStrategy) resolveTrack(ctx context.Context, track models.Track) (*remote.TrackRef, error) {
	query := track.Album
	if query == "" {
		query = fmt.Sprintf("%s %s", track.Artist, track.Title)
	}

	albums, err := s.deps.Acoustic.SearchAlbum(ctx, query)
	if err != nil {
		return nil, err
	}

	wantArtist := shared.NormalizeName(track.Artist)
	wantTitle := shared.NormalizeName(track.Title)

	for _, album := range albums {
		if wantArtist != "" && album.Artist != "" && shared.NormalizeName(album.Artist) != wantArtist {
			continue
		}

		tracks, err := s.deps.Acoustic.AlbumTracks(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		for i := range tracks {
			if shared.NormalizeName(tracks[i].Title) == wantTitle {
				return &tracks[i], nil
			}
		}
		// Fall back to a fuzzy title match within the album.
		for i := range tracks {
			if shared.Similarity(tracks[i].Title, track.Title) >= 0.9 {
				return &tracks[i], nil
			}
		}
	}
	return nil, nil
}
