package discovery

import (
	"context"

	"github.com/remo-imparato/matchmonkey/internal/models"
)

// artistStrategy discovers artists similar to a seed artist.
type artistStrategy struct {
	deps Deps
}

func (s *artistStrategy) Name() string { return "similar-artists" }

func (s *artistStrategy) Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error) {
	limit := s.deps.limit()
	candidates, err := s.deps.Similarity.SimilarArtists(ctx, seed.Artist, limit)
	if err != nil {
		return nil, err
	}
	s.deps.logger().Debug("similar artists fetched", "seed", seed.Artist, "count", len(candidates))
	return finalize(candidates, s.Name(), limit), nil
}

// trackStrategy discovers tracks similar to a seed track.
type trackStrategy struct {
	deps Deps
}

func (s *trackStrategy) Name() string { return "similar-tracks" }

func (s *trackStrategy) Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error) {
	limit := s.deps.limit()
	candidates, err := s.deps.Similarity.SimilarTracks(ctx, seed.Artist, seed.Title, limit)
	if err != nil {
		return nil, err
	}
	s.deps.logger().Debug("similar tracks fetched", "seed", seed.Label(), "count", len(candidates))
	return finalize(candidates, s.Name(), limit), nil
}

// genreStrategy discovers the most popular artists for a genre tag.
type genreStrategy struct {
	deps Deps
}

func (s *genreStrategy) Name() string { return "genre-top-artists" }

func (s *genreStrategy) Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error) {
	limit := s.deps.limit()
	candidates, err := s.deps.Similarity.TopArtistsForTag(ctx, seed.Tag, limit)
	if err != nil {
		return nil, err
	}
	s.deps.logger().Debug("top artists fetched", "tag", seed.Tag, "count", len(candidates))
	return finalize(candidates, s.Name(), limit), nil
}
