package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/remote"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// Strategy produces an ordered candidate list from a seed.
type Strategy interface {
	// Name identifies the strategy in candidates and summaries.
	Name() string

	// Candidates fetches, deduplicates, and orders candidates for the seed.
	Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error)
}

// Deps carries the constructed clients and settings strategies draw on.
type Deps struct {
	Similarity *remote.SimilarityClient
	Acoustic   *remote.AcousticClient
	Config     shared.DiscoveryConfig
	Logger     *log.Logger
}

func (d Deps) limit() int {
	if d.Config.CandidateLimit <= 0 {
		return 50
	}
	return d.Config.CandidateLimit
}

func (d Deps) seedLimit() int {
	if d.Config.SeedTrackLimit <= 0 {
		return 5
	}
	return d.Config.SeedTrackLimit
}

func (d Deps) logger() *log.Logger {
	if d.Logger == nil {
		return shared.NewLogger(nil)
	}
	return d.Logger
}

// ForMode selects the strategy for a seed mode.
func ForMode(mode models.SeedMode, deps Deps) (Strategy, error) {
	switch mode {
	case models.SeedArtist:
		return &artistStrategy{deps}, nil
	case models.SeedTrack:
		return &trackStrategy{deps}, nil
	case models.SeedGenre:
		return &genreStrategy{deps}, nil
	case models.SeedAcoustics:
		return &acousticStrategy{deps}, nil
	case models.SeedMood, models.SeedActivity:
		return &profileStrategy{deps: deps, mode: mode}, nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownSeedMode, mode)
	}
}

// candidateKey builds the identity used for deduplication across a run.
func candidateKey(c models.Candidate) string {
	return string(c.Kind) + "|" + shared.NormalizeTrackKey(c.Name, c.ArtistName)
}

// finalize stamps the source strategy, deduplicates keeping the best
// relevance per candidate, sorts by descending relevance (stable, so
// service order breaks ties), and truncates to limit.
func finalize(candidates []models.Candidate, strategyName string, limit int) []models.Candidate {
	best := make(map[string]int, len(candidates))
	deduped := make([]models.Candidate, 0, len(candidates))

	for _, c := range candidates {
		c.SourceStrategy = strategyName
		key := candidateKey(c)
		if idx, seen := best[key]; seen {
			if c.Relevance > deduped[idx].Relevance {
				deduped[idx].Relevance = c.Relevance
			}
			continue
		}
		best[key] = len(deduped)
		deduped = append(deduped, c)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Relevance > deduped[j].Relevance
	})

	if limit > 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}
