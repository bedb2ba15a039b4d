package library

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/host"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// Matcher resolves candidates to local library tracks. Lookups are batched
// against the host library; every input candidate yields exactly one
// MatchResult in input order, with unmatched candidates reported explicitly.
type Matcher struct {
	library   host.LibraryQuery
	threshold float64
	batchSize int
	logger    *log.Logger
}

// NewMatcher creates a matcher with the given library and configuration.
func NewMatcher(library host.LibraryQuery, cfg shared.MatcherConfig, logger *log.Logger) *Matcher {
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = 0.85
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Matcher{
		library:   library,
		threshold: cfg.Threshold,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// BatchSize returns the configured library lookup chunk size.
func (m *Matcher) BatchSize() int {
	return m.batchSize
}

// MatchBatch resolves all candidates against the library. contextIDs holds
// track IDs already present in the sync target; ties between multiple library
// tracks resolve in favor of those, then host default order.
func (m *Matcher) MatchBatch(ctx context.Context, candidates []models.Candidate, contextIDs map[string]bool) ([]models.MatchResult, error) {
	results := make([]models.MatchResult, 0, len(candidates))

	for start := 0; start < len(candidates); start += m.batchSize {
		end := min(start+m.batchSize, len(candidates))
		batch := candidates[start:end]

		batchResults, err := m.matchChunk(ctx, batch, contextIDs)
		if err != nil {
			return nil, err
		}
		results = append(results, batchResults...)
	}

	return results, nil
}

func (m *Matcher) matchChunk(ctx context.Context, batch []models.Candidate, contextIDs map[string]bool) ([]models.MatchResult, error) {
	trackKeys := make([]string, 0, len(batch))
	artistKeys := make([]string, 0, len(batch))

	for _, c := range batch {
		switch c.Kind {
		case models.KindTrack:
			trackKeys = append(trackKeys, shared.NormalizeTrackKey(c.Name, c.ArtistName))
			// Artist lookup feeds the fuzzy fallback for near-miss titles.
			artistKeys = append(artistKeys, shared.NormalizeName(c.ArtistName))
		case models.KindArtist:
			artistKeys = append(artistKeys, shared.NormalizeName(c.Name))
		}
	}

	byTrackKey, err := m.library.TracksByKeys(ctx, trackKeys)
	if err != nil {
		return nil, err
	}
	byArtistKey, err := m.library.TracksByArtistKeys(ctx, artistKeys)
	if err != nil {
		return nil, err
	}

	results := make([]models.MatchResult, 0, len(batch))
	for _, c := range batch {
		results = append(results, m.resolve(c, byTrackKey, byArtistKey, contextIDs))
	}
	return results, nil
}

func (m *Matcher) resolve(c models.Candidate, byTrackKey, byArtistKey map[string][]models.Track, contextIDs map[string]bool) models.MatchResult {
	result := models.MatchResult{Candidate: c}

	switch c.Kind {
	case models.KindTrack:
		key := shared.NormalizeTrackKey(c.Name, c.ArtistName)
		if hits := byTrackKey[key]; len(hits) > 0 {
			result.Track = pickTrack(hits, contextIDs)
			result.Confidence = 1.0
			return result
		}

		// No exact normalized hit: fuzzy-match the title within the
		// candidate's artist catalog, rejecting anything below threshold.
		artistTracks := byArtistKey[shared.NormalizeName(c.ArtistName)]
		best, confidence := m.bestFuzzy(c.Name, artistTracks, contextIDs)
		if best != nil && confidence >= m.threshold {
			result.Track = best
			result.Confidence = confidence
		}

	case models.KindArtist:
		// Artist candidates match on exact normalized name only; the host
		// exposes no artist listing to fuzzy-match against.
		if hits := byArtistKey[shared.NormalizeName(c.Name)]; len(hits) > 0 {
			result.Track = pickTrack(hits, contextIDs)
			result.Confidence = 1.0
		}
	}

	if result.Track == nil {
		m.logger.Debug("candidate unmatched", "kind", c.Kind, "name", c.Name, "artist", c.ArtistName)
	}
	return result
}

// bestFuzzy returns the track whose title is most similar to name, breaking
// confidence ties in favor of context membership, then earlier host order.
func (m *Matcher) bestFuzzy(name string, tracks []models.Track, contextIDs map[string]bool) (*models.Track, float64) {
	var best *models.Track
	bestScore := 0.0

	for i := range tracks {
		score := shared.Similarity(name, tracks[i].Title)
		better := score > bestScore
		if score == bestScore && best != nil {
			better = contextIDs[tracks[i].ID] && !contextIDs[best.ID]
		}
		if better {
			best = &tracks[i]
			bestScore = score
		}
	}

	return best, bestScore
}

// pickTrack resolves ambiguity among several matching tracks: prefer a track
// already in the sync target context, else the first in host default order.
func pickTrack(hits []models.Track, contextIDs map[string]bool) *models.Track {
	for i := range hits {
		if contextIDs[hits[i].ID] {
			return &hits[i]
		}
	}
	return &hits[0]
}
