package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// Mood and activity profiles are fixed audio-feature targets fed to the
// acoustic service's recommendation endpoint. Values are on the service's
// 0..1 scale except tempo (BPM).
var moodProfiles = map[string]models.AudioFeatures{
	"happy":      {Valence: 0.85, Energy: 0.7, Danceability: 0.65},
	"sad":        {Valence: 0.15, Energy: 0.3, Acousticness: 0.6},
	"chill":      {Valence: 0.5, Energy: 0.25, Acousticness: 0.7, Instrumentalness: 0.4},
	"energetic":  {Valence: 0.7, Energy: 0.9, Danceability: 0.7, Tempo: 135},
	"romantic":   {Valence: 0.6, Energy: 0.35, Acousticness: 0.55},
	"angry":      {Valence: 0.2, Energy: 0.9, Speechiness: 0.2},
	"melancholy": {Valence: 0.25, Energy: 0.35, Acousticness: 0.5, Instrumentalness: 0.3},
}

var activityProfiles = map[string]models.AudioFeatures{
	"workout": {Energy: 0.9, Danceability: 0.75, Tempo: 140, Valence: 0.65},
	"running": {Energy: 0.85, Tempo: 165, Valence: 0.6},
	"study":   {Energy: 0.3, Instrumentalness: 0.8, Speechiness: 0.05, Acousticness: 0.5},
	"sleep":   {Energy: 0.1, Instrumentalness: 0.85, Acousticness: 0.8, Tempo: 70},
	"party":   {Energy: 0.85, Danceability: 0.9, Valence: 0.8, Tempo: 120},
	"driving": {Energy: 0.65, Valence: 0.7, Tempo: 110},
	"dinner":  {Energy: 0.3, Acousticness: 0.7, Valence: 0.55, Speechiness: 0.05},
}

// ProfileNames lists the known profile names for a mode, sorted, for
// validation messages and command help.
func ProfileNames(mode models.SeedMode) []string {
	table := moodProfiles
	if mode == models.SeedActivity {
		table = activityProfiles
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupProfile(mode models.SeedMode, name string) (models.AudioFeatures, bool) {
	table := moodProfiles
	if mode == models.SeedActivity {
		table = activityProfiles
	}
	profile, ok := table[strings.ToLower(strings.TrimSpace(name))]
	return profile, ok
}

// profileStrategy discovers tracks matching a named mood or activity via the
// acoustic service's feature-targeted recommendations.
type profileStrategy struct {
	deps Deps
	mode models.SeedMode
}

func (s *profileStrategy) Name() string { return string(s.mode) + "-profile" }

func (s *profileStrategy) Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error) {
	profile, ok := lookupProfile(s.mode, seed.Profile)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known %s profiles: %s)",
			shared.ErrUnknownProfile, seed.Profile, s.mode, strings.Join(ProfileNames(s.mode), ", "))
	}

	limit := s.deps.limit()
	candidates, err := s.deps.Acoustic.Recommendations(ctx, nil, &profile, limit)
	if err != nil {
		return nil, err
	}
	s.deps.logger().Debug("profile recommendations fetched", "mode", s.mode, "profile", seed.Profile, "count", len(candidates))
	return finalize(candidates, s.Name(), limit), nil
}
