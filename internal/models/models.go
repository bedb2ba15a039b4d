package models

import (
	"fmt"
	"time"
)

// SeedMode identifies the kind of starting point a discovery run uses.
type SeedMode string

const (
	SeedArtist    SeedMode = "artist"
	SeedTrack     SeedMode = "track"
	SeedGenre     SeedMode = "genre"
	SeedAcoustics SeedMode = "acoustics"
	SeedMood      SeedMode = "mood"
	SeedActivity  SeedMode = "activity"
)

// ParseSeedMode converts a string into a SeedMode, rejecting unknown values.
func ParseSeedMode(s string) (SeedMode, error) {
	switch SeedMode(s) {
	case SeedArtist, SeedTrack, SeedGenre, SeedAcoustics, SeedMood, SeedActivity:
		return SeedMode(s), nil
	default:
		return "", fmt.Errorf("unknown seed mode %q", s)
	}
}

// SeedCriteria is the user-chosen starting point for a discovery run.
// Immutable for the duration of one run; the payload field used depends on Mode.
type SeedCriteria struct {
	Mode       SeedMode
	Artist     string  // artist mode; also the artist half of a track seed
	Title      string  // track mode
	Tag        string  // genre mode
	SeedTracks []Track // acoustics mode
	Profile    string  // mood and activity modes
}

// Validate checks that the payload required by the seed mode is present.
func (s SeedCriteria) Validate() error {
	switch s.Mode {
	case SeedArtist:
		if s.Artist == "" {
			return fmt.Errorf("artist seed requires an artist name")
		}
	case SeedTrack:
		if s.Artist == "" || s.Title == "" {
			return fmt.Errorf("track seed requires both artist and title")
		}
	case SeedGenre:
		if s.Tag == "" {
			return fmt.Errorf("genre seed requires a tag")
		}
	case SeedAcoustics:
		if len(s.SeedTracks) == 0 {
			return fmt.Errorf("acoustics seed requires at least one seed track")
		}
	case SeedMood, SeedActivity:
		if s.Profile == "" {
			return fmt.Errorf("%s seed requires a profile name", s.Mode)
		}
	default:
		return fmt.Errorf("unknown seed mode %q", s.Mode)
	}
	return nil
}

// Label returns a short human-readable description of the seed, used for
// playlist naming and log output.
func (s SeedCriteria) Label() string {
	switch s.Mode {
	case SeedArtist:
		return s.Artist
	case SeedTrack:
		return fmt.Sprintf("%s - %s", s.Artist, s.Title)
	case SeedGenre:
		return s.Tag
	case SeedAcoustics:
		if len(s.SeedTracks) == 1 {
			return s.SeedTracks[0].Title
		}
		return fmt.Sprintf("%d seed tracks", len(s.SeedTracks))
	case SeedMood, SeedActivity:
		return s.Profile
	default:
		return string(s.Mode)
	}
}

// CandidateKind distinguishes artist suggestions from track suggestions.
type CandidateKind string

const (
	KindArtist CandidateKind = "artist"
	KindTrack  CandidateKind = "track"
)

// Candidate is an artist or track suggested by a discovery strategy,
// not yet verified against the local library. Never mutated after creation.
type Candidate struct {
	Kind           CandidateKind
	Name           string  // track title or artist name, depending on Kind
	ArtistName     string  // set for track candidates
	SourceStrategy string  // strategy that produced this candidate
	Relevance      float64 // 0..1, higher is better
	SourceID       string  // remote service identifier, when known
}

// Track represents a local library track record.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds
}

// Playlist represents a playlist owned by the host library.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentID   string `json:"parent_id,omitempty"`
	TrackCount int    `json:"track_count"`
}

// MatchResult is the outcome of resolving one candidate against the library.
// Track is nil when the candidate was not matched; there is exactly one
// MatchResult per input candidate.
type MatchResult struct {
	Candidate  Candidate
	Track      *Track
	Confidence float64
}

// SyncTarget describes where matched tracks are written: a playlist, or the
// play queue when QueueMode is set.
type SyncTarget struct {
	Playlist         *Playlist
	QueueMode        bool
	ClearBeforeWrite bool
}

// AudioFeatures is a target audio-feature vector for recommendation seeding.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// RunState tracks the orchestrator state machine.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// ErrorRecord captures a non-fatal or fatal failure observed during a run.
type ErrorRecord struct {
	Phase   string `json:"phase"`
	Service string `json:"service,omitempty"`
	Message string `json:"message"`
}

// RunSummary is the end-to-end result of one discovery run.
type RunSummary struct {
	Seed              SeedCriteria  `json:"-"`
	State             RunState      `json:"state"`
	CandidatesFound   int           `json:"candidates_found"`
	Matched           int           `json:"matched"`
	Unmatched         int           `json:"unmatched"`
	TracksWritten     int           `json:"tracks_written"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	Failures          []ErrorRecord `json:"failures,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	FinishedAt        time.Time     `json:"finished_at"`
}

// RecordFailure appends an error record to the summary.
func (r *RunSummary) RecordFailure(phase, service string, err error) {
	if err == nil {
		return
	}
	r.Failures = append(r.Failures, ErrorRecord{Phase: phase, Service: service, Message: err.Error()})
}
