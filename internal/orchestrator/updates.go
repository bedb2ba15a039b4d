package orchestrator

import (
	"fmt"

	"github.com/remo-imparato/matchmonkey/internal/models"
)

// ProgressUpdate represents a progress event during a discovery run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Run phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Run phase enumeration
type Phase int

const (
	Discover Phase = iota
	ResolveTarget
	Match
	Apply
	Finish
)

func (p Phase) String() string {
	switch p {
	case Discover:
		return "discover"
	case ResolveTarget:
		return "resolve_target"
	case Match:
		return "match"
	case Apply:
		return "apply"
	case Finish:
		return "finish"
	default:
		return ""
	}
}

func discoverUpdate(strategy string, seed models.SeedCriteria) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Discover,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Discovering candidates for %s (%s)...", seed.Label(), strategy),
	}
}

func fallbackUpdate(from, to models.SeedMode) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Discover,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("No usable candidates from %s, falling back to %s...", from, to),
	}
}

func resolveTargetUpdate(target models.SyncTarget) ProgressUpdate {
	message := "Writing to play queue"
	if target.Playlist != nil {
		message = fmt.Sprintf("Target playlist: %s", target.Playlist.Name)
	}
	return ProgressUpdate{
		Phase:   ResolveTarget,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    target.Playlist,
	}
}

func matchUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Match,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Matching candidates against library (%d/%d)...", step, total),
	}
}

func applyUpdate(written, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Apply,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote %d tracks (%d duplicates skipped)", written, skipped),
	}
}

func finishUpdate(summary *models.RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finish,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Run %s: %d candidates, %d matched, %d written", summary.State, summary.CandidatesFound, summary.Matched, summary.TracksWritten),
		Data:    summary,
	}
}
