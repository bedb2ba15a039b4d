package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingAPIKey = fmt.Errorf("missing API key")

	// Remote service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limit exceeded")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Discovery and matching errors
	ErrNoCandidates    = fmt.Errorf("no candidates found")
	ErrUnknownSeedMode = fmt.Errorf("unknown seed mode")
	ErrUnknownProfile  = fmt.Errorf("unknown mood or activity profile")

	// Sync errors
	ErrTargetResolution = fmt.Errorf("target playlist could not be resolved")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Orchestration errors
	ErrRunInProgress = fmt.Errorf("a discovery run is already in progress")
	ErrRunCancelled  = fmt.Errorf("run cancelled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
