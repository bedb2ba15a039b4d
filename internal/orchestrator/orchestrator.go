// package orchestrator drives one discovery run end to end.
//
// A run moves through discover, resolve-target, match, and apply phases,
// emitting progress updates via a channel for non-blocking status reporting to
// the CLI layer. Only one run is active at a time; the session response cache
// is cleared when the run ends, whatever the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/discovery"
	"github.com/remo-imparato/matchmonkey/internal/library"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/remote"
	"github.com/remo-imparato/matchmonkey/internal/shared"
	"github.com/remo-imparato/matchmonkey/internal/syncer"
)

// Orchestrator runs seed-to-playlist discovery as a single-flight operation.
type Orchestrator struct {
	discovery discovery.Deps
	matcher   *library.Matcher
	syncer    *syncer.Syncer
	gateway   *remote.Gateway
	syncCfg   shared.SyncConfig
	logger    *log.Logger

	// forMode is swappable in tests.
	forMode func(models.SeedMode, discovery.Deps) (discovery.Strategy, error)

	mu     sync.Mutex
	state  models.RunState
	cancel context.CancelFunc
}

// NewOrchestrator wires the run pipeline from its components.
func NewOrchestrator(deps discovery.Deps, matcher *library.Matcher, sync *syncer.Syncer, gateway *remote.Gateway, syncCfg shared.SyncConfig, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		discovery: deps,
		matcher:   matcher,
		syncer:    sync,
		gateway:   gateway,
		syncCfg:   syncCfg,
		logger:    logger,
		forMode:   discovery.ForMode,
		state:     models.RunIdle,
	}
}

// State returns the state of the current or most recent run.
func (o *Orchestrator) State() models.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Cancel aborts the active run, if any. The run finishes its current phase;
// partial writes stand.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (o *Orchestrator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes one discovery run for the seed. A second Run while one is
// active returns ErrRunInProgress immediately. The returned summary is
// populated even on failure or cancellation.
func (o *Orchestrator) Run(ctx context.Context, seed models.SeedCriteria, progress chan<- ProgressUpdate) (*models.RunSummary, error) {
	o.mu.Lock()
	if o.state == models.RunRunning {
		o.mu.Unlock()
		return nil, shared.ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.state = models.RunRunning
	o.cancel = cancel
	o.mu.Unlock()

	summary := &models.RunSummary{Seed: seed, State: models.RunRunning, StartedAt: time.Now()}

	defer func() {
		cancel()
		o.gateway.Clear()
		summary.FinishedAt = time.Now()
		o.sendProgress(progress, finishUpdate(summary))

		o.mu.Lock()
		o.state = summary.State
		o.cancel = nil
		o.mu.Unlock()
	}()

	if err := seed.Validate(); err != nil {
		return o.fail(summary, "validate", "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
	}

	candidates, err := o.discover(runCtx, seed, summary, progress)
	if err != nil {
		return o.fail(summary, "discover", "", err)
	}
	summary.CandidatesFound = len(candidates)
	if len(candidates) == 0 {
		// Empty strategy output is a no-op run, not a failure.
		o.logger.Warn("no candidates found", "seed", seed.Label())
		summary.RecordFailure("discover", "", shared.ErrNoCandidates)
		summary.State = models.RunCompleted
		return summary, nil
	}

	if err := runCtx.Err(); err != nil {
		return o.fail(summary, "discover", "", err)
	}

	target, err := o.syncer.ResolveTarget(runCtx, seed, o.syncCfg)
	if err != nil {
		return o.fail(summary, "resolve_target", "", err)
	}
	o.sendProgress(progress, resolveTargetUpdate(target))

	contextIDs, err := o.syncer.TargetTrackIDs(runCtx, target)
	if err != nil {
		return o.fail(summary, "resolve_target", "", err)
	}

	if err := runCtx.Err(); err != nil {
		return o.fail(summary, "resolve_target", "", err)
	}

	batchSize := o.matcher.BatchSize()
	totalBatches := (len(candidates) + batchSize - 1) / batchSize
	results := make([]models.MatchResult, 0, len(candidates))
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		o.sendProgress(progress, matchUpdate(start/batchSize+1, totalBatches))
		batch, err := o.matcher.MatchBatch(runCtx, candidates[start:end], contextIDs)
		if err != nil {
			return o.fail(summary, "match", "", err)
		}
		results = append(results, batch...)
	}
	for _, r := range results {
		if r.Track != nil {
			summary.Matched++
		} else {
			summary.Unmatched++
		}
	}

	if err := runCtx.Err(); err != nil {
		return o.fail(summary, "match", "", err)
	}

	written, skipped, err := o.syncer.Apply(runCtx, target, results)
	summary.TracksWritten = written
	summary.DuplicatesSkipped = skipped
	if err != nil {
		return o.fail(summary, "apply", "", err)
	}
	o.sendProgress(progress, applyUpdate(written, skipped))

	summary.State = models.RunCompleted
	o.logger.Info("run completed",
		"seed", seed.Label(),
		"candidates", summary.CandidatesFound,
		"matched", summary.Matched,
		"written", summary.TracksWritten,
		"duplicates_skipped", summary.DuplicatesSkipped)
	return summary, nil
}

// discover runs the seed's strategy, falling back to the configured fallback
// mode when the primary yields nothing or is rate limited.
func (o *Orchestrator) discover(ctx context.Context, seed models.SeedCriteria, summary *models.RunSummary, progress chan<- ProgressUpdate) ([]models.Candidate, error) {
	strategy, err := o.forMode(seed.Mode, o.discovery)
	if err != nil {
		return nil, err
	}

	o.sendProgress(progress, discoverUpdate(strategy.Name(), seed))
	candidates, err := strategy.Candidates(ctx, seed)

	switch {
	case err == nil && len(candidates) > 0:
		return candidates, nil
	case err != nil && !errors.Is(err, shared.ErrRateLimited):
		return nil, err
	}

	if err != nil {
		summary.RecordFailure("discover", strategy.Name(), err)
	}

	fallback, ok := o.fallbackSeed(seed)
	if !ok {
		return candidates, err
	}

	o.sendProgress(progress, fallbackUpdate(seed.Mode, fallback.Mode))
	o.logger.Warn("falling back", "from", seed.Mode, "to", fallback.Mode)

	fbStrategy, fbErr := o.forMode(fallback.Mode, o.discovery)
	if fbErr != nil {
		return candidates, err
	}
	return fbStrategy.Candidates(ctx, fallback)
}

// fallbackSeed derives the fallback criteria, if the configured fallback mode
// is usable with the seed's payload.
func (o *Orchestrator) fallbackSeed(seed models.SeedCriteria) (models.SeedCriteria, bool) {
	raw := o.discovery.Config.FallbackMode
	if raw == "" {
		return seed, false
	}
	mode, err := models.ParseSeedMode(raw)
	if err != nil || mode == seed.Mode {
		return seed, false
	}

	fallback := seed
	fallback.Mode = mode
	if fallback.Validate() != nil {
		return seed, false
	}
	return fallback, true
}

// fail finalizes the summary for an unsuccessful run. Context cancellation is
// reported as ErrRunCancelled with the cancelled state.
func (o *Orchestrator) fail(summary *models.RunSummary, phase, service string, err error) (*models.RunSummary, error) {
	if errors.Is(err, context.Canceled) {
		summary.State = models.RunCancelled
		summary.RecordFailure(phase, service, shared.ErrRunCancelled)
		return summary, shared.ErrRunCancelled
	}
	summary.State = models.RunFailed
	summary.RecordFailure(phase, service, err)
	o.logger.Error("run failed", "phase", phase, "err", err)
	return summary, err
}
