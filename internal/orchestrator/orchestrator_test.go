package orchestrator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/remo-imparato/matchmonkey/internal/discovery"
	"github.com/remo-imparato/matchmonkey/internal/library"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/remote"
	"github.com/remo-imparato/matchmonkey/internal/shared"
	"github.com/remo-imparato/matchmonkey/internal/syncer"
	mocks "github.com/remo-imparato/matchmonkey/internal/testing"
)

type fixture struct {
	orch    *Orchestrator
	host    *mocks.FakeHost
	gateway *remote.Gateway
}

func newFixture(t *testing.T, discoveryCfg shared.DiscoveryConfig, syncCfg shared.SyncConfig, handler http.HandlerFunc) *fixture {
	t.Helper()
	logger := shared.NewLogger(io.Discard)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := remote.NewGateway(server.Client(), logger)
	opts := remote.ServiceOpts{
		BaseURL:     server.URL,
		MinInterval: time.Millisecond,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		BackoffMax:  10 * time.Millisecond,
		Timeout:     time.Second,
	}
	g.Register(remote.SimilarityServiceID, opts)
	g.Register(remote.AcousticServiceID, opts)

	host := mocks.NewFakeHost()
	deps := discovery.Deps{
		Similarity: remote.NewSimilarityClient(g, "test-key", logger),
		Acoustic:   remote.NewAcousticClient(g, logger),
		Config:     discoveryCfg,
		Logger:     logger,
	}
	matcher := library.NewMatcher(host, shared.MatcherConfig{Threshold: 0.85, BatchSize: 25}, logger)
	s := syncer.NewSyncer(host, host, logger)

	return &fixture{
		orch:    NewOrchestrator(deps, matcher, s, g, syncCfg, logger),
		host:    host,
		gateway: g,
	}
}

// blockingStrategy parks until released or the run context is cancelled.
type blockingStrategy struct {
	once     sync.Once
	started  chan struct{}
	release  chan struct{}
	response []models.Candidate
}

func (s *blockingStrategy) Name() string { return "blocking" }

func (s *blockingStrategy) Candidates(ctx context.Context, seed models.SeedCriteria) ([]models.Candidate, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return s.response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{CandidateLimit: 10}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similartracks":{"track":[
			{"name":"Genesis","match":"0.95","artist":{"name":"Justice"}},
			{"name":"GENESIS","match":"0.80","artist":{"name":"Justice"}},
			{"name":"Windowlicker","match":"0.70","artist":{"name":"Aphex Twin"}}
		]}}`))
	})
	inLibrary := f.host.AddTrack(models.Track{Title: "Genesis", Artist: "Justice"})

	seed := models.SeedCriteria{Mode: models.SeedTrack, Artist: "Daft Punk", Title: "One More Time"}
	summary, err := f.orch.Run(context.Background(), seed, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.State != models.RunCompleted {
		t.Errorf("State = %s, want completed", summary.State)
	}
	// The duplicate Genesis entry collapses during discovery.
	if summary.CandidatesFound != 2 {
		t.Errorf("CandidatesFound = %d, want 2", summary.CandidatesFound)
	}
	if summary.Matched != 1 || summary.Unmatched != 1 {
		t.Errorf("Matched/Unmatched = %d/%d, want 1/1", summary.Matched, summary.Unmatched)
	}
	if summary.TracksWritten != 1 {
		t.Errorf("TracksWritten = %d, want 1", summary.TracksWritten)
	}

	pl, _ := f.host.FindPlaylist(context.Background(), "", "Discovered: Daft Punk - One More Time")
	if pl == nil {
		t.Fatal("expected the derived playlist to exist")
	}
	ids, _ := f.host.PlaylistTrackIDs(context.Background(), pl.ID)
	if len(ids) != 1 || ids[0] != inLibrary.ID {
		t.Errorf("playlist contents = %v, want [%s]", ids, inLibrary.ID)
	}

	if f.gateway.CacheSize() != 0 {
		t.Errorf("response cache not cleared after run: %d entries", f.gateway.CacheSize())
	}
	if f.orch.State() != models.RunCompleted {
		t.Errorf("orchestrator state = %s, want completed", f.orch.State())
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{PlaylistName: "Discoveries"}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similarartists":{"artist":[{"name":"Justice","match":"0.9"}]}}`))
	})
	f.host.AddTrack(models.Track{Title: "Genesis", Artist: "Justice"})

	seed := models.SeedCriteria{Mode: models.SeedArtist, Artist: "Daft Punk"}

	first, err := f.orch.Run(context.Background(), seed, nil)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.TracksWritten != 1 {
		t.Fatalf("first run wrote %d tracks, want 1", first.TracksWritten)
	}

	second, err := f.orch.Run(context.Background(), seed, nil)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.TracksWritten != 0 || second.DuplicatesSkipped != 1 {
		t.Errorf("second run written/skipped = %d/%d, want 0/1", second.TracksWritten, second.DuplicatesSkipped)
	}

	pl, _ := f.host.FindPlaylist(context.Background(), "", "Discoveries")
	ids, _ := f.host.PlaylistTrackIDs(context.Background(), pl.ID)
	if len(ids) != 1 {
		t.Errorf("playlist grew to %d tracks after the second run", len(ids))
	}
}

func TestRunClearBeforeWriteReplacesContents(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{PlaylistName: "Fresh", ClearBeforeWrite: true}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similarartists":{"artist":[{"name":"Justice","match":"0.9"}]}}`))
	})
	stale := f.host.AddTrack(models.Track{Title: "Old Song", Artist: "Stale"})
	fresh := f.host.AddTrack(models.Track{Title: "Genesis", Artist: "Justice"})

	pl, _ := f.host.CreatePlaylist(context.Background(), "", "Fresh")
	if err := f.host.AddTracks(context.Background(), pl.ID, []string{stale.ID}); err != nil {
		t.Fatal(err)
	}

	summary, err := f.orch.Run(context.Background(), models.SeedCriteria{Mode: models.SeedArtist, Artist: "Daft Punk"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TracksWritten != 1 {
		t.Errorf("TracksWritten = %d, want 1", summary.TracksWritten)
	}

	ids, _ := f.host.PlaylistTrackIDs(context.Background(), pl.ID)
	if len(ids) != 1 || ids[0] != fresh.ID {
		t.Errorf("playlist contents = %v, want only the fresh match", ids)
	}
}

func TestRunFallsBackWhenRateLimited(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{FallbackMode: "artist"}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "track.getsimilar":
			w.WriteHeader(http.StatusTooManyRequests)
		case "artist.getsimilar":
			w.Write([]byte(`{"similarartists":{"artist":[{"name":"Justice","match":"0.9"}]}}`))
		default:
			t.Errorf("unexpected method %q", r.URL.Query().Get("method"))
		}
	})
	f.host.AddTrack(models.Track{Title: "Genesis", Artist: "Justice"})

	seed := models.SeedCriteria{Mode: models.SeedTrack, Artist: "Daft Punk", Title: "One More Time"}
	summary, err := f.orch.Run(context.Background(), seed, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.State != models.RunCompleted {
		t.Errorf("State = %s, want completed via fallback", summary.State)
	}
	if summary.TracksWritten != 1 {
		t.Errorf("TracksWritten = %d, want 1", summary.TracksWritten)
	}
	// The rate-limit failure is recorded even though the run recovered.
	if len(summary.Failures) == 0 {
		t.Error("expected the primary strategy failure to be recorded")
	}
}

func TestRunFallsBackOnZeroCandidates(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{FallbackMode: "artist"}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "track.getsimilar":
			w.Write([]byte(`{"similartracks":{"track":[]}}`))
		case "artist.getsimilar":
			w.Write([]byte(`{"similarartists":{"artist":[{"name":"Justice","match":"0.9"}]}}`))
		}
	})
	f.host.AddTrack(models.Track{Title: "Genesis", Artist: "Justice"})

	seed := models.SeedCriteria{Mode: models.SeedTrack, Artist: "Daft Punk", Title: "One More Time"}
	summary, err := f.orch.Run(context.Background(), seed, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TracksWritten != 1 {
		t.Errorf("TracksWritten = %d, want 1 via fallback", summary.TracksWritten)
	}
}

func TestRunNoCandidatesCompletesAsNoOp(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similarartists":{"artist":[]}}`))
	})

	summary, err := f.orch.Run(context.Background(), models.SeedCriteria{Mode: models.SeedArtist, Artist: "Nobody"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for an empty result", err)
	}
	if summary.State != models.RunCompleted {
		t.Errorf("State = %s, want completed", summary.State)
	}
	if summary.CandidatesFound != 0 || summary.TracksWritten != 0 {
		t.Errorf("candidates/written = %d/%d, want 0/0", summary.CandidatesFound, summary.TracksWritten)
	}
	if len(summary.Failures) == 0 {
		t.Error("expected the empty result to be noted in Failures")
	}

	// No target playlist is created for an empty run.
	pl, _ := f.host.FindPlaylist(context.Background(), "", "Discovered: Nobody")
	if pl != nil {
		t.Error("empty run must not create the target playlist")
	}
}

func TestRunInvalidSeed(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid seed")
	})

	summary, err := f.orch.Run(context.Background(), models.SeedCriteria{Mode: models.SeedArtist}, nil)
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if summary.State != models.RunFailed {
		t.Errorf("State = %s, want failed", summary.State)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {})

	stub := &blockingStrategy{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.orch.forMode = func(models.SeedMode, discovery.Deps) (discovery.Strategy, error) {
		return stub, nil
	}

	seed := models.SeedCriteria{Mode: models.SeedArtist, Artist: "Daft Punk"}
	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(context.Background(), seed, nil)
		done <- err
	}()

	<-stub.started
	if _, err := f.orch.Run(context.Background(), seed, nil); !errors.Is(err, shared.ErrRunInProgress) {
		t.Errorf("concurrent Run() error = %v, want ErrRunInProgress", err)
	}

	close(stub.release)
	if err := <-done; err != nil {
		t.Errorf("first Run() error = %v, want nil for the empty stub", err)
	}

	// A finished run no longer blocks new runs.
	if _, err := f.orch.Run(context.Background(), seed, nil); errors.Is(err, shared.ErrRunInProgress) {
		t.Error("Run() after completion still reports ErrRunInProgress")
	}
}

func TestRunCancel(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {})

	stub := &blockingStrategy{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.orch.forMode = func(models.SeedMode, discovery.Deps) (discovery.Strategy, error) {
		return stub, nil
	}

	done := make(chan struct{})
	var summary *models.RunSummary
	var runErr error
	go func() {
		defer close(done)
		summary, runErr = f.orch.Run(context.Background(), models.SeedCriteria{Mode: models.SeedArtist, Artist: "x"}, nil)
	}()

	<-stub.started
	f.orch.Cancel()
	<-done

	if !errors.Is(runErr, shared.ErrRunCancelled) {
		t.Errorf("Run() error = %v, want ErrRunCancelled", runErr)
	}
	if summary == nil || summary.State != models.RunCancelled {
		t.Errorf("summary = %+v, want cancelled state", summary)
	}
	if f.orch.State() != models.RunCancelled {
		t.Errorf("orchestrator state = %s, want cancelled", f.orch.State())
	}
}

func TestRunEmitsProgress(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similarartists":{"artist":[{"name":"Justice","match":"0.9"}]}}`))
	})
	f.host.AddTrack(models.Track{Title: "Genesis", Artist: "Justice"})

	progress := make(chan ProgressUpdate, 32)
	if _, err := f.orch.Run(context.Background(), models.SeedCriteria{Mode: models.SeedArtist, Artist: "Daft Punk"}, progress); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	close(progress)

	seen := make(map[Phase]bool)
	for update := range progress {
		seen[update.Phase] = true
		if update.Message == "" {
			t.Errorf("empty message for phase %s", update.Phase)
		}
	}
	for _, phase := range []Phase{Discover, ResolveTarget, Match, Apply, Finish} {
		if !seen[phase] {
			t.Errorf("no progress update for phase %s", phase)
		}
	}
}

func TestRunMatchProgressPerBatch(t *testing.T) {
	f := newFixture(t, shared.DiscoveryConfig{}, shared.SyncConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"similarartists":{"artist":[
			{"name":"Justice","match":"0.9"},
			{"name":"Air","match":"0.8"},
			{"name":"Kavinsky","match":"0.7"}
		]}}`))
	})
	f.orch.matcher = library.NewMatcher(f.host, shared.MatcherConfig{Threshold: 0.85, BatchSize: 1}, shared.NewLogger(io.Discard))

	progress := make(chan ProgressUpdate, 32)
	if _, err := f.orch.Run(context.Background(), models.SeedCriteria{Mode: models.SeedArtist, Artist: "Daft Punk"}, progress); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	close(progress)

	var steps []int
	for update := range progress {
		if update.Phase != Match {
			continue
		}
		if update.Total != 3 {
			t.Errorf("Total = %d, want 3", update.Total)
		}
		steps = append(steps, update.Step)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d match updates, want 3", len(steps))
	}
	for i, step := range steps {
		if step != i+1 {
			t.Errorf("match update %d has Step %d, want %d", i, step, i+1)
		}
	}
}
