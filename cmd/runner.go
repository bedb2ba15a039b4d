package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/discovery"
	"github.com/remo-imparato/matchmonkey/internal/host"
	"github.com/remo-imparato/matchmonkey/internal/library"
	"github.com/remo-imparato/matchmonkey/internal/orchestrator"
	"github.com/remo-imparato/matchmonkey/internal/remote"
	"github.com/remo-imparato/matchmonkey/internal/shared"
	"github.com/remo-imparato/matchmonkey/internal/syncer"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, discoverCommand, libraryCommand, profilesCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// pipeline bundles the wired run components with the database they hold open.
type pipeline struct {
	orch *orchestrator.Orchestrator
	host *host.SQLiteHost
	db   *sql.DB
}

func (p *pipeline) Close() error {
	return p.db.Close()
}

func serviceOpts(cfg shared.ServiceConfig) remote.ServiceOpts {
	return remote.ServiceOpts{
		BaseURL:     cfg.BaseURL,
		MinInterval: cfg.MinInterval(),
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase(),
		BackoffMax:  cfg.BackoffMax(),
		Timeout:     cfg.Timeout(),
	}
}

// buildPipeline opens the library database and wires the full discovery run
// pipeline from the current configuration.
func (r *Runner) buildPipeline() (*pipeline, error) {
	cfg := r.config
	if cfg.Services.Similarity.APIKey == "" {
		return nil, fmt.Errorf("%w: set services.similarity.api_key in config.toml", shared.ErrMissingAPIKey)
	}

	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
	}
	shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

	if err := host.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	adapter := host.NewSQLiteHost(db)

	gateway := remote.NewGateway(r.httpClient, shared.WithLogger(r.logger, "component", "remote"))
	gateway.Register(remote.SimilarityServiceID, serviceOpts(cfg.Services.Similarity))
	gateway.Register(remote.AcousticServiceID, serviceOpts(cfg.Services.Acoustic))

	deps := discovery.Deps{
		Similarity: remote.NewSimilarityClient(gateway, cfg.Services.Similarity.APIKey, r.logger),
		Acoustic:   remote.NewAcousticClient(gateway, r.logger),
		Config:     cfg.Discovery,
		Logger:     r.logger,
	}

	matcher := library.NewMatcher(adapter, cfg.Matcher, shared.WithLogger(r.logger, "component", "matcher"))
	sync := syncer.NewSyncer(adapter, adapter, shared.WithLogger(r.logger, "component", "syncer"))
	orch := orchestrator.NewOrchestrator(deps, matcher, sync, gateway, cfg.Sync, r.logger)

	return &pipeline{orch: orch, host: adapter, db: db}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
