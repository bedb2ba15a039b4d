package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/remo-imparato/matchmonkey/internal/formatter"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/orchestrator"
	"github.com/remo-imparato/matchmonkey/internal/shared"
	"github.com/urfave/cli/v3"
)

// syncFlags are shared by every discover subcommand and override the
// corresponding [sync] and [discovery] config settings for one run.
func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "playlist",
			Usage: "Target playlist name (defaults to config, then a seed-derived name)",
		},
		&cli.StringFlag{
			Name:  "parent",
			Usage: "Parent playlist for the target",
		},
		&cli.BoolFlag{
			Name:  "queue",
			Usage: "Append matches to the play queue instead of a playlist",
		},
		&cli.BoolFlag{
			Name:  "clear",
			Usage: "Clear the target playlist before writing",
		},
		&cli.StringFlag{
			Name:  "fallback",
			Usage: "Seed mode to fall back to when the primary yields nothing",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the run summary as JSON",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write the run summary to a file (.json, .md, or plain text)",
		},
	}
}

// applyFlags folds per-run flag overrides into the runner's configuration.
func (r *Runner) applyFlags(cmd *cli.Command) {
	if cmd.IsSet("playlist") {
		r.config.Sync.PlaylistName = cmd.String("playlist")
	}
	if cmd.IsSet("parent") {
		r.config.Sync.ParentPlaylist = cmd.String("parent")
	}
	if cmd.IsSet("queue") {
		r.config.Sync.QueueMode = cmd.Bool("queue")
	}
	if cmd.IsSet("clear") {
		r.config.Sync.ClearBeforeWrite = cmd.Bool("clear")
	}
	if cmd.IsSet("fallback") {
		r.config.Discovery.FallbackMode = cmd.String("fallback")
	}
}

// runDiscovery wires the pipeline, runs one discovery pass, and reports the
// summary. seedFn builds the seed once the pipeline (and with it the library)
// is available.
func (r *Runner) runDiscovery(ctx context.Context, cmd *cli.Command, seedFn func(*pipeline) (models.SeedCriteria, error)) error {
	r.applyFlags(cmd)

	p, err := r.buildPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	seed, err := seedFn(p)
	if err != nil {
		return err
	}

	r.logger.Info("starting discovery run", "mode", seed.Mode, "seed", seed.Label())

	progressCh := make(chan orchestrator.ProgressUpdate, 50)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progressCh {
			switch update.Phase {
			case orchestrator.Discover:
				r.writePlain("🔍 %s\n", update.Message)
			case orchestrator.ResolveTarget:
				r.writePlain("🎯 %s\n", update.Message)
			case orchestrator.Match:
				r.writePlain("📚 %s\n", update.Message)
			case orchestrator.Apply:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	summary, runErr := p.orch.Run(ctx, seed, progressCh)
	close(progressCh)
	<-drained

	if summary != nil {
		r.writePlain("\n")
		if cmd.Bool("json") {
			if err := r.writeJSON(summary, true); err != nil {
				return err
			}
		} else {
			r.writePlain("%s", formatter.RenderSummary(summary))
		}

		if path := cmd.String("report"); path != "" {
			if err := formatter.WriteReport(summary, path); err != nil {
				return err
			}
			r.writePlainln("Report written to %s", path)
		}
	}

	return runErr
}

// DiscoverArtist runs artist-similarity discovery.
func (r *Runner) DiscoverArtist(ctx context.Context, cmd *cli.Command) error {
	return r.runDiscovery(ctx, cmd, func(*pipeline) (models.SeedCriteria, error) {
		return models.SeedCriteria{Mode: models.SeedArtist, Artist: cmd.String("name")}, nil
	})
}

// DiscoverTrack runs track-similarity discovery.
func (r *Runner) DiscoverTrack(ctx context.Context, cmd *cli.Command) error {
	return r.runDiscovery(ctx, cmd, func(*pipeline) (models.SeedCriteria, error) {
		return models.SeedCriteria{
			Mode:   models.SeedTrack,
			Artist: cmd.String("artist"),
			Title:  cmd.String("title"),
		}, nil
	})
}

// DiscoverGenre runs genre tag discovery.
func (r *Runner) DiscoverGenre(ctx context.Context, cmd *cli.Command) error {
	return r.runDiscovery(ctx, cmd, func(*pipeline) (models.SeedCriteria, error) {
		return models.SeedCriteria{Mode: models.SeedGenre, Tag: cmd.String("tag")}, nil
	})
}

// DiscoverAcoustics runs audio-feature discovery seeded by library tracks
// named as "Artist - Title" pairs.
func (r *Runner) DiscoverAcoustics(ctx context.Context, cmd *cli.Command) error {
	return r.runDiscovery(ctx, cmd, func(p *pipeline) (models.SeedCriteria, error) {
		specs := cmd.StringSlice("track")
		if len(specs) == 0 {
			return models.SeedCriteria{}, fmt.Errorf("%w: at least one --track is required", shared.ErrMissingArgument)
		}

		seeds := make([]models.Track, 0, len(specs))
		for _, spec := range specs {
			track, err := r.lookupSeedTrack(ctx, p, spec)
			if err != nil {
				return models.SeedCriteria{}, err
			}
			seeds = append(seeds, track)
		}
		return models.SeedCriteria{Mode: models.SeedAcoustics, SeedTracks: seeds}, nil
	})
}

// DiscoverMood runs discovery for a named mood profile.
func (r *Runner) DiscoverMood(ctx context.Context, cmd *cli.Command) error {
	return r.runDiscovery(ctx, cmd, func(*pipeline) (models.SeedCriteria, error) {
		return models.SeedCriteria{Mode: models.SeedMood, Profile: cmd.String("name")}, nil
	})
}

// DiscoverActivity runs discovery for a named activity profile.
func (r *Runner) DiscoverActivity(ctx context.Context, cmd *cli.Command) error {
	return r.runDiscovery(ctx, cmd, func(*pipeline) (models.SeedCriteria, error) {
		return models.SeedCriteria{Mode: models.SeedActivity, Profile: cmd.String("name")}, nil
	})
}

// lookupSeedTrack resolves an "Artist - Title" spec against the library.
func (r *Runner) lookupSeedTrack(ctx context.Context, p *pipeline, spec string) (models.Track, error) {
	parts := strings.SplitN(spec, " - ", 2)
	if len(parts) != 2 {
		return models.Track{}, fmt.Errorf("%w: %q (expected \"Artist - Title\")", shared.ErrInvalidFlag, spec)
	}
	artist, title := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	key := shared.NormalizeTrackKey(title, artist)
	hits, err := p.host.TracksByKeys(ctx, []string{key})
	if err != nil {
		return models.Track{}, err
	}
	if len(hits[key]) == 0 {
		return models.Track{}, fmt.Errorf("%w: %q is not in the library", shared.ErrTrackNotFound, spec)
	}
	return hits[key][0], nil
}

// discoverCommand handles discovery runs, one subcommand per seed mode
func discoverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Run a discovery pass and sync library matches to the target",
		Commands: []*cli.Command{
			{
				Name:  "artist",
				Usage: "Discover artists similar to a seed artist",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Seed artist name",
						Required: true,
					},
				}, syncFlags()...),
				Action: r.DiscoverArtist,
			},
			{
				Name:  "track",
				Usage: "Discover tracks similar to a seed track",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Seed track artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Seed track title",
						Required: true,
					},
				}, syncFlags()...),
				Action: r.DiscoverTrack,
			},
			{
				Name:  "genre",
				Usage: "Discover top artists for a genre tag",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "tag",
						Usage:    "Genre tag (e.g. \"french house\")",
						Required: true,
					},
				}, syncFlags()...),
				Action: r.DiscoverGenre,
			},
			{
				Name:  "acoustics",
				Usage: "Discover tracks acoustically similar to library seed tracks",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{
						Name:  "track",
						Usage: "Seed library track as \"Artist - Title\" (repeatable)",
					},
				}, syncFlags()...),
				Action: r.DiscoverAcoustics,
			},
			{
				Name:  "mood",
				Usage: "Discover tracks matching a mood profile",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Mood profile name (see 'profiles')",
						Required: true,
					},
				}, syncFlags()...),
				Action: r.DiscoverMood,
			},
			{
				Name:  "activity",
				Usage: "Discover tracks matching an activity profile",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Activity profile name (see 'profiles')",
						Required: true,
					},
				}, syncFlags()...),
				Action: r.DiscoverActivity,
			},
		},
	}
}
