package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/urfave/cli/v3"
)

// LibraryAdd inserts a single track into the library database.
func (r *Runner) LibraryAdd(ctx context.Context, cmd *cli.Command) error {
	p, err := r.buildLibraryOnly()
	if err != nil {
		return err
	}
	defer p.Close()

	track := models.Track{
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		Album:    cmd.String("album"),
		Duration: int(cmd.Int("duration")),
	}

	added, err := p.host.AddTrack(ctx, track)
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}

	r.writePlain("✓ Added %s - %s (%s)\n", added.Artist, added.Title, added.ID)
	return nil
}

// LibraryImport loads tracks from a CSV file with columns: title, artist,
// album, duration. A header row is detected and skipped.
func (r *Runner) LibraryImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	p, err := r.buildLibraryOnly()
	if err != nil {
		return err
	}
	defer p.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	imported := 0
	for line := 0; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) < 2 {
			r.logger.Warn("skipping short record", "line", line+1)
			continue
		}
		if line == 0 && record[0] == "title" {
			continue
		}

		track := models.Track{Title: record[0], Artist: record[1]}
		if len(record) > 2 {
			track.Album = record[2]
		}
		if len(record) > 3 {
			if d, err := strconv.Atoi(record[3]); err == nil {
				track.Duration = d
			}
		}

		if _, err := p.host.AddTrack(ctx, track); err != nil {
			return fmt.Errorf("failed to import record on line %d: %w", line+1, err)
		}
		imported++
	}

	r.writePlain("✓ Imported %d tracks from %s\n", imported, path)
	return nil
}

// buildLibraryOnly opens the library without requiring remote service
// configuration, for local-only commands.
func (r *Runner) buildLibraryOnly() (*pipeline, error) {
	apiKey := r.config.Services.Similarity.APIKey
	if apiKey == "" {
		// The pipeline builder insists on a key; library commands don't need one.
		r.config.Services.Similarity.APIKey = "unused"
		defer func() { r.config.Services.Similarity.APIKey = apiKey }()
	}
	return r.buildPipeline()
}

// libraryCommand handles local library maintenance
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Maintain the local library database",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a single track to the library",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Track artist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "album",
						Usage: "Track album",
					},
					&cli.IntFlag{
						Name:  "duration",
						Usage: "Track duration in seconds",
					},
				},
				Action: r.LibraryAdd,
			},
			{
				Name:  "import",
				Usage: "Import tracks from a CSV file (title, artist, album, duration)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to CSV file",
						Required: true,
					},
				},
				Action: r.LibraryImport,
			},
		},
	}
}
