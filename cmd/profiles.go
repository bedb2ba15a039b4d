package main

import (
	"context"

	"github.com/remo-imparato/matchmonkey/internal/discovery"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/urfave/cli/v3"
)

// Profiles lists the mood and activity profiles available for discovery.
func (r *Runner) Profiles(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("json") {
		return r.writeJSON(map[string][]string{
			"moods":      discovery.ProfileNames(models.SeedMood),
			"activities": discovery.ProfileNames(models.SeedActivity),
		}, true)
	}

	r.writePlain("Moods:\n")
	for _, name := range discovery.ProfileNames(models.SeedMood) {
		r.writePlain("  %s\n", name)
	}
	r.writePlainln("Activities:")
	for _, name := range discovery.ProfileNames(models.SeedActivity) {
		r.writePlain("  %s\n", name)
	}
	return nil
}

func profilesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List mood and activity profiles",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print as JSON",
			},
		},
		Action: r.Profiles,
	}
}
