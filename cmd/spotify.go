package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyLiked lists Liked Songs, newest first.
func (r *Runner) SpotifyLiked(ctx context.Context, cmd *cli.Command) error {
	limit, err := parseLimit(cmd.String("limit"))
	if err != nil {
		return err
	}

	library, err := r.spotify()
	if err != nil {
		return err
	}

	r.logger.Infof("listing liked songs with limit %v", limitLabel(limit))

	tracks := []models.Track{}
	for track, err := range library.SavedTrackSeq(ctx, limit) {
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		tracks = append(tracks, track)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d liked songs:\n\n", len(tracks))
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, t.Artist(), t.Name)
		if t.Album != "" {
			r.writePlain("   Album: %s\n", t.Album)
		}
		if t.DurationMs > 0 {
			r.writePlain("   Duration: %s\n", (time.Duration(t.DurationMs) * time.Millisecond).Round(time.Second))
		}
		r.writePlain("   URL: %s\n", orDefault(t.URL, "(unavailable)"))
	}

	return nil
}

func limitLabel(limit int) string {
	if limit <= 0 {
		return "all"
	}
	return fmt.Sprint(limit)
}
