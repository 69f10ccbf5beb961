package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// TUI downloads Liked Songs under the interactive monitor. Without --limit the user is asked how many songs to fetch.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	limit, err := parseLimit(cmd.String("limit"))
	if err != nil {
		return err
	}

	if !cmd.IsSet("limit") {
		if limit, err = r.prompter.LikedLimit(limit); err != nil {
			return err
		}
	}

	return r.downloadLiked(ctx, cmd, limit, batchMode{tui: true})
}
