// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles first-run configuration and diagnostics
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, initialize the history database and check the environment",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "doctor",
				Usage:  "Report on the config, credentials, spotdl and database",
				Action: r.SetupDoctor,
			},
		},
	}
}

// authCommand handles Spotify authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize savedl with Spotify in the browser (OAuth2 + PKCE)",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser redirect",
						Value: authTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove cached tokens from the config file",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the current authorization state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// spotifyCommand handles read-only Spotify library operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify library operations",
		Commands: []*cli.Command{
			{
				Name:  "liked",
				Usage: "List Liked Songs",
				Flags: []cli.Flag{
					limitFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyLiked,
			},
		},
	}
}

// downloadCommand runs download batches
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl"},
		Usage:   "Download Spotify URLs with spotdl",
		Commands: []*cli.Command{
			{
				Name:      "url",
				Usage:     "Download one or more track, album, playlist or artist URLs",
				ArgsUsage: "<url>...",
				Flags:     downloadFlags(),
				Action:    r.DownloadURLs,
			},
			{
				Name:   "liked",
				Usage:  "Download Liked Songs",
				Flags:  append(downloadFlags(), limitFlag()),
				Action: r.DownloadLiked,
			},
			{
				Name:  "file",
				Usage: "Download the URLs listed in a file, one per line",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  downloadFlags(),
				Action: r.DownloadFile,
			},
		},
	}
}

// historyCommand inspects and reuses recorded batches
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Recorded download batches",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent batches",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of batches to list",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show batches with this status (running, succeeded, failed, cancelled)",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Only show batches from this source (urls, file, liked, retry)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show a batch and its per-item outcomes",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "retry",
				Usage: "Download the failed items of a batch again",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  downloadFlags(),
				Action: r.HistoryRetry,
			},
			{
				Name:  "export",
				Usage: "Export a batch report",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format (csv, markdown, txt, json, urls)",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (\"-\" writes to stdout)",
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:  "delete",
				Usage: "Remove a batch from history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Do not ask for confirmation",
					},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// tuiCommand downloads Liked Songs with the interactive monitor
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Download Liked Songs with the interactive progress monitor",
		Flags:  append(downloadFlags(), limitFlag()),
		Action: r.TUI,
	}
}

func downloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory (default: downloads.output_dir)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Audio format: mp3, flac, ogg, opus, m4a or wav (default: downloads.format)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Concurrent spotdl processes, 0 picks one from the CPU count (default: downloads.workers)",
			Value:   -1,
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show the interactive progress monitor",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the batch result as JSON",
		},
	}
}

func limitFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Number of most recent liked songs, or \"all\"",
		Value:   "all",
	}
}
