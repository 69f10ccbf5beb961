package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/savedl/internal/shared"
	"github.com/desertthunder/savedl/internal/spotdl"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded template to the config path and loads it.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath

	if _, err := os.Stat(path); err == nil {
		if !cmd.Bool("force") {
			return fmt.Errorf("%w: config file already exists at %s (use --force to overwrite)", shared.ErrInvalidArgument, path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing config: %w", err)
		}
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load created config: %w", err)
	}
	r.SetConfig(config, path)
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id (or let 'savedl auth login' ask for it)\n")
	r.writePlain("2. Run 'savedl setup doctor' to check spotdl\n")
	return nil
}

// SetupDatabase initializes the history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return err
	}

	versions, err := shared.AppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(versions))
}

// SetupDoctor reports on everything a download depends on. Problems are listed, not returned, so every check runs.
func (r *Runner) SetupDoctor(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("savedl doctor")

	check := func(ok bool, format string, args ...any) {
		mark := "✓"
		if !ok {
			mark = "✗"
		}
		r.writePlain("%s %s\n", mark, fmt.Sprintf(format, args...))
	}

	_, statErr := os.Stat(r.configPath)
	check(statErr == nil, "config file: %s", r.configPath)

	creds := r.config.Credentials.Spotify
	check(creds.HasClientID(), "spotify client_id configured")
	if token := creds.Token(); token != nil {
		check(true, "spotify token cached (expires %s)", token.Expiry.Format(time.RFC3339))
	} else {
		check(false, "spotify token cached (run 'savedl auth login')")
	}

	command := r.config.Spotdl.Command
	path, err := spotdl.LookPath(command)
	check(err == nil, "spotdl executable: %s", orDefault(path, fmt.Sprint(command)))

	if err == nil {
		strategy, serr := spotdl.StrategyByName(r.config.Spotdl.Detect)
		if serr != nil {
			check(false, "spotdl.detect: %v", serr)
		} else {
			version, verr := spotdl.NewProbeDetector(command, strategy, r.logger).Version(ctx)
			check(verr == nil, "spotdl version: %s", orDefault(version, "unknown"))
			if verr == nil {
				dialect, ok := strategy(version)
				check(ok, "argument dialect: %s", dialect)
			}
		}
	}

	outputDir := r.config.Downloads.ResolvedOutputDir()
	info, err := os.Stat(outputDir)
	switch {
	case err == nil && info.IsDir():
		check(true, "output directory: %s", outputDir)
	case err == nil:
		check(false, "output directory is not a directory: %s", outputDir)
	default:
		r.writePlain("• output directory will be created: %s\n", outputDir)
	}

	if _, err := r.config.Downloads.TimeoutDuration(); err != nil {
		check(false, "downloads.timeout: %v", err)
	}

	db, err := r.database()
	if err != nil {
		check(false, "history database: %v", err)
		return nil
	}
	versions, err := shared.AppliedMigrations(db)
	check(err == nil, "history database: %s (%d migrations)", r.config.Database.Path, len(versions))

	r.writePlain("• workers (auto): %d\n", shared.OptimalWorkers())
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
