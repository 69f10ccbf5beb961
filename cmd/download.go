package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/services"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/desertthunder/savedl/internal/tasks"
	"github.com/desertthunder/savedl/internal/ui"
	"github.com/urfave/cli/v3"
)

const (
	tuiLogPath       = "./tmp/savedl-tui.log"
	progressInterval = 2 * time.Second
)

// batchMode selects how a batch is presented. outputDir and format, when set, replace the configured defaults
// but not the command's flags.
type batchMode struct {
	tui       bool
	json      bool
	outputDir string
	format    string
}

func modeFrom(cmd *cli.Command) batchMode {
	return batchMode{tui: cmd.Bool("tui"), json: cmd.Bool("json")}
}

// DownloadURLs downloads the URLs given as arguments.
func (r *Runner) DownloadURLs(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one Spotify URL is required", shared.ErrMissingArgument)
	}

	urls, err := shared.ParseSpotifyURLs(args)
	if err != nil {
		return err
	}
	return r.runBatch(ctx, cmd, "urls", urls, modeFrom(cmd))
}

// DownloadFile downloads the URLs listed in a file. Blank lines and lines starting with "#" are ignored.
func (r *Runner) DownloadFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a URL list is required", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read URL list: %w", err)
	}

	urls, err := shared.ParseSpotifyURLs(strings.Split(string(data), "\n"))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r.logger.Info("loaded URL list", "path", path, "urls", len(urls))

	return r.runBatch(ctx, cmd, "file", urls, modeFrom(cmd))
}

// DownloadLiked downloads the most recent Liked Songs, or all of them.
func (r *Runner) DownloadLiked(ctx context.Context, cmd *cli.Command) error {
	limit, err := parseLimit(cmd.String("limit"))
	if err != nil {
		return err
	}
	return r.downloadLiked(ctx, cmd, limit, modeFrom(cmd))
}

func (r *Runner) downloadLiked(ctx context.Context, cmd *cli.Command, limit int, mode batchMode) error {
	library, err := r.spotify()
	if err != nil {
		return err
	}

	if !mode.json {
		r.writePlain("Fetching liked songs (limit: %s)...\n", limitLabel(limit))
	}

	urls, err := services.LikedURLs(ctx, library, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch liked songs: %w", err)
	}
	r.logger.Info("fetched liked songs", "count", len(urls))

	return r.runBatch(ctx, cmd, "liked", urls, mode)
}

// batchConfig builds the batch configuration from [downloads], overridden by the command's flags, and creates the
// output directory.
func (r *Runner) batchConfig(cmd *cli.Command, mode batchMode) (models.BatchConfig, error) {
	d := r.config.Downloads
	timeout, err := d.TimeoutDuration()
	if err != nil {
		return models.BatchConfig{}, err
	}

	cfg := models.BatchConfig{
		OutputDir:   d.ResolvedOutputDir(),
		Format:      strings.ToLower(d.Format),
		Concurrency: d.Workers,
		Template:    d.Template,
		Timeout:     timeout,
		SpawnRate:   d.SpawnRate,
	}
	if mode.outputDir != "" {
		cfg.OutputDir = mode.outputDir
	}
	if mode.format != "" {
		cfg.Format = mode.format
	}
	if output := cmd.String("output"); output != "" {
		cfg.OutputDir = shared.ExpandHome(output)
	}
	if format := cmd.String("format"); format != "" {
		cfg.Format = strings.ToLower(format)
	}
	if workers := cmd.Int("workers"); workers >= 0 {
		cfg.Concurrency = workers
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return cfg, fmt.Errorf("failed to create output directory: %w", err)
	}
	return cfg, nil
}

// runBatch runs urls as one batch, presenting it according to mode. The returned error is the batch's verdict.
func (r *Runner) runBatch(ctx context.Context, cmd *cli.Command, source string, urls []string, mode batchMode) error {
	cfg, err := r.batchConfig(cmd, mode)
	if err != nil {
		return err
	}

	if mode.tui {
		logger, closer, err := shared.NewFileLogger(tuiLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer closer.Close()
		r.SetLogger(logger)
	}

	session, err := r.batchSession()
	if err != nil {
		return err
	}

	b := tasks.Batch{
		ID:     shared.GenerateID(),
		Source: source,
		Items:  models.NewWorkItems(urls),
		Config: cfg,
	}

	var result *tasks.BatchResult
	if mode.tui {
		result, err = r.runTUI(ctx, session, b)
	} else {
		result, err = r.runPlain(ctx, session, b, mode.json)
	}
	if err != nil {
		return err
	}

	if mode.json {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
	}
	return result.Err()
}

// runPlain runs b with line-oriented output. The first interrupt cancels the batch; a second one exits immediately.
func (r *Runner) runPlain(ctx context.Context, session *tasks.Session, b tasks.Batch, quiet bool) (*tasks.BatchResult, error) {
	var out io.Writer = r.output
	if quiet {
		out = io.Discard
	}
	sink := newPlainSink(out, progressInterval)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	done := make(chan struct{})
	defer close(done)
	go func() {
		interrupts := 0
		for {
			select {
			case <-signals:
				interrupts++
				if interrupts > 1 {
					r.logger.Warn("interrupted again, exiting")
					os.Exit(130)
				}
				sink.notice("Interrupt received, finishing up (press Ctrl+C again to quit)")
				session.RequestCancel()
			case <-done:
				return
			}
		}
	}()

	return session.Run(ctx, b, sink)
}

// runTUI runs b under the interactive monitor.
func (r *Runner) runTUI(ctx context.Context, session *tasks.Session, b tasks.Batch) (*tasks.BatchResult, error) {
	model := ui.NewModel(ctx, session, b)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		session.RequestCancel()
		session.Wait()
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	result, err := model.Result()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: the monitor exited without a result", shared.ErrBatchFailed)
	}

	r.writePlain("%s %s\n", finishedLevel(result).Symbol(), result.Summary)
	return result, nil
}

func finishedLevel(result *tasks.BatchResult) tasks.Level {
	switch {
	case result.Cancelled:
		return tasks.LevelWarning
	case result.Success:
		return tasks.LevelSuccess
	default:
		return tasks.LevelError
	}
}

// plainSink prints log events as "[15:04:05] ✓ message" and throttles progress lines to one per interval.
type plainSink struct {
	mu           sync.Mutex
	w            io.Writer
	interval     time.Duration
	lastProgress time.Time
}

func newPlainSink(w io.Writer, interval time.Duration) *plainSink {
	return &plainSink{w: w, interval: interval}
}

func (s *plainSink) Send(e tasks.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Kind == tasks.ProgressEvent {
		last := e.Progress.Total > 0 && e.Progress.Completed == e.Progress.Total
		if !last && e.Time.Sub(s.lastProgress) < s.interval {
			return
		}
		s.lastProgress = e.Time
	}
	s.line(e.Time, e.Level, e.Message)
}

func (s *plainSink) notice(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.line(time.Now(), tasks.LevelWarning, message)
}

func (s *plainSink) line(t time.Time, level tasks.Level, message string) {
	fmt.Fprintf(s.w, "[%s] %s %s\n", t.Format("15:04:05"), level.Symbol(), message)
}
