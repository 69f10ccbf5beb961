package main

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/desertthunder/savedl/internal/spotdl"
	tu "github.com/desertthunder/savedl/internal/testing"
	"github.com/urfave/cli/v3"
)

// fakeInvoker classifies items by URL: "fail" fails, "missing" is not found and anything else downloads.
type fakeInvoker struct {
	mu    sync.Mutex
	items []models.WorkItem
	cfgs  []models.BatchConfig
}

func (f *fakeInvoker) Invoke(ctx context.Context, item models.WorkItem, cfg models.BatchConfig, cancelled <-chan struct{}) models.Outcome {
	f.mu.Lock()
	f.items = append(f.items, item)
	f.cfgs = append(f.cfgs, cfg)
	f.mu.Unlock()

	switch {
	case strings.Contains(item.URL, "fail"):
		return models.Outcome{Item: item, Kind: models.Failed, Detail: "exit status 1"}
	case strings.Contains(item.URL, "missing"):
		return models.Outcome{Item: item, Kind: models.NotFound, Detail: "Artist - Song"}
	default:
		return models.Outcome{Item: item, Kind: models.Downloaded}
	}
}

func (f *fakeInvoker) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeInvoker) lastConfig() models.BatchConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cfgs) == 0 {
		return models.BatchConfig{}
	}
	return f.cfgs[len(f.cfgs)-1]
}

type fakePrompter struct {
	clientID  string
	limit     int
	confirm   bool
	err       error
	confirmed []string
}

func (p *fakePrompter) ClientID() (string, error) { return p.clientID, p.err }

func (p *fakePrompter) LikedLimit(int) (int, error) { return p.limit, p.err }

func (p *fakePrompter) Confirm(title string) (bool, error) {
	p.confirmed = append(p.confirmed, title)
	return p.confirm, p.err
}

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// newTestRunner wires a runner to temp directories, an in-memory history, a fake spotdl and three liked songs.
func newTestRunner(t *testing.T, output io.Writer) *Runner {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Downloads.OutputDir = filepath.Join(dir, "music")

	return NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: filepath.Join(dir, "config.toml"),
		Library:    &tu.MockLibrary{Tracks: tu.NewTracks(3), Profile: &models.Profile{ID: "user1", DisplayName: "Test User"}},
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
		Invoker:    &fakeInvoker{},
		Detector:   spotdl.Static(models.Current),
		DB:         setupTestDB(t),
		Prompter:   &fakePrompter{confirm: true},
	})
}

// runCommand runs args against the runner's command tree, as main does without loading a config file.
func runCommand(r *Runner, args ...string) error {
	app := &cli.Command{
		Name: "savedl",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: r.configPath},
		},
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"savedl"}, args...))
}
