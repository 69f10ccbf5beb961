package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/savedl/internal/repositories"
	"github.com/desertthunder/savedl/internal/services"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/desertthunder/savedl/internal/spotdl"
	"github.com/desertthunder/savedl/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators that need configuration (the Spotify client, spotdl, the history database) are built lazily on
// first use, unless they were injected through [RunnerOpts].
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.LibraryService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	invoker    tasks.Invoker
	detector   spotdl.Detector
	db         *sql.DB
	prompter   Prompter

	mu      sync.Mutex
	session *tasks.Session
	tokenMu sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    services.LibraryService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Invoker    tasks.Invoker
	Detector   spotdl.Detector
	DB         *sql.DB
	Prompter   Prompter
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
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
	if opts.Prompter == nil {
		opts.Prompter = FormPrompter{}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		invoker:    opts.Invoker,
		detector:   opts.Detector,
		db:         opts.DB,
		prompter:   opts.Prompter,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, spotifyCommand, downloadCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// SetConfig replaces the configuration and the path it is saved back to.
func (r *Runner) SetConfig(config *shared.Config, path string) {
	r.config = config
	r.configPath = path
}

// Close releases the history database when the runner opened it.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// database opens the history database and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

func (r *Runner) batches() (*repositories.BatchRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewBatchRepository(db), nil
}

// batchSession returns the runner's session, building the engine on first use.
//
// History is best effort: when the database cannot be opened the batch still runs, unrecorded.
func (r *Runner) batchSession() (*tasks.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return r.session, nil
	}

	command := r.config.Spotdl.Command
	invoker := r.invoker
	if invoker == nil {
		invoker = spotdl.NewAdapter(spotdl.AdapterOpts{Command: command, Logger: r.logger})
	}

	detector := r.detector
	if detector == nil {
		strategy, err := spotdl.StrategyByName(r.config.Spotdl.Detect)
		if err != nil {
			return nil, fmt.Errorf("%w: spotdl.detect: %v", shared.ErrInvalidConfig, err)
		}
		detector = spotdl.NewProbeDetector(command, strategy, r.logger)
	}

	opts := tasks.EngineOpts{
		Invoker:     invoker,
		Detector:    detector,
		AutoWorkers: shared.OptimalWorkers,
		Logger:      r.logger,
	}
	if repo, err := r.batches(); err != nil {
		r.logger.Warn("batch history disabled", "error", err)
	} else {
		opts.Recorder = repositories.NewBatchHistoryAdapter(repo)
	}

	r.session = tasks.NewSession(tasks.NewBatchEngine(opts))
	return r.session, nil
}

// spotify returns the authenticated library service.
//
// Tokens refreshed while paging are written back to the config file.
func (r *Runner) spotify() (services.LibraryService, error) {
	if r.library != nil {
		return r.library, nil
	}

	creds := r.config.Credentials.Spotify
	if !creds.HasClientID() {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id in %s or run 'savedl auth login'", shared.ErrMissingCredentials, r.configPath)
	}

	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'savedl auth login' first", shared.ErrNotAuthenticated)
	}

	srv, err := r.newSpotifyService()
	if err != nil {
		return nil, err
	}
	srv.SetTokenRefreshCallback(func(t *oauth2.Token) {
		if err := r.saveTokens(t); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "path", r.configPath)
	})
	if err := srv.SetToken(token); err != nil {
		return nil, err
	}

	r.library = srv
	return srv, nil
}

func (r *Runner) newSpotifyService() (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	srv, err := services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  creds.RedirectURI,
		HTTPClient:   r.httpClient,
		RateLimit:    rate.Limit(10),
		Logger:       r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	return srv, nil
}

// saveTokens stores token in the config and writes it to the config path.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidArgument)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.config, r.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
