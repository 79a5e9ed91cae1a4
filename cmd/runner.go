package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harvmaster/GooglePhotosDownloader/internal/backoff"
	"github.com/harvmaster/GooglePhotosDownloader/internal/repositories"
	"github.com/harvmaster/GooglePhotosDownloader/internal/services"
	"github.com/harvmaster/GooglePhotosDownloader/internal/shared"
	"github.com/harvmaster/GooglePhotosDownloader/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	service    services.OAuthService
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.OAuthService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		service:    opts.Service,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger, e.g. to redirect logs to a file
// while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, albumsCommand, indexCommand, downloadCommand, syncCommand, libraryCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configFilePath resolves the config file path for a command invocation,
// preferring the --config flag over the path the runner was built with.
func (r *Runner) configFilePath(cmd *cli.Command) string {
	if path := cmd.String("config"); path != "" {
		return path
	}
	if r.configPath != "" {
		return r.configPath
	}
	return "config.toml"
}

// reloadConfig points the runner at the invocation's config file. When the
// flag names a different file that exists on disk, the runner's config (and
// any service built from the old credentials) is replaced.
func (r *Runner) reloadConfig(cmd *cli.Command) error {
	configPath := r.configFilePath(cmd)
	if configPath == r.configPath {
		return nil
	}

	if _, err := os.Stat(configPath); err == nil {
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		r.config = config
		r.service = nil
	}

	r.configPath = configPath
	return nil
}

// openDatabase opens the configured SQLite database with pool settings
// applied. The caller closes it.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// newEngine wires a LibraryEngine from the downloader settings. A nil db
// builds an engine without persistence, enough for album exports.
func (r *Runner) newEngine(db *sql.DB) (*tasks.LibraryEngine, error) {
	retry := backoff.Policy{}
	if d := r.config.Downloader; d.MaxRetries != 0 || d.InitialDelayMs != 0 || d.MaxDelayMs != 0 {
		policy, err := d.RetryPolicy()
		if err != nil {
			return nil, err
		}
		retry = policy
	}

	var store tasks.MediaStore
	var cache tasks.MediaCacher
	var runs tasks.RunRecorder
	if db != nil {
		media := repositories.NewMediaRepository(db)
		store = media
		cache = repositories.NewMediaCacheAdapter(media)
		runs = repositories.NewSyncRunRepository(db)
	}

	return tasks.NewLibraryEngine(r.service, store, cache, runs, tasks.EngineConfig{
		DownloadDir: r.config.Downloader.Directory,
		Concurrency: r.config.Downloader.Concurrency,
		PageSize:    r.config.Downloader.PageSize,
		Retry:       retry,
		Logger:      r.logger,
	})
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
