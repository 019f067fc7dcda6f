package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bilisync/internal/services"
	"github.com/desertthunder/bilisync/internal/shared"
	"github.com/desertthunder/bilisync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies that are not injected are built on first use from the --config file.
type Runner struct {
	config   *shared.Config
	db       *sql.DB
	ownsDB   bool
	remote   services.Bilibili
	registry *prometheus.Registry
	syncer   *tasks.PlaylistSyncer
	logger   *log.Logger
	output   io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	DB     *sql.DB
	Remote services.Bilibili
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:   opts.Config,
		db:       opts.DB,
		remote:   opts.Remote,
		registry: prometheus.NewRegistry(),
		logger:   opts.Logger,
		output:   opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, playlistsCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the --config file, falling back to defaults when it does not exist.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if r.config != nil {
		return nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", path)
		config = shared.DefaultConfig()
	case err != nil:
		return err
	}

	if err := shared.SetLogLevel(r.logger, config.Log.Level); err != nil {
		r.logger.Warn("ignoring invalid log level", "level", config.Log.Level, "error", err)
	}
	r.config = config
	return nil
}

// open loads config, opens the database and builds the syncer.
func (r *Runner) open(cmd *cli.Command) error {
	if r.syncer != nil {
		return nil
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return err
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db, r.ownsDB = db, true
	}

	applied, err := shared.RunMigrations(r.db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		r.logger.Info("applied migrations", "versions", applied)
	}

	if r.remote == nil {
		r.remote = services.NewBilibiliService(r.config.Credentials.Bilibili, r.logger)
	}

	r.syncer = tasks.NewPlaylistSyncer(r.db, r.remote,
		tasks.WithLogger(r.logger),
		tasks.WithMetrics(tasks.NewMetrics(r.registry)),
		tasks.WithMaxPages(r.config.Sync.MaxPages),
	)
	return nil
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() {
	if r.ownsDB && r.db != nil {
		r.db.Close()
		r.db = nil
	}
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

// progressPrinter prints updates until the returned stop function is called.
func (r *Runner) progressPrinter(render func(tasks.ProgressUpdate) string) (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for u := range progress {
			r.writePlain("%s\n", render(u))
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func requireFlag(cmd *cli.Command, name string) (string, error) {
	v := cmd.String(name)
	if v == "" {
		return "", fmt.Errorf("%w: --%s", shared.ErrMissingArgument, name)
	}
	return v, nil
}
