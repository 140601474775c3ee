package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/audio"
	"github.com/desertthunder/opium/internal/auth"
	"github.com/desertthunder/opium/internal/formatter"
	"github.com/desertthunder/opium/internal/player"
	"github.com/desertthunder/opium/internal/services"
	"github.com/desertthunder/opium/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	state       *shared.StateStore
	auth        *auth.Manager
	catalog     services.Catalog
	api         *services.APIService
	player      *player.Controller
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(url string) error
	spin        func(ctx context.Context, title string, action func(context.Context) error) error
	closers     []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Dependencies left nil are built from the loaded config before the first command runs.
type RunnerOpts struct {
	Config     *shared.Config
	State      *shared.StateStore
	Auth       *auth.Manager
	Catalog    services.Catalog
	API        *services.APIService
	Player     *player.Controller
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
		config:      opts.Config,
		state:       opts.State,
		auth:        opts.Auth,
		catalog:     opts.Catalog,
		api:         opts.API,
		player:      opts.Player,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: shared.OpenBrowser,
		spin:        runSpinner,
	}
}

func runSpinner(ctx context.Context, title string, action func(context.Context) error) error {
	return spinner.New().Title(title).Context(ctx).ActionWithErr(action).Run()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		initCommand, authCommand, browseCommand, playlistCommand, albumCommand, artistCommand,
		searchCommand, meCommand, playCommand, exportCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig reads path when it exists. A missing file is only an error when the path was given explicitly.
func loadConfig(path string, explicit bool) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

// setup loads configuration and wires every dependency not injected through [RunnerOpts].
func (r *Runner) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if subcommand(cmd) == "init" {
		return ctx, nil
	}

	if r.config == nil {
		config, err := loadConfig(cmd.String("config"), cmd.IsSet("config"))
		if err != nil {
			return ctx, err
		}
		if err := config.LoadEnv(); err != nil {
			r.logger.Warn("ignoring .env file", "err", err)
		}
		r.config = config
	}
	if level := cmd.String("log-level"); level != "" {
		r.config.Log.Level = level
	}
	shared.SetLogLevel(r.logger, shared.ParseLevel(r.config.Log.Level))

	if r.config.Log.File == "" && isTUI(cmd) {
		r.config.Log.File = defaultTUILog
	}
	if r.config.Log.File != "" {
		fileLogger, closer := shared.NewFileLogger(r.config.Log)
		r.SetLogger(fileLogger)
		r.closers = append(r.closers, closer)
	}

	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: r.config.API.Timeout()}
	}

	if r.state == nil {
		state, err := shared.NewStateStore(shared.ExpandPath(r.config.State.Path))
		if err != nil {
			return ctx, fmt.Errorf("failed to open state: %w", err)
		}
		r.state = state
	}

	if r.auth == nil && r.config.Credentials.Spotify.Configured() {
		manager, err := auth.NewManager(auth.ManagerOpts{
			Credentials:    r.config.Credentials.Spotify,
			AuthURL:        r.config.API.AuthURL,
			TokenURL:       r.config.API.TokenURL,
			Store:          auth.NewStateTokenStore(r.state),
			HTTPClient:     r.httpClient,
			RefreshWindow:  r.config.Auth.RefreshWindow(),
			RefreshTimeout: r.config.Auth.RefreshTimeout(),
			Logger:         r.logger,
		})
		if err != nil {
			return ctx, err
		}
		r.auth = manager
	}

	if r.auth != nil {
		if r.catalog == nil {
			catalog, err := services.NewSpotifyService(services.SpotifyOpts{
				BaseURL:    r.config.API.BaseURL,
				Tokens:     r.auth,
				HTTPClient: r.httpClient,
				RateLimit:  r.config.API.RateLimit,
				Market:     r.config.API.Market,
				Logger:     r.logger,
			})
			if err != nil {
				return ctx, err
			}
			r.catalog = catalog
		}
		if r.api == nil {
			r.api = services.NewAPIService(r.config.API.BaseURL, r.auth, r.httpClient)
		}
	}

	if r.player == nil {
		controller, err := player.NewController(player.ControllerOpts{
			Factory: audio.NewExecFactory(r.config.Player, r.logger),
			Volumes: r.state,
			Volume:  r.config.Player.Volume,
			Logger:  r.logger,
		})
		if err != nil {
			return ctx, err
		}
		r.player = controller
	}

	return ctx, nil
}

// subcommand returns the first positional argument of the root command.
func subcommand(cmd *cli.Command) string {
	return cmd.Args().First()
}

// isTUI reports whether the command line selects the full-screen interface.
func isTUI(cmd *cli.Command) bool {
	switch subcommand(cmd) {
	case "tui", "ui", "interactive":
		return true
	}
	return false
}

// teardown stops playback and flushes log files.
func (r *Runner) teardown(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if r.player != nil {
		errs = append(errs, r.player.Close())
	}
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) requireAuth() (*auth.Manager, error) {
	if r.auth == nil {
		return nil, fmt.Errorf("%w: set client_id and client_secret in config or %s and %s",
			shared.ErrMissingCredentials, shared.EnvClientID, shared.EnvClientSecret)
	}
	return r.auth, nil
}

func (r *Runner) requireCatalog() (services.Catalog, error) {
	if r.catalog == nil {
		_, err := r.requireAuth()
		return nil, err
	}
	return r.catalog, nil
}

// render writes raw as JSON when --json is set, and t in the --format layout otherwise.
func (r *Runner) render(cmd *cli.Command, raw any, t *formatter.Table) error {
	if cmd.Bool("json") {
		return r.writeJSON(raw, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	return formatter.Render(r.output, t, format)
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
