package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/repositories"
	"github.com/desertthunder/aura/internal/services"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/desertthunder/aura/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	service    services.MusicService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	// Service overrides the Spotify client when set. Used in tests.
	Service    services.MusicService
	HTTPClient *http.Client
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		service:    opts.Service,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger, e.g. to redirect output to a
// file while an interactive view owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, summaryCommand, clearCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration for a command, preferring the
// --config flag path over the runner's config.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if config, err := shared.LoadConfig(configPath); err == nil {
				r.config = config
				return config
			} else {
				r.logger.Warn("failed to load config, using current", "error", err)
			}
		}
	}

	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// openStore opens the configured database and wraps it in a repository store.
// The caller owns the store and must Close it.
func (r *Runner) openStore(config *shared.Config) (*repositories.Store, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	return repositories.NewStore(db), nil
}

// resolveUser determines which account a command operates on: the --user
// flag when given, otherwise the account saved during authorization.
func (r *Runner) resolveUser(cmd *cli.Command, config *shared.Config) (string, error) {
	if userID := cmd.String("user"); userID != "" {
		return userID, nil
	}
	if userID := config.Credentials.Spotify.UserID; userID != "" {
		return userID, nil
	}
	return "", fmt.Errorf("%w: no user configured, run 'aura auth' first or pass --user", shared.ErrNotAuthenticated)
}

// buildEngine wires the Spotify client and the sync engine for one user.
func (r *Runner) buildEngine(config *shared.Config, store *repositories.Store, userID string) (*tasks.ProfileEngine, error) {
	service := r.service
	if service == nil {
		oauthConfig, err := services.NewOAuthConfig(
			config.Credentials.Spotify.ClientID,
			config.Credentials.Spotify.ClientSecret,
			config.Credentials.Spotify.RedirectURI,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build oauth config: %w", err)
		}

		tokens := services.NewStoreTokenProvider(oauthConfig, store, userID)
		service = services.NewSpotifyClient(tokens, r.httpClient, "")
	}

	opts := tasks.FetchOpts{
		TopItemLimit:     config.Sync.TopItemLimit,
		FeatureBatchSize: config.Sync.FeatureBatchSize,
		FeatureWorkers:   config.Sync.FeatureWorkers,
		RateLimit:        config.Sync.RateLimit,
	}
	freshness := time.Duration(config.Sync.FreshnessSeconds) * time.Second

	return tasks.NewProfileEngine(service, store, r.logger, opts, freshness), nil
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
