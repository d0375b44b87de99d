package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/payments"
	"github.com/desertthunder/recap/internal/services"
	"github.com/desertthunder/recap/internal/session"
	"github.com/desertthunder/recap/internal/shared"
	"github.com/desertthunder/recap/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	api         *services.APIService
	newAPI      func(*log.Logger) (*services.APIService, error)
	store       session.Store
	processor   payments.Processor
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
	listen      func(network, addr string) (net.Listener, error)
	gatherer    prometheus.Gatherer
	now         func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	API         *services.APIService
	NewAPI      func(*log.Logger) (*services.APIService, error) // rebuilds API with another logger, for the TUI
	Store       session.Store
	Processor   payments.Processor
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
	Listen      func(network, addr string) (net.Listener, error)
	Gatherer    prometheus.Gatherer
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
	if opts.Store == nil {
		opts.Store = session.New(session.Unavailable{Err: shared.ErrStorageUnavailable}, opts.Logger)
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Listen == nil {
		opts.Listen = net.Listen
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		api:         opts.API,
		newAPI:      opts.NewAPI,
		store:       opts.Store,
		processor:   opts.Processor,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		listen:      opts.Listen,
		gatherer:    opts.Gatherer,
		now:         time.Now,
	}
}

// app is the root command. --metrics dumps the client Prometheus registry
// to a file in the text exposition format once the command finishes.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "recap",
		Usage:   "Summarize YouTube videos and browse the public feed",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "metrics",
				Usage:   "Write client metrics to this file on exit",
				Sources: cli.EnvVars("RECAP_METRICS_FILE"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				r.logger.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			if path := cmd.String("metrics"); path != "" {
				return r.writeMetrics(path)
			}
			return nil
		},
		Commands: r.register(),
	}
}

func (r *Runner) writeMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, r.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	r.logger.Debug("metrics written", "path", path)
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, summarizeCommand, historyCommand, feedCommand, favoritesCommand, billingCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) service() (*services.APIService, error) {
	if r.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrInvalidConfig)
	}
	return r.api, nil
}

func (r *Runner) auth() (*tasks.Auth, error) {
	api, err := r.service()
	if err != nil {
		return nil, err
	}
	return tasks.NewAuth(api, r.store, r.logger), nil
}

func (r *Runner) feed() (*tasks.Feed, error) {
	api, err := r.service()
	if err != nil {
		return nil, err
	}
	return tasks.NewFeed(api, r.logger), nil
}

func (r *Runner) entitlements() (*tasks.Entitlements, error) {
	api, err := r.service()
	if err != nil {
		return nil, err
	}
	policy := tasks.Policy{
		PollInterval: r.config.Billing.PollInterval,
		MaxWait:      r.config.Billing.PollMaxWait,
	}
	return tasks.NewEntitlements(api, r.processor, policy, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
