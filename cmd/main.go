package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/recap/internal/payments"
	"github.com/desertthunder/recap/internal/services"
	"github.com/desertthunder/recap/internal/session"
	"github.com/desertthunder/recap/internal/shared"
)

const (
	version    = "0.1.0"
	configPath = "config.toml"
	envPath    = ".env"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Error("could not load config, using defaults", "path", configPath, "error", err)
		} else {
			config = loaded
		}
	}
	if err := shared.ApplyEnv(config, envPath); err != nil {
		logger.Error("invalid environment", "error", err)
		return 1
	}
	if err := config.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}
	shared.SetLogLevel(logger, config.Log.Level)

	var store session.Store
	closeStore := func() error { return nil }
	if s, closer, err := session.Open(config.Session.Path, logger); err != nil {
		logger.Warn("session storage unavailable, continuing logged out", "path", config.Session.Path, "error", err)
		store = session.New(session.Unavailable{Err: err}, logger)
	} else {
		store, closeStore = s, closer
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close session storage", "error", err)
		}
	}()

	client := &http.Client{Timeout: config.API.Timeout}
	newAPI := func(l *log.Logger) (*services.APIService, error) {
		return services.NewAPIService(config.API.BaseURL, client, store,
			services.WithLogger(l),
			services.WithRateLimit(config.API.RateLimit, config.API.Burst),
			services.WithUserAgent("recap/"+version),
			services.WithAuthFailureHandler(func(e *services.APIError) {
				l.Warn("session rejected by the backend, logging out", "endpoint", e.Endpoint)
				if err := store.Clear(); err != nil {
					l.Warn("failed to clear session", "error", err)
				}
			}),
		)
	}
	api, err := newAPI(logger)
	if err != nil {
		logger.Error("could not create API client", "error", err)
		return 1
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        api,
		NewAPI:     newAPI,
		Store:      store,
		HTTPClient: client,
		Logger:     logger,
	}
	if key := config.Billing.StripePublishableKey; key != "" && !strings.Contains(key, "your_publishable_key") {
		processor, err := payments.NewStripeProcessor(key, config.Billing.StripeBaseURL, client, logger)
		if err != nil {
			logger.Warn("payments disabled", "error", err)
		} else {
			opts.Processor = processor
		}
	}
	runner := NewRunner(opts)

	app := runner.app()
	if err := app.Run(context.Background(), args); err != nil {
		return report(logger, err)
	}
	return 0
}

// report prints a hint for errors the user can act on and returns the exit code.
func report(logger *log.Logger, err error) int {
	switch {
	case errors.Is(err, shared.ErrUpgradeNeeded):
		fmt.Fprintf(os.Stderr, "✗ %v\nThis needs premium. Run `recap billing subscribe` to upgrade.\n", err)
	case errors.Is(err, shared.ErrNotAuthenticated):
		fmt.Fprintf(os.Stderr, "✗ %v\nlog in first: run `recap auth login`\n", err)
	default:
		logger.Error("application error", "error", err)
	}
	return 1
}
