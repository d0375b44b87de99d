package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/shared"
)

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Wrote %s\n", configPath)
	r.writePlain("Set api.base_url and billing.stripe_publishable_key, or use RECAP_* environment variables.\n")
	return nil
}

// SetupDatabase initializes the session database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			r.logger.Warn("failed to load config, using current settings", "error", err)
		} else {
			config = loaded
		}
	} else {
		r.logger.Info("config file not found, using current settings", "path", configPath)
	}

	r.logger.Info("initializing database", "path", config.Session.Path)

	db, err := shared.OpenStore(config.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back latest migration in %s\n", config.Session.Path)
	}

	r.logger.Infof("setup complete for database: %v", config.Session.Path)
	return r.writePlain("✓ Session database ready at %s\n", config.Session.Path)
}
