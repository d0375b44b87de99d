package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/shared"
	"github.com/desertthunder/recap/internal/ui"
)

// TUI launches the interactive feed browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.service(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if r.newAPI != nil {
		api, err := r.newAPI(fileLogger)
		if err != nil {
			return err
		}
		r.api = api
	}

	feed, err := r.feed()
	if err != nil {
		return err
	}
	ent, err := r.entitlements()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Feed:         feed,
		Entitlements: ent,
		Store:        r.store,
		Logger:       fileLogger,
		Favorites:    cmd.Bool("favorites"),
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
