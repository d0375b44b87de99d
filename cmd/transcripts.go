package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/formatter"
	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/shared"
	"github.com/desertthunder/recap/internal/tasks"
)

// Summarize asks the backend to summarize a video and prints or saves the result.
func (r *Runner) Summarize(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}

	link := strings.TrimSpace(cmd.StringArg("url"))
	if link == "" {
		return fmt.Errorf("%w: video URL is required", shared.ErrMissingArgument)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	visibility := models.VisibilityPrivate
	if cmd.Bool("public") {
		visibility = models.VisibilityPublic
	}

	r.logger.Info("summarizing video", "url", link, "visibility", visibility)
	res, err := api.Summarize(ctx, link, visibility)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(res.Data, format, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Saved summary of %q to %s\n", res.Data.DisplayTitle(), path)
	}

	data, err := formatter.Render(res.Data, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", strings.TrimRight(string(data), "\n"))
}

// HistoryList lists the user's transcripts.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}

	res, err := api.History(ctx)
	if err != nil {
		return err
	}
	query := cmd.String("search")
	items := searchTitles(res.Data, query)
	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("History (%d)", len(items)))
	if query != "" {
		r.writePlain("%d found (filtered from %d)\n", len(items), len(res.Data))
	}
	for _, t := range items {
		r.writePlain("%6d  %-8s  %s\n", t.ID, strings.ToLower(string(t.Visibility)), shared.Truncate(t.DisplayTitle(), 60))
	}
	return nil
}

// HistoryDelete removes one transcript.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if _, err := api.DeleteHistory(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted transcript %d\n", id)
}

// HistoryVisibility publishes or hides a transcript.
func (r *Runner) HistoryVisibility(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}
	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	public, private := cmd.Bool("public"), cmd.Bool("private")
	if public == private {
		return fmt.Errorf("%w: pass exactly one of --public or --private", shared.ErrInvalidFlag)
	}
	visibility := models.VisibilityPrivate
	if public {
		visibility = models.VisibilityPublic
	}

	res, err := api.UpdateVisibility(ctx, id, visibility)
	if err != nil {
		return err
	}
	if res.Data.Visibility != "" {
		visibility = res.Data.Visibility
	}
	return r.writePlain("✓ Transcript %d is now %s\n", id, strings.ToLower(string(visibility)))
}

// HistoryExport writes one transcript, or every transcript with --all.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	api, err := r.service()
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		return r.exportAll(ctx, api, format, cmd.String("output"), int(cmd.Int("workers")))
	}

	id, err := parseID(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	res, err := api.HistoryItem(ctx, id)
	if err != nil {
		return err
	}
	path, err := formatter.WriteExport(res.Data, format, cmd.String("output"))
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %q to %s\n", res.Data.DisplayTitle(), path)
}

func (r *Runner) exportAll(ctx context.Context, api tasks.HistoryAPI, format formatter.Format, dir string, workers int) error {
	progress, wait := r.printProgress(false)
	result, err := tasks.ExportHistory(ctx, progress, api, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  dir,
		NumWorkers: workers,
	})
	wait()
	if err != nil {
		return err
	}

	m := result.Manifest
	r.writePlainln("✓ Exported %d/%d transcripts to %s", m.Succeeded, m.Total, result.OutputDirectory)
	if m.Failed > 0 {
		r.writePlain("%d failed, see %s\n", m.Failed, result.ManifestPath)
	}
	return nil
}

// printProgress prints updates until the returned func is called, which
// closes the channel and waits for the last line.
func (r *Runner) printProgress(steps bool) (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range progress {
			if steps {
				r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
			} else {
				r.writePlain("%s\n", u.Message)
			}
		}
	}()
	return progress, func() {
		close(progress)
		wg.Wait()
	}
}

func parseID(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("%w: transcript id is required", shared.ErrMissingArgument)
	}
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: transcript id must be a positive integer, got %q", shared.ErrInvalidArgument, arg)
	}
	return id, nil
}
