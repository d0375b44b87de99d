package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/recap/internal/formatter"
	"github.com/desertthunder/recap/internal/models"
)

// BulkExportOpts contains configuration for exporting the whole history.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: md)
	OutputDir  string           // Base output directory (default: recap_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 8)
	RateLimit  float64          // Detail fetches per second (default: 5)
}

// BulkExportResult is the outcome of [ExportHistory].
type BulkExportResult struct {
	OutputDirectory string
	ManifestPath    string
	Manifest        formatter.Manifest
}

// ExportHistory writes every transcript in the user's history to OutputDir
// using a rate limited worker pool, then writes export_manifest.json.
// Individual failures are recorded in the manifest and do not stop the run.
func ExportHistory(ctx context.Context, progress chan<- ProgressUpdate, api HistoryAPI, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatMarkdown
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("recap_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	list, err := api.History(ctx)
	if err != nil {
		return nil, err
	}
	history := list.Data
	sendProgress(progress, fetchHistoryUpdate(len(history)))

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Transcript)
	results := make(chan formatter.ManifestEntry, len(history))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- exportOne(ctx, api, limiter, job, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range history {
			select {
			case <-ctx.Done():
				return
			case jobs <- t:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	manifest := formatter.Manifest{
		CreatedAt: time.Now().UTC(),
		Format:    opts.Format,
		Total:     len(history),
		Entries:   make([]formatter.ManifestEntry, 0, len(history)),
	}

	completed := 0
	for entry := range results {
		completed++
		manifest.Entries = append(manifest.Entries, entry)
		if entry.Error == "" {
			manifest.Succeeded++
			sendProgress(progress, exportCompletedUpdate(completed, len(history), entry.Title, entry.File))
		} else {
			manifest.Failed++
			sendProgress(progress, exportFailedUpdate(completed, len(history), entry.Title, entry.Error))
		}
	}
	sort.Slice(manifest.Entries, func(i, j int) bool { return manifest.Entries[i].ID < manifest.Entries[j].ID })

	result := &BulkExportResult{OutputDirectory: opts.OutputDir, Manifest: manifest}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportOne fetches the full transcript (the history list may omit the
// transcript body) and writes it.
func exportOne(ctx context.Context, api HistoryAPI, limiter *rate.Limiter, t models.Transcript, opts BulkExportOpts) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{ID: t.ID, Title: t.DisplayTitle()}

	if err := limiter.Wait(ctx); err != nil {
		entry.Error = err.Error()
		return entry
	}

	full, err := api.HistoryItem(ctx, t.ID)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	path := filepath.Join(opts.OutputDir, formatter.DefaultFilename(full.Data, opts.Format))
	file, err := formatter.WriteExport(full.Data, opts.Format, path)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.File = file
	return entry
}
