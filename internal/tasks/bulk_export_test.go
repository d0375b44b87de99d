package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/recap/internal/formatter"
	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/services"
	tu "github.com/desertthunder/recap/internal/testing"
)

func historyBackend(t *testing.T, items ...models.Transcript) *tu.Backend {
	t.Helper()
	backend := tu.NewBackend(t)

	summaries := make([]models.Transcript, 0, len(items))
	for _, item := range items {
		summary := item
		summary.Transcript = ""
		summaries = append(summaries, summary)
		backend.JSON(http.MethodGet, fmt.Sprintf("/api/transcript/history/%d/", item.ID), http.StatusOK, item)
	}
	backend.JSON(http.MethodGet, "/api/transcript/history/", http.StatusOK, summaries)
	return backend
}

func historyService(t *testing.T, backend *tu.Backend) *services.APIService {
	t.Helper()
	api, err := services.NewAPIService(backend.URL(), nil, tu.StaticTokens{Access: "token"}, services.WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return api
}

func TestExportHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("exports every transcript and writes a manifest", func(t *testing.T) {
		backend := historyBackend(t,
			models.Transcript{ID: 1, Title: "First talk", Summary: "one", Transcript: "full text one"},
			models.Transcript{ID: 2, Title: "Second talk", Summary: "two", Transcript: "full text two"},
			models.Transcript{ID: 3, Title: "Third talk", Summary: "three"},
		)
		dir := filepath.Join(t.TempDir(), "out")
		progress := make(chan ProgressUpdate, 20)

		res, err := ExportHistory(ctx, progress, historyService(t, backend), BulkExportOpts{
			Format:     formatter.FormatMarkdown,
			OutputDir:  dir,
			NumWorkers: 2,
			RateLimit:  1000,
		})
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		m := res.Manifest
		if m.Total != 3 || m.Succeeded != 3 || m.Failed != 0 {
			t.Errorf("unexpected manifest counts %+v", m)
		}
		for i, entry := range m.Entries {
			if entry.ID != i+1 {
				t.Errorf("entries should be sorted by id, got %v at %d", entry.ID, i)
			}
		}

		first := filepath.Join(dir, "1_first-talk.md")
		if !strings.Contains(tu.MustReadFile(t, first), "full text one") {
			t.Error("export should use the full transcript from the detail endpoint")
		}

		var onDisk formatter.Manifest
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, res.ManifestPath)), &onDisk); err != nil {
			t.Fatalf("manifest not JSON: %v", err)
		}
		if onDisk.Succeeded != 3 {
			t.Errorf("manifest on disk: %+v", onDisk)
		}

		close(progress)
		var exported int
		for u := range progress {
			if u.Phase == ExportTranscript {
				exported++
			}
		}
		if exported != 3 {
			t.Errorf("expected 3 export updates, got %d", exported)
		}
	})

	t.Run("records failures without stopping", func(t *testing.T) {
		backend := historyBackend(t, models.Transcript{ID: 1, Title: "Kept", Summary: "s"})
		backend.JSON(http.MethodGet, "/api/transcript/history/", http.StatusOK, []models.Transcript{
			{ID: 1, Title: "Kept"},
			{ID: 9, Title: "Gone"},
		})
		dir := t.TempDir()

		res, err := ExportHistory(ctx, nil, historyService(t, backend), BulkExportOpts{
			Format:    formatter.FormatText,
			OutputDir: dir,
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("partial failure should not fail the run: %v", err)
		}
		if res.Manifest.Succeeded != 1 || res.Manifest.Failed != 1 {
			t.Errorf("unexpected counts %+v", res.Manifest)
		}
		if !strings.Contains(res.Manifest.Entries[1].Error, "Not found.") {
			t.Errorf("expected backend message in manifest, got %q", res.Manifest.Entries[1].Error)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "1_kept.txt"))
	})

	t.Run("history error aborts", func(t *testing.T) {
		backend := tu.NewBackend(t)
		backend.JSON(http.MethodGet, "/api/transcript/history/", http.StatusInternalServerError, map[string]string{"error": "down"})

		if _, err := ExportHistory(ctx, nil, historyService(t, backend), BulkExportOpts{OutputDir: t.TempDir()}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty history still writes a manifest", func(t *testing.T) {
		backend := historyBackend(t)
		res, err := ExportHistory(ctx, nil, historyService(t, backend), BulkExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatal(err)
		}
		if res.Manifest.Total != 0 || res.ManifestPath == "" {
			t.Errorf("unexpected result %+v", res)
		}
	})
}
