package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/shared"
	tu "github.com/desertthunder/recap/internal/testing"
)

func sampleTranscript() models.Transcript {
	return models.Transcript{
		ID:          7,
		YouTubeURL:  "https://youtu.be/abc12345678",
		Title:       "Go Concurrency: Patterns!",
		ChannelName: "gophers",
		Duration:    "12:04",
		Transcript:  "hello and welcome",
		Summary:     "  A talk about channels.  ",
		Highlights:  []string{"channels are typed", "select multiplexes"},
		KeyMoments: []models.KeyMoment{
			{Timestamp: "01:02", Moment: "first demo"},
			{Timestamp: "1:00:00", Moment: "wrap up"},
			{Timestamp: "intro", Moment: "no time"},
		},
		Topics:     []string{"go"},
		Quotes:     []string{"Don't communicate by sharing memory."},
		Sentiment:  "positive",
		Visibility: models.VisibilityPublic,
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToMarkdown", func(t *testing.T) {
		output := string(ExportToMarkdown(sampleTranscript()))

		for _, want := range []string{
			"# Go Concurrency: Patterns!\n",
			"**Channel**: gophers",
			"**Visibility**: public",
			"## Summary\n\nA talk about channels.\n",
			"## Highlights\n\n- channels are typed\n- select multiplexes\n",
			"- **01:02** first demo",
			"> Don't communicate by sharing memory.",
			"## Transcript\n\nhello and welcome",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown skips empty sections", func(t *testing.T) {
		output := string(ExportToMarkdown(models.Transcript{YouTubeURL: "https://youtu.be/abc12345678", Summary: "s"}))

		if !strings.HasPrefix(output, "# https://youtu.be/abc12345678") {
			t.Errorf("expected link as title, got:\n%s", output)
		}
		for _, unwanted := range []string{"## Highlights", "## Key Moments", "## Quotes", "## Transcript", "**Channel**"} {
			if strings.Contains(output, unwanted) {
				t.Errorf("markdown should not contain %q", unwanted)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText(sampleTranscript()))

		if !strings.Contains(output, "Title: Go Concurrency: Patterns!") {
			t.Errorf("text missing title")
		}
		if !strings.Contains(output, "2. select multiplexes") {
			t.Errorf("text missing numbered highlight")
		}
		if !strings.Contains(output, "[1:00:00] wrap up") {
			t.Errorf("text missing key moment")
		}
		if strings.Contains(output, "hello and welcome") {
			t.Errorf("text export should not include the transcript body")
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTranscript())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header and 3 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Timestamp,Seconds,Moment,Link" {
			t.Errorf("unexpected header: %v", records[0])
		}
		if records[1][1] != "62" || records[1][3] != "https://youtu.be/abc12345678?t=62s" {
			t.Errorf("unexpected first row: %v", records[1])
		}
		if records[2][1] != "3600" {
			t.Errorf("expected 3600 seconds, got %q", records[2][1])
		}
		if records[3][1] != "" || records[3][3] != "" {
			t.Errorf("unparseable timestamp should leave seconds and link empty: %v", records[3])
		}
	})

	t.Run("Render json", func(t *testing.T) {
		data, err := Render(sampleTranscript(), FormatJSON)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		var got models.Transcript
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.ID != 7 || got.Title != "Go Concurrency: Patterns!" {
			t.Errorf("unexpected decoded transcript: %+v", got)
		}
	})

	t.Run("Render unknown format", func(t *testing.T) {
		if _, err := Render(sampleTranscript(), Format("pdf")); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{"text", FormatText, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestTimestampSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"02:30", 150, true},
		{"1:02:03", 3723, true},
		{"90", 0, false},
		{"a:bc", 0, false},
		{"1:2:3:4", 0, false},
	}

	for _, tt := range tests {
		got, ok := TimestampSeconds(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("TimestampSeconds(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDefaultFilename(t *testing.T) {
	if got := DefaultFilename(sampleTranscript(), FormatMarkdown); got != "7_go-concurrency-patterns.md" {
		t.Errorf("unexpected filename %q", got)
	}
	if got := DefaultFilename(models.Transcript{ID: 3, Title: "!!!"}, FormatCSV); got != "transcript_3.csv" {
		t.Errorf("unexpected fallback filename %q", got)
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("writes into nested directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "talk.md")

		got, err := WriteExport(sampleTranscript(), FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "## Summary") {
			t.Error("export file missing summary")
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := WriteExport(sampleTranscript(), FormatText, filepath.Join(blocker, "out.txt")); err == nil {
			t.Error("expected error writing below a regular file")
		}
	})
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := Manifest{
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Format:    FormatCSV,
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Entries: []ManifestEntry{
			{ID: 1, Title: "a", File: "1_a.csv"},
			{ID: 2, Title: "b", Error: "Not found."},
		},
	}

	if err := WriteManifest(m, path); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	var got Manifest
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &got); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if got.Failed != 1 || got.Entries[1].Error != "Not found." {
		t.Errorf("unexpected manifest: %+v", got)
	}
}
