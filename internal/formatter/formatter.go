// package formatter renders transcripts to Markdown, plain text, CSV (key moments) and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/shared"
)

// Format is an export format accepted by [Render].
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the short names along with "markdown" and "text". Empty input yields [FormatMarkdown].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (md, txt, csv, json)", shared.ErrInvalidFlag, s)
	}
}

// Render converts t to the requested format.
func Render(t models.Transcript, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return ExportToMarkdown(t), nil
	case FormatText:
		return ExportToText(t), nil
	case FormatCSV:
		return ExportToCSV(t)
	case FormatJSON:
		return shared.MarshalJSON(t, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportToMarkdown converts a transcript to a Markdown document: metadata, summary, the derived sections and the full transcript.
func ExportToMarkdown(t models.Transcript) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", t.DisplayTitle())
	if t.ThumbnailURL != "" {
		fmt.Fprintf(&buf, "![Thumbnail](%s)\n\n", t.ThumbnailURL)
	}

	if t.ChannelName != "" {
		fmt.Fprintf(&buf, "**Channel**: %s\n", t.ChannelName)
	}
	fmt.Fprintf(&buf, "**Video**: %s\n", t.YouTubeURL)
	if t.Duration != "" {
		fmt.Fprintf(&buf, "**Duration**: %s\n", t.Duration)
	}
	fmt.Fprintf(&buf, "**Visibility**: %s\n", strings.ToLower(string(t.Visibility)))
	if t.Sentiment != "" {
		fmt.Fprintf(&buf, "**Sentiment**: %s\n", t.Sentiment)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "## Summary\n\n%s\n\n", strings.TrimSpace(t.Summary))

	writeList(&buf, "## Highlights", t.Highlights)
	if len(t.KeyMoments) > 0 {
		buf.WriteString("## Key Moments\n\n")
		for _, km := range t.KeyMoments {
			fmt.Fprintf(&buf, "- **%s** %s\n", km.Timestamp, km.Moment)
		}
		buf.WriteString("\n")
	}
	writeList(&buf, "## Topics", t.Topics)
	if len(t.Quotes) > 0 {
		buf.WriteString("## Quotes\n\n")
		for _, q := range t.Quotes {
			fmt.Fprintf(&buf, "> %s\n\n", q)
		}
	}

	if t.Transcript != "" {
		fmt.Fprintf(&buf, "## Transcript\n\n%s\n", strings.TrimSpace(t.Transcript))
	}
	return buf.Bytes()
}

func writeList(buf *bytes.Buffer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	buf.WriteString(heading + "\n\n")
	for _, item := range items {
		fmt.Fprintf(buf, "- %s\n", item)
	}
	buf.WriteString("\n")
}

// ExportToText converts a transcript to plain text without the full transcript body.
func ExportToText(t models.Transcript) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Title: %s\n", t.DisplayTitle())
	if t.ChannelName != "" {
		fmt.Fprintf(&buf, "Channel: %s\n", t.ChannelName)
	}
	fmt.Fprintf(&buf, "Video: %s\n\n", t.YouTubeURL)
	fmt.Fprintf(&buf, "Summary:\n%s\n", strings.TrimSpace(t.Summary))

	if len(t.Highlights) > 0 {
		buf.WriteString("\nHighlights:\n")
		for i, h := range t.Highlights {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, h)
		}
	}
	if len(t.KeyMoments) > 0 {
		buf.WriteString("\nKey moments:\n")
		for _, km := range t.KeyMoments {
			fmt.Fprintf(&buf, "[%s] %s\n", km.Timestamp, km.Moment)
		}
	}
	return buf.Bytes()
}

// ExportToCSV writes the key moments with columns: Timestamp, Seconds, Moment, Link.
//
// Seconds and Link are empty when the timestamp is not of the form [H:]MM:SS.
func ExportToCSV(t models.Transcript) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Timestamp", "Seconds", "Moment", "Link"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, km := range t.KeyMoments {
		var secs, link string
		if n, ok := TimestampSeconds(km.Timestamp); ok {
			secs = strconv.Itoa(n)
			link = deepLink(t.YouTubeURL, n)
		}
		if err := writer.Write([]string{km.Timestamp, secs, km.Moment, link}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// TimestampSeconds parses "MM:SS" or "H:MM:SS".
func TimestampSeconds(ts string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

func deepLink(video string, secs int) string {
	u, err := url.Parse(video)
	if err != nil || u.Host == "" {
		return ""
	}
	q := u.Query()
	q.Set("t", strconv.Itoa(secs)+"s")
	u.RawQuery = q.Encode()
	return u.String()
}

// Extension returns the file extension used for f.
func Extension(f Format) string {
	return "." + string(f)
}

// DefaultFilename builds "{id}_{slug}.{ext}" from the transcript title.
func DefaultFilename(t models.Transcript, f Format) string {
	slug := slugify(t.Title)
	if slug == "" {
		return fmt.Sprintf("transcript_%d%s", t.ID, Extension(f))
	}
	return fmt.Sprintf("%d_%s%s", t.ID, slug, Extension(f))
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := b.String()
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return strings.TrimSuffix(slug, "-")
}

// WriteExport renders t and writes it to path, creating parent directories.
//
// Defaults to [DefaultFilename] in the working directory.
func WriteExport(t models.Transcript, f Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(t, f)
	}

	data, err := Render(t, f)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// ManifestEntry records the outcome of one transcript in a bulk export.
type ManifestEntry struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	CreatedAt time.Time       `json:"created_at"`
	Format    Format          `json:"format"`
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Entries   []ManifestEntry `json:"entries"`
}

// WriteManifest writes m as indented JSON.
func WriteManifest(m Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
