package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/shared"
)

// DefaultBaseURL is used when no backend is configured.
const DefaultBaseURL = "http://localhost:8000/"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
}

// ExtractVideoID returns the 11 character video id from a watch or short link.
func ExtractVideoID(link string) (string, error) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(link); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a YouTube video link", shared.ErrInvalidInput, link)
}

// NormalizeBaseURL strips any trailing /api segments and guarantees a single
// trailing slash, so endpoint paths can be appended as "api/...".
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL, nil
	}

	for {
		trimmed := strings.TrimRight(raw, "/")
		if !strings.HasSuffix(trimmed, "/api") {
			raw = trimmed
			break
		}
		raw = strings.TrimSuffix(trimmed, "/api")
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", shared.ErrInvalidConfig, raw)
	}
	return raw + "/", nil
}

func validID(endpoint string, id int) *APIError {
	if id <= 0 {
		return invalid(endpoint, "transcript id must be positive, got %d", id)
	}
	return nil
}

func required(endpoint string, pairs ...string) *APIError {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return invalid(endpoint, "%s is required", pairs[i])
		}
	}
	return nil
}

func validVisibility(endpoint string, v models.Visibility) *APIError {
	if v != models.VisibilityPublic && v != models.VisibilityPrivate {
		return invalid(endpoint, "visibility must be PUBLIC or PRIVATE, got %q", v)
	}
	return nil
}
