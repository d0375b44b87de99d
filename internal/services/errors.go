package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/recap/internal/shared"
)

// Kind classifies an [APIError].
type Kind int

const (
	// KindValidation is raised before any request is sent.
	KindValidation Kind = iota
	// KindAuth means no token was available or the backend rejected it (401).
	KindAuth
	// KindTransport covers dial, read and cancellation failures.
	KindTransport
	// KindDomain is any other non-2xx response; Message is the backend's text.
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindTransport:
		return "transport"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

const (
	msgNetwork      = "Network error"
	msgLoginFirst   = "Please log in to continue."
	msgUnreadable   = "Unexpected response from server"
	msgSessionEnded = "Your session has expired. Please log in again."
)

// APIError is the only error type returned by [APIService] methods.
//
// Message is safe to show to the user as is.
type APIError struct {
	Kind            Kind
	Endpoint        string
	Status          int
	Message         string
	UpgradeRequired bool
	RequestID       string
	Err             error
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindValidation:
		return "invalid input: " + e.Message
	case e.Status > 0:
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap exposes the matching shared sentinel and the underlying cause, so
// errors.Is(err, shared.ErrNotAuthenticated) works for auth failures.
func (e *APIError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.UpgradeRequired {
		errs = append(errs, shared.ErrUpgradeNeeded)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *APIError) sentinel() error {
	switch e.Kind {
	case KindValidation:
		return shared.ErrInvalidInput
	case KindAuth:
		return shared.ErrNotAuthenticated
	case KindTransport:
		return shared.ErrTransport
	default:
		return shared.ErrAPIRequest
	}
}

func invalid(endpoint, format string, args ...any) *APIError {
	return &APIError{Kind: KindValidation, Endpoint: endpoint, Message: fmt.Sprintf(format, args...)}
}

// errorBody extracts a user-facing message from a non-2xx body. It checks
// error, detail and message in that order and then falls back to DRF field
// errors ({"email": ["already taken"]}). An empty message means the body
// could not be understood.
func errorBody(body []byte) (message string, upgrade bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}

	if raw, ok := fields["upgrade_required"]; ok {
		json.Unmarshal(raw, &upgrade)
	}

	for _, key := range []string{"error", "detail", "message"} {
		if s := flatten(fields[key]); s != "" {
			return s, upgrade
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "upgrade_required" && k != "code" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		s := flatten(fields[k])
		if s == "" {
			continue
		}
		if k == "non_field_errors" {
			parts = append(parts, s)
		} else {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, "; "), upgrade
}

// flatten reads a string or a list of strings.
func flatten(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, " "))
	}
	return ""
}
