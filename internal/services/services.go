// package services implements the typed client for the transcript summarizer REST backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/recap/internal/shared"
)

const (
	defaultUserAgent = "recap-cli"
	maxBodyBytes     = 8 << 20
)

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
)

// endpoint describes one backend route.
type endpoint struct {
	name     string
	method   string
	path     string
	auth     authMode
	fallback string
}

// Result is the success side of every call. NoContent is set exactly when the
// backend answered 204, in which case Data is the zero value.
type Result[T any] struct {
	Data      T
	Status    int
	NoContent bool
}

// Option configures an [APIService].
type Option func(*APIService)

// WithRateLimit paces outgoing requests to rps per second with the given burst.
// Calls wait for a slot; nothing is retried.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *APIService) {
		if rps <= 0 {
			a.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAuthFailureHandler registers fn to run when the backend rejects the
// session's token. The service never mutates the session itself.
func WithAuthFailureHandler(fn func(*APIError)) Option {
	return func(a *APIService) { a.onAuthFailure = fn }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(a *APIService) { a.userAgent = ua }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(a *APIService) { a.logger = l }
}

// APIService issues exactly one HTTP request per method call.
//
// The bearer token is read from tokens on every call, never cached.
type APIService struct {
	baseURL       string
	httpClient    *http.Client
	tokens        oauth2.TokenSource
	limiter       *rate.Limiter
	onAuthFailure func(*APIError)
	userAgent     string
	logger        *log.Logger
}

// NewAPIService creates a client for the backend at baseURL (see [NormalizeBaseURL]).
//
// client defaults to [http.DefaultClient]. tokens may be nil, in which case
// every authenticated call fails with [KindAuth].
func NewAPIService(baseURL string, client *http.Client, tokens oauth2.TokenSource, opts ...Option) (*APIService, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    normalized,
		httpClient: client,
		tokens:     tokens,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = shared.NewLogger(io.Discard)
	}
	return a, nil
}

// BaseURL returns the normalized backend root.
func (a *APIService) BaseURL() string { return a.baseURL }

// token resolves the bearer token for the call, or nil when there is none.
func (a *APIService) token() *oauth2.Token {
	if a.tokens == nil {
		return nil
	}
	tok, err := a.tokens.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return nil
	}
	return tok
}

// call performs ep and decodes a 2xx body into T.
func call[T any](ctx context.Context, a *APIService, ep endpoint, body any) (Result[T], error) {
	status, raw, apiErr := a.send(ctx, ep, body)
	if apiErr == nil && status != http.StatusNoContent && len(bytes.TrimSpace(raw)) > 0 {
		var data T
		if err := json.Unmarshal(raw, &data); err != nil {
			a.logger.Warn("undecodable response body", "endpoint", ep.name, "status", status, "error", err)
			apiErr = &APIError{Kind: KindDomain, Endpoint: ep.name, Status: status, Message: msgUnreadable, Err: err}
		} else {
			requestsTotal.WithLabelValues(ep.name, "ok").Inc()
			return Result[T]{Data: data, Status: status}, nil
		}
	}
	if apiErr != nil {
		return reject[T](apiErr)
	}

	requestsTotal.WithLabelValues(ep.name, "ok").Inc()
	return Result[T]{Status: status, NoContent: status == http.StatusNoContent}, nil
}

// reject records a failed call.
func reject[T any](err *APIError) (Result[T], error) {
	requestsTotal.WithLabelValues(err.Endpoint, err.Kind.String()).Inc()
	return Result[T]{}, err
}

// send issues the request for ep and returns the status and body of a 2xx response.
func (a *APIService) send(ctx context.Context, ep endpoint, body any) (int, []byte, *APIError) {
	requestID := shared.GenerateID()
	fail := func(kind Kind, status int, message string, err error) (int, []byte, *APIError) {
		return 0, nil, &APIError{Kind: kind, Endpoint: ep.name, Status: status, Message: message, RequestID: requestID, Err: err}
	}

	tok := a.token()
	if ep.auth == authRequired && tok == nil {
		return fail(KindAuth, 0, msgLoginFirst, nil)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(KindValidation, 0, "request body could not be encoded", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, ep.method, a.baseURL+strings.TrimPrefix(ep.path, "/"), reader)
	if err != nil {
		return fail(KindValidation, 0, "request could not be built", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil && ep.auth != authNone {
		tok.SetAuthHeader(req)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return fail(KindTransport, 0, msgNetwork, err)
		}
	}

	logger := a.logger.With("endpoint", ep.name, "request_id", requestID)
	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return fail(KindTransport, 0, msgNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	requestSeconds.WithLabelValues(ep.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return fail(KindTransport, resp.StatusCode, msgNetwork, err)
	}
	logger.Debug("response", "method", ep.method, "status", resp.StatusCode, "bytes", len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := a.statusError(ep, resp.StatusCode, raw, tok != nil)
		apiErr.RequestID = requestID
		if apiErr.Kind == KindAuth && a.onAuthFailure != nil {
			a.onAuthFailure(apiErr)
		}
		return 0, nil, apiErr
	}
	return resp.StatusCode, raw, nil
}

// statusError maps a non-2xx response. A 401 on a call that carried a token
// is an auth failure; everything else is a domain error.
func (a *APIService) statusError(ep endpoint, status int, raw []byte, sentToken bool) *APIError {
	message, upgrade := errorBody(raw)

	kind := KindDomain
	if status == http.StatusUnauthorized && sentToken && ep.auth != authNone {
		kind = KindAuth
		if message == "" {
			message = msgSessionEnded
		}
	}
	if message == "" {
		message = ep.fallback
	}

	return &APIError{
		Kind:            kind,
		Endpoint:        ep.name,
		Status:          status,
		Message:         message,
		UpgradeRequired: upgrade,
	}
}

// AsAPIError unwraps err into an [*APIError].
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
