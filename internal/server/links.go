package server

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/recap/internal/shared"
)

// LinkKind identifies which e-mail link was opened.
type LinkKind string

const (
	LinkVerify LinkKind = "verify"
	LinkReset  LinkKind = "reset"
)

// Path returns the route the backend's e-mails point at.
func (k LinkKind) Path() string {
	return "/auth/" + string(k)
}

// LinkResult carries the token from an opened e-mail link.
type LinkResult struct {
	Kind  LinkKind
	Token string
	err   error
}

func (l *LinkResult) Error() error {
	return l.err
}

// LinkHandler catches the first verification or reset link opened in the
// browser while the CLI waits. Implements the Handler interface for
// registration with a Router.
type LinkHandler struct {
	kinds      []LinkKind
	resultChan chan LinkResult
	once       sync.Once

	mu  sync.Mutex
	hit bool
}

// NewLinkHandler accepts links of the given kinds, or of every kind when none are given.
func NewLinkHandler(kinds ...LinkKind) *LinkHandler {
	if len(kinds) == 0 {
		kinds = []LinkKind{LinkVerify, LinkReset}
	}
	return &LinkHandler{kinds: kinds, resultChan: make(chan LinkResult, 1)}
}

// Routes returns the HTTP routes this handler serves.
func (h *LinkHandler) Routes() []string {
	routes := make([]string, 0, len(h.kinds))
	for _, k := range h.kinds {
		routes = append(routes, k.Path())
	}
	return routes
}

// ServeHTTP handles one link. Later hits are refused.
func (h *LinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, shared.ErrCallbackServed.Error(), http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	kind := LinkKind(strings.TrimPrefix(r.URL.Path, "/auth/"))
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		h.Send(LinkResult{Kind: kind, err: fmt.Errorf("%w: link has no token", shared.ErrMissingArgument)})
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}

	h.Send(LinkResult{Kind: kind, Token: token})

	title := "Email link received"
	if kind == LinkReset {
		title = "Reset link received"
	}
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #4f46e5; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ %[1]s</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`, html.EscapeString(title))
}

// Send delivers result on the channel (only once).
func (h *LinkHandler) Send(result LinkResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *LinkHandler) Result() <-chan LinkResult {
	return h.resultChan
}

// CatchLink serves the link routes for kind on ln until a link arrives or
// ctx ends, and returns the token. The listener is closed on return.
func CatchLink(ctx context.Context, ln net.Listener, kind LinkKind, logger *log.Logger) (string, error) {
	logger = shared.WithLogger(logger, "link", string(kind))
	handler := NewLinkHandler(kind)
	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- Serve(serveCtx, ln, router, logger)
	}()

	select {
	case result := <-handler.Result():
		stop()
		<-serverErrors
		if err := result.Error(); err != nil {
			return "", err
		}
		return result.Token, nil
	case err := <-serverErrors:
		if err == nil {
			return "", linkTimeout(ctx)
		}
		return "", fmt.Errorf("link server stopped: %w", err)
	case <-ctx.Done():
		stop()
		<-serverErrors
		return "", linkTimeout(ctx)
	}
}

func linkTimeout(ctx context.Context) error {
	return fmt.Errorf("%w: no link was opened: %w", shared.ErrTimeout, ctx.Err())
}
