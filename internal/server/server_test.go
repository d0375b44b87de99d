package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/recap/internal/shared"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestBasicRouter(t *testing.T) {
	t.Run("method patterns", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("GET /ping: %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST /ping: expected 405, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET /missing: expected 404, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("outer"), mark("inner"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if got := strings.Join(order, ","); got != "outer,inner,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})
}

func TestLinkHandler(t *testing.T) {
	t.Run("delivers the token once", func(t *testing.T) {
		h := NewLinkHandler(LinkVerify)
		router := NewBasicRouter()
		router.Handler(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token=abc", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Email link received") {
			t.Errorf("unexpected page %q", rec.Body.String())
		}

		result := <-h.Result()
		if result.Error() != nil || result.Token != "abc" || result.Kind != LinkVerify {
			t.Errorf("unexpected result %+v", result)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token=again", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("second hit: expected 400, got %d", rec.Code)
		}
		if _, open := <-h.Result(); open {
			t.Error("result channel should be closed after the first link")
		}
	})

	t.Run("missing token", func(t *testing.T) {
		h := NewLinkHandler()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/reset", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", result.Error())
		}
	})

	t.Run("routes only the requested kinds", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(NewLinkHandler(LinkReset))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/verify?token=abc", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for an unregistered kind, got %d", rec.Code)
		}
	})

	t.Run("default kinds", func(t *testing.T) {
		routes := NewLinkHandler().Routes()
		if len(routes) != 2 || routes[0] != "/auth/verify" || routes[1] != "/auth/reset" {
			t.Errorf("unexpected routes %v", routes)
		}
	})
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestCatchLink(t *testing.T) {
	t.Run("returns the token", func(t *testing.T) {
		ln := listen(t)
		url := "http://" + ln.Addr().String() + "/auth/reset?token=reset-me"

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tokens := make(chan string, 1)
		errs := make(chan error, 1)
		go func() {
			tok, err := CatchLink(ctx, ln, LinkReset, quietLogger())
			tokens <- tok
			errs <- err
		}()

		var resp *http.Response
		var err error
		for range 50 {
			resp, err = http.Get(url)
			if err == nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()

		if tok := <-tokens; tok != "reset-me" {
			t.Errorf("expected reset-me, got %q", tok)
		}
		if err := <-errs; err != nil {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("times out", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := CatchLink(ctx, listen(t), LinkVerify, quietLogger())
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	ln := listen(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, http.NotFoundHandler(), quietLogger())
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil after cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}
