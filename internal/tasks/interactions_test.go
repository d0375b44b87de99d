package tasks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/services"
	"github.com/desertthunder/recap/internal/shared"
	tu "github.com/desertthunder/recap/internal/testing"
)

type mockFeedAPI struct {
	mu       sync.Mutex
	feed     []models.Transcript
	comments []models.Comment
	calls    map[string]int
	fail     map[string]error
	gate     chan struct{}
}

func newMockFeedAPI(feed ...models.Transcript) *mockFeedAPI {
	return &mockFeedAPI{feed: feed, calls: make(map[string]int), fail: make(map[string]error)}
}

func (m *mockFeedAPI) record(name string) error {
	m.mu.Lock()
	m.calls[name]++
	err := m.fail[name]
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (m *mockFeedAPI) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockFeedAPI) failWith(name string, err error) {
	m.mu.Lock()
	m.fail[name] = err
	m.mu.Unlock()
}

func (m *mockFeedAPI) message(name string) (services.Result[models.Message], error) {
	if err := m.record(name); err != nil {
		return services.Result[models.Message]{}, err
	}
	return services.Result[models.Message]{Data: models.Message{Message: name + " ok"}, Status: http.StatusOK}, nil
}

func (m *mockFeedAPI) PublicFeed(ctx context.Context) (services.Result[[]models.Transcript], error) {
	if err := m.record("PublicFeed"); err != nil {
		return services.Result[[]models.Transcript]{}, err
	}
	return services.Result[[]models.Transcript]{Data: m.feed}, nil
}

func (m *mockFeedAPI) Favorites(ctx context.Context) (services.Result[[]models.Transcript], error) {
	if err := m.record("Favorites"); err != nil {
		return services.Result[[]models.Transcript]{}, err
	}
	return services.Result[[]models.Transcript]{Data: m.feed[:1]}, nil
}

func (m *mockFeedAPI) Like(ctx context.Context, id int) (services.Result[models.Message], error) {
	return m.message("Like")
}

func (m *mockFeedAPI) Unlike(ctx context.Context, id int) (services.Result[models.Message], error) {
	return m.message("Unlike")
}

func (m *mockFeedAPI) Favorite(ctx context.Context, id int) (services.Result[models.Message], error) {
	return m.message("Favorite")
}

func (m *mockFeedAPI) Unfavorite(ctx context.Context, id int) (services.Result[models.Message], error) {
	return m.message("Unfavorite")
}

func (m *mockFeedAPI) Share(ctx context.Context, id int) (services.Result[models.Message], error) {
	return m.message("Share")
}

func (m *mockFeedAPI) Comments(ctx context.Context, id int) (services.Result[[]models.Comment], error) {
	if err := m.record("Comments"); err != nil {
		return services.Result[[]models.Comment]{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return services.Result[[]models.Comment]{Data: append([]models.Comment(nil), m.comments...)}, nil
}

func (m *mockFeedAPI) AddComment(ctx context.Context, id int, text string) (services.Result[models.Comment], error) {
	if err := m.record("AddComment"); err != nil {
		return services.Result[models.Comment]{}, err
	}
	c := models.Comment{ID: 100, UserUsername: "ana", Text: text}
	m.mu.Lock()
	m.comments = append(m.comments, c)
	m.mu.Unlock()
	return services.Result[models.Comment]{Data: c, Status: http.StatusCreated}, nil
}

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func transcript42() models.Transcript {
	return models.Transcript{ID: 42, Title: "Talk", LikesCount: 5, FavoritesCount: 0, SharesCount: 2, CommentsCount: 1}
}

func newFeed(t *testing.T, api *mockFeedAPI) *Feed {
	t.Helper()
	f := NewFeed(api, quietLogger())
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return f
}

func mustGet(t *testing.T, f *Feed, id int) models.Transcript {
	t.Helper()
	tr, ok := f.Get(id)
	if !ok {
		t.Fatalf("transcript %d not in feed", id)
	}
	return tr
}

var errBackend = &services.APIError{Kind: services.KindDomain, Status: http.StatusInternalServerError, Message: "Something went wrong"}

func TestFeedLike(t *testing.T) {
	ctx := context.Background()

	t.Run("like moves flag and counter together", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)

		p, err := f.BeginToggleLike(42)
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		got := mustGet(t, f, 42)
		if !got.IsLiked || got.LikesCount != 6 {
			t.Errorf("expected optimistic liked/6 before the call, got %v/%d", got.IsLiked, got.LikesCount)
		}
		if api.count("Like") != 0 {
			t.Error("no request should be sent before Resolve")
		}

		state, err := f.Resolve(ctx, p)
		if err != nil || state != Committed {
			t.Fatalf("expected commit, got %v, %v", state, err)
		}
		got = mustGet(t, f, 42)
		if !got.IsLiked || got.LikesCount != 6 {
			t.Errorf("expected liked/6 after commit, got %v/%d", got.IsLiked, got.LikesCount)
		}
	})

	t.Run("like then unlike returns to the original counters", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)
		before := mustGet(t, f, 42)

		if _, err := f.ToggleLike(ctx, 42); err != nil {
			t.Fatalf("like failed: %v", err)
		}
		if _, err := f.ToggleLike(ctx, 42); err != nil {
			t.Fatalf("unlike failed: %v", err)
		}

		after := mustGet(t, f, 42)
		if after.IsLiked != before.IsLiked || after.LikesCount != before.LikesCount {
			t.Errorf("round trip changed state: before %v/%d, after %v/%d",
				before.IsLiked, before.LikesCount, after.IsLiked, after.LikesCount)
		}
		if api.count("Like") != 1 || api.count("Unlike") != 1 {
			t.Errorf("expected one like and one unlike, got %d and %d", api.count("Like"), api.count("Unlike"))
		}
	})

	t.Run("failure restores the pre-action state", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.failWith("Like", errBackend)
		f := newFeed(t, api)

		state, err := f.ToggleLike(ctx, 42)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected the backend error, got %v", err)
		}
		if state != RolledBack {
			t.Errorf("expected rolled back, got %v", state)
		}

		got := mustGet(t, f, 42)
		if got.IsLiked || got.LikesCount != 5 {
			t.Errorf("expected unliked/5 after rollback, got %v/%d", got.IsLiked, got.LikesCount)
		}
	})

	t.Run("duplicate press while pending sends one request", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)
		api.mu.Lock()
		api.gate = make(chan struct{})
		api.mu.Unlock()

		done := make(chan error, 1)
		go func() {
			_, err := f.ToggleLike(ctx, 42)
			done <- err
		}()

		deadline := time.Now().Add(2 * time.Second)
		for api.count("Like") == 0 {
			if time.Now().After(deadline) {
				t.Fatal("first like never reached the backend")
			}
			time.Sleep(time.Millisecond)
		}
		if !f.Pending(42, ActionLike) {
			t.Fatal("like should be pending")
		}

		if _, err := f.ToggleLike(ctx, 42); !errors.Is(err, shared.ErrActionPending) {
			t.Errorf("expected ErrActionPending, got %v", err)
		}

		close(api.gate)
		if err := <-done; err != nil {
			t.Fatalf("first like failed: %v", err)
		}

		if n := api.count("Like"); n != 1 {
			t.Errorf("expected exactly one network call, got %d", n)
		}
		if got := mustGet(t, f, 42); got.LikesCount != 6 {
			t.Errorf("expected a single increment to 6, got %d", got.LikesCount)
		}
		if f.Pending(42, ActionLike) {
			t.Error("like should no longer be pending")
		}
	})

	t.Run("concurrent toggles keep flag and counter in step", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 200 {
					if _, err := f.ToggleLike(ctx, 42); err != nil && !errors.Is(err, shared.ErrActionPending) {
						t.Errorf("toggle failed: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		got := mustGet(t, f, 42)
		want := 5
		if got.IsLiked {
			want = 6
		}
		if got.LikesCount != want {
			t.Errorf("flag %v does not match counter %d", got.IsLiked, got.LikesCount)
		}
		if sent := api.count("Like") - api.count("Unlike"); sent != got.LikesCount-5 {
			t.Errorf("expected %d net likes sent, got %d", got.LikesCount-5, sent)
		}
	})

	t.Run("rollback after a reload keeps the fresh counters", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)
		api.failWith("Like", errBackend)
		api.mu.Lock()
		api.gate = make(chan struct{})
		api.mu.Unlock()

		done := make(chan error, 1)
		go func() {
			_, err := f.ToggleLike(ctx, 42)
			done <- err
		}()

		deadline := time.Now().Add(2 * time.Second)
		for api.count("Like") == 0 {
			if time.Now().After(deadline) {
				t.Fatal("like never reached the backend")
			}
			time.Sleep(time.Millisecond)
		}

		fresh := transcript42()
		fresh.LikesCount = 9
		f.Replace([]models.Transcript{fresh})
		close(api.gate)

		if err := <-done; !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected the backend error, got %v", err)
		}
		if got := mustGet(t, f, 42); got.IsLiked || got.LikesCount != 9 {
			t.Errorf("expected the reloaded unliked/9, got %v/%d", got.IsLiked, got.LikesCount)
		}
	})

	t.Run("unknown transcript", func(t *testing.T) {
		f := newFeed(t, newMockFeedAPI(transcript42()))
		if _, err := f.ToggleLike(ctx, 7); !errors.Is(err, shared.ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})
}

func TestFeedFavoriteAndShare(t *testing.T) {
	ctx := context.Background()

	t.Run("favorite toggles", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)

		if _, err := f.ToggleFavorite(ctx, 42); err != nil {
			t.Fatal(err)
		}
		got := mustGet(t, f, 42)
		if !got.IsFavorited || got.FavoritesCount != 1 {
			t.Errorf("expected favorited/1, got %v/%d", got.IsFavorited, got.FavoritesCount)
		}

		if _, err := f.ToggleFavorite(ctx, 42); err != nil {
			t.Fatal(err)
		}
		got = mustGet(t, f, 42)
		if got.IsFavorited || got.FavoritesCount != 0 {
			t.Errorf("expected unfavorited/0, got %v/%d", got.IsFavorited, got.FavoritesCount)
		}
		if api.count("Favorite") != 1 || api.count("Unfavorite") != 1 {
			t.Error("expected one favorite and one unfavorite call")
		}
	})

	t.Run("rollback leaves other action classes alone", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.failWith("Like", errBackend)
		f := newFeed(t, api)

		like, err := f.BeginToggleLike(42)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.ToggleFavorite(ctx, 42); err != nil {
			t.Fatalf("favorite should not be blocked by a pending like: %v", err)
		}
		if _, err := f.Resolve(ctx, like); err == nil {
			t.Fatal("expected like to fail")
		}

		got := mustGet(t, f, 42)
		if got.IsLiked || got.LikesCount != 5 {
			t.Errorf("like not rolled back: %v/%d", got.IsLiked, got.LikesCount)
		}
		if !got.IsFavorited || got.FavoritesCount != 1 {
			t.Errorf("favorite lost by like rollback: %v/%d", got.IsFavorited, got.FavoritesCount)
		}
	})

	t.Run("share increments and reverts", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)

		if _, err := f.Share(ctx, 42); err != nil {
			t.Fatal(err)
		}
		if got := mustGet(t, f, 42); got.SharesCount != 3 {
			t.Errorf("expected 3 shares, got %d", got.SharesCount)
		}

		api.failWith("Share", errBackend)
		if _, err := f.Share(ctx, 42); err == nil {
			t.Fatal("expected share to fail")
		}
		if got := mustGet(t, f, 42); got.SharesCount != 3 {
			t.Errorf("expected failed share to revert to 3, got %d", got.SharesCount)
		}
	})

	t.Run("out of order completion is keyed by id", func(t *testing.T) {
		second := models.Transcript{ID: 43, LikesCount: 10}
		api := newMockFeedAPI(transcript42(), second)
		f := newFeed(t, api)

		first, err := f.BeginToggleLike(42)
		if err != nil {
			t.Fatal(err)
		}
		later, err := f.BeginToggleLike(43)
		if err != nil {
			t.Fatal(err)
		}

		api.failWith("Like", errBackend)
		f.Resolve(ctx, later)
		api.failWith("Like", nil)
		f.Resolve(ctx, first)

		if got := mustGet(t, f, 42); got.LikesCount != 6 || !got.IsLiked {
			t.Errorf("42 should be committed, got %v/%d", got.IsLiked, got.LikesCount)
		}
		if got := mustGet(t, f, 43); got.LikesCount != 10 || got.IsLiked {
			t.Errorf("43 should be rolled back, got %v/%d", got.IsLiked, got.LikesCount)
		}
	})
}

func TestFeedComments(t *testing.T) {
	ctx := context.Background()

	t.Run("successful post refetches and increments", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.comments = []models.Comment{{ID: 1, UserUsername: "bo", Text: "first"}}
		f := newFeed(t, api)

		state, err := f.AddComment(ctx, 42, "  nice talk ")
		if err != nil || state != Committed {
			t.Fatalf("expected commit, got %v, %v", state, err)
		}

		if got := mustGet(t, f, 42); got.CommentsCount != 2 {
			t.Errorf("expected 2 comments, got %d", got.CommentsCount)
		}
		list := f.Comments(42)
		if len(list) != 2 || list[0].Text != "first" || list[1].Text != "nice talk" {
			t.Errorf("expected server order [first, nice talk], got %+v", list)
		}
		if api.count("Comments") != 1 {
			t.Errorf("expected one refetch, got %d", api.count("Comments"))
		}
	})

	t.Run("failed post changes nothing", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.failWith("AddComment", errBackend)
		f := newFeed(t, api)

		if _, err := f.AddComment(ctx, 42, "hello"); err == nil {
			t.Fatal("expected error")
		}
		if got := mustGet(t, f, 42); got.CommentsCount != 1 {
			t.Errorf("expected count to stay 1, got %d", got.CommentsCount)
		}
		if api.count("Comments") != 0 {
			t.Error("no refetch after a failed post")
		}
		if len(f.Comments(42)) != 0 {
			t.Error("comment must not be rendered after a failed post")
		}
	})

	t.Run("failed refetch still counts the comment", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.failWith("Comments", errBackend)
		f := newFeed(t, api)

		if _, err := f.AddComment(ctx, 42, "hello"); err != nil {
			t.Fatalf("post succeeded, expected no error: %v", err)
		}
		if got := mustGet(t, f, 42); got.CommentsCount != 2 {
			t.Errorf("expected 2, got %d", got.CommentsCount)
		}
	})

	t.Run("blank comment is rejected before the network", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)

		if _, err := f.AddComment(ctx, 42, "   "); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if api.count("AddComment") != 0 {
			t.Error("no request expected")
		}
	})

	t.Run("LoadComments", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.comments = []models.Comment{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}
		f := newFeed(t, api)

		if err := f.LoadComments(ctx, 42); err != nil {
			t.Fatal(err)
		}
		if n := len(f.Comments(42)); n != 2 {
			t.Errorf("expected 2 comments, got %d", n)
		}
	})
}

func TestFeedLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("OnChange fires per transcript", func(t *testing.T) {
		f := newFeed(t, newMockFeedAPI(transcript42()))

		var mu sync.Mutex
		var seen []int
		f.OnChange(func(id int) {
			mu.Lock()
			seen = append(seen, id)
			mu.Unlock()
		})

		if _, err := f.ToggleLike(ctx, 42); err != nil {
			t.Fatal(err)
		}
		f.Replace([]models.Transcript{transcript42()})

		mu.Lock()
		defer mu.Unlock()
		if len(seen) != 2 || seen[0] != 42 || seen[1] != 0 {
			t.Errorf("expected [42 0], got %v", seen)
		}
	})

	t.Run("late results after Close are ignored", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		api.failWith("Like", errBackend)
		f := newFeed(t, api)

		notified := 0
		p, err := f.BeginToggleLike(42)
		if err != nil {
			t.Fatal(err)
		}
		f.OnChange(func(int) { notified++ })
		f.Close()

		if _, err := f.Resolve(ctx, p); err == nil {
			t.Fatal("expected the call error to be reported")
		}
		if notified != 0 {
			t.Errorf("no notifications expected after Close, got %d", notified)
		}
		if got := mustGet(t, f, 42); got.LikesCount != 6 {
			t.Errorf("state must not change after Close, got %d", got.LikesCount)
		}

		if _, err := f.BeginToggleLike(42); !errors.Is(err, shared.ErrReducerClosed) {
			t.Errorf("expected ErrReducerClosed, got %v", err)
		}
		f.Replace(nil)
		if len(f.Items()) != 1 {
			t.Error("Replace after Close must be a no-op")
		}
	})

	t.Run("Items keeps feed order", func(t *testing.T) {
		api := newMockFeedAPI(models.Transcript{ID: 3}, models.Transcript{ID: 1}, models.Transcript{ID: 2})
		f := newFeed(t, api)

		items := f.Items()
		if len(items) != 3 || items[0].ID != 3 || items[1].ID != 1 || items[2].ID != 2 {
			t.Errorf("unexpected order: %+v", items)
		}
	})

	t.Run("LoadFavorites replaces the list", func(t *testing.T) {
		api := newMockFeedAPI(transcript42(), models.Transcript{ID: 43})
		f := newFeed(t, api)

		if err := f.LoadFavorites(ctx); err != nil {
			t.Fatal(err)
		}
		if items := f.Items(); len(items) != 1 || items[0].ID != 42 {
			t.Errorf("expected only the favorite, got %+v", items)
		}
	})

	t.Run("load error keeps previous items", func(t *testing.T) {
		api := newMockFeedAPI(transcript42())
		f := newFeed(t, api)
		api.failWith("PublicFeed", errBackend)

		if err := f.Load(ctx); err == nil {
			t.Fatal("expected error")
		}
		if len(f.Items()) != 1 {
			t.Error("failed load must not clear the feed")
		}
	})
}

func TestFeedMetrics(t *testing.T) {
	ctx := context.Background()
	api := newMockFeedAPI(transcript42())
	f := newFeed(t, api)

	committed := testutil.ToFloat64(outcomesTotal.WithLabelValues("share", "committed"))
	rolledBack := testutil.ToFloat64(outcomesTotal.WithLabelValues("share", "rolled_back"))
	duplicate := testutil.ToFloat64(outcomesTotal.WithLabelValues("share", "duplicate"))

	f.Share(ctx, 42)
	api.failWith("Share", errBackend)
	f.Share(ctx, 42)

	p, _ := f.BeginShare(42)
	f.BeginShare(42)
	f.Resolve(ctx, p)

	if d := testutil.ToFloat64(outcomesTotal.WithLabelValues("share", "committed")) - committed; d != 1 {
		t.Errorf("expected 1 commit, got %v", d)
	}
	if d := testutil.ToFloat64(outcomesTotal.WithLabelValues("share", "rolled_back")) - rolledBack; d != 2 {
		t.Errorf("expected 2 rollbacks, got %v", d)
	}
	if d := testutil.ToFloat64(outcomesTotal.WithLabelValues("share", "duplicate")) - duplicate; d != 1 {
		t.Errorf("expected 1 duplicate, got %v", d)
	}
}

func TestFeedAgainstBackend(t *testing.T) {
	backend := tu.NewBackend(t)
	backend.JSON(http.MethodGet, "/api/transcript/public-feed/", http.StatusOK, []models.Transcript{transcript42()})
	backend.JSON(http.MethodPost, "/api/transcript/42/like/", http.StatusInternalServerError, map[string]string{"error": "Something went wrong"})

	api, err := services.NewAPIService(backend.URL(), nil, tu.StaticTokens{Access: "token"}, services.WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	f := NewFeed(api, quietLogger())
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	_, err = f.ToggleLike(context.Background(), 42)
	apiErr, ok := services.AsAPIError(err)
	if !ok || apiErr.Message != "Something went wrong" {
		t.Fatalf("expected backend message, got %v", err)
	}

	got := mustGet(t, f, 42)
	if got.IsLiked || got.LikesCount != 5 {
		t.Errorf("expected rollback to unliked/5, got %v/%d", got.IsLiked, got.LikesCount)
	}
	if backend.Count(http.MethodPost, "/api/transcript/42/like/") != 1 {
		t.Error("expected exactly one like request")
	}
	if auth := backend.Last(t).Authorization; auth != "Bearer token" {
		t.Errorf("expected bearer header, got %q", auth)
	}
}
