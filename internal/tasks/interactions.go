package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/services"
	"github.com/desertthunder/recap/internal/shared"
)

// Action is the class of a social interaction. At most one request per
// (transcript, action) is in flight at a time.
type Action int

const (
	ActionLike Action = iota
	ActionFavorite
	ActionShare
	ActionComment
)

func (a Action) String() string {
	switch a {
	case ActionLike:
		return "like"
	case ActionFavorite:
		return "favorite"
	case ActionShare:
		return "share"
	case ActionComment:
		return "comment"
	default:
		return ""
	}
}

// Key identifies one in-flight slot.
type Key struct {
	ID     int
	Action Action
}

// Feed holds transcripts keyed by id and applies social actions
// optimistically. State is always updated by transcript id, so responses may
// arrive in any order.
type Feed struct {
	api    FeedAPI
	logger *log.Logger
	guard  *Optimistic[Key]

	mu       sync.Mutex
	order    []int
	items    map[int]*models.Transcript
	comments map[int][]models.Comment
	closed   bool
	onChange func(id int)
}

// NewFeed creates an empty reducer. Call [Feed.Load] or [Feed.Replace] to fill it.
func NewFeed(api FeedAPI, logger *log.Logger) *Feed {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Feed{
		api:      api,
		logger:   logger,
		guard:    NewOptimistic[Key](),
		items:    make(map[int]*models.Transcript),
		comments: make(map[int][]models.Comment),
	}
}

// OnChange registers fn to be called after the state of a transcript changes.
// An id of 0 means the whole list was replaced. fn runs on the goroutine that
// caused the change.
func (f *Feed) OnChange(fn func(id int)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// Load replaces the contents with the public feed.
func (f *Feed) Load(ctx context.Context) error {
	res, err := f.api.PublicFeed(ctx)
	if err != nil {
		return err
	}
	f.Replace(res.Data)
	return nil
}

// LoadFavorites replaces the contents with the user's favorites.
func (f *Feed) LoadFavorites(ctx context.Context) error {
	res, err := f.api.Favorites(ctx)
	if err != nil {
		return err
	}
	f.Replace(res.Data)
	return nil
}

// Replace swaps in items as the new authoritative list. It is a no-op after Close.
func (f *Feed) Replace(items []models.Transcript) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.order = f.order[:0]
	f.items = make(map[int]*models.Transcript, len(items))
	for i := range items {
		t := items[i]
		f.order = append(f.order, t.ID)
		f.items[t.ID] = &t
	}
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify(0)
	}
}

// Items returns a copy of the transcripts in feed order.
func (f *Feed) Items() []models.Transcript {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Transcript, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.items[id])
	}
	return out
}

// Get returns a copy of one transcript.
func (f *Feed) Get(id int) (models.Transcript, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.items[id]
	if !ok {
		return models.Transcript{}, false
	}
	return *t, true
}

// Comments returns the last fetched comment list for id, in server order.
func (f *Feed) Comments(id int) []models.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Comment(nil), f.comments[id]...)
}

// Pending reports whether action is in flight for id.
func (f *Feed) Pending(id int, action Action) bool {
	return f.guard.InFlight(Key{ID: id, Action: action})
}

// Close detaches the reducer. Requests still in flight complete, but their
// results no longer touch state or fire OnChange.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.onChange = nil
	f.mu.Unlock()
}

// BeginToggleLike flips is_liked and moves likes_count by one. The caller
// resolves the returned action to send the like or unlike request.
func (f *Feed) BeginToggleLike(id int) (*PendingAction[Key], error) {
	return f.beginToggle(id, ActionLike, likeField)
}

// ToggleLike is [Feed.BeginToggleLike] followed by Resolve.
func (f *Feed) ToggleLike(ctx context.Context, id int) (State, error) {
	return f.do(ctx, f.BeginToggleLike, id)
}

// BeginToggleFavorite flips is_favorited and moves favorites_count by one.
func (f *Feed) BeginToggleFavorite(id int) (*PendingAction[Key], error) {
	return f.beginToggle(id, ActionFavorite, favoriteField)
}

// ToggleFavorite is [Feed.BeginToggleFavorite] followed by Resolve.
func (f *Feed) ToggleFavorite(ctx context.Context, id int) (State, error) {
	return f.do(ctx, f.BeginToggleFavorite, id)
}

// BeginShare increments shares_count.
func (f *Feed) BeginShare(id int) (*PendingAction[Key], error) {
	var prev int
	var applied *models.Transcript
	op := Op{
		Apply: func() {
			applied = f.mutate(id, func(t *models.Transcript) {
				prev = t.SharesCount
				t.SharesCount++
			})
		},
		Revert: func() {
			f.revert(id, applied, func(t *models.Transcript) { t.SharesCount = prev })
		},
		Call: func(ctx context.Context) error {
			_, err := f.api.Share(ctx, id)
			return err
		},
	}
	return f.begin(Key{ID: id, Action: ActionShare}, op)
}

// Share is [Feed.BeginShare] followed by Resolve.
func (f *Feed) Share(ctx context.Context, id int) (State, error) {
	return f.do(ctx, f.BeginShare, id)
}

// LoadComments fetches the comment list for id.
func (f *Feed) LoadComments(ctx context.Context, id int) error {
	res, err := f.api.Comments(ctx, id)
	if err != nil {
		return err
	}
	f.setComments(id, res.Data)
	return nil
}

// AddComment posts text and, once the backend accepts it, increments
// comments_count and re-fetches the list. Nothing is rendered before the
// post succeeds.
//
// A failed re-fetch after a successful post is logged, not returned: the
// comment exists and the count is already correct.
func (f *Feed) AddComment(ctx context.Context, id int, text string) (State, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Idle, fmt.Errorf("%w: comment text is required", shared.ErrInvalidInput)
	}

	var list []models.Comment
	op := Op{
		Call: func(ctx context.Context) error {
			if _, err := f.api.AddComment(ctx, id, text); err != nil {
				return err
			}
			res, err := f.api.Comments(ctx, id)
			if err != nil {
				f.logger.Warn("comment posted but list refresh failed", "transcript", id, "error", err)
				return nil
			}
			list = res.Data
			return nil
		},
		Commit: func() {
			f.mutate(id, func(t *models.Transcript) { t.CommentsCount++ })
			if list != nil {
				f.setComments(id, list)
			}
		},
	}
	return f.guardedDo(ctx, Key{ID: id, Action: ActionComment}, op)
}

type socialCall func(ctx context.Context, id int) (services.Result[models.Message], error)

type flagField struct {
	flag  func(t *models.Transcript) *bool
	count func(t *models.Transcript) *int
	call  func(api FeedAPI, set bool) socialCall
}

var (
	likeField = flagField{
		flag:  func(t *models.Transcript) *bool { return &t.IsLiked },
		count: func(t *models.Transcript) *int { return &t.LikesCount },
		call: func(api FeedAPI, set bool) socialCall {
			if set {
				return api.Like
			}
			return api.Unlike
		},
	}
	favoriteField = flagField{
		flag:  func(t *models.Transcript) *bool { return &t.IsFavorited },
		count: func(t *models.Transcript) *int { return &t.FavoritesCount },
		call: func(api FeedAPI, set bool) socialCall {
			if set {
				return api.Favorite
			}
			return api.Unfavorite
		},
	}
)

// beginToggle builds the toggle for one flag/counter pair. The direction is
// read under the lock when the toggle applies. Revert restores only that pair
// so concurrent actions of other classes survive a rollback.
func (f *Feed) beginToggle(id int, action Action, field flagField) (*PendingAction[Key], error) {
	var (
		set       bool
		prevFlag  bool
		prevCount int
		applied   *models.Transcript
	)
	op := Op{
		Apply: func() {
			applied = f.mutate(id, func(t *models.Transcript) {
				flag, count := field.flag(t), field.count(t)
				prevFlag, prevCount = *flag, *count
				set = !*flag
				*flag = set
				if set {
					*count++
				} else {
					*count--
				}
			})
		},
		Revert: func() {
			f.revert(id, applied, func(t *models.Transcript) {
				*field.flag(t) = prevFlag
				*field.count(t) = prevCount
			})
		},
		Call: func(ctx context.Context) error {
			if applied == nil {
				return f.missing(id)
			}
			_, err := field.call(f.api, set)(ctx, id)
			return err
		},
	}
	return f.begin(Key{ID: id, Action: action}, op)
}

func (f *Feed) begin(key Key, op Op) (*PendingAction[Key], error) {
	f.mu.Lock()
	closed := f.closed
	_, known := f.items[key.ID]
	f.mu.Unlock()

	if closed {
		return nil, shared.ErrReducerClosed
	}
	if !known {
		return nil, f.missing(key.ID)
	}

	p, err := f.guard.Begin(key, op)
	if err != nil {
		outcomesTotal.WithLabelValues(key.Action.String(), "duplicate").Inc()
		f.logger.Debug("ignored duplicate action", "transcript", key.ID, "action", key.Action)
		return nil, err
	}
	return p, nil
}

func (f *Feed) do(ctx context.Context, begin func(int) (*PendingAction[Key], error), id int) (State, error) {
	p, err := begin(id)
	if err != nil {
		return Idle, err
	}
	return f.Resolve(ctx, p)
}

func (f *Feed) guardedDo(ctx context.Context, key Key, op Op) (State, error) {
	p, err := f.begin(key, op)
	if err != nil {
		return Idle, err
	}
	return f.Resolve(ctx, p)
}

// Resolve completes an action started with one of the Begin methods and
// records its outcome.
func (f *Feed) Resolve(ctx context.Context, p *PendingAction[Key]) (State, error) {
	state, err := p.Resolve(ctx)
	key := p.Key()

	outcomesTotal.WithLabelValues(key.Action.String(), state.String()).Inc()
	if err != nil {
		f.logger.Warn("action rolled back", "transcript", key.ID, "action", key.Action, "error", err)
	}
	return state, err
}

// mutate applies fn to transcript id and fires OnChange. After Close, or
// when the transcript has left the feed, it does nothing.
func (f *Feed) mutate(id int, fn func(t *models.Transcript)) *models.Transcript {
	f.mu.Lock()
	t, ok := f.items[id]
	if f.closed || !ok {
		f.mu.Unlock()
		return nil
	}
	fn(t)
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify(id)
	}
	return t
}

// revert runs fn only while id still maps to applied. After a Replace the
// item holds fresh server counters and the captured values are stale.
func (f *Feed) revert(id int, applied *models.Transcript, fn func(t *models.Transcript)) {
	f.mu.Lock()
	t, ok := f.items[id]
	if f.closed || !ok || t != applied {
		f.mu.Unlock()
		return
	}
	fn(t)
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify(id)
	}
}

func (f *Feed) setComments(id int, list []models.Comment) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.comments[id] = append([]models.Comment(nil), list...)
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify(id)
	}
}

func (f *Feed) missing(id int) error {
	return fmt.Errorf("%w: %d", shared.ErrUnknownEntity, id)
}
