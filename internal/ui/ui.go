package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/services"
	"github.com/desertthunder/recap/internal/session"
	"github.com/desertthunder/recap/internal/shared"
	"github.com/desertthunder/recap/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FeedView ViewState = iota
	DetailView
	CommentsView
)

const loginHint = "log in first: run `recap auth login`"

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	feed         *tasks.Feed
	entitlements *tasks.Entitlements
	store        session.Store
	logger       *log.Logger
	favorites    bool

	events      <-chan session.Event
	unsubscribe func()

	width    int
	height   int
	list     list.Model
	viewport viewport.Model
	selected int
	readOnly bool
	loading  bool
	status   string
	err      error
	help     help.Model
	keys     keyMap
}

// ModelOpts contains the dependencies of a [Model]. Entitlements is optional.
// Favorites shows the user's favorites instead of the public feed.
type ModelOpts struct {
	Feed         *tasks.Feed
	Entitlements *tasks.Entitlements
	Store        session.Store
	Logger       *log.Logger
	Favorites    bool
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Public Feed"
	if opts.Favorites {
		l.Title = "Favorites"
	}
	l.SetShowHelp(false)

	events, unsubscribe := opts.Store.Subscribe()
	return &Model{
		ctx:          ctx,
		view:         FeedView,
		feed:         opts.Feed,
		entitlements: opts.Entitlements,
		store:        opts.Store,
		logger:       opts.Logger,
		favorites:    opts.Favorites,
		events:       events,
		unsubscribe:  unsubscribe,
		list:         l,
		viewport:     viewport.New(0, 0),
		readOnly:     !opts.Store.IsAuthenticated(),
		loading:      true,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init loads the feed (and the subscription status when logged in) and
// starts listening for session changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForSession())
}

// Close detaches the model from the feed reducer and the session store.
// Results of requests still in flight are dropped.
func (m *Model) Close() {
	m.feed.Close()
	m.unsubscribe()
}

// ReadOnly reports whether social actions are disabled because no session exists.
func (m *Model) ReadOnly() bool { return m.readOnly }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6
		return m, nil

	case tea.FocusMsg:
		return m, m.syncSession()

	case tea.KeyMsg:
		if m.view == FeedView && m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateChildren(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgFeedLoaded:
		m.loading = false
		m.err, _ = msg.data.(error)
		m.refresh()
		return m, nil

	case MsgActionResolved:
		res := msg.data.(actionResult)
		if res.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("%s failed: %s", res.key.Action, describe(res.err)))
			if isAuthError(res.err) {
				m.readOnly = true
			}
		} else {
			m.status = ""
		}
		m.refresh()
		return m, nil

	case MsgCommentsFetched:
		res := msg.data.(commentsResult)
		if res.err != nil {
			m.status = styles.err.Render("could not load comments: " + describe(res.err))
		}
		if m.view == CommentsView && m.selected == res.id {
			m.viewport.SetContent(m.renderComments())
		}
		return m, nil

	case MsgSessionChanged:
		res := msg.data.(sessionResult)
		if res.err != nil {
			m.logger.Warn("session sync failed", "error", res.err)
		}
		m.setReadOnly(!res.authenticated)
		if res.fromEvent {
			return m, m.waitForSession()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.view == CommentsView {
			m.view = DetailView
			m.viewport.SetContent(m.renderDetail())
			return m, nil
		}
		m.view = FeedView
		return m, nil
	case key.Matches(msg, m.keys.enter) && m.view == FeedView:
		if id, ok := m.cursor(); ok {
			m.selected = id
			m.view = DetailView
			m.viewport.SetContent(m.renderDetail())
			m.viewport.GotoTop()
		}
		return m, nil
	case key.Matches(msg, m.keys.comments):
		id, ok := m.target()
		if !ok {
			return m, nil
		}
		m.selected = id
		m.view = CommentsView
		m.viewport.SetContent(m.renderComments())
		m.viewport.GotoTop()
		return m, m.fetchComments(id)
	case key.Matches(msg, m.keys.reload):
		m.loading = true
		return m, m.load()
	case key.Matches(msg, m.keys.like):
		return m, m.begin(m.feed.BeginToggleLike)
	case key.Matches(msg, m.keys.favorite):
		return m, m.begin(m.feed.BeginToggleFavorite)
	case key.Matches(msg, m.keys.share):
		return m, m.begin(m.feed.BeginShare)
	}
	return m.updateChildren(msg)
}

// begin applies an optimistic action to the transcript under the cursor
// and returns a command resolving it. The change is visible in the next
// render, before the request is sent.
func (m *Model) begin(start func(id int) (*tasks.PendingAction[tasks.Key], error)) tea.Cmd {
	if m.readOnly {
		m.status = styles.warn.Render(loginHint)
		return nil
	}
	id, ok := m.target()
	if !ok {
		return nil
	}

	pending, err := start(id)
	if err != nil {
		if errors.Is(err, shared.ErrActionPending) {
			m.status = styles.help.Render("still working on that one")
		} else {
			m.status = styles.err.Render(describe(err))
		}
		return nil
	}
	m.status = ""
	m.refresh()

	return func() tea.Msg {
		state, err := m.feed.Resolve(m.ctx, pending)
		return actionResolvedMsg(pending.Key(), state, err)
	}
}

func (m *Model) updateChildren(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case FeedView:
		m.list, cmd = m.list.Update(msg)
	case DetailView, CommentsView:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// load fetches the feed and, for a logged in user, the subscription status
// in parallel. A failed status fetch only hides the premium badge.
func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		g, ctx := errgroup.WithContext(m.ctx)
		g.Go(func() error {
			if m.favorites {
				return m.feed.LoadFavorites(ctx)
			}
			return m.feed.Load(ctx)
		})
		if m.entitlements != nil && m.store.IsAuthenticated() {
			g.Go(func() error {
				if _, err := m.entitlements.Load(ctx); err != nil {
					m.logger.Warn("subscription status unavailable", "error", err)
				}
				return nil
			})
		}
		return feedLoadedMsg(g.Wait())
	}
}

func (m *Model) fetchComments(id int) tea.Cmd {
	return func() tea.Msg {
		return commentsFetchedMsg(id, m.feed.LoadComments(m.ctx, id))
	}
}

// syncSession re-reads durable storage, picking up a login or logout done
// by another process while the terminal was unfocused.
func (m *Model) syncSession() tea.Cmd {
	return func() tea.Msg {
		_, err := m.store.Sync()
		return sessionChangedMsg(m.store.IsAuthenticated(), false, err)
	}
}

func (m *Model) waitForSession() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return sessionChangedMsg(ev.Authenticated, true, nil)
	}
}

func (m *Model) setReadOnly(readOnly bool) {
	if readOnly == m.readOnly {
		return
	}
	m.readOnly = readOnly
	if readOnly {
		m.status = styles.warn.Render("logged out, feed is read-only")
	} else {
		m.status = styles.ok.Render("logged in")
	}
}

// refresh copies reducer state into the list.
func (m *Model) refresh() {
	m.list.SetItems(toItems(m.feed.Items()))
	if m.view == DetailView {
		m.viewport.SetContent(m.renderDetail())
	}
}

// cursor returns the id highlighted in the feed list.
func (m *Model) cursor() (int, bool) {
	item, ok := m.list.SelectedItem().(transcriptItem)
	if !ok {
		return 0, false
	}
	return item.transcript.ID, true
}

// target is the transcript an action applies to: the open one, or the one under the cursor.
func (m *Model) target() (int, bool) {
	if m.view != FeedView {
		return m.selected, m.selected != 0
	}
	return m.cursor()
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %s\n\nPress r to retry, q to quit", describe(m.err)))
	}

	var body string
	var helpKeys []key.Binding
	switch m.view {
	case FeedView:
		if m.loading && len(m.list.Items()) == 0 {
			body = "Loading feed..."
		} else {
			body = m.list.View()
		}
		helpKeys = []key.Binding{m.keys.enter, m.keys.like, m.keys.favorite, m.keys.share, m.keys.comments, m.keys.reload, m.keys.quit}
	case DetailView:
		body = m.viewport.View()
		helpKeys = []key.Binding{m.keys.like, m.keys.favorite, m.keys.share, m.keys.comments, m.keys.back, m.keys.quit}
	case CommentsView:
		body = m.viewport.View()
		helpKeys = []key.Binding{m.keys.back, m.keys.quit}
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", m.header(), body, m.status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) header() string {
	var badges []string
	if m.readOnly {
		badges = append(badges, styles.help.Render("read-only"))
	}
	if m.entitlements != nil && m.entitlements.IsActive() {
		badges = append(badges, styles.badge.Render("premium"))
	}
	return strings.Join(append([]string{styles.ok.Render("recap")}, badges...), " ")
}

func (m *Model) renderDetail() string {
	t, ok := m.feed.Get(m.selected)
	if !ok {
		return styles.help.Render("This transcript is no longer in the feed.")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(t.DisplayTitle()))
	b.WriteString("\n")
	if t.ChannelName != "" {
		fmt.Fprintf(&b, "%s\n", t.ChannelName)
	}
	fmt.Fprintf(&b, "%s\n%s\n", t.YouTubeURL, counters(t))

	section(&b, "Summary", []string{strings.TrimSpace(t.Summary)}, "")
	section(&b, "Highlights", t.Highlights, "• ")
	moments := make([]string, len(t.KeyMoments))
	for i, km := range t.KeyMoments {
		moments[i] = fmt.Sprintf("[%s] %s", km.Timestamp, km.Moment)
	}
	section(&b, "Key moments", moments, "")
	section(&b, "Topics", t.Topics, "# ")
	section(&b, "Quotes", t.Quotes, "“ ")
	return b.String()
}

func (m *Model) renderComments() string {
	t, _ := m.feed.Get(m.selected)
	comments := m.feed.Comments(m.selected)

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Comments on %s", t.DisplayTitle())))
	b.WriteString("\n")
	if len(comments) == 0 {
		b.WriteString(styles.help.Render("No comments yet."))
		return b.String()
	}
	for _, c := range comments {
		fmt.Fprintf(&b, "%s %s\n%s\n\n", styles.ok.Render(commentAuthor(c)), styles.help.Render(c.CreatedAt.Format("Jan 2 15:04")), c.Text)
	}
	return b.String()
}

func commentAuthor(c models.Comment) string {
	if c.UserUsername == "" {
		return "anonymous"
	}
	return c.UserUsername
}

func section(b *strings.Builder, title string, lines []string, bullet string) {
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return
	}
	fmt.Fprintf(b, "\n%s\n", styles.warn.Render(title))
	for _, line := range lines {
		fmt.Fprintf(b, "%s%s\n", bullet, line)
	}
}

// describe prefers the backend's own message.
func describe(err error) string {
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func isAuthError(err error) bool {
	apiErr, ok := services.AsAPIError(err)
	return ok && apiErr.Kind == services.KindAuth
}
