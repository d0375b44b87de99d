package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/recap/internal/shared"
)

// Event is published whenever the authenticated state changes.
type Event struct {
	Authenticated bool
}

// Store is the contract the rest of recap depends on. The API client only
// uses the read side ([oauth2.TokenSource]).
type Store interface {
	oauth2.TokenSource
	Set(access, refresh string) error
	Clear() error
	AccessToken() (string, bool)
	IsAuthenticated() bool
	Subscribe() (<-chan Event, func())
	Sync() (bool, error)
}

// Session implements [Store] over a [Storage].
type Session struct {
	storage Storage
	logger  *log.Logger

	mu          sync.Mutex
	last        bool
	subscribers map[int]chan Event
	nextID      int
}

// New wraps storage. The last observed state is primed from storage so the
// first [Session.Sync] only reports real changes.
func New(storage Storage, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := &Session{storage: storage, logger: logger, subscribers: make(map[int]chan Event)}
	s.last = s.load().Valid()
	return s
}

// NewMemory returns a [Session] backed by [MemoryStorage].
func NewMemory() *Session {
	return New(NewMemoryStorage(), nil)
}

// Open opens (and migrates) the sqlite file at path and returns a Session on it.
//
// On error the caller should fall back to New(Unavailable{Err: err}, logger),
// which behaves as logged out.
func Open(path string, logger *log.Logger) (*Session, func() error, error) {
	db, err := shared.OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	return New(NewSQLiteStorage(db), logger), db.Close, nil
}

// load reads storage, treating any failure as logged out.
func (s *Session) load() Credentials {
	c, err := s.storage.Load()
	if err != nil {
		s.logger.Warn("session storage unreadable, treating as logged out", "error", err)
		return Credentials{}
	}
	return c
}

// Set stores a new token pair.
func (s *Session) Set(access, refresh string) error {
	access, refresh = strings.TrimSpace(access), strings.TrimSpace(refresh)
	if access == "" || refresh == "" {
		return fmt.Errorf("%w: both access and refresh tokens are required", shared.ErrInvalidInput)
	}

	if err := s.storage.Save(Credentials{Access: access, Refresh: refresh}); err != nil {
		return err
	}
	s.observe(true)
	return nil
}

// Clear removes both tokens. When erasing fails storage is re-read, so
// subscribers only hear "logged out" if the tokens are really gone or
// unreadable.
func (s *Session) Clear() error {
	if err := s.storage.Erase(); err != nil {
		s.Sync()
		return err
	}
	s.observe(false)
	return nil
}

// AccessToken returns the current access token, read from storage.
func (s *Session) AccessToken() (string, bool) {
	c := s.load()
	return c.Access, c.Valid()
}

// RefreshToken returns the stored refresh token.
func (s *Session) RefreshToken() (string, bool) {
	c := s.load()
	return c.Refresh, c.Refresh != ""
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.AccessToken()
	return ok
}

// Token implements [oauth2.TokenSource]. It fails with [shared.ErrNotAuthenticated]
// when no access token is stored. There is no refresh flow.
func (s *Session) Token() (*oauth2.Token, error) {
	c := s.load()
	if !c.Valid() {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: c.Access, RefreshToken: c.Refresh, TokenType: "Bearer"}, nil
}

// Subscribe registers for state changes. The channel holds only the latest
// undelivered event. Call the returned func to unsubscribe.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, 1)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// Sync re-reads storage and publishes an [Event] if the state differs from
// the last one observed. It reports whether a change was seen.
func (s *Session) Sync() (bool, error) {
	c, err := s.storage.Load()
	if err != nil {
		return s.observe(false), err
	}
	return s.observe(c.Valid()), nil
}

// observe records state and notifies subscribers on change.
func (s *Session) observe(authenticated bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == authenticated {
		return false
	}
	s.last = authenticated

	ev := Event{Authenticated: authenticated}
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return true
}
