package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/recap/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFeedLoaded MsgKind = iota
	MsgActionResolved
	MsgCommentsFetched
	MsgSessionChanged
)

type actionResult struct {
	key   tasks.Key
	state tasks.State
	err   error
}

type commentsResult struct {
	id  int
	err error
}

type sessionResult struct {
	authenticated bool
	fromEvent     bool
	err           error
}

// feedLoadedMsg is the constructor for [MsgFeedLoaded]
func feedLoadedMsg(err error) Msg {
	return Msg{kind: MsgFeedLoaded, data: err}
}

// actionResolvedMsg is the constructor for [MsgActionResolved]
func actionResolvedMsg(key tasks.Key, state tasks.State, err error) Msg {
	return Msg{kind: MsgActionResolved, data: actionResult{key, state, err}}
}

// commentsFetchedMsg is the constructor for [MsgCommentsFetched]
func commentsFetchedMsg(id int, err error) Msg {
	return Msg{kind: MsgCommentsFetched, data: commentsResult{id, err}}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]. fromEvent
// marks results delivered by the store subscription, which is re-armed.
func sessionChangedMsg(authenticated, fromEvent bool, err error) Msg {
	return Msg{kind: MsgSessionChanged, data: sessionResult{authenticated, fromEvent, err}}
}
