// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders the optimistic feed reducer from package tasks:
//  1. [FeedView] : Browse the public feed with counters and the viewer's own flags
//  2. [DetailView] : Summary, highlights, key moments, topics and quotes of one transcript
//  3. [CommentsView] : Comments on the open transcript, in server order
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Social keys start an optimistic action synchronously inside Update, so the new counter is drawn on the same frame;
// the request runs in a [tea.Cmd] and its outcome comes back as a message keyed by transcript id.
//
// Regaining terminal focus re-reads the session store. Without a session the feed is read-only and social keys
// report that the user has to log in first.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, l/f/s/c, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
