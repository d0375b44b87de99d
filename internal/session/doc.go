// Package session owns the bearer credential pair and is the single source of
// truth for "is the user logged in".
//
// A [Session] reads through to a [Storage] on every access, so a login or
// logout performed by another recap process is visible immediately. State
// changes are published to subscribers as [Event] values; [Session.Sync] is
// the hook views call when they regain focus.
//
// Storage failures fail closed: an unreadable store reports logged-out.
//
// Implementations of [Storage]:
//   - [SQLiteStorage] : client_storage table in the local sqlite file
//   - [MemoryStorage] : process-local, for tests and ephemeral runs
//   - [Unavailable] : always failing, used when the database cannot be opened
package session
