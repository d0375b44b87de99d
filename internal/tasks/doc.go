// Package tasks holds the stateful client logic that sits between the views and the API gateway.
//
// # Optimistic interactions
//
// [Optimistic] is a generic single-flight helper: [Optimistic.Begin] applies
// a local mutation and marks its key as in flight, and
// [PendingAction.Resolve] sends the request and then commits or reverts.
// A second Begin for a busy key returns [shared.ErrActionPending] without
// touching state.
//
// [Feed] builds on it for the public feed. Keys are (transcript id, action
// class), so a like and a favorite on the same transcript may be in flight
// together while two likes may not. Rollbacks restore only the fields of
// their own class.
//
// # Entitlements
//
// [Entitlements] keeps the last authoritative subscription snapshot.
// [Entitlements.Subscribe] runs tokenize, create, confirm and refresh, and
// only a re-fetched status may report is_active. The predicted expiry
// (now + 1 month) is transient and the next [Entitlements.Load] drops it.
//
// # Progress Reporting
//
// Long operations report through a [ProgressUpdate] channel. Updates use
// select with default so a slow reader never blocks the operation.
//
// # Other tasks
//
//   - [Auth]: signup, login (the only writer of the session), logout and the
//     e-mail verification and password reset flows
//   - [ExportHistory]: rate limited worker pool exporting the full history
package tasks
