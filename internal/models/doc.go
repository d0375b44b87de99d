// Package models defines the wire types of the transcript summarizer backend.
//
// Request bodies:
//   - [SignupRequest], [LoginRequest] : auth lifecycle
//   - [SummarizeRequest] : video link plus [Visibility]
//
// Response bodies:
//   - [Tokens] : access/refresh pair from login
//   - [Transcript] : summary, derived fields, social counters and viewer flags
//   - [Comment] : one comment, server ordered
//   - [SubscriptionStatus], [SubscriptionResult], [PaymentMethod] : billing
//   - [Message] : acknowledgements
//
// None of these types are persisted by the client; only the token pair is kept (see package session).
package models
