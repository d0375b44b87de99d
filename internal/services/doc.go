// Package services implements the API gateway for the transcript summarizer backend.
//
// [APIService] exposes one typed method per REST endpoint. Every method
// issues at most one HTTP request and returns a [Result] or an [*APIError];
// nothing is retried and no token refresh is attempted.
//
// # Authentication
//
// The bearer token is pulled from an [oauth2.TokenSource] (the session store)
// at call time and attached with [oauth2.Token.SetAuthHeader]. Calls that
// require a session fail with [KindAuth] before touching the network when no
// token is stored. The public feed and comment list attach a token only when
// one exists.
//
// # Errors
//
// [APIError.Kind] separates validation, auth, transport and backend errors.
// Backend messages ({"error"}, {"detail"}, {"message"} or DRF field errors)
// are carried verbatim in [APIError.Message]; a body that cannot be parsed
// is replaced by the endpoint's generic message such as "Failed to like
// transcript". Errors unwrap to the sentinels in package shared.
//
// # Base URL
//
// [NormalizeBaseURL] accepts the backend root with or without a trailing
// /api, so "http://host:8000/api/" and "http://host:8000" are equivalent.
//
// # Metrics
//
// recap_client_requests_total{endpoint,outcome} and
// recap_client_request_duration_seconds{endpoint} are registered on the
// default prometheus registry.
package services
