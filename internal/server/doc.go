// Package server provides HTTP routing, middleware, and the local e-mail link catcher used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so "GET /auth/verify" answers 405
// for any other method.
//
// # Link Catcher
//
// Verification and password-reset e-mails point at http://localhost:3000/auth/verify?token=... and
// /auth/reset?token=.... [CatchLink] serves those routes on a listener until the first link is opened,
// hands the token back, and shuts the server down. Like the callback handlers it replaces, a [LinkHandler]
// only processes one hit; later hits are refused.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
