// Package server provides HTTP routing, middleware, and the OAuth callback listener used by `savedl auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] records each request through charmbracelet/log.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, hands the authorization code to an [ExchangeFunc]
// (which carries the PKCE verifier), and sends the result through a channel.
// It only processes one callback.
//
// # Callback Server
//
// [CallbackServer] binds the redirect address (127.0.0.1:8888 by default), serves until the redirect arrives
// or the wait times out, and is shut down by the caller.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
