// Package server provides the loopback HTTP server used during OAuth login.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [LoggingMiddleware] is the one middleware the login flow installs.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and publishes an [AuthResult] as a single [EventAuthed] emission on the auth event channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Login Flow
//
// When the user runs the login command, a temporary HTTP server starts on the
// configured host and port (localhost:8080 by default), the browser opens the
// Google consent screen, and the command waits up to five minutes for the
// [EventAuthed] emission before shutting the server down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
