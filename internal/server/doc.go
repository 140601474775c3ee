// Package server provides HTTP routing, middleware, and the OAuth callback handler used by `opium auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added; the first one is outermost. [Logging] and [Recover]
// are the middleware used by the login flow.
//
// The [BasicRouter] implementation registers method-qualified [http.ServeMux] patterns, so a
// wrong method gets a 405 and an unknown GET path gets a short 404.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
//
// The handler validates the state parameter (CSRF protection), hands the authorization code to an
// [Exchanger], and sends the result through a channel. It only processes one callback.
//
// During login a temporary HTTP server listens on the configured host and port (127.0.0.1:3000 by
// default), handles the callback, and shuts down once the result is received.
package server
