// Package server provides HTTP routing, middleware, and the implicit-grant relay used by the CLI sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/streams/{id}"), so handlers
// read path parameters with [http.Request.PathValue] and unsupported methods get a 405 from the mux.
//
// # Implicit Grant Relay
//
// Twitch's implicit grant returns the token in the URL fragment, which browsers never send to a server.
// [RelayHandler] serves a small page at the redirect path that posts the fragment back to the local server
// and delivers it through a one-shot result channel. It only accepts one fragment to prevent replay.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
