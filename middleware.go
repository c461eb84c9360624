package pipehttp

import (
	"context"
	"net/http"
)

// ServerNext is the continuation a server-install middleware calls to run
// the rest of the install chain. It does not return until the server is
// closing: middleware code after the call to ServerNext is the middleware's
// teardown, run in reverse installation order.
type ServerNext func(ctx context.Context) error

// ServerMiddlewareFunc runs once around the server's listening lifetime.
// Code before calling next runs at install time, in declaration order; code
// after calling next runs at close time, in reverse declaration order. A
// ServerMiddlewareFunc that never calls next prevents the server from ever
// reporting [Server.Listening] and blocks teardown of everything installed
// before it — same as the JavaScript original's "must eventually call
// next" contract.
type ServerMiddlewareFunc func(ctx context.Context, next ServerNext) error

// RequestNext is the continuation a request middleware calls to run the
// rest of the request chain (and, eventually, the view chain and handler).
// Its result is always an already-[Coerce]d value.
type RequestNext func(ctx context.Context, r *http.Request) (any, error)

// RequestMiddlewareFunc runs once per request, before routing. It may call
// next and adapt the result, return its own value to short-circuit the rest
// of the request chain and the whole view phase, or return an error.
type RequestMiddlewareFunc func(ctx context.Context, r *http.Request, next RequestNext) (any, error)

// ViewNext is the continuation a view middleware calls to run the rest of
// the view chain, ending in the matched [Handler] itself.
type ViewNext func(ctx context.Context, r *http.Request) (any, error)

// ViewMiddlewareFunc runs once per request, after the router has produced a
// match, wrapping the handler. It may return its own value to short-circuit
// the handler, or return an error to skip it.
type ViewMiddlewareFunc func(ctx context.Context, r *http.Request, match *Route, next ViewNext) (any, error)

// Middleware is a polymorphic record exposing any subset of the three
// lifecycle hooks. A nil field is transparently skipped in that phase —
// middleware that only cares about requests leaves ProcessServer and
// ProcessView nil.
type Middleware struct {
	ProcessServer  ServerMiddlewareFunc
	ProcessRequest RequestMiddlewareFunc
	ProcessView    ViewMiddlewareFunc
}
