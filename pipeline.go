package pipehttp

import (
	"context"
	"net/http"
)

// safeNode wraps a raw (any, error)-returning step — a middleware's own
// body, or the call into whatever it wraps — with the three contracts every
// hop in the request and view chains must honor:
//
//   - a panic is recovered and turned into an error ([recoverAsError]),
//     never escaping to crash the process (§7 propagation policy);
//   - an error is returned as-is; the caller is responsible for attaching a
//     default status if none is set ([statusOf] does that lazily);
//   - a nil value with no error is rejected ([newBadMiddlewareValueError]);
//     anything else is run through [Coerce] so the next hop up the chain
//     always observes a [Response], never a raw value.
func safeNode(fn func(ctx context.Context, r *http.Request) (any, error)) func(context.Context, *http.Request) (Response, error) {
	return func(ctx context.Context, r *http.Request) (resp Response, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = recoverAsError(rec)
				resp = Response{}
			}
		}()

		v, err := fn(ctx, r)
		if err != nil {
			return Response{}, err
		}
		if v == nil {
			return Response{}, newBadMiddlewareValueError()
		}
		return Coerce(v), nil
	}
}

// buildViewChain folds view middleware around h in declaration order, so the
// first middleware is outermost. The returned function is the request
// chain's terminal node once a route has matched.
func buildViewChain(mws []ViewMiddlewareFunc, match *Route, h Handler) func(context.Context, *http.Request) (Response, error) {
	innermost := safeNode(func(ctx context.Context, r *http.Request) (any, error) {
		v, err := h(ctx, r, match.Params)
		if err == nil && v == nil {
			// A handler returning nothing is an empty body (204), not a
			// middleware contract violation.
			return NewEmpty(), nil
		}
		return v, err
	})

	chain := innermost
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := chain
		chain = safeNode(func(ctx context.Context, r *http.Request) (any, error) {
			return mw(ctx, r, match, func(ctx2 context.Context, r2 *http.Request) (any, error) {
				return next(ctx2, r2)
			})
		})
	}
	return chain
}

// runView performs the router lookup and, on a match with a registered
// handler, runs the view chain. No match is a 404; a match whose controller
// has no entry for the route's name is a 501 — both per §4.D.
func runView(router Router, mws []ViewMiddlewareFunc) func(context.Context, *http.Request) (Response, error) {
	return safeNode(func(ctx context.Context, r *http.Request) (any, error) {
		match, ok := router.Match(r)
		if !ok {
			return nil, newNotFoundError()
		}

		h, ok := match.Handler()
		if !ok {
			return nil, newNotImplementedError(r.Method, r.URL.Path)
		}

		resp, err := buildViewChain(mws, match, h)(ctx, r)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// buildRequestChain folds request middleware around terminal (the router
// lookup plus view chain) in declaration order.
func buildRequestChain(mws []RequestMiddlewareFunc, terminal func(context.Context, *http.Request) (Response, error)) func(context.Context, *http.Request) (Response, error) {
	chain := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := chain
		chain = safeNode(func(ctx context.Context, r *http.Request) (any, error) {
			return mw(ctx, r, func(ctx2 context.Context, r2 *http.Request) (any, error) {
				return next(ctx2, r2)
			})
		})
	}
	return chain
}

// requestMiddlewares and viewMiddlewares project a []Middleware down to the
// non-nil hooks for one phase, preserving declaration order. A Middleware
// missing a hook for a phase contributes nothing to that phase's chain —
// the fold simply never sees it.
func requestMiddlewares(mws []Middleware) []RequestMiddlewareFunc {
	out := make([]RequestMiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m.ProcessRequest != nil {
			out = append(out, m.ProcessRequest)
		}
	}
	return out
}

func viewMiddlewares(mws []Middleware) []ViewMiddlewareFunc {
	out := make([]ViewMiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m.ProcessView != nil {
			out = append(out, m.ProcessView)
		}
	}
	return out
}

func serverMiddlewares(mws []Middleware) []ServerMiddlewareFunc {
	out := make([]ServerMiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m.ProcessServer != nil {
			out = append(out, m.ProcessServer)
		}
	}
	return out
}

// runPipeline runs the full request phase (and, nested inside its terminal
// node, the view phase) for one request, returning a fully coerced Response
// and/or an error ready for [FormatError].
func runPipeline(ctx context.Context, r *http.Request, router Router, mws []Middleware) (Response, error) {
	terminal := runView(router, viewMiddlewares(mws))
	chain := buildRequestChain(requestMiddlewares(mws), terminal)
	return chain(ctx, r)
}

