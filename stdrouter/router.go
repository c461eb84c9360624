// Package stdrouter implements [pipehttp.Router] on top of Go's net/http
// pattern syntax ("GET /blog/{id}"), the reference router named in
// doc.go's minimal example. Matching is delegated to [net/http.ServeMux]
// itself — it already implements this syntax's match semantics exactly —
// while naming and reversal are handled by a [Reverser] built on a
// rebuilt httppattern parser, since net/http exposes no API to go from a
// pattern and a set of values back to a concrete URL.
package stdrouter

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/advdv/pipehttp"
	"github.com/advdv/pipehttp/stdrouter/internal/httppattern"
)

// registration is what Router keeps per handled pattern: the handler
// itself, the route's name (defaults to the raw pattern when none is
// given), and the ordered parameter names net/http captured for it.
type registration struct {
	name       string
	handler    pipehttp.Handler
	paramNames []string
}

type mountEntry struct {
	prefix string
	router *Router
}

// Router is a [pipehttp.Router] that matches requests the way net/http's
// own ServeMux does, with named routes and Mount-based sub-routing layered
// on top.
type Router struct {
	mux      *http.ServeMux
	reverser *Reverser
	routes   map[string]*registration
	mounts   []mountEntry
}

// NewRouter builds an empty Router.
func NewRouter() *Router {
	return &Router{
		mux:      http.NewServeMux(),
		reverser: NewReverser(),
		routes:   make(map[string]*registration),
	}
}

// Handle registers handler for pattern (net/http pattern syntax, optionally
// "METHOD /path"). An optional name makes the route reversible via
// [Router.Reverse]; without one, the route's Name is the pattern itself.
// Panics on a malformed pattern or a name collision, mirroring net/http's
// own panic-on-bad-pattern behavior for Handle — route registration is a
// startup-time concern, not a per-request one.
func (rt *Router) Handle(pattern string, handler pipehttp.Handler, name ...string) {
	pat, err := httppattern.ParsePattern(pattern)
	if err != nil {
		panic("stdrouter: " + err.Error())
	}

	reg := &registration{handler: handler, paramNames: pat.ParamNames(), name: pattern}
	if len(name) > 0 {
		reg.name = name[0]
		rt.reverser.Named(name[0], pattern)
	}

	rt.routes[pattern] = reg
	rt.mux.HandleFunc(pattern, func(http.ResponseWriter, *http.Request) {})
}

// HandleFunc is Handle for a bare function value.
func (rt *Router) HandleFunc(pattern string, handler pipehttp.Handler, name ...string) {
	rt.Handle(pattern, handler, name...)
}

// Mount attaches inner under prefix: requests whose path starts with
// prefix are matched by inner with prefix stripped first, the way
// mount.go's MountBare strips the mount path before the wrapped handler
// ever sees it. The longest matching prefix wins when mounts overlap.
func (rt *Router) Mount(prefix string, inner *Router) {
	rt.mounts = append(rt.mounts, mountEntry{strings.TrimSuffix(prefix, "/"), inner})
}

// Reverse builds a concrete URL path for the named route registered
// directly on rt (not through a mount — each Router's names are its own).
func (rt *Router) Reverse(name string, vals ...string) (string, error) {
	return rt.reverser.Reverse(name, vals...)
}

// Match implements [pipehttp.Router]. Mounted sub-routers are tried first,
// longest prefix first, with the request's path rewritten the way
// mount.go's stripPrefixBare rewrites it; failing that, rt's own patterns
// are matched through the underlying [net/http.ServeMux].
func (rt *Router) Match(r *http.Request) (*pipehttp.Route, bool) {
	if m, stripped := rt.bestMount(r); m != nil {
		route, ok := m.router.Match(stripped)
		if !ok {
			return nil, false
		}
		prefix := m.prefix
		for name, h := range route.Controller {
			h := h
			route.Controller[name] = func(ctx context.Context, r *http.Request, p pipehttp.Params) (any, error) {
				return h(ctx, stripPrefix(r, prefix), p)
			}
		}
		return route, true
	}

	_, pattern := rt.mux.Handler(r)
	if pattern == "" {
		return nil, false
	}

	reg, ok := rt.routes[pattern]
	if !ok {
		return nil, false
	}

	// Handler above only reports which pattern matched; it discards the
	// captured path values. Only ServeHTTP populates r's path values
	// (via setPathValue, ahead of invoking the handler), so drive the
	// match through it against a no-op handler and a discarding writer
	// purely to get r.PathValue working below.
	rt.mux.ServeHTTP(discardResponseWriter{}, r)

	params := make(pipehttp.Params, len(reg.paramNames))
	for _, name := range reg.paramNames {
		params[name] = r.PathValue(name)
	}

	return &pipehttp.Route{
		Controller: map[string]pipehttp.Handler{reg.name: reg.handler},
		Name:       reg.name,
		Params:     params,
	}, true
}

// discardResponseWriter satisfies http.ResponseWriter so Match can drive a
// request through the mux's own ServeHTTP (see above) without writing
// anything anywhere — the registered handlers it invokes are all no-ops.
type discardResponseWriter struct{}

func (discardResponseWriter) Header() http.Header         { return http.Header{} }
func (discardResponseWriter) Write(p []byte) (int, error) { return len(p), nil }
func (discardResponseWriter) WriteHeader(int)             {}

// bestMount returns the longest-prefix mount matching r's path, plus a
// shallow clone of r with that prefix stripped from Path/RawPath — or nil
// if no mount applies.
func (rt *Router) bestMount(r *http.Request) (*mountEntry, *http.Request) {
	var best *mountEntry
	for i := range rt.mounts {
		m := &rt.mounts[i]
		if r.URL.Path != m.prefix && !strings.HasPrefix(r.URL.Path, m.prefix+"/") {
			continue
		}
		if best == nil || len(m.prefix) > len(best.prefix) {
			best = m
		}
	}
	if best == nil {
		return nil, nil
	}
	return best, stripPrefix(r, best.prefix)
}

// stripPrefix clones r with prefix trimmed from its URL path, the way
// mount.go's stripPrefixBare rewrites a request before handing it to a
// mounted handler — an empty result becomes "/".
func stripPrefix(r *http.Request, prefix string) *http.Request {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" {
		p = "/"
	}

	rp := ""
	if r.URL.RawPath != "" {
		rp = strings.TrimPrefix(r.URL.RawPath, prefix)
		if rp == "" {
			rp = "/"
		}
	}

	r2 := new(http.Request)
	*r2 = *r
	u := new(url.URL)
	*u = *r.URL
	u.Path = p
	u.RawPath = rp
	r2.URL = u
	return r2
}
