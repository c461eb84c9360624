package stdrouter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/pipehttp"
	"github.com/advdv/pipehttp/stdrouter"
	"github.com/stretchr/testify/require"
)

func noopHandler(context.Context, *http.Request, pipehttp.Params) (any, error) { return "ok", nil }

func TestRouterMatchesNamedPatternWithParams(t *testing.T) {
	rt := stdrouter.NewRouter()
	rt.HandleFunc("GET /blog/{id}", noopHandler, "blog-post")

	req := httptest.NewRequest(http.MethodGet, "/blog/42", nil)
	route, ok := rt.Match(req)
	require.True(t, ok)
	require.Equal(t, "blog-post", route.Name)
	require.Equal(t, "42", route.Params.Get("id"))

	h, ok := route.Handler()
	require.True(t, ok)
	v, err := h(context.Background(), req, route.Params)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestRouterNoMatchIsFalse(t *testing.T) {
	rt := stdrouter.NewRouter()
	rt.HandleFunc("GET /blog/{id}", noopHandler, "blog-post")

	_, ok := rt.Match(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.False(t, ok)
}

func TestRouterReverse(t *testing.T) {
	rt := stdrouter.NewRouter()
	rt.HandleFunc("GET /blog/{id}/{$}", noopHandler, "blog-post")

	url, err := rt.Reverse("blog-post", "42")
	require.NoError(t, err)
	require.Equal(t, "/blog/42", url)
}

func TestRouterMountStripsPrefix(t *testing.T) {
	var gotPath string
	inner := stdrouter.NewRouter()
	inner.HandleFunc("GET /users", func(_ context.Context, r *http.Request, _ pipehttp.Params) (any, error) {
		gotPath = r.URL.Path
		return "ok", nil
	}, "list-users")

	outer := stdrouter.NewRouter()
	outer.Mount("/api", inner)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	route, ok := outer.Match(req)
	require.True(t, ok)

	h, _ := route.Handler()
	_, err := h(context.Background(), req, route.Params)
	require.NoError(t, err)
	require.Equal(t, "/users", gotPath)
}

func TestReverserErrorsOnUnknownName(t *testing.T) {
	rev := stdrouter.NewReverser()
	_, err := rev.Reverse("bogus")
	require.Error(t, err)
	require.Contains(t, err.Error(), `no pattern named: "bogus"`)
}

func TestReverserPanicsOnEmptyPattern(t *testing.T) {
	rev := stdrouter.NewReverser()
	require.PanicsWithValue(t, "stdrouter: failed to parse pattern: empty pattern", func() {
		rev.Named("bogus", "")
	})
}

func TestReverserErrorsOnDuplicateName(t *testing.T) {
	rev := stdrouter.NewReverser()
	rev.Named("home", "/{$}")

	_, err := rev.NamedPattern("home", "/other")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}
