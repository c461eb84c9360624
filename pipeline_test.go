package pipehttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/pipehttp"
	"github.com/stretchr/testify/require"
)

// routerFunc adapts a plain function to [pipehttp.Router].
type routerFunc func(*http.Request) (*pipehttp.Route, bool)

func (f routerFunc) Match(r *http.Request) (*pipehttp.Route, bool) { return f(r) }

func newServer(t *testing.T, router pipehttp.Router, mws []pipehttp.Middleware, opts ...pipehttp.Option) *pipehttp.Server {
	t.Helper()
	opts = append([]pipehttp.Option{pipehttp.WithLogger(pipehttp.NewTestLogger(t))}, opts...)
	return pipehttp.NewServer("test", router, mws, opts...)
}

func singleRoute(name string, h pipehttp.Handler) pipehttp.Router {
	return routerFunc(func(r *http.Request) (*pipehttp.Route, bool) {
		return &pipehttp.Route{
			Controller: map[string]pipehttp.Handler{name: h},
			Name:       name,
			Params:     pipehttp.Params{},
		}, true
	})
}

func TestScenarioStringBodyIsTextPlain200(t *testing.T) {
	h := func(context.Context, *http.Request, pipehttp.Params) (any, error) { return "hi there!", nil }
	srv := newServer(t, singleRoute("greet", h), nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "hi there!", rec.Body.String())
}

func TestScenarioEmptyStringIs204NoContentType(t *testing.T) {
	h := func(context.Context, *http.Request, pipehttp.Params) (any, error) { return "", nil }
	srv := newServer(t, singleRoute("empty", h), nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Body.String())
}

func TestScenarioObjectBodyIsJSON200(t *testing.T) {
	h := func(context.Context, *http.Request, pipehttp.Params) (any, error) {
		return map[string]string{"test": "anything!"}, nil
	}
	srv := newServer(t, singleRoute("obj", h), nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"test":"anything!"}`, rec.Body.String())
}

func TestScenarioHandlerErrorIs500WithoutStack(t *testing.T) {
	h := func(context.Context, *http.Request, pipehttp.Params) (any, error) {
		return nil, errPlain("It fails!")
	}
	srv := newServer(t, singleRoute("boom", h), nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "It fails!", body["message"])
	require.NotContains(t, body, "stack")
}

func TestScenarioNoMatchIs404(t *testing.T) {
	router := routerFunc(func(*http.Request) (*pipehttp.Route, bool) { return nil, false })
	srv := newServer(t, router, nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())
}

func TestScenarioMatchWithoutHandlerIs501(t *testing.T) {
	router := routerFunc(func(*http.Request) (*pipehttp.Route, bool) {
		return &pipehttp.Route{
			Controller: map[string]pipehttp.Handler{},
			Name:       "missing",
			Params:     pipehttp.Params{},
		}, true
	})
	srv := newServer(t, router, nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotImplemented, rec.Code)
	require.JSONEq(t, `{"message":"\"GET /\" is not implemented."}`, rec.Body.String())
}

func TestScenarioNonErrorPanicBecomesStandardizedError(t *testing.T) {
	h := func(context.Context, *http.Request, pipehttp.Params) (any, error) {
		panic("not an error")
	}
	srv := newServer(t, singleRoute("panics", h), nil)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	require.NotPanics(t, func() { srv.ServeHTTP(rec, req) })

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, `Expected error to be instanceof Error, got "not an error" instead`, body["message"])
}

// TestRequestAndViewMiddlewareOrdering exercises P2: pre-next runs outer to
// inner, post-next runs inner to outer, across both the request and view
// phases.
func TestRequestAndViewMiddlewareOrdering(t *testing.T) {
	var order []string

	reqMW := func(name string) pipehttp.Middleware {
		return pipehttp.Middleware{
			ProcessRequest: func(ctx context.Context, r *http.Request, next pipehttp.RequestNext) (any, error) {
				order = append(order, "req-pre-"+name)
				v, err := next(ctx, r)
				order = append(order, "req-post-"+name)
				return v, err
			},
		}
	}
	viewMW := func(name string) pipehttp.Middleware {
		return pipehttp.Middleware{
			ProcessView: func(ctx context.Context, r *http.Request, match *pipehttp.Route, next pipehttp.ViewNext) (any, error) {
				order = append(order, "view-pre-"+name)
				v, err := next(ctx, r)
				order = append(order, "view-post-"+name)
				return v, err
			},
		}
	}

	h := func(context.Context, *http.Request, pipehttp.Params) (any, error) {
		order = append(order, "handler")
		return "ok", nil
	}

	mws := []pipehttp.Middleware{reqMW("1"), viewMW("2"), reqMW("3")}
	srv := newServer(t, singleRoute("h", h), mws)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{
		"req-pre-1", "req-pre-3", "view-pre-2", "handler", "view-post-2", "req-post-3", "req-post-1",
	}, order)
}

// TestBadMiddlewareValueIs500 covers the "middleware resolves without a
// value" contract: returning (nil, nil) from a request middleware without
// calling next is rejected with the standardized message.
func TestBadMiddlewareValueIs500(t *testing.T) {
	mws := []pipehttp.Middleware{{
		ProcessRequest: func(context.Context, *http.Request, pipehttp.RequestNext) (any, error) {
			return nil, nil
		},
	}}
	srv := newServer(t, singleRoute("unreached", func(context.Context, *http.Request, pipehttp.Params) (any, error) {
		t.Fatal("handler should not run")
		return nil, nil
	}), mws)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, `Expected middleware to resolve to a truthy value, got "undefined" instead`, body["message"])
}

// TestRequestMiddlewareShortCircuitsViewPhase covers request middleware
// returning its own value directly: the rest of the request chain and the
// whole view phase (and handler) must never run.
func TestRequestMiddlewareShortCircuitsViewPhase(t *testing.T) {
	viewRan := false
	mws := []pipehttp.Middleware{
		{ProcessRequest: func(context.Context, *http.Request, pipehttp.RequestNext) (any, error) {
			return "short-circuited", nil
		}},
		{ProcessView: func(ctx context.Context, r *http.Request, match *pipehttp.Route, next pipehttp.ViewNext) (any, error) {
			viewRan = true
			return next(ctx, r)
		}},
	}
	srv := newServer(t, singleRoute("h", func(context.Context, *http.Request, pipehttp.Params) (any, error) {
		viewRan = true
		return "handler ran", nil
	}), mws)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "short-circuited", rec.Body.String())
	require.False(t, viewRan)
}

// errPlain is a minimal error type distinct from *pipehttp.Error, used to
// exercise the "no attached status, falls back to 500" path.
type errPlain string

func (e errPlain) Error() string { return string(e) }
