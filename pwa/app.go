package pwa

import (
	"context"
	"errors"
	"net/http"

	"github.com/advdv/pipehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management, the pwa counterpart of
// blwa/app.go's App.
type App struct {
	app *fx.App
}

// AppConfig holds options accumulated by [Option] values.
type AppConfig struct {
	FxOptions []fx.Option
}

// Option configures an [App].
type Option func(*AppConfig)

// WithFx adds extra fx options — additional providers or invokes a caller
// wants wired alongside the default stack, matching blwa/app.go's WithFx.
func WithFx(opts ...fx.Option) Option {
	return func(c *AppConfig) { c.FxOptions = append(c.FxOptions, opts...) }
}

// serverDeps bundles the pieces of a pipehttp.Server that aren't sourced
// from fx-managed dependencies: the caller builds and populates its Router
// (and any Mount-ed sub-routers) before calling NewApp, since route
// registration has no dependency-injection need of its own here.
type serverDeps struct {
	name       string
	router     pipehttp.Router
	middleware []pipehttp.Middleware
}

// NewApp builds a batteries-included pwa.App: environment parsing, a zap
// logger, otel tracing, and a [pipehttp.Server] wired onto an *http.Server,
// all driven by fx.Lifecycle hooks — the pwa-side equivalent of
// blwa/app.go's NewApp, without the AWS/Lambda-specific wiring (see
// DESIGN.md for why that part of the teacher's stack has no home here).
func NewApp[E Environment](name string, router pipehttp.Router, mws []pipehttp.Middleware, opts ...Option) *App {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseOpts := []fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e Environment) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Supply(serverDeps{name: name, router: router, middleware: mws}),
		fx.Invoke(startServerHook),
	}
	baseOpts = append(baseOpts, cfg.FxOptions...)

	return &App{app: fx.New(baseOpts...)}
}

// startServerHookParams holds the fx-resolved dependencies startServerHook
// needs, grouped the way blwa/server.go's ServerParams groups its own.
type startServerHookParams struct {
	fx.In

	Env        Environment
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
	Deps       serverDeps
}

// startServerHook builds the pipehttp.Server and *http.Server and registers
// fx.Lifecycle hooks that drive install (OnStart) and teardown (OnStop),
// matching blwa/server.go's startServerHook.
func startServerHook(lc fx.Lifecycle, p startServerHookParams) {
	plog := NewPipehttpLogger(p.Logger)

	srv := pipehttp.NewServer(p.Deps.name, p.Deps.router, p.Deps.middleware,
		pipehttp.WithLogger(plog),
		pipehttp.WithDebug(p.Env.debug()),
		pipehttp.WithMetrics(metricsFromEnv(p.Env)),
	)

	handler := WithTracing(p.TracerProv, p.Propagator, p.Env.serviceName(), srv)
	httpSrv := &http.Server{Addr: p.Env.addr(), Handler: handler}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("server error", zap.Error(err))
				}
			}()
			srv.NotifyListening()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			return httpSrv.Shutdown(ctx)
		},
	})
}

// metricsFromEnv builds the metrics sink implied by env, or nil when none
// is configured — given a nil sink, [pipehttp.NewServer] falls back to the
// METRICS environment variable default.
func metricsFromEnv(env Environment) pipehttp.MetricsSink {
	if env.metricsURL() == "" {
		return nil
	}
	return pipehttp.DialTCPSink(env.metricsURL())
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() { a.app.Run() }

// Start starts the application and blocks until ctx is cancelled, then
// stops it within the app's configured stop timeout.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
