package pipehttp

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
)

// Server wires the response coercer, error formatter, pipeline engine and
// writer onto an externally supplied [net/http.Server]-compatible listener.
// It implements [http.Handler] so the caller attaches it the normal way:
//
//	srv := pipehttp.NewServer("api", router, nil)
//	httpSrv := &http.Server{Addr: ":8080", Handler: srv}
//	go httpSrv.ListenAndServe()
//	srv.NotifyListening()
//	<-srv.Listening()
//
// The core never calls ListenAndServe itself (§1 scope: the listener is an
// external collaborator); NotifyListening is the caller's report of the
// listener's own "listening" event, and [Server.Shutdown] drives unwind the
// way the listener's "close" event would.
type Server struct {
	name     string
	router   Router
	mws      []Middleware
	logs     Logger
	metrics  MetricsSink
	external bool
	debug    bool

	listening chan struct{}
	closed    chan struct{}
	shutdown  chan struct{}

	installOnce  sync.Once
	shutdownOnce sync.Once
	chainErr     error
}

// Option configures a [Server] at construction time.
type Option func(*Server)

// WithLogger overrides the default [NewStdLogger].
func WithLogger(l Logger) Option { return func(s *Server) { s.logs = l } }

// WithMetrics attaches a [MetricsSink] directly, bypassing the METRICS
// environment variable default described in §6.
func WithMetrics(m MetricsSink) Option { return func(s *Server) { s.metrics = m } }

// WithExternal controls the isExternal option of §4.F. Default true; pass
// false for servers whose error responses may safely include stack traces
// under debug mode.
func WithExternal(external bool) Option { return func(s *Server) { s.external = external } }

// WithDebug overrides the DEBUG environment variable default of §4.F/§6.
func WithDebug(debug bool) Option { return func(s *Server) { s.debug = debug } }

// NewServer constructs a [Server] named name, routing through router, with
// mws run in declaration order across all three phases. Per §4.F, options
// recognised are metrics, isExternal and debug-mode defaults sourced from
// the DEBUG and METRICS environment variables when not overridden.
func NewServer(name string, router Router, mws []Middleware, opts ...Option) *Server {
	s := &Server{
		name:        name,
		router:      router,
		mws:         mws,
		logs:        NewStdLogger(log.Default()),
		external:    true,
		debug:       os.Getenv("DEBUG") != "",
		listening: make(chan struct{}),
		closed:    make(chan struct{}),
		shutdown:  make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = defaultMetricsSink(os.Getenv("METRICS"))
	}
	return s
}

// Listening is fulfilled once [Server.NotifyListening] has been called AND
// every server-install middleware's pre-next work has completed — the §3
// "listening" signal.
func (s *Server) Listening() <-chan struct{} { return s.listening }

// Closed is fulfilled once [Server.Shutdown] has been called AND every
// server-install middleware's post-next (teardown) work has completed.
func (s *Server) Closed() <-chan struct{} { return s.closed }

// Metrics returns the configured [MetricsSink].
func (s *Server) Metrics() MetricsSink { return s.metrics }

// IsExternal reports the isExternal option (default true).
func (s *Server) IsExternal() bool { return s.external }

// NotifyListening reports that the underlying listener has emitted its
// "listening" event. It drives the server-install chain: every middleware's
// pre-next code runs, outer to inner, and the innermost link then blocks
// until [Server.Shutdown] is called, at which point the chain unwinds —
// each middleware's post-next code runs, inner to outer. Idempotent — only
// the first call starts the chain.
func (s *Server) NotifyListening() {
	s.installOnce.Do(func() {
		go s.run()
	})
}

// run executes the server-install chain for the whole server lifetime: a
// single goroutine walks down through every middleware's pre-next code,
// resolves Listening once it reaches the bottom, blocks there until
// shutdown is signalled, then walks back up through every middleware's
// post-next code and resolves Closed. Because the walk is one synchronous
// call stack, a close arriving mid-install (§4.D, §8 scenario 5) cannot
// interrupt it — the innermost link only observes s.shutdown once every
// outer middleware has already run its pre-next step.
func (s *Server) run() {
	chain := buildServerChain(serverMiddlewares(s.mws), s.listening, s.shutdown)
	s.chainErr = chain(context.Background())
	close(s.closed)
}

// buildServerChain folds server-install middleware around an innermost link
// in declaration order, so the first middleware is outermost: its pre-next
// code runs first and its post-next code runs last, giving the
// [1,2,3,3,2,1] ordering required by §8 scenario 5. The innermost link
// closes listening (install has reached bottom) and then blocks on
// shutdown before returning, which is what makes every middleware's "await
// next" actually wait for the server's close event.
func buildServerChain(mws []ServerMiddlewareFunc, listening, shutdown chan struct{}) func(context.Context) error {
	var chain ServerNext = func(ctx context.Context) error {
		close(listening)
		select {
		case <-shutdown:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		next := chain
		chain = func(ctx context.Context) error { return mw(ctx, next) }
	}
	return chain
}

// Shutdown reports that the underlying listener has closed (or is
// closing). It signals the blocked bottom of the server-install chain and
// waits for the unwind — every middleware's post-next code, in reverse
// declaration order — to finish. Idempotent: later calls simply wait on
// the same Closed signal without re-running teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
	s.installOnce.Do(func() { go s.run() })
	select {
	case <-s.closed:
		return s.chainErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Uninstall is an alias for Shutdown matching the spec's ServerHandle
// surface (§3, §4.F); both drive the same idempotent teardown.
func (s *Server) Uninstall(ctx context.Context) error { return s.Shutdown(ctx) }

// ServeHTTP implements [http.Handler]. It runs the request and view phases
// for r, coerces whatever the chain produces or recovers from, and writes
// the result with [WriteResponse]. No error or panic ever escapes this
// method — §7's propagation policy — a top-level recover exists only to
// catch a defect in the engine itself, and is reported via
// [Logger.LogUnhandledServeError] rather than crashing the process.
//
// A streaming response (byte or object stream) writes straight to w, since
// buffering would defeat progressive delivery and client-disconnect
// handling. Anything else is written into a [ResponseBuffer] first and only
// committed once, at the end — a panic while writing the body can still
// discard it and substitute a clean error response instead of leaving a
// half-written 200 on the wire.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := runPipeline(r.Context(), r, s.router, s.mws)
	if err != nil {
		resp = FormatError(err, s.debug && !s.external)
	}

	if resp.Streaming() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logs.LogUnhandledServeError(recoverAsError(rec))
			}
		}()
		WriteResponse(w, r, resp)
		return
	}

	buf := NewResponseBuffer(w, -1)
	defer buf.Free()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				logErr := recoverAsError(rec)
				s.logs.LogUnhandledServeError(logErr)
				buf.Reset()
				WriteResponse(buf, r, FormatError(logErr, s.debug && !s.external))
			}
		}()
		WriteResponse(buf, r, resp)
	}()

	if ferr := buf.FlushBuffer(); ferr != nil {
		s.logs.LogImplicitFlushError(ferr)
	}
}

// OnClientError adapts the onclienterror option of §4.F/§6: attach it as
// the [http.Server.ErrorLog] hook is too coarse for, but net/http.Server
// has no clientError event of its own, so callers that need the signal
// (e.g. a custom listener) call this directly; it simply forwards to the
// configured [Logger].
func (s *Server) OnClientError(err error, _ any) {
	s.logs.LogClientError(err)
}
