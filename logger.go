package pipehttp

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger is told about conditions the pipeline cannot surface as a response
// because no request is in flight, or because the response has already been
// sent. Supply one via [WithLogger]; without it, [NewServer] falls back to
// [NewStdLogger] against [log.Default].
type Logger interface {
	// LogUnhandledServeError is called when a recover in [Server.ServeHTTP]
	// catches a panic raised while writing the response (e.g. from a value's
	// MarshalJSON). Panics inside pipeline nodes never get this far, since
	// every node is wrapped by safeNode.
	LogUnhandledServeError(err error)
	// LogImplicitFlushError is called when the end-of-request
	// [ResponseBuffer.FlushBuffer] call in [Server.ServeHTTP] fails, whatever
	// response (success or error) was being flushed.
	LogImplicitFlushError(err error)
	// LogClientError is called when the underlying listener reports a
	// malformed client request, mirroring net/http.Server's ErrorLog for
	// the "onclienterror" server option.
	LogClientError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("pipehttp: unhandled server error: %s", err)
}

func (l stdLogger) LogImplicitFlushError(err error) {
	l.Logger.Printf("pipehttp: error while flushing implicitly: %s", err)
}

func (l stdLogger) LogClientError(err error) {
	l.Logger.Printf("pipehttp: client error: %s", err)
}

// NewStdLogger adapts a standard library *log.Logger to [Logger].
func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

// TestLogger records how many times each hook fired and mirrors each call
// to tb.Logf, for assertions in tests that exercise error paths.
type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogImplicitFlushError  int64
	NumLogClientError         int64
}

// NewTestLogger builds a [TestLogger] bound to tb.
func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("pipehttp: unhandled server error: %s", err)
}

func (l *TestLogger) LogImplicitFlushError(err error) {
	atomic.AddInt64(&l.NumLogImplicitFlushError, 1)
	l.tb.Logf("pipehttp: error while flushing implicitly: %s", err)
}

func (l *TestLogger) LogClientError(err error) {
	atomic.AddInt64(&l.NumLogClientError, 1)
	l.tb.Logf("pipehttp: client error: %s", err)
}

var _ Logger = &TestLogger{}
