package pipehttp

import (
	"errors"
	"net/http"
	"sync"
)

// ErrBufferFull is returned by [ResponseBuffer.Write] when limit was
// exceeded. No partial write occurs — either the whole call fits under the
// limit or none of it is buffered.
var ErrBufferFull = errors.New("pipehttp: response buffer full")

// ResponseWriter is the buffered http.ResponseWriter [Server.ServeHTTP]
// writes a non-streaming [Response] into before committing anything to the
// real http.ResponseWriter. Buffering lets it discard everything written so
// far and substitute a fresh response — useful when a panic is recovered
// partway through writing a body.
type ResponseWriter interface {
	http.ResponseWriter
	// Reset discards any buffered status, headers and body, restoring the
	// writer to its initial state. Panics if called after an explicit
	// flush, since bytes may already be on the wire by then.
	Reset()
	// Free returns the buffer to its pool. Call once per request, after
	// the final flush.
	Free()
	// FlushBuffer commits any buffered status, headers and body to the
	// underlying http.ResponseWriter. Safe to call more than once.
	FlushBuffer() error
}

var responseBufferPool = sync.Pool{
	New: func() any { return &ResponseBuffer{} },
}

// ResponseBuffer implements [ResponseWriter]. Writes accumulate in memory
// until [ResponseBuffer.FlushBuffer] (or an explicit [http.ResponseController]
// flush, via [ResponseBuffer.FlushError]) commits them to the underlying
// writer.
type ResponseBuffer struct {
	rw     http.ResponseWriter
	header http.Header
	status int
	limit  int

	wroteHeader     bool
	headerCommitted bool
	flushed         bool
	buf             []byte
}

// NewResponseBuffer wraps rw with a buffer. limit caps the number of body
// bytes held before an explicit or implicit flush; -1 means unlimited.
func NewResponseBuffer(rw http.ResponseWriter, limit int) *ResponseBuffer {
	b, _ := responseBufferPool.Get().(*ResponseBuffer)
	b.rw = rw
	b.header = http.Header{}
	b.status = http.StatusOK
	b.limit = limit
	b.wroteHeader = false
	b.headerCommitted = false
	b.flushed = false
	b.buf = b.buf[:0]
	return b
}

// Header returns the buffered header map. It remains mutable until the
// header is committed to the underlying writer by the first flush.
func (b *ResponseBuffer) Header() http.Header { return b.header }

// WriteHeader records the status code. Only the first call has effect,
// matching net/http's "superfluous WriteHeader" semantics.
func (b *ResponseBuffer) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

// Write buffers p. It implicitly locks in a 200 status if WriteHeader has
// not been called yet.
func (b *ResponseBuffer) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	if b.limit >= 0 && len(b.buf)+len(p) > b.limit {
		return 0, ErrBufferFull
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// FlushError commits the buffered status and headers (once) and writes any
// buffered body bytes to the underlying writer, clearing the buffer for
// further writes. It is the hook [http.ResponseController.Flush] looks for.
func (b *ResponseBuffer) FlushError() error {
	if !b.headerCommitted {
		dst := b.rw.Header()
		for k, vv := range b.header {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
		b.rw.WriteHeader(b.status)
		b.headerCommitted = true
	}

	if len(b.buf) > 0 {
		if _, err := b.rw.Write(b.buf); err != nil {
			return err
		}
		b.buf = b.buf[:0]
	}

	b.flushed = true
	return nil
}

// FlushBuffer is the [Server.ServeHTTP]-facing equivalent of
// [ResponseBuffer.FlushError].
func (b *ResponseBuffer) FlushBuffer() error { return b.FlushError() }

// Reset discards any buffered status, headers and body. Panics if called
// after the response has already been flushed once.
func (b *ResponseBuffer) Reset() {
	if b.flushed {
		panic("pipehttp: cannot Reset a ResponseBuffer that has already flushed")
	}
	b.header = http.Header{}
	b.status = http.StatusOK
	b.wroteHeader = false
	b.buf = b.buf[:0]
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (b *ResponseBuffer) Unwrap() http.ResponseWriter { return b.rw }

// Free returns the buffer to its pool. The ResponseBuffer must not be used
// afterwards.
func (b *ResponseBuffer) Free() {
	b.rw = nil
	responseBufferPool.Put(b)
}

var _ ResponseWriter = (*ResponseBuffer)(nil)
