package pipehttp

import (
	"io"
	"net/http"
)

// bodyKind tags the variant held by a [Response]. Modeling the body as a
// closed set of kinds (rather than inspecting the runtime type of a raw
// value on every access) keeps coercion and writing exhaustive switches
// instead of chains of type assertions.
type bodyKind int

const (
	bodyEmpty bodyKind = iota
	bodyBytes
	bodyText
	bodyJSON
	bodyByteStream
	bodyObjectStream
)

// ObjectStream yields a sequence of JSON-serialisable values. Next returns
// io.EOF once exhausted. Close must be idempotent; the writer calls it both
// on normal completion and on client disconnect.
type ObjectStream interface {
	Next() (any, error)
	io.Closer
}

// Response is the tuple (body, status, headers) described by the
// specification. Once returned from a handler or middleware it is immutable;
// [Response.WithHeader] returns a new value sharing the same body.
type Response struct {
	kind   bodyKind
	bytes  []byte
	text   string
	json   any
	stream io.ReadCloser
	objs   ObjectStream

	status int
	header http.Header
}

// NewEmpty builds a Response with no body. It defaults to 204 and carries no
// content-type header.
func NewEmpty() Response {
	return Response{kind: bodyEmpty, status: http.StatusNoContent, header: http.Header{}}
}

// NewText builds a Response from a UTF-8 string. An empty string is
// equivalent to [NewEmpty] per the coercion rules in [Coerce]; NewText itself
// does not special-case it so that callers who explicitly want a 200 with an
// empty text body and a content-type header can still get one by setting
// status/header after construction.
func NewText(s string) Response {
	return Response{kind: bodyText, text: s, status: http.StatusOK, header: http.Header{
		"Content-Type": {"text/plain; charset=utf-8"},
	}}
}

// NewBytes builds a Response from an in-memory byte buffer.
func NewBytes(b []byte) Response {
	return Response{kind: bodyBytes, bytes: b, status: http.StatusOK, header: http.Header{
		"Content-Type": {"application/octet-stream"},
	}}
}

// NewJSON builds a Response whose body is the JSON serialisation of v.
func NewJSON(v any) Response {
	return Response{kind: bodyJSON, json: v, status: http.StatusOK, header: http.Header{
		"Content-Type": {"application/json; charset=utf-8"},
	}}
}

// NewByteStream builds a Response whose body is copied from r as it is
// written. The writer closes r, including on client disconnect.
func NewByteStream(r io.ReadCloser) Response {
	return Response{kind: bodyByteStream, stream: r, status: http.StatusOK, header: http.Header{
		"Content-Type": {"application/octet-stream"},
	}}
}

// NewObjectStream builds a Response whose body is one NDJSON line per
// element yielded by s.
func NewObjectStream(s ObjectStream) Response {
	return Response{kind: bodyObjectStream, objs: s, status: http.StatusOK, header: http.Header{
		"Content-Type": {"application/x-ndjson; charset=utf-8"},
	}}
}

// Make builds a Response with an explicit status and header override,
// mirroring the specification's make(body, status?, headers?). It is meant
// to be chained onto one of the New* constructors:
//
//	pipehttp.NewJSON(item).Make(http.StatusCreated, nil)
func (r Response) Make(status int, header http.Header) Response {
	if status != 0 {
		r.status = status
	}
	if header != nil {
		r.header = header.Clone()
	}
	return r
}

// Status returns the response's status code.
func (r Response) Status() int { return r.status }

// Header returns the response's header mapping. Mutating the returned map
// mutates this Response's view of its headers; use [Response.WithHeader] for
// a non-mutating update.
func (r Response) Header() http.Header {
	if r.header == nil {
		r.header = http.Header{}
	}
	return r.header
}

// WithHeader returns a new Response, sharing the same body, with key set to
// value. Header keys are canonicalised case-insensitively by [http.Header].
func (r Response) WithHeader(key, value string) Response {
	h := r.Header().Clone()
	h.Set(key, value)
	r.header = h
	return r
}

// WithStatus returns a new Response, sharing the same body and headers, with
// the given status.
func (r Response) WithStatus(status int) Response {
	r.status = status
	return r
}

// Streaming reports whether the body is written progressively (byte or
// object stream) rather than buffered in full before the first write.
// [Server.ServeHTTP] uses this to decide whether a response can be
// buffered so a late panic still produces a clean error response.
func (r Response) Streaming() bool {
	return r.kind == bodyByteStream || r.kind == bodyObjectStream
}
