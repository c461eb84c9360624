package pipehttp

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Code is an error code that mirrors the HTTP status codes. Attach one to an
// error with [NewError] to control the status of the response the error
// formatter produces, instead of leaving every error to fall back to 500.
type Code int

const (
	CodeUnknown               Code = 0
	CodeBadRequest            Code = http.StatusBadRequest
	CodeUnauthorized          Code = http.StatusUnauthorized
	CodePaymentRequired       Code = http.StatusPaymentRequired
	CodeForbidden             Code = http.StatusForbidden
	CodeNotFound              Code = http.StatusNotFound
	CodeMethodNotAllowed      Code = http.StatusMethodNotAllowed
	CodeNotAcceptable         Code = http.StatusNotAcceptable
	CodeRequestTimeout        Code = http.StatusRequestTimeout
	CodeConflict              Code = http.StatusConflict
	CodeGone                  Code = http.StatusGone
	CodePreconditionFailed    Code = http.StatusPreconditionFailed
	CodeRequestEntityTooLarge Code = http.StatusRequestEntityTooLarge
	CodeUnsupportedMediaType  Code = http.StatusUnsupportedMediaType
	CodeUnprocessableEntity   Code = http.StatusUnprocessableEntity
	CodeTooManyRequests       Code = http.StatusTooManyRequests
	CodeInternalServerError   Code = http.StatusInternalServerError
	CodeNotImplemented        Code = http.StatusNotImplemented
	CodeBadGateway            Code = http.StatusBadGateway
	CodeServiceUnavailable    Code = http.StatusServiceUnavailable
	CodeGatewayTimeout        Code = http.StatusGatewayTimeout
)

// Error is an error that carries an HTTP status [Code]. Middleware and
// handlers "dress" a plain error with HTTP metadata by wrapping it in one of
// these before returning it, instead of writing to a response directly.
type Error struct {
	code Code
	err  error
}

// NewError wraps err with the given status code. The returned error always
// carries a stack trace (via [errors.WithStack]) so that debug responses can
// include one regardless of how the caller built the underlying error.
func NewError(c Code, underlying error) *Error {
	return &Error{c, errors.WithStack(underlying)}
}

// Code returns the error's status code.
func (e *Error) Code() Code { return e.code }

// Error returns the underlying message, unadorned — this is what ends up in
// a response body's "message" field, so it deliberately does not prefix the
// status text the way a general-purpose error type might.
func (e *Error) Error() string { return e.err.Error() }

// Unwrap exposes the underlying error to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.err }

// CodeOf returns err's status code if it is or wraps an [*Error], and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if pe, ok := asError(err); ok {
		return pe.Code()
	}
	return CodeUnknown
}

func asError(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}

// statusOf returns the HTTP status to use for err: its attached Code if one
// was set and isn't zero, otherwise 500, matching the error formatter's
// "status attached to the error else 500" rule.
func statusOf(err error) int {
	if code := CodeOf(err); code != CodeUnknown {
		return int(code)
	}
	return http.StatusInternalServerError
}

// newNotFoundError builds the error raised when the router yields no match.
func newNotFoundError() *Error {
	return NewError(CodeNotFound, errors.New("Not Found"))
}

// newNotImplementedError builds the error raised when a route matches but
// its controller has no handler registered under that name.
func newNotImplementedError(method, path string) *Error {
	return NewError(CodeNotImplemented, errors.Newf("%q is not implemented.", method+" "+path))
}

// newBadMiddlewareValueError builds the error raised when a request or view
// middleware resolves without calling next and without returning a value.
func newBadMiddlewareValueError() *Error {
	return NewError(CodeInternalServerError, errors.New(
		`Expected middleware to resolve to a truthy value, got "undefined" instead`))
}

// newNonErrorThrowError builds the synthetic error substituted for a
// recovered panic value that is not itself an error — Go's nearest analogue
// to "a throw of a non-Error value".
func newNonErrorThrowError(v any) *Error {
	return NewError(CodeInternalServerError, errors.Newf(
		"Expected error to be instanceof Error, got %q instead", fmt.Sprint(v)))
}

// newHeaderInjectionError builds the error the writer raises when a response
// header key or value is not representable in ISO-8859-1.
func newHeaderInjectionError() *Error {
	return NewError(CodeInternalServerError, errors.New("Only ISO-8859-1 strings are valid in headers"))
}

// recoverAsError normalizes a recovered panic value into an error: if it
// already is one (including an [*Error]) it is returned unchanged; anything
// else becomes a [newNonErrorThrowError].
func recoverAsError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return newNonErrorThrowError(v)
}

// errorBody is the JSON shape of an error response.
type errorBody struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// FormatError converts a caught error into a Response: status from the
// error's attached Code (else 500), JSON body {"message": ...}, and a
// "stack" field when includeStack is true (debug mode on an internal
// server, per the caller).
func FormatError(err error, includeStack bool) Response {
	body := errorBody{Message: err.Error()}
	if includeStack {
		// *Error has no Format method, so print the wrapped error, whose
		// verbose form includes the stack trace attached by NewError.
		target := err
		if pe, ok := asError(err); ok {
			target = pe.err
		}
		body.Stack = fmt.Sprintf("%+v", target)
	}
	return NewJSON(body).WithStatus(statusOf(err))
}
