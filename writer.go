package pipehttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// isISO88591 reports whether s is representable without loss in the
// single-byte ISO-8859-1 encoding, i.e. every rune is <= 0xFF. HTTP/1.1
// header fields are restricted to this range; anything outside it risks
// response splitting if ever round-tripped through a byte-oriented proxy.
func isISO88591(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}

// validateHeader checks every key and value of h against [isISO88591].
func validateHeader(h http.Header) bool {
	for k, vv := range h {
		if !isISO88591(k) {
			return false
		}
		for _, v := range vv {
			if !isISO88591(v) {
				return false
			}
		}
	}
	return true
}

// WriteResponse serialises resp onto w, per §4.E. The request's context is
// used to detect a client disconnect mid-stream so that byte and object
// stream sources can be closed promptly; it must be the request's own
// context, not one derived from a handler-local timeout.
func WriteResponse(w http.ResponseWriter, r *http.Request, resp Response) {
	if !validateHeader(resp.Header()) {
		writeErrorResponse(w, FormatError(newHeaderInjectionError(), false))
		return
	}

	dst := w.Header()
	for k, vv := range resp.Header() {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}

	status := resp.Status()
	if status == 0 {
		status = defaultStatus(resp)
	}
	w.WriteHeader(status)

	switch resp.kind {
	case bodyEmpty:
		return
	case bodyText:
		io.WriteString(w, resp.text) //nolint:errcheck
	case bodyBytes:
		w.Write(resp.bytes) //nolint:errcheck
	case bodyJSON:
		enc := json.NewEncoder(w)
		enc.Encode(resp.json) //nolint:errcheck
	case bodyByteStream:
		writeByteStream(w, r, resp.stream)
	case bodyObjectStream:
		writeObjectStream(w, r, resp.objs)
	}
}

// writeErrorResponse writes a Response built by [FormatError] directly,
// bypassing header validation — the formatter never produces a header that
// could fail it.
func writeErrorResponse(w http.ResponseWriter, resp Response) {
	dst := w.Header()
	for k, vv := range resp.Header() {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(resp.Status())
	enc := json.NewEncoder(w)
	enc.Encode(resp.json) //nolint:errcheck
}

// defaultStatus mirrors the per-kind defaults of §4.B for a Response whose
// status was never set, which none of the New* constructors produce (e.g. a
// zero-valued Response returned by a handler).
func defaultStatus(r Response) int {
	if r.kind == bodyEmpty {
		return http.StatusNoContent
	}
	return http.StatusOK
}

// writeByteStream copies src to w, stopping early and closing src if the
// request's context is cancelled — the client disconnect signal required by
// §4.E.4. A source close before EOF is normal termination, not an error.
func writeByteStream(w http.ResponseWriter, r *http.Request, src io.ReadCloser) {
	defer src.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		io.Copy(w, src) //nolint:errcheck
	}()

	select {
	case <-done:
	case <-r.Context().Done():
		src.Close()
		<-done
	}
}

// circularJSONMessage replaces encoding/json's own cycle-detection wording
// with the message a cyclic JSON.stringify call produces, via
// [objectStreamMarshalError].
const circularJSONMessage = "Converting circular structure to JSON"

// writeObjectStream writes one JSON-encoded line per element of s until it
// is exhausted, the request's context is cancelled, or an element fails to
// serialise — in which case a single {"error": ...} line replaces it and the
// stream ends, per §4.E.3.
func writeObjectStream(w http.ResponseWriter, r *http.Request, s ObjectStream) {
	defer s.Close()

	flusher, _ := w.(http.Flusher)
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		default:
		}

		v, err := s.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				writeObjectStreamError(w, err)
			}
			return
		}

		line, err := json.Marshal(v)
		if err != nil {
			writeObjectStreamError(w, objectStreamMarshalError(err))
			return
		}

		w.Write(line)       //nolint:errcheck
		w.Write([]byte("\n")) //nolint:errcheck
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// objectStreamMarshalError maps a json.Marshal failure on an object-stream
// element to the message its error line reports: encoding/json's own cycle
// detection surfaces as *json.UnsupportedValueError, translated here to the
// literal wording a cyclic JSON.stringify produces; any other marshal
// failure (a channel or func value, a MarshalJSON returning its own error)
// reports that error's own message unchanged.
func objectStreamMarshalError(err error) error {
	var uve *json.UnsupportedValueError
	if errors.As(err, &uve) && strings.HasPrefix(uve.Str, "encountered a cycle") {
		return errors.New(circularJSONMessage)
	}
	return err
}

func writeObjectStreamError(w http.ResponseWriter, err error) {
	line, merr := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if merr != nil {
		return
	}
	w.Write(line)         //nolint:errcheck
	w.Write([]byte("\n")) //nolint:errcheck
}
