package pipehttp

import "io"

// Coerce turns any value returned by a handler or middleware into a
// [Response], applying the defaults mandated by body kind. The rules are
// applied in order and the first match wins:
//
//  1. a Response is returned unchanged — anything the caller preset on it
//     (status, content-type, ...) survives untouched;
//  2. nil or an empty string becomes an empty 204 body with no
//     content-type header;
//  3. a non-empty string becomes a 200 text/plain body;
//  4. a []byte becomes a 200 application/octet-stream body;
//  5. an [ObjectStream] becomes a 200 application/x-ndjson body, one line
//     per element, serialised by the writer as it drains the stream;
//  6. an io.ReadCloser becomes a 200 application/octet-stream body, copied
//     through unchanged;
//  7. anything else is marshalled as a 200 application/json body.
func Coerce(v any) Response {
	switch val := v.(type) {
	case Response:
		return val
	case nil:
		return NewEmpty()
	case string:
		if val == "" {
			return NewEmpty()
		}
		return NewText(val)
	case []byte:
		return NewBytes(val)
	case ObjectStream:
		return NewObjectStream(val)
	case io.ReadCloser:
		return NewByteStream(val)
	default:
		return NewJSON(v)
	}
}
