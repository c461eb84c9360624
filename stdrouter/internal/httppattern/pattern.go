// Package httppattern parses and rebuilds the net/http 1.22+ pattern syntax
// ("GET /blog/{id}/{$}") well enough to support named-route reversal. It
// does not perform request matching — stdrouter delegates that to
// [net/http.ServeMux] itself, which already implements this syntax's match
// semantics; this package exists only for the direction net/http has no
// API for: building a concrete URL back out of a pattern and a set of
// parameter values.
package httppattern

import (
	"errors"
	"fmt"
	"strings"
)

// segKind tags one path segment of a parsed [Pattern].
type segKind int

const (
	segLiteral segKind = iota
	segParam
	segEnd // "{$}" - exact match anchor, contributes nothing to a built URL
)

type segment struct {
	kind segKind
	text string // literal text, or the param name
}

// Pattern is a parsed path pattern: the method (possibly empty) and its
// ordered path segments.
type Pattern struct {
	Method string
	segs   []segment
}

// ErrEmptyPattern is returned by [ParsePattern] for the empty string.
var ErrEmptyPattern = errors.New("empty pattern")

// ParsePattern parses s, which may carry a leading "METHOD " prefix (as
// net/http patterns do), into a [Pattern]. Path segments are split on "/";
// a segment of the literal form "{name}" becomes a parameter, and the
// literal segment "{$}" becomes the exact-match end anchor.
func ParsePattern(s string) (*Pattern, error) {
	if s == "" {
		return nil, ErrEmptyPattern
	}

	method, path := "", s
	if idx := strings.IndexByte(s, ' '); idx >= 0 && !strings.HasPrefix(s, "/") {
		method, path = s[:idx], s[idx+1:]
	}

	if path == "" {
		return nil, ErrEmptyPattern
	}

	parts := strings.Split(path, "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		switch {
		case p == "":
			segs = append(segs, segment{kind: segLiteral, text: ""})
		case p == "{$}":
			segs = append(segs, segment{kind: segEnd})
		case strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}"):
			name := strings.TrimSuffix(strings.TrimPrefix(p, "{"), "}")
			name = strings.TrimSuffix(name, "...")
			segs = append(segs, segment{kind: segParam, text: name})
		default:
			segs = append(segs, segment{kind: segLiteral, text: p})
		}
	}

	return &Pattern{Method: method, segs: segs}, nil
}

// ParamNames returns the pattern's parameter names in path order.
func (p *Pattern) ParamNames() []string {
	names := make([]string, 0, len(p.segs))
	for _, seg := range p.segs {
		if seg.kind == segParam {
			names = append(names, seg.text)
		}
	}
	return names
}

// Build rebuilds a concrete URL path from p, substituting vals for the
// pattern's parameters in order. It returns an error if fewer values were
// given than the pattern has parameters.
func Build(p *Pattern, vals ...string) (string, error) {
	var b strings.Builder
	i := 0
	for segIdx, seg := range p.segs {
		switch seg.kind {
		case segEnd:
			continue
		case segLiteral:
			if segIdx > 0 {
				b.WriteByte('/')
			}
			b.WriteString(seg.text)
		case segParam:
			if i >= len(vals) {
				return "", fmt.Errorf("not enough values to build pattern: need value for %q", seg.text)
			}
			if segIdx > 0 {
				b.WriteByte('/')
			}
			b.WriteString(vals[i])
			i++
		}
	}

	out := b.String()
	if out == "" {
		out = "/"
	}
	return out, nil
}
