package stdrouter

import (
	"github.com/advdv/pipehttp/stdrouter/internal/httppattern"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Reverser keeps track of named patterns and allows building URLs back out
// of them, the way [Router.Reverse] exposes it to callers holding only a
// route name and parameter values.
type Reverser struct {
	pats map[string]*httppattern.Pattern
}

// NewReverser inits an empty Reverser.
func NewReverser() *Reverser {
	return &Reverser{make(map[string]*httppattern.Pattern)}
}

// Reverse reverses the named pattern into a concrete URL path.
func (r *Reverser) Reverse(name string, vals ...string) (string, error) {
	pat, ok := r.pats[name]
	if !ok {
		return "", errors.Newf("no pattern named: %q, got: %v", name, lo.Keys(r.pats))
	}

	res, err := httppattern.Build(pat, vals...)
	if err != nil {
		return "", errors.Wrap(err, "failed to build")
	}

	return res, nil
}

// Named parses and registers str under name, panicking on failure — a
// convenience for call sites that register routes at init time and would
// rather fail fast than thread an error through route registration.
func (r *Reverser) Named(name, str string) string {
	str, err := r.NamedPattern(name, str)
	if err != nil {
		panic("stdrouter: " + err.Error())
	}
	return str
}

// NamedPattern parses str as a path pattern, registers it under name, and
// returns str unchanged so callers can register and capture the pattern
// string in one expression.
func (r *Reverser) NamedPattern(name, str string) (string, error) {
	if _, exists := r.pats[name]; exists {
		return str, errors.Newf("pattern with name %q already exists", name)
	}

	pat, err := httppattern.ParsePattern(str)
	if err != nil {
		return str, errors.Wrap(err, "failed to parse pattern")
	}

	r.pats[name] = pat
	return str, nil
}
