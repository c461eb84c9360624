// Package pwa is a batteries-included convenience layer over
// [pipehttp.Server]: environment parsing, structured logging, and tracing,
// wired together with go.uber.org/fx the way blwa.NewApp wires its own
// stack. None of pipehttp's core components know pwa exists; everything
// here is purely additive.
package pwa

import (
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the configuration every pwa.App needs. Embed
// [BaseEnvironment] in your own struct to satisfy it while adding
// application-specific fields of your own.
type Environment interface {
	addr() string
	debug() bool
	metricsURL() string
	logLevel() zapcore.Level
	serviceName() string
}

// BaseEnvironment carries the two environment variables the specification
// names directly (DEBUG, METRICS, §4.F/§6) plus the host/port, log level
// and service name every pwa.App needs to start a listener, a logger and a
// tracer — the same
// role blwa/env.go's BaseEnvironment plays for AWS Lambda Web Adapter.
type BaseEnvironment struct {
	Addr        string        `env:"PIPEHTTP_ADDR" envDefault:":8080"`
	Debug       bool          `env:"DEBUG" envDefault:"false"`
	MetricsURL  string        `env:"METRICS"`
	LogLevel    zapcore.Level `env:"PIPEHTTP_LOG_LEVEL" envDefault:"info"`
	ServiceName string        `env:"PIPEHTTP_SERVICE_NAME" envDefault:"pipehttp"`
}

func (e BaseEnvironment) addr() string           { return e.Addr }
func (e BaseEnvironment) debug() bool             { return e.Debug }
func (e BaseEnvironment) metricsURL() string      { return e.MetricsURL }
func (e BaseEnvironment) logLevel() zapcore.Level { return e.LogLevel }
func (e BaseEnvironment) serviceName() string     { return e.ServiceName }

var _ Environment = BaseEnvironment{}

// ParseEnv parses process environment variables into E, matching
// blwa/env.go's ParseEnv[E] signature so it slots into the same fx.Provide
// call shape.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		return e, nil
	}
}
