package pwa

import (
	"github.com/advdv/pipehttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a *zap.Logger configured from env, the way
// blwa/logging.go's NewLogger does for its own Environment — JSON
// encoding, ISO8601 timestamps, level taken from PIPEHTTP_LOG_LEVEL.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// zapLogger adapts a *zap.Logger to [pipehttp.Logger], the pwa-side
// counterpart of blwa/logging.go's zapLogger.
type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledServeError(err error) {
	l.Logger.Error("unhandled server error", zap.Error(err))
}

func (l zapLogger) LogImplicitFlushError(err error) {
	l.Logger.Error("error while flushing implicitly", zap.Error(err))
}

func (l zapLogger) LogClientError(err error) {
	l.Logger.Warn("client error", zap.Error(err))
}

// NewPipehttpLogger adapts l to [pipehttp.Logger], named the way
// blwa/logging.go's newZapBHTTPLogger names its sub-logger.
func NewPipehttpLogger(l *zap.Logger) pipehttp.Logger {
	return zapLogger{l.Named("pipehttp").Named("pwa")}
}

var _ pipehttp.Logger = zapLogger{}
