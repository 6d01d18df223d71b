// Package logger builds the zap logger shared by the commands.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the -q and -v flags to a log level.
func Level(verbose int, quiet bool) zapcore.Level {
	switch {
	case quiet:
		return zapcore.ErrorLevel
	case verbose <= 0:
		return zapcore.WarnLevel
	case verbose == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// New returns a console logger writing to stderr so reports on stdout stay
// parseable.
func New(verbose int, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(Level(verbose, quiet))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Development = false
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return cfg.Build()
}

// NewWriter builds a logger on an arbitrary sink, used by tests.
func NewWriter(w zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, level)
	return zap.New(core)
}
