// Package plog provides the structured logger shared by every pipeline
// component. It wraps go.uber.org/zap the way zstd-seekable-format-go
// wires zap through its encoder/decoder call sites — one process-wide
// *zap.Logger, passed down rather than reached for globally.
package plog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style zap logger writing JSON lines to w; verbose
// lowers the level from info to debug. Errors constructing
// the logger are programmer errors (bad encoder config), not runtime
// conditions, so they are returned rather than panicked on.
func New(w io.Writer, verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		level,
	)

	logger := zap.New(core)
	return logger, nil
}

// NewNop returns a logger that discards everything, used by tests and by
// callers that run with logging disabled.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

// NewConsole is the --verbose-at-a-terminal variant: colorless, tab
// aligned, meant for direct human reading rather than log aggregation.
func NewConsole(w io.Writer, verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core), nil
}
