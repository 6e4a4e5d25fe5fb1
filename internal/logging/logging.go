// Package logging bootstraps the zap logger shared across the provider
// stack, cache, quorum, and CLI layers.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level controls the minimum severity emitted.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config selects the logger's format and verbosity.
type Config struct {
	// Level is the minimum severity to emit. Defaults to "info".
	Level Level

	// Development enables human-readable console output with stack
	// traces on warn+; otherwise JSON output suited to log aggregation.
	Development bool
}

// New builds a *zap.SugaredLogger per cfg. On construction failure it
// falls back to a no-op logger rather than failing the caller, mirroring
// the rest of this package's every-layer-gets-a-logger convention.
func New(cfg Config) *zap.SugaredLogger {
	zapLevel := parseLevel(cfg.Level)

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// NoOp returns a logger that discards everything, used by layers that
// aren't given an explicit logger.
func NoOp() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func parseLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Bootstrap builds cfg's logger and installs it as zap's global logger,
// mirroring the bootstrap-then-replace-globals sequence used elsewhere in
// the corpus's CLI entry points.
func Bootstrap(cfg Config) *zap.SugaredLogger {
	logger := New(cfg)
	zap.ReplaceGlobals(logger.Desugar())
	return logger
}
