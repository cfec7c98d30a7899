// Package logger centralizes zap logger construction so commands, stores and
// the proof service share one configuration surface.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	// Debug enables development mode: human-readable output and debug level.
	Debug bool
}

// NewLogger builds a zap logger. Production mode emits JSON at info level;
// debug mode emits console output at debug level.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}

	if cfg.Debug {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return c.Build()
	}

	return zap.NewProduction()
}

// NewNop returns a no-op logger for tests that do not assert on log output.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
