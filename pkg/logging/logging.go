// Package logging provides the structured logging interface used across
// the generator. Every package depends on the Logger interface, never on
// a concrete backend, so library callers can supply their own and the CLI
// can wire zap.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is the logging surface every package accepts. Each level takes
// a format string and args rather than structured fields, keeping call
// sites terse.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// zapLogger adapts *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap builds a zap-backed Logger. verbose selects a development config
// (human-readable, debug level) over a production config (JSON, info
// level) — the CLI's --verbose flag drives this directly.
func NewZap(verbose bool) (Logger, func() error, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, func() error { return nil }, fmt.Errorf("building zap logger: %w", err)
	}
	return &zapLogger{s: base.Sugar()}, base.Sync, nil
}

func (z *zapLogger) Debug(format string, args ...interface{}) { z.s.Debugf(format, args...) }
func (z *zapLogger) Info(format string, args ...interface{})  { z.s.Infof(format, args...) }
func (z *zapLogger) Warn(format string, args ...interface{})  { z.s.Warnf(format, args...) }
func (z *zapLogger) Error(format string, args ...interface{}) { z.s.Errorf(format, args...) }

type noOpLogger struct{}

// NoOp returns a Logger that discards everything. Used by tests and by
// library callers that don't want generator output on their own logger.
func NoOp() Logger { return noOpLogger{} }

func (noOpLogger) Debug(string, ...interface{}) {}
func (noOpLogger) Info(string, ...interface{})  {}
func (noOpLogger) Warn(string, ...interface{})  {}
func (noOpLogger) Error(string, ...interface{}) {}
