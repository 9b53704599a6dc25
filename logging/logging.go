// Package logging provides loggers scoped to module names and attached to the context.
package logging

import (
	"context"

	"go.uber.org/zap"
)

// Logger is an interface used by vestry to output logs.
type Logger interface {
	Debugf(msg string, args ...interface{})
	Debugw(msg string, keyValuePairs ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

// LoggerForModuleFunc returns a Logger for a given module name.
type LoggerForModuleFunc func(module string) Logger

// Module returns a function that returns a logger for a given module when provided with a context.
func Module(module string) func(ctx context.Context) Logger {
	return func(ctx context.Context) Logger {
		if l, ok := ctx.Value(loggerKey).(LoggerForModuleFunc); ok && l != nil {
			return l(module)
		}

		return nullLogger{}
	}
}

// Zap returns a LoggerForModuleFunc that emits through the provided zap logger.
func Zap(l *zap.Logger) LoggerForModuleFunc {
	return func(module string) Logger {
		return l.Named(module).Sugar()
	}
}
