package logging

import "context"

// loggerKeyType is the private context key under which the logger factory
// is stored.
type loggerKeyType struct{}

//nolint:gochecknoglobals
var loggerKey loggerKeyType

// WithLogger returns a derived context carrying the given logger factory.
// A nil factory resolves to the null logger.
func WithLogger(ctx context.Context, l LoggerForModuleFunc) context.Context {
	if l == nil {
		l = func(string) Logger { return nullLogger{} }
	}

	return context.WithValue(ctx, loggerKey, l)
}
