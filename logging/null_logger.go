package logging

// nullLogger accepts and discards all messages.
type nullLogger struct{}

func (nullLogger) Debugf(string, ...interface{}) {}
func (nullLogger) Debugw(string, ...interface{}) {}
func (nullLogger) Infof(string, ...interface{})  {}
func (nullLogger) Warnf(string, ...interface{})  {}
func (nullLogger) Errorf(string, ...interface{}) {}

// NullLogger returns a logger that discards everything sent to it.
func NullLogger() Logger {
	return nullLogger{}
}
