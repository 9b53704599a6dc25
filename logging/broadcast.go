package logging

type broadcastLogger []Logger

func (l broadcastLogger) Debugf(msg string, args ...interface{}) {
	for _, l2 := range l {
		l2.Debugf(msg, args...)
	}
}

func (l broadcastLogger) Debugw(msg string, keyValuePairs ...interface{}) {
	for _, l2 := range l {
		l2.Debugw(msg, keyValuePairs...)
	}
}

func (l broadcastLogger) Infof(msg string, args ...interface{}) {
	for _, l2 := range l {
		l2.Infof(msg, args...)
	}
}

func (l broadcastLogger) Warnf(msg string, args ...interface{}) {
	for _, l2 := range l {
		l2.Warnf(msg, args...)
	}
}

func (l broadcastLogger) Errorf(msg string, args ...interface{}) {
	for _, l2 := range l {
		l2.Errorf(msg, args...)
	}
}

// Broadcast returns a logger that broadcasts each log message to all provided loggers.
func Broadcast(logger ...Logger) Logger {
	return broadcastLogger(logger)
}
