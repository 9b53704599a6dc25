package auditlog

// Level is a coarse severity bucket over fine-grained event types.
type Level string

// Supported severity levels.
const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelAll     Level = "all"
)

//nolint:gochecknoglobals
var levelEventTypes = map[Level][]string{
	LevelInfo:    {EventLoginSuccess, EventCreated, EventMessageSent, EventBackupSuccess},
	LevelWarning: {EventLoginFailed, EventRateLimitExceeded},
	LevelError:   {EventLoginError, EventCreateError, EventMessageSendError, EventBackupError},
}

// EventTypesForLevel returns the event types covered by the given severity,
// or nil when the level does not restrict the query (LevelAll or unknown).
func EventTypesForLevel(l Level) []string {
	return levelEventTypes[l]
}

// LevelForEventType returns the severity bucket for the given event type.
// Event types outside the known sets default to INFO.
func LevelForEventType(eventType string) Level {
	for level, types := range levelEventTypes {
		for _, t := range types {
			if t == eventType {
				return level
			}
		}
	}

	return LevelInfo
}
