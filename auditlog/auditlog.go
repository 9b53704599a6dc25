// Package auditlog defines the append-only security event log and the
// interfaces of the store that persists it.
package auditlog

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Event types emitted by the backup subsystem.
const (
	EventBackupStart    = "BACKUP_START"
	EventBackupSuccess  = "BACKUP_SUCCESS"
	EventBackupError    = "BACKUP_ERROR"
	EventBackupDeleted  = "BACKUP_DELETED"
	EventRestoreStart   = "RESTORE_START"
	EventRestoreSuccess = "RESTORE_SUCCESS"
	EventRestoreError   = "RESTORE_ERROR"
)

// Event types emitted by other subsystems that share the same store. The
// severity mapping below needs to know about them even though nothing in
// this module emits them.
const (
	EventLoginSuccess      = "LOGIN_SUCCESS"
	EventLoginFailed       = "LOGIN_FAILED"
	EventLoginError        = "LOGIN_ERROR"
	EventCreated           = "EVENT_CREATED"
	EventCreateError       = "EVENT_CREATE_ERROR"
	EventMessageSent       = "MESSAGE_SENT"
	EventMessageSendError  = "MESSAGE_SEND_ERROR"
	EventRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// SystemUser attributes events not triggered by a particular user.
const SystemUser = "system"

// ErrStoreUnavailable indicates the audit store is unreachable or its schema
// has not been migrated yet.
var ErrStoreUnavailable = errors.New("audit store unavailable")

// Entry is a single append-only audit record. Entries are never mutated;
// they are only removed by the explicit cleanup horizon.
type Entry struct {
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ActorOrSystem normalizes an absent actor to the system user.
func ActorOrSystem(userID string) string {
	if userID == "" {
		return SystemUser
	}

	return userID
}

// Recorder is an append-only sink for audit entries.
type Recorder interface {
	Append(ctx context.Context, eventType, description, userID string) error
}

// Filter restricts audit store queries. Zero-valued fields do not constrain
// the result. Results are always ordered most-recent-first.
type Filter struct {
	// Day matches entries recorded on this calendar day.
	Day time.Time

	// Since matches entries recorded at or after this instant.
	Since time.Time

	// StartDate/EndDate match entries within an inclusive calendar-day range.
	StartDate time.Time
	EndDate   time.Time

	EventTypes []string
	UserID     string
	Limit      int
}

// Stats holds read-only aggregate counts for dashboard consumption.
type Stats struct {
	TotalUsers         int64 `json:"total_users"`
	TotalEvents        int64 `json:"total_events"`
	TotalMessages      int64 `json:"total_messages"`
	SecurityEventsWeek int64 `json:"security_events_week"`
}

// Store is the query surface over the audit log.
type Store interface {
	Recorder

	Query(ctx context.Context, f Filter) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

type nopRecorder struct{}

func (nopRecorder) Append(ctx context.Context, eventType, description, userID string) error {
	return nil
}

// NopRecorder returns a Recorder that discards all entries.
func NopRecorder() Recorder {
	return nopRecorder{}
}
