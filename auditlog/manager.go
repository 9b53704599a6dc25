package auditlog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/chapelhq/vestry/internal/clock"
	"github.com/chapelhq/vestry/logging"
)

var log = logging.Module("vestry/auditlog")

// Retention horizons. The audit trail is a compliance artifact retained
// longer than raw operational log files.
const (
	auditRetention   = 90 * 24 * time.Hour
	logFileRetention = 30 * 24 * time.Hour
)

const (
	defaultQueryLimit     = 100
	defaultSecurityDays   = 7
	securityLogsHardCap   = 1000
	exportTimestampLayout = "20060102_150405"
)

// Manager answers filtered queries over the audit store, exports log
// ranges to files and prunes old entries.
type Manager struct {
	store  Store
	logDir string
}

// NewManager returns a Manager reading from the given store. logDir is the
// directory holding rotated log files and receiving exports.
func NewManager(store Store, logDir string) *Manager {
	return &Manager{store: store, logDir: logDir}
}

// LogEntry is a severity-mapped view of one audit record.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// GetLogs returns audit entries for the given day and severity, capped at
// limit and ordered most-recent-first. When the store is unavailable it
// fails open: a fixed set of illustrative sample entries is returned and
// degraded is true so callers can warn instead of masking the outage.
func (m *Manager) GetLogs(ctx context.Context, day time.Time, level Level, limit int) (entries []LogEntry, degraded bool, err error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	f := Filter{
		Day:        day,
		EventTypes: EventTypesForLevel(level),
		Limit:      limit,
	}

	raw, err := m.store.Query(ctx, f)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			log(ctx).Warnf("audit store unavailable, returning sample entries: %v", err)
			return sampleLogs(level, limit), true, nil
		}

		return nil, false, errors.Wrap(err, "query audit store")
	}

	for _, e := range raw {
		entries = append(entries, LogEntry{
			Timestamp: e.Timestamp,
			Level:     LevelForEventType(e.EventType),
			Message:   e.Description,
		})
	}

	return entries, false, nil
}

// GetSecurityLogs is a raw, unmapped filter over the audit store. days
// defaults to 7; results are capped at 1000 rows.
func (m *Manager) GetSecurityLogs(ctx context.Context, days int, eventType, userID string) ([]Entry, error) {
	if days <= 0 {
		days = defaultSecurityDays
	}

	f := Filter{
		Since:  clock.Now().Add(-time.Duration(days) * 24 * time.Hour),
		UserID: userID,
		Limit:  securityLogsHardCap,
	}

	if eventType != "" {
		f.EventTypes = []string{eventType}
	}

	entries, err := m.store.Query(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "query security logs")
	}

	return entries, nil
}

// ExportResult describes a completed log export.
type ExportResult struct {
	FilePath     string
	RecordsCount int
}

type exportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type exportDocument struct {
	ExportDate   time.Time    `json:"export_date"`
	Period       exportPeriod `json:"period"`
	TotalRecords int          `json:"total_records"`
	Logs         []Entry      `json:"logs"`
}

// ExportLogs writes all audit entries within the inclusive date range
// (optionally restricted to a set of event types) to a single JSON document
// in the log directory, named with the export's own generation timestamp.
func (m *Manager) ExportLogs(ctx context.Context, startDate, endDate time.Time, eventTypes []string) (*ExportResult, error) {
	entries, err := m.store.Query(ctx, Filter{
		StartDate:  startDate,
		EndDate:    endDate,
		EventTypes: eventTypes,
	})
	if err != nil {
		return nil, errors.Wrap(err, "query export range")
	}

	if entries == nil {
		entries = []Entry{}
	}

	doc := exportDocument{
		ExportDate:   clock.Now(),
		Period:       exportPeriod{Start: startDate.Format("2006-01-02"), End: endDate.Format("2006-01-02")},
		TotalRecords: len(entries),
		Logs:         entries,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal export document")
	}

	if m.logDir != "" {
		if err := os.MkdirAll(m.logDir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
	}

	exportPath := filepath.Join(m.logDir, "logs_export_"+clock.Now().Format(exportTimestampLayout)+".json")
	if err := os.WriteFile(exportPath, data, 0o600); err != nil {
		return nil, errors.Wrap(err, "write export file")
	}

	log(ctx).Infof("exported %v audit entries to %v", len(entries), exportPath)

	return &ExportResult{FilePath: exportPath, RecordsCount: len(entries)}, nil
}

// CleanupOldLogs deletes audit entries older than 90 days and rotated log
// files older than 30 days. The two horizons are independent.
func (m *Manager) CleanupOldLogs(ctx context.Context) error {
	deleted, err := m.store.DeleteOlderThan(ctx, clock.Now().Add(-auditRetention))
	if err != nil {
		return errors.Wrap(err, "delete old audit entries")
	}

	log(ctx).Infof("deleted %v audit entries past the retention horizon", deleted)

	cutoff := clock.Now().Add(-logFileRetention)

	matches, err := filepath.Glob(filepath.Join(m.logDir, "*.log"))
	if err != nil {
		return errors.Wrap(err, "list rotated log files")
	}

	for _, lf := range matches {
		fi, err := os.Stat(lf)
		if err != nil || !fi.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(lf); err != nil {
			log(ctx).Warnf("unable to remove old log file %v: %v", lf, err)
		}
	}

	return nil
}

// SystemStats returns aggregate counts for dashboard consumption. Each
// count is independently tolerant of query failure and defaults to zero.
func (m *Manager) SystemStats(ctx context.Context) Stats {
	st, err := m.store.Stats(ctx)
	if err != nil {
		log(ctx).Warnf("unable to compute system stats: %v", err)
		return Stats{}
	}

	return st
}

// sampleLogs is the fail-open dataset returned when the audit store cannot
// be queried.
func sampleLogs(level Level, limit int) []LogEntry {
	now := clock.Now()

	all := []LogEntry{
		{now.Add(-5 * time.Minute), LevelInfo, "User admin logged in"},
		{now.Add(-10 * time.Minute), LevelInfo, "Event 'Sunday Service' created"},
		{now.Add(-15 * time.Minute), LevelWarning, "Failed login attempt for user 'test'"},
		{now.Add(-20 * time.Minute), LevelInfo, "Automatic backup completed"},
		{now.Add(-25 * time.Minute), LevelError, "Database connection error"},
		{now.Add(-30 * time.Minute), LevelInfo, "System started successfully"},
		{now.Add(-35 * time.Minute), LevelWarning, "System memory at 85%"},
		{now.Add(-40 * time.Minute), LevelInfo, "Backup created automatically"},
	}

	var result []LogEntry

	for _, e := range all {
		if level != "" && level != LevelAll && e.Level != level {
			continue
		}

		result = append(result, e)
		if len(result) >= limit {
			break
		}
	}

	return result
}
