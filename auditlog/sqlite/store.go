// Package sqlite provides a SQLite-backed audit log store.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/chapelhq/vestry/auditlog"
	"github.com/chapelhq/vestry/internal/clock"
)

// timeFormat is fixed-width so stored strings sort lexicographically in
// timestamp order even within the same second.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS security_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	description TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT 'system',
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_logs_timestamp ON security_logs (timestamp);
CREATE INDEX IF NOT EXISTS idx_security_logs_event_type ON security_logs (event_type);
`

// Store is a SQLite-backed implementation of auditlog.Store. It also
// doubles as the live-database collaborator for the backup manager: it
// knows its own path and can produce online snapshots.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) a SQLite database at the given path
// and ensures the security_logs schema is present.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}

	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "ping sqlite database")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "ensure security_logs schema")
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "close sqlite database")
}

// Path returns the file-system location of the live database.
func (s *Store) Path() string {
	return s.path
}

// Append records one audit entry. An empty user is attributed to the system.
func (s *Store) Append(ctx context.Context, eventType, description, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO security_logs (event_type, description, user_id, timestamp) VALUES (?, ?, ?, ?)`,
		eventType, description, auditlog.ActorOrSystem(userID), clock.Now().UTC().Format(timeFormat))

	return classify(err, "append audit entry")
}

// Query returns entries matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, f auditlog.Filter) ([]auditlog.Entry, error) {
	q := `SELECT event_type, description, user_id, timestamp FROM security_logs`

	var (
		conds []string
		args  []interface{}
	)

	if !f.Day.IsZero() {
		conds = append(conds, `date(timestamp) = ?`)
		args = append(args, f.Day.Format("2006-01-02"))
	}

	if !f.Since.IsZero() {
		conds = append(conds, `timestamp >= ?`)
		args = append(args, f.Since.UTC().Format(timeFormat))
	}

	if !f.StartDate.IsZero() && !f.EndDate.IsZero() {
		conds = append(conds, `date(timestamp) BETWEEN ? AND ?`)
		args = append(args, f.StartDate.Format("2006-01-02"), f.EndDate.Format("2006-01-02"))
	}

	if len(f.EventTypes) > 0 {
		placeholders := strings.Repeat("?,", len(f.EventTypes))
		conds = append(conds, `event_type IN (`+placeholders[:len(placeholders)-1]+`)`)

		for _, et := range f.EventTypes {
			args = append(args, et)
		}
	}

	if f.UserID != "" {
		conds = append(conds, `user_id = ?`)
		args = append(args, f.UserID)
	}

	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	q += ` ORDER BY timestamp DESC`

	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err, "query audit entries")
	}
	defer rows.Close() //nolint:errcheck

	var entries []auditlog.Entry

	for rows.Next() {
		var (
			e  auditlog.Entry
			ts string
		)

		if err := rows.Scan(&e.EventType, &e.Description, &e.UserID, &ts); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}

		e.Timestamp = parseTimestamp(ts)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate audit entries")
	}

	return entries, nil
}

// DeleteOlderThan removes entries recorded before the cutoff and returns
// the number of rows deleted.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM security_logs WHERE timestamp < ?`, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, classify(err, "delete old audit entries")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "count deleted audit entries")
	}

	return n, nil
}

// Stats returns aggregate counts over the application tables sharing this
// database. Each count tolerates its table being absent and reports zero.
func (s *Store) Stats(ctx context.Context) (auditlog.Stats, error) {
	st := auditlog.Stats{
		TotalUsers:    s.countTable(ctx, "users"),
		TotalEvents:   s.countTable(ctx, "events"),
		TotalMessages: s.countTable(ctx, "messages"),
	}

	weekAgo := clock.Now().UTC().Add(-7 * 24 * time.Hour)

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM security_logs WHERE timestamp >= ?`, weekAgo.Format(timeFormat))
	if err := row.Scan(&st.SecurityEventsWeek); err != nil {
		st.SecurityEventsWeek = 0
	}

	return st, nil
}

// SnapshotTo writes a consistent point-in-time copy of the database to dest
// using SQLite's native VACUUM INTO, which is safe against concurrent
// writers unlike a raw file copy.
func (s *Store) SnapshotTo(ctx context.Context, dest string) error {
	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove stale snapshot")
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return errors.Wrap(err, "vacuum into snapshot")
	}

	return nil
}

// Snapshot implements the backup manager's database source contract.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	return s.SnapshotTo(ctx, dest)
}

func (s *Store) countTable(ctx context.Context, table string) int64 {
	var n int64

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table) //nolint:gosec
	if err := row.Scan(&n); err != nil {
		return 0
	}

	return n
}

func parseTimestamp(ts string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t
	}

	// tolerate entries written by older tooling
	t, _ := time.Parse("2006-01-02 15:04:05", ts) //nolint:errcheck
	return t
}

// classify maps driver errors that mean "the store is not usable" to
// auditlog.ErrStoreUnavailable so callers can fail open explicitly.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}

	if isUnavailable(err) {
		return errors.Wrapf(auditlog.ErrStoreUnavailable, "%v: %v", msg, err)
	}

	return errors.Wrap(err, msg)
}

func isUnavailable(err error) bool {
	s := err.Error()

	return strings.Contains(s, "no such table") ||
		strings.Contains(s, "database is closed") ||
		strings.Contains(s, "unable to open database")
}

var _ auditlog.Store = (*Store)(nil)
