// Package backup implements creation, listing, restoration and retirement
// of versioned database archives.
//
// Every archive is a ZIP file bundling a point-in-time snapshot of the live
// database, a fixed set of configuration files and the rotated log files
// present at backup time, plus a metadata member describing the archive
// itself. Every operation is mirrored into the audit log, including
// failures.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chapelhq/vestry/auditlog"
	"github.com/chapelhq/vestry/internal/clock"
	"github.com/chapelhq/vestry/logging"
)

var log = logging.Module("vestry/backup")

// DefaultMaxBackups caps how many archives are kept when Options.MaxBackups is unset.
const DefaultMaxBackups = 10

// DatabaseSource locates the live database and produces point-in-time
// copies of it.
type DatabaseSource interface {
	// Path returns the live database file location.
	Path() string

	// Snapshot writes a point-in-time copy of the live database to dest.
	Snapshot(ctx context.Context, dest string) error
}

// Options configures a Manager. All state is injected; there is no
// package-level default manager.
type Options struct {
	// BackupDir is the directory holding archives. Created if absent.
	BackupDir string

	// Database is the live database collaborator.
	Database DatabaseSource

	// ConfigFiles is the fixed list of configuration files bundled into
	// every archive, each preserved at its original relative path.
	ConfigFiles []string

	// LogDir holds rotated *.log files bundled into every archive.
	LogDir string

	// MaxBackups caps the number of archives kept on disk.
	MaxBackups int

	// Audit receives one entry for every attempt, success and failure.
	Audit auditlog.Recorder
}

// Manager produces, enumerates, restores and retires backup archives.
//
// All archive-directory mutations are serialized behind a mutex and a file
// lock, so concurrent creates cannot race retention cleanup.
type Manager struct {
	opts Options

	mu sync.Mutex
}

// NewManager returns a Manager operating on the given options.
func NewManager(opts Options) (*Manager, error) {
	if opts.BackupDir == "" {
		return nil, errors.New("backup directory is required")
	}

	if opts.Database == nil {
		return nil, errors.New("database source is required")
	}

	if opts.MaxBackups <= 0 {
		opts.MaxBackups = DefaultMaxBackups
	}

	if opts.Audit == nil {
		opts.Audit = auditlog.NopRecorder()
	}

	if err := os.MkdirAll(opts.BackupDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create backup directory")
	}

	return &Manager{opts: opts}, nil
}

// CreateResult describes a successfully created archive.
type CreateResult struct {
	Path string
	Name string
	Size int64
}

// CreateBackup bundles the live database, configuration files and rotated
// logs into a new archive, then enforces the retention cap. The attempt and
// its outcome are both recorded in the audit log.
func (m *Manager) CreateBackup(ctx context.Context, kind Kind, actor string) (*CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createBackupLocked(ctx, kind, actor, "")
}

// createBackupLocked writes a new archive and enforces retention. keepPath,
// when non-empty, names an archive the retention pass must not retire, such
// as the one an in-progress restore is about to read.
func (m *Manager) createBackupLocked(ctx context.Context, kind Kind, actor, keepPath string) (*CreateResult, error) {
	m.audit(ctx, auditlog.EventBackupStart, fmt.Sprintf("Starting %v backup", kind), actor)

	dirLock, err := m.lockDir()
	if err != nil {
		metricBackupErrors.Inc()
		m.audit(ctx, auditlog.EventBackupError, fmt.Sprintf("Backup failed: %v", err), actor)

		return nil, err
	}
	defer dirLock.Unlock() //nolint:errcheck

	res, err := m.writeArchive(ctx, kind, actor)
	if err != nil {
		metricBackupErrors.Inc()
		m.audit(ctx, auditlog.EventBackupError, fmt.Sprintf("Backup failed: %v", err), actor)

		return nil, err
	}

	if err := m.cleanupOldBackupsLocked(ctx, keepPath); err != nil {
		log(ctx).Warnf("retention cleanup: %v", err)
	}

	metricBackupsCreated.Inc()
	m.audit(ctx, auditlog.EventBackupSuccess, fmt.Sprintf("Backup created successfully: %v", res.Name), actor)
	log(ctx).Infof("created archive %v (%v bytes)", res.Name, res.Size)

	return res, nil
}

func (m *Manager) writeArchive(ctx context.Context, kind Kind, actor string) (*CreateResult, error) {
	now := clock.Now()
	name := archiveName(kind, now)
	path := filepath.Join(m.opts.BackupDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create archive file")
	}

	zw := zip.NewWriter(f)

	dataMembers, err := m.addDataMembers(ctx, zw)
	if err != nil {
		zw.Close()      //nolint:errcheck
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck

		return nil, err
	}

	md := Metadata{
		ID:         uuid.NewString(),
		BackupType: string(kind),
		Timestamp:  now.Format(timestampFormat),
		CreatedBy:  auditlog.ActorOrSystem(actor),
		Version:    metadataVersion,
		FilesCount: dataMembers,
	}

	if err := writeMetadataMember(zw, md); err != nil {
		zw.Close()      //nolint:errcheck
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck

		return nil, err
	}

	if err := zw.Close(); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck

		return nil, errors.Wrap(err, "finalize archive")
	}

	if err := f.Close(); err != nil {
		os.Remove(path) //nolint:errcheck

		return nil, errors.Wrap(err, "close archive file")
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat archive")
	}

	return &CreateResult{Path: path, Name: name, Size: fi.Size()}, nil
}

// addDataMembers writes the database snapshot, configuration files and
// rotated logs into the archive and returns how many members were added.
func (m *Manager) addDataMembers(ctx context.Context, zw *zip.Writer) (int, error) {
	count := 0

	added, err := m.addDatabaseMember(ctx, zw)
	if err != nil {
		return 0, err
	}

	if added {
		count++
	}

	for _, cf := range m.opts.ConfigFiles {
		if _, err := os.Stat(cf); err != nil {
			log(ctx).Debugf("configuration file %v not present, skipping", cf)
			continue
		}

		if err := addFileMember(zw, cf, filepath.ToSlash(cf)); err != nil {
			return 0, err
		}

		count++
	}

	if m.opts.LogDir != "" {
		matches, err := filepath.Glob(filepath.Join(m.opts.LogDir, "*.log"))
		if err != nil {
			return 0, errors.Wrap(err, "list rotated log files")
		}

		for _, lf := range matches {
			if err := addFileMember(zw, lf, logMemberDir+"/"+filepath.Base(lf)); err != nil {
				return 0, err
			}

			count++
		}
	}

	return count, nil
}

func (m *Manager) addDatabaseMember(ctx context.Context, zw *zip.Writer) (bool, error) {
	livePath := m.opts.Database.Path()
	if _, err := os.Stat(livePath); os.IsNotExist(err) {
		log(ctx).Warnf("live database %v not present, archive will not contain a database snapshot", livePath)
		return false, nil
	}

	tmp, err := os.CreateTemp(m.opts.BackupDir, "db-snapshot-*")
	if err != nil {
		return false, errors.Wrap(err, "create snapshot staging file")
	}

	tmpPath := tmp.Name()
	tmp.Close() //nolint:errcheck

	defer os.Remove(tmpPath) //nolint:errcheck

	if err := m.opts.Database.Snapshot(ctx, tmpPath); err != nil {
		return false, errors.Wrap(err, "snapshot live database")
	}

	if err := addFileMember(zw, tmpPath, databaseMember); err != nil {
		return false, err
	}

	return true, nil
}

func writeMetadataMember(zw *zip.Writer, md Metadata) error {
	w, err := zw.Create(metadataMember)
	if err != nil {
		return errors.Wrap(err, "create metadata member")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return errors.Wrap(enc.Encode(md), "encode metadata member")
}

// cleanupOldBackupsLocked deletes every archive beyond the retention cap,
// oldest first. The archive named by keepPath is never retired.
func (m *Manager) cleanupOldBackupsLocked(ctx context.Context, keepPath string) error {
	archives, err := m.listLocked(ctx)
	if err != nil {
		return err
	}

	if len(archives) <= m.opts.MaxBackups {
		return nil
	}

	for _, a := range archives[m.opts.MaxBackups:] {
		if keepPath != "" && filepath.Clean(a.Path) == filepath.Clean(keepPath) {
			continue
		}

		if err := os.Remove(a.Path); err != nil {
			log(ctx).Warnf("unable to remove expired archive %v: %v", a.Name, err)
			continue
		}

		metricRetentionDeletes.Inc()
		log(ctx).Debugf("removed expired archive %v", a.Name)
	}

	return nil
}

// Delete removes the archive at the given path.
func (m *Manager) Delete(ctx context.Context, archivePath, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "archive %v", archivePath)
		}

		return errors.Wrap(err, "stat archive")
	}

	if err := os.Remove(archivePath); err != nil {
		return errors.Wrap(err, "remove archive")
	}

	m.audit(ctx, auditlog.EventBackupDeleted, fmt.Sprintf("Backup deleted: %v", archivePath), actor)
	log(ctx).Infof("deleted archive %v", archivePath)

	return nil
}

// audit records an entry, logging (but not failing) when the store rejects it.
func (m *Manager) audit(ctx context.Context, eventType, description, actor string) {
	if err := m.opts.Audit.Append(ctx, eventType, description, auditlog.ActorOrSystem(actor)); err != nil {
		log(ctx).Warnf("unable to record audit event %v: %v", eventType, err)
	}
}

// lockDir acquires the cross-process lock guarding the backup directory.
func (m *Manager) lockDir() (*flock.Flock, error) {
	l := flock.New(filepath.Join(m.opts.BackupDir, ".vestry.lock"))

	if err := l.Lock(); err != nil {
		return nil, errors.Wrap(err, "lock backup directory")
	}

	return l, nil
}
