package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/chapelhq/vestry/auditlog"
	"github.com/chapelhq/vestry/internal/atomicfile"
)

// RestoreResult describes a completed restore.
type RestoreResult struct {
	Message string

	// BackupTimestamp is the creation timestamp read from the archive's
	// metadata, when present. Informational only.
	BackupTimestamp string

	// DatabaseRestored is false when the archive contained no database
	// snapshot and the live database was left unchanged.
	DatabaseRestored bool
}

// Restore replaces the live database with the snapshot stored in the
// archive at the given path.
//
// A pre-restore safety backup is always taken first; if it fails the
// restore aborts before any live file is touched. The live database as it
// exists immediately before the swap is additionally copied to a sidecar
// file next to it. Config and log members are not restored.
func (m *Manager) Restore(ctx context.Context, archivePath, actor string) (*RestoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit(ctx, auditlog.EventRestoreStart, fmt.Sprintf("Starting restore from: %v", archivePath), actor)

	res, err := m.restoreLocked(ctx, archivePath, actor)
	if err != nil {
		metricRestoreErrors.Inc()
		m.audit(ctx, auditlog.EventRestoreError, fmt.Sprintf("Restore failed: %v", err), actor)

		return nil, err
	}

	metricRestores.Inc()
	m.audit(ctx, auditlog.EventRestoreSuccess, fmt.Sprintf("Restore completed successfully from: %v", archivePath), actor)

	return res, nil
}

func (m *Manager) restoreLocked(ctx context.Context, archivePath, actor string) (*RestoreResult, error) {
	if _, err := os.Stat(archivePath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "archive %v", archivePath)
		}

		return nil, errors.Wrap(err, "stat archive")
	}

	// safety snapshot before anything else; retention must not retire the
	// archive we are about to read
	if _, err := m.createBackupLocked(ctx, KindPreRestore, actor, archivePath); err != nil {
		return nil, errors.Wrap(err, "pre-restore snapshot")
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	defer zr.Close() //nolint:errcheck

	res := &RestoreResult{}

	if md, err := readMetadataFromReader(&zr.Reader); err == nil {
		res.BackupTimestamp = md.Timestamp
		log(ctx).Infof("restoring backup created at %v", md.Timestamp)
	}

	dbMember := findMember(&zr.Reader, databaseMember)
	if dbMember == nil {
		log(ctx).Warnf("archive %v contains no database snapshot, database left unchanged", filepath.Base(archivePath))

		res.Message = "archive contains no database snapshot; database left unchanged"

		return res, nil
	}

	livePath := m.opts.Database.Path()

	// sidecar copy of the live database exactly as it exists right now
	if _, err := os.Stat(livePath); err == nil {
		if err := copyFile(livePath, livePath+sidecarSuffix); err != nil {
			return nil, errors.Wrap(err, "write sidecar copy")
		}
	}

	if err := extractMemberTo(dbMember, livePath); err != nil {
		return nil, errors.Wrap(err, "extract database snapshot")
	}

	res.DatabaseRestored = true
	res.Message = "backup restored successfully"

	return res, nil
}

// extractMemberTo streams an archive member into dest, replacing it atomically.
func extractMemberTo(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrap(err, "open archive member")
	}
	defer rc.Close() //nolint:errcheck

	return errors.Wrap(atomicfile.Write(dest, rc), "replace destination file")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %v", src)
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "create %v", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck

		return errors.Wrapf(err, "copy to %v", dst)
	}

	return errors.Wrapf(out.Close(), "close %v", dst)
}
