package backup_test

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/chapelhq/vestry/auditlog"
	"github.com/chapelhq/vestry/backup"
	"github.com/chapelhq/vestry/internal/clock"
	"github.com/chapelhq/vestry/internal/testutil"
)

// memRecorder captures audit entries appended during a test.
type memRecorder struct {
	mu     sync.Mutex
	events []auditlog.Entry
}

func (r *memRecorder) Append(ctx context.Context, eventType, description, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, auditlog.Entry{
		EventType:   eventType,
		Description: description,
		UserID:      userID,
		Timestamp:   clock.Now(),
	})

	return nil
}

func (r *memRecorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var types []string
	for _, e := range r.events {
		types = append(types, e.EventType)
	}

	return types
}

// stepClock replaces clock.Now with a deterministic clock advancing by step
// on every call, so sequential archives get distinct names.
func stepClock(t *testing.T, step time.Duration) {
	t.Helper()

	old := clock.Now

	var mu sync.Mutex

	cur := time.Date(2024, 1, 30, 12, 0, 0, 0, time.UTC)

	clock.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		cur = cur.Add(step)

		return cur
	}

	t.Cleanup(func() { clock.Now = old })
}

type testEnv struct {
	mgr *backup.Manager
	rec *memRecorder

	dbPath     string
	backupDir  string
	configFile string
}

func newTestEnv(t *testing.T, maxBackups int) *testEnv {
	t.Helper()
	t.Chdir(testutil.TempDirectory(t))
	stepClock(t, 2*time.Second)

	dbPath := "database.db"
	require.NoError(t, os.WriteFile(dbPath, []byte("db-v1"), 0o600))

	require.NoError(t, os.MkdirAll("config", 0o700))
	configFile := filepath.Join("config", "settings.toml")
	require.NoError(t, os.WriteFile(configFile, []byte("theme = dark\n"), 0o600))

	require.NoError(t, os.MkdirAll("logs", 0o700))
	require.NoError(t, os.WriteFile(filepath.Join("logs", "app.log"), []byte("log line\n"), 0o600))

	rec := &memRecorder{}

	mgr, err := backup.NewManager(backup.Options{
		BackupDir:   "backups",
		Database:    backup.FileSource(dbPath),
		ConfigFiles: []string{configFile},
		LogDir:      "logs",
		MaxBackups:  maxBackups,
		Audit:       rec,
	})
	require.NoError(t, err)

	return &testEnv{
		mgr:        mgr,
		rec:        rec,
		dbPath:     dbPath,
		backupDir:  "backups",
		configFile: configFile,
	}
}

func archiveMemberNames(t *testing.T, path string) []string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	return names
}

func archiveMetadata(t *testing.T, path string) backup.Metadata {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)

	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "backup_metadata.json" {
			continue
		}

		rc, err := f.Open()
		require.NoError(t, err)

		defer rc.Close()

		var md backup.Metadata
		require.NoError(t, json.NewDecoder(rc).Decode(&md))

		return md
	}

	t.Fatalf("no metadata member in %v", path)

	return backup.Metadata{}
}

// stripMember rewrites the archive at path without the named member.
func stripMember(t *testing.T, path, member string) {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)

	tmp := path + ".tmp"

	out, err := os.Create(tmp)
	require.NoError(t, err)

	zw := zip.NewWriter(out)

	for _, f := range zr.File {
		if f.Name == member {
			continue
		}

		w, err := zw.Create(f.Name)
		require.NoError(t, err)

		rc, err := f.Open()
		require.NoError(t, err)

		_, err = io.Copy(w, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}

	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	require.NoError(t, zr.Close())
	require.NoError(t, os.Rename(tmp, path))
}

func TestCreateBackup(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "7")
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^backup_manual_\d{8}_\d{6}\.zip$`), res.Name)
	require.Positive(t, res.Size)
	require.FileExists(t, res.Path)

	names := archiveMemberNames(t, res.Path)
	require.ElementsMatch(t, []string{
		"database.db",
		"config/settings.toml",
		"logs/app.log",
		"backup_metadata.json",
	}, names)

	md := archiveMetadata(t, res.Path)
	require.Equal(t, "manual", md.BackupType)
	require.Equal(t, "7", md.CreatedBy)
	require.Equal(t, "1.0", md.Version)

	// the metadata member does not count itself
	require.Equal(t, 3, md.FilesCount)

	_, err = uuid.Parse(md.ID)
	require.NoError(t, err)

	require.Equal(t, []string{auditlog.EventBackupStart, auditlog.EventBackupSuccess}, env.rec.eventTypes())
}

// failingSource is a DatabaseSource whose snapshots always fail.
type failingSource struct {
	path string
}

func (s failingSource) Path() string {
	return s.path
}

func (s failingSource) Snapshot(ctx context.Context, dest string) error {
	return errors.New("disk full")
}

func TestCreateBackupFailure(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	rec := &memRecorder{}

	mgr, err := backup.NewManager(backup.Options{
		BackupDir:  env.backupDir,
		Database:   failingSource{path: env.dbPath},
		MaxBackups: 10,
		Audit:      rec,
	})
	require.NoError(t, err)

	_, err = mgr.CreateBackup(ctx, backup.KindManual, "7")
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")

	// the failed attempt is audited and terminates with an error event
	require.Equal(t, []string{auditlog.EventBackupStart, auditlog.EventBackupError}, rec.eventTypes())

	// no partial archive or staging file is left behind
	leftovers, err := filepath.Glob(filepath.Join(env.backupDir, "backup_*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)

	staging, err := filepath.Glob(filepath.Join(env.backupDir, "db-snapshot-*"))
	require.NoError(t, err)
	require.Empty(t, staging)
}

func TestCreateBackupAttributesSystemActor(t *testing.T) {
	env := newTestEnv(t, 10)

	res, err := env.mgr.CreateBackup(context.Background(), backup.KindAutomatic, "")
	require.NoError(t, err)

	require.Equal(t, auditlog.SystemUser, archiveMetadata(t, res.Path).CreatedBy)
	require.Equal(t, auditlog.SystemUser, env.rec.events[0].UserID)
}

func TestMetadataFilenameConsistency(t *testing.T) {
	env := newTestEnv(t, 10)

	res, err := env.mgr.CreateBackup(context.Background(), backup.KindScheduled, "")
	require.NoError(t, err)

	md := archiveMetadata(t, res.Path)
	require.Equal(t, "backup_"+md.BackupType+"_"+md.Timestamp+".zip", res.Name)
}

func TestRetentionBound(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	var created []string

	for i := 0; i < 5; i++ {
		res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "")
		require.NoError(t, err)

		created = append(created, res.Name)
	}

	infos, err := env.mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)

	// the three newest, most recent first
	require.Equal(t, created[4], infos[0].Name)
	require.Equal(t, created[3], infos[1].Name)
	require.Equal(t, created[2], infos[2].Name)
}

func TestListIdempotence(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := env.mgr.CreateBackup(ctx, backup.KindManual, "")
		require.NoError(t, err)
	}

	first, err := env.mgr.List(ctx)
	require.NoError(t, err)

	second, err := env.mgr.List(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestListToleratesStrippedMetadata(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "")
	require.NoError(t, err)

	stripMember(t, res.Path, "backup_metadata.json")

	infos, err := env.mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	require.Equal(t, backup.Metadata{}, infos[0].Metadata)
	require.Equal(t, backup.KindManual, infos[0].Type)
	require.NotEmpty(t, infos[0].Timestamp)
}

func TestDeleteBackup(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "7")
	require.NoError(t, err)

	require.NoError(t, env.mgr.Delete(ctx, res.Path, "7"))
	require.NoFileExists(t, res.Path)
	require.Contains(t, env.rec.eventTypes(), auditlog.EventBackupDeleted)
}

func TestDeleteMissingBackup(t *testing.T) {
	env := newTestEnv(t, 10)

	err := env.mgr.Delete(context.Background(), filepath.Join(env.backupDir, "backup_manual_20240101_000000.zip"), "")
	require.Error(t, err)
	require.ErrorIs(t, err, backup.ErrNotFound)
}

func TestRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "7")
	require.NoError(t, err)

	// mutate the live database after the backup
	require.NoError(t, os.WriteFile(env.dbPath, []byte("db-v2"), 0o600))

	rres, err := env.mgr.Restore(ctx, res.Path, "7")
	require.NoError(t, err)
	require.True(t, rres.DatabaseRestored)
	require.NotEmpty(t, rres.BackupTimestamp)

	live, err := os.ReadFile(env.dbPath)
	require.NoError(t, err)
	require.Equal(t, "db-v1", string(live))

	// the sidecar preserves the live database as it was just before the swap
	sidecar, err := os.ReadFile(env.dbPath + ".backup")
	require.NoError(t, err)
	require.Equal(t, "db-v2", string(sidecar))

	require.Contains(t, env.rec.eventTypes(), auditlog.EventRestoreStart)
	require.Contains(t, env.rec.eventTypes(), auditlog.EventRestoreSuccess)
}

func TestRestoreTakesPreRestoreSnapshot(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "")
	require.NoError(t, err)

	_, err = env.mgr.Restore(ctx, res.Path, "")
	require.NoError(t, err)

	infos, err := env.mgr.List(ctx)
	require.NoError(t, err)

	var kinds []backup.Kind
	for _, i := range infos {
		kinds = append(kinds, i.Type)
	}

	require.Contains(t, kinds, backup.KindPreRestore)
}

func TestRestoreAtRetentionCapKeepsTargetArchive(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	oldest, err := env.mgr.CreateBackup(ctx, backup.KindManual, "")
	require.NoError(t, err)

	_, err = env.mgr.CreateBackup(ctx, backup.KindManual, "")
	require.NoError(t, err)

	// mutate the live database after the backups
	require.NoError(t, os.WriteFile(env.dbPath, []byte("db-v2"), 0o600))

	// the pre-restore snapshot pushes the directory past the cap; retention
	// must not retire the archive being restored
	rres, err := env.mgr.Restore(ctx, oldest.Path, "")
	require.NoError(t, err)
	require.True(t, rres.DatabaseRestored)
	require.FileExists(t, oldest.Path)

	live, err := os.ReadFile(env.dbPath)
	require.NoError(t, err)
	require.Equal(t, "db-v1", string(live))
}

func TestRestoreArchiveWithoutDatabaseMember(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	res, err := env.mgr.CreateBackup(ctx, backup.KindManual, "")
	require.NoError(t, err)

	stripMember(t, res.Path, "database.db")

	require.NoError(t, os.WriteFile(env.dbPath, []byte("db-v2"), 0o600))

	rres, err := env.mgr.Restore(ctx, res.Path, "")
	require.NoError(t, err)
	require.False(t, rres.DatabaseRestored)

	// live database untouched
	live, err := os.ReadFile(env.dbPath)
	require.NoError(t, err)
	require.Equal(t, "db-v2", string(live))
}

func TestRestoreMissingArchive(t *testing.T) {
	env := newTestEnv(t, 10)

	_, err := env.mgr.Restore(context.Background(), "backups/backup_manual_20240101_000000.zip", "")
	require.Error(t, err)
	require.True(t, errors.Is(err, backup.ErrNotFound))
	require.Contains(t, env.rec.eventTypes(), auditlog.EventRestoreError)
}
