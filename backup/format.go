package backup

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind classifies what triggered a backup.
type Kind string

// Supported backup kinds.
const (
	KindManual     Kind = "manual"
	KindScheduled  Kind = "scheduled"
	KindEmergency  Kind = "emergency"
	KindAutomatic  Kind = "automatic"
	KindPreRestore Kind = "pre_restore"
)

// Archive member names and naming constants.
const (
	archivePrefix  = "backup_"
	archiveSuffix  = ".zip"
	metadataMember = "backup_metadata.json"
	databaseMember = "database.db"
	logMemberDir   = "logs"

	sidecarSuffix = ".backup"

	// metadataVersion is the schema version stamped into archive metadata.
	metadataVersion = "1.0"

	timestampFormat = "20060102_150405"
)

// Metadata is the self-describing record embedded in every archive.
// FilesCount counts the data members present when the record is computed;
// the metadata member itself is excluded.
type Metadata struct {
	ID         string `json:"id"`
	BackupType string `json:"backup_type"`
	Timestamp  string `json:"timestamp"`
	CreatedBy  string `json:"created_by"`
	Version    string `json:"version"`
	FilesCount int    `json:"files_count"`
}

// archiveName builds the canonical archive file name for a kind and creation time.
func archiveName(kind Kind, ts time.Time) string {
	return archivePrefix + string(kind) + "_" + ts.Format(timestampFormat) + archiveSuffix
}

// parseArchiveName extracts kind and timestamp from an archive file name.
// Kinds may themselves contain underscores (pre_restore), so the timestamp
// is taken from the last two underscore-separated segments.
func parseArchiveName(name string) (Kind, string, bool) {
	base := strings.TrimSuffix(name, archiveSuffix)
	if base == name || !strings.HasPrefix(base, archivePrefix) {
		return "", "", false
	}

	parts := strings.Split(base[len(archivePrefix):], "_")
	if len(parts) < 3 {
		return "", "", false
	}

	ts := parts[len(parts)-2] + "_" + parts[len(parts)-1]
	kind := strings.Join(parts[:len(parts)-2], "_")

	if _, err := time.Parse(timestampFormat, ts); err != nil || kind == "" {
		return "", "", false
	}

	return Kind(kind), ts, true
}

// readMetadata reads the embedded metadata record from the archive at path.
// A missing or corrupt metadata member yields ErrArchiveFormat.
func readMetadata(path string) (Metadata, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "open archive")
	}
	defer zr.Close() //nolint:errcheck

	return readMetadataFromReader(&zr.Reader)
}

func readMetadataFromReader(zr *zip.Reader) (Metadata, error) {
	f := findMember(zr, metadataMember)
	if f == nil {
		return Metadata{}, errors.Wrap(ErrArchiveFormat, "missing metadata member")
	}

	rc, err := f.Open()
	if err != nil {
		return Metadata{}, errors.Wrap(err, "open metadata member")
	}
	defer rc.Close() //nolint:errcheck

	var md Metadata

	if err := json.NewDecoder(rc).Decode(&md); err != nil {
		return Metadata{}, errors.Wrapf(ErrArchiveFormat, "corrupt metadata member: %v", err)
	}

	return md, nil
}

func findMember(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func addFileMember(zw *zip.Writer, srcPath, memberName string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return errors.Wrapf(err, "open %v", srcPath)
	}
	defer f.Close() //nolint:errcheck

	w, err := zw.Create(memberName)
	if err != nil {
		return errors.Wrapf(err, "create archive member %v", memberName)
	}

	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "write archive member %v", memberName)
	}

	return nil
}
