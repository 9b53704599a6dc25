package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/chapelhq/vestry/internal/units"
)

// ArchiveInfo describes one archive on disk.
type ArchiveInfo struct {
	Name       string
	Path       string
	Type       Kind
	Timestamp  string
	Size       int64
	SizeString string
	CreatedAt  time.Time
	Metadata   Metadata
}

// List enumerates archives in the backup directory, newest first. Embedded
// metadata is the authoritative source of type and timestamp when present;
// the filename encoding is the fallback for archives with a stripped or
// corrupt metadata member, which are still listed with an empty metadata
// record.
func (m *Manager) List(ctx context.Context) ([]ArchiveInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.listLocked(ctx)
}

func (m *Manager) listLocked(ctx context.Context) ([]ArchiveInfo, error) {
	matches, err := filepath.Glob(filepath.Join(m.opts.BackupDir, archivePrefix+"*"+archiveSuffix))
	if err != nil {
		return nil, errors.Wrap(err, "list backup directory")
	}

	var infos []ArchiveInfo

	for _, p := range matches {
		name := filepath.Base(p)

		kind, ts, ok := parseArchiveName(name)
		if !ok {
			log(ctx).Debugf("skipping %v: not a recognized archive name", name)
			continue
		}

		fi, err := os.Stat(p)
		if err != nil {
			continue
		}

		info := ArchiveInfo{
			Name:       name,
			Path:       p,
			Type:       kind,
			Timestamp:  ts,
			Size:       fi.Size(),
			SizeString: units.BytesString(fi.Size()),
			CreatedAt:  fi.ModTime(),
		}

		if md, err := readMetadata(p); err == nil {
			info.Metadata = md

			if md.BackupType != "" {
				info.Type = Kind(md.BackupType)
			}

			if md.Timestamp != "" {
				info.Timestamp = md.Timestamp
			}
		} else {
			log(ctx).Debugf("no usable metadata in %v: %v", name, err)
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Timestamp != infos[j].Timestamp {
			return infos[i].Timestamp > infos[j].Timestamp
		}

		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return infos, nil
}
