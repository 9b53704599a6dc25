package backup

import "github.com/pkg/errors"

// Closed set of error kinds callers can match with errors.Is.
var (
	// ErrNotFound indicates the archive targeted by a restore or delete does not exist.
	ErrNotFound = errors.New("backup not found")

	// ErrArchiveFormat indicates an archive's metadata member is missing or corrupt.
	// List handles this leniently by substituting an empty metadata record.
	ErrArchiveFormat = errors.New("invalid archive format")
)
