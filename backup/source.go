package backup

import "context"

// FileSource is a DatabaseSource over a plain file, snapshotted by byte
// copy. It is only safe when writers are quiesced; prefer the SQLite
// store's native snapshot for a live database.
type FileSource string

// Path implements DatabaseSource.
func (s FileSource) Path() string {
	return string(s)
}

// Snapshot implements DatabaseSource.
func (s FileSource) Snapshot(ctx context.Context, dest string) error {
	return copyFile(string(s), dest)
}
