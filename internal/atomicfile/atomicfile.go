// Package atomicfile provides helpers for atomically writing and replacing files on disk.
package atomicfile

import (
	"io"

	"github.com/natefinch/atomic"
)

// Write atomically writes the contents of the given reader to the named file.
// The destination is either fully replaced or left untouched.
func Write(filename string, r io.Reader) error {
	return atomic.WriteFile(filename, r)
}

// Replace atomically replaces dst with the file at src.
func Replace(src, dst string) error {
	return atomic.ReplaceFile(src, dst)
}
