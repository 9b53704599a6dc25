// Package testutil contains utilities used in tests.
package testutil

import (
	"os"
	"testing"
)

// TempDirectory returns a temporary directory and cleans it up before the test completes.
func TempDirectory(t *testing.T) string {
	t.Helper()

	d, err := os.MkdirTemp("", "vestry-test")
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if !t.Failed() {
			os.RemoveAll(d) //nolint:errcheck
		} else {
			t.Logf("temporary files left in %v", d)
		}
	})

	return d
}
