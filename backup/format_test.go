package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseArchiveName(t *testing.T) {
	cases := []struct {
		name     string
		wantKind Kind
		wantTS   string
		wantOK   bool
	}{
		{"backup_manual_20240130_120000.zip", KindManual, "20240130_120000", true},
		{"backup_pre_restore_20240130_120000.zip", KindPreRestore, "20240130_120000", true},
		{"backup_automatic_20231231_235959.zip", KindAutomatic, "20231231_235959", true},
		{"backup_manual.zip", "", "", false},
		{"backup_manual_20240130.zip", "", "", false},
		{"backup_manual_20240130_120000.txt", "", "", false},
		{"snapshot_manual_20240130_120000.zip", "", "", false},
		{"backup_manual_2024x130_120000.zip", "", "", false},
	}

	for _, tc := range cases {
		kind, ts, ok := parseArchiveName(tc.name)
		require.Equal(t, tc.wantOK, ok, tc.name)
		require.Equal(t, tc.wantKind, kind, tc.name)
		require.Equal(t, tc.wantTS, ts, tc.name)
	}
}

func TestArchiveNameRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 30, 12, 0, 0, 0, time.UTC)

	for _, kind := range []Kind{KindManual, KindScheduled, KindEmergency, KindAutomatic, KindPreRestore} {
		name := archiveName(kind, ts)

		gotKind, gotTS, ok := parseArchiveName(name)
		require.True(t, ok, name)
		require.Equal(t, kind, gotKind)
		require.Equal(t, "20240130_120000", gotTS)
	}
}
