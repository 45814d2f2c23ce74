package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, path string, entries []Entry) []byte {
	t.Helper()
	data, err := json.MarshalIndent(entries, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

func entryAt(ts time.Time, tool string) Entry {
	return Entry{
		ID:        "id-" + ts.Format("20060102150405"),
		Timestamp: ts.UTC().Format(time.RFC3339),
		Tool:      tool,
	}
}

func TestRotateArchivesBeforeTrimming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "insights_size_log.json")

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	old := entryAt(now.AddDate(0, 0, -10), "insights_get_data")
	recent := entryAt(now.AddDate(0, 0, -3), "insights_get_countby")
	original := writeLog(t, path, []Entry{old, recent})

	tracker := NewTracker(path)
	tracker.now = func() time.Time { return now }

	dropped, err := tracker.Rotate(7)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	// The archive is a byte-for-byte copy of the pre-rotation log.
	archive := filepath.Join(dir, "insights_size_log_20260211_120000.json")
	archived, err := os.ReadFile(archive)
	require.NoError(t, err)
	assert.Equal(t, original, archived)

	// The live log keeps only entries inside the retention window.
	live, err := tracker.Entries()
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, recent.ID, live[0].ID)
}

func TestRotateMissingLogIsNoop(t *testing.T) {
	tracker := NewTracker(filepath.Join(t.TempDir(), "absent.json"))

	dropped, err := tracker.Rotate(7)
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)

	// No archive materializes either.
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(tracker.Path()), "absent_*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRotateNothingExpired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json")

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		entryAt(now.AddDate(0, 0, -1), "a"),
		entryAt(now.Add(-time.Hour), "b"),
	}
	writeLog(t, path, entries)

	tracker := NewTracker(path)
	tracker.now = func() time.Time { return now }

	dropped, err := tracker.Rotate(7)
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)

	live, err := tracker.Entries()
	require.NoError(t, err)
	assert.Len(t, live, 2)
}

func TestRotateCorruptLogFailsWithoutClobbering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	tracker := NewTracker(path)
	_, err := tracker.Rotate(7)
	require.Error(t, err)

	// The corrupt live log survives for manual inspection.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}

func TestArchivePathNaming(t *testing.T) {
	tracker := NewTracker("/var/log/insights_size_log.json")
	now := time.Date(2026, 8, 26, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, filepath.FromSlash("/var/log/insights_size_log_20260826_153000.json"), tracker.archivePath(now))
}
