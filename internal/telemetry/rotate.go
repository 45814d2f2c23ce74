package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultKeepDays is the retention window applied when rotation is invoked
// without one.
const DefaultKeepDays = 30

// Rotate archives the live log and trims it to the retention window. The
// archive is a byte-for-byte copy written BEFORE the live file is touched,
// so a crash mid-rotation can lose the trim but never the data. Returns the
// number of entries dropped from the live log.
//
// A missing log file rotates to nothing: (0, nil).
func (t *Tracker) Rotate(keepDays int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read log %s: %w", t.path, err)
	}

	// Copy first, filter second. Never filter in place.
	archive := t.archivePath(t.now())
	if err := os.WriteFile(archive, data, 0o644); err != nil {
		return 0, fmt.Errorf("write archive %s: %w", archive, err)
	}

	entries, err := t.readLocked()
	if err != nil {
		return 0, err
	}

	// Entries carry RFC3339 UTC timestamps, so the retention comparison can
	// stay lexicographic.
	cutoff := t.now().UTC().Add(-time.Duration(keepDays) * 24 * time.Hour).Format(time.RFC3339)
	recent := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp >= cutoff {
			recent = append(recent, e)
		}
	}

	if err := t.writeLocked(recent); err != nil {
		return 0, err
	}
	return len(entries) - len(recent), nil
}

// archivePath derives the timestamped archive name next to the live log,
// e.g. insights_size_log_20260826_153000.json.
func (t *Tracker) archivePath(now time.Time) string {
	dir := filepath.Dir(t.path)
	base := filepath.Base(t.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".json"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405"), ext))
}
