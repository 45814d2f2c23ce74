package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMB(t *testing.T) {
	assert.Equal(t, "2.50 MB", formatMB(2.5))
	assert.Equal(t, "1.00 MB", formatMB(1.0))
	assert.Equal(t, "512.00 KB", formatMB(0.5))
	assert.Equal(t, "0.00 KB", formatMB(0))
}

func TestDateOf(t *testing.T) {
	assert.Equal(t, "2026-02-11", dateOf("2026-02-11T12:00:00Z"))
	assert.Equal(t, "short", dateOf("short"))
	assert.Equal(t, "", dateOf(""))
}

func TestViewStatsCommandMissingLog(t *testing.T) {
	cmd := ViewStatsCommand()
	err := cmd.Run(context.Background(), []string{"view-stats", "--log-file", filepath.Join(t.TempDir(), "absent.json")})
	assert.NoError(t, err, "a missing log is a normal outcome")
}
