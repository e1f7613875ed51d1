package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	InitStructured("text", "info")
	snap := TakeSnapshot()

	dir := t.TempDir()
	jr, err := RedirectToJob(filepath.Join(dir, "job.out"), filepath.Join(dir, "job.err"), slog.LevelInfo)
	require.NoError(t, err)

	Op().Info("inside task")
	jr.Close()
	snap.Restore()

	assert.True(t, snap.Equal(TakeSnapshot()))
}

func TestRedirectSplitsByLevel(t *testing.T) {
	InitStructured("text", "info")
	snap := TakeSnapshot()
	defer snap.Restore()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "job.out")
	errPath := filepath.Join(dir, "job.err")
	jr, err := RedirectToJob(outPath, errPath, slog.LevelInfo)
	require.NoError(t, err)
	defer jr.Close()

	Op().Info("an info line")
	Op().Error("an error line")

	outBytes, _ := os.ReadFile(outPath)
	errBytes, _ := os.ReadFile(errPath)

	assert.Contains(t, string(outBytes), "an info line")
	assert.Contains(t, string(outBytes), "an error line")
	assert.NotContains(t, string(errBytes), "an info line")
	assert.Contains(t, string(errBytes), "an error line")
}
