package pipe

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAppendsNewlineTerminatedRecord(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(outPath, nil, 0o644))

	ch := New(filepath.Join(dir, "in"), outPath)
	require.NoError(t, ch.Write("endTask 1 0"))
	require.NoError(t, ch.Write("PONG"))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{"endTask 1 0", "PONG"}, lines)
}

func TestReadCommandReturnsLine(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, []byte("PING\n"), 0o644))

	ch := New(inPath, filepath.Join(dir, "out"))
	line, err := ch.ReadCommand(5 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "PING", line)
}

func TestReadCommandEmptyOnEOF(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, nil, 0o644))

	ch := New(inPath, filepath.Join(dir, "out"))
	line, err := ch.ReadCommand(5 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "", line)
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, []byte("QUIT\n"), 0o644))

	ch := New(inPath, filepath.Join(dir, "out"))
	_, err := ch.ReadCommand(time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
}

func TestReadAfterCloseErrors(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, nil, 0o644))

	ch := New(inPath, filepath.Join(dir, "out"))
	require.NoError(t, ch.Close())
	_, err := ch.ReadCommand(time.Millisecond)
	assert.Error(t, err)
}
