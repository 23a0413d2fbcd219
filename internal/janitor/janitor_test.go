package janitor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("webm"), 0o600))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestJanitor_Sweep(t *testing.T) {
	dir := t.TempDir()
	stale := writeAged(t, dir, "a.webm", 2*time.Hour)
	fresh := writeAged(t, dir, "b.webm", time.Minute)
	other := writeAged(t, dir, "notes.txt", 2*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.webm"), 0o755))

	j := New(dir, 30*time.Minute, testLogger())
	removed, err := j.Sweep()

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
	assert.DirExists(t, filepath.Join(dir, "old.webm"))
}

func TestJanitor_SweepMissingDir(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "missing"), time.Minute, testLogger())

	removed, err := j.Sweep()

	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestJanitor_SweepUsesClock(t *testing.T) {
	dir := t.TempDir()
	path := writeAged(t, dir, "a.webm", 0)

	j := New(dir, time.Hour, testLogger())
	j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	removed, err := j.Sweep()

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, path)
}

func TestJanitor_StartSweepsImmediately(t *testing.T) {
	dir := t.TempDir()
	stale := writeAged(t, dir, "a.webm", 2*time.Hour)

	j := New(dir, 30*time.Minute, testLogger())
	require.NoError(t, j.Start(time.Hour))
	defer j.Stop()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestJanitor_StartRejectsZeroInterval(t *testing.T) {
	j := New(t.TempDir(), time.Minute, testLogger())

	assert.Error(t, j.Start(0))
	j.Stop()
}
