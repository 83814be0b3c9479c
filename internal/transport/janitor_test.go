package transport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestJanitorSweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	touch(t, filepath.Join(dir, "stale"), old)
	touch(t, filepath.Join(dir, "stale.info"), old)
	touch(t, filepath.Join(dir, "active"), now)
	touch(t, filepath.Join(dir, "active.info"), old)
	touch(t, filepath.Join(dir, "orphan.info"), old)

	j := NewJanitor(dir, 24*time.Hour)
	removed, err := j.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.NoFileExists(t, filepath.Join(dir, "stale"))
	assert.NoFileExists(t, filepath.Join(dir, "stale.info"))
	assert.NoFileExists(t, filepath.Join(dir, "orphan.info"))
	assert.FileExists(t, filepath.Join(dir, "active"))
	assert.FileExists(t, filepath.Join(dir, "active.info"))
}

func TestJanitorMissingDir(t *testing.T) {
	j := NewJanitor(filepath.Join(t.TempDir(), "absent"), time.Hour)
	removed, err := j.Sweep(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestJanitorStartRejectsBadSpec(t *testing.T) {
	j := NewJanitor(t.TempDir(), time.Hour)
	assert.Error(t, j.Start("not a spec"))
}
