package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) (*LocalSource, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("alpha"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "sub", "b.md"), []byte("beta"), 0o644))
	return NewLocalSource(root), root
}

func TestNormalizeRelPath(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"/":              "",
		".":              "",
		"./docs":         "docs",
		"docs\\sub":      "docs/sub",
		"/docs/../x":     "x",
		"../../etc/pass": "etc/pass",
		" docs/ ":        "docs",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRelPath(in), "input %q", in)
	}
}

func TestResolveStaysUnderRoot(t *testing.T) {
	src, root := newTree(t)

	abs, err := src.Resolve("../../docs/a.txt")
	require.NoError(t, err)
	rootAbs, _ := filepath.Abs(root)
	assert.True(t, strings.HasPrefix(abs, rootAbs))

	_, err = src.Resolve("docs/\x00a.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	src, root := newTree(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), 0o600))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := src.Resolve("link/secret")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestStatAndOpen(t *testing.T) {
	src, _ := newTree(t)
	ctx := context.Background()

	info, err := src.Stat(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.False(t, info.IsDir)
	assert.Equal(t, "a.txt", info.Name)

	dir, err := src.Stat(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, dir.IsDir)

	_, err = src.Stat(ctx, "docs/missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	rc, _, err := src.Open(ctx, "docs/a.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	_, _, err = src.Open(ctx, "docs")
	assert.Error(t, err)
}

func TestWalkVisitsRegularFiles(t *testing.T) {
	src, root := newTree(t)
	_ = os.Symlink(filepath.Join(root, "docs", "a.txt"), filepath.Join(root, "docs", "alias"))

	var seen []string
	err := src.Walk(context.Background(), "docs", func(rel string, info ObjectInfo, open func() (io.ReadCloser, error)) error {
		seen = append(seen, rel)
		rc, err := open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		assert.Equal(t, info.Size, int64(len(data)))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(seen)
	assert.Equal(t, []string{"a.txt", "sub/b.md"}, seen)
}

func TestWriteReplacesContent(t *testing.T) {
	src, root := newTree(t)
	ctx := context.Background()

	n, err := src.Write(ctx, "docs/a.txt", bytes.NewBufferString("rewritten"), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	data, err := os.ReadFile(filepath.Join(root, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "rewritten", string(data))

	fi, err := os.Stat(filepath.Join(root, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	entries, err := os.ReadDir(filepath.Join(root, "docs"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".edit-"), "temp file left behind: %s", e.Name())
	}

	_, err = src.Write(ctx, "docs/new.txt", bytes.NewBufferString("x"), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = src.Write(ctx, "docs", bytes.NewBufferString("x"), 1)
	assert.Error(t, err)
}

func TestRouterDispatch(t *testing.T) {
	src, root := newTree(t)
	r := NewRouter(src, nil)
	ctx := context.Background()

	_, err := r.Stat(ctx, "minio://bucket/key")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = r.UploadDir("minio://bucket/inbox")
	assert.ErrorIs(t, err, ErrUnsupported)

	dir, err := r.UploadDir("docs")
	require.NoError(t, err)
	rootAbs, _ := filepath.Abs(root)
	assert.Equal(t, filepath.Join(rootAbs, "docs"), dir)

	info, err := r.Stat(ctx, "docs/sub/b.md")
	require.NoError(t, err)
	assert.Equal(t, "b.md", info.Name)
}

func TestSplitObjectPath(t *testing.T) {
	s := NewMinioSource(nil, "shares")

	bucket, key, err := s.splitObjectPath("minio://media/videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "media", bucket)
	assert.Equal(t, "videos/a.mp4", key)

	bucket, key, err = s.splitObjectPath("minio:///a.txt")
	require.NoError(t, err)
	assert.Equal(t, "shares", bucket)
	assert.Equal(t, "a.txt", key)

	_, _, err = s.splitObjectPath("minio://media/../etc")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	assert.True(t, IsObjectPath("minio://x"))
	assert.False(t, IsObjectPath("docs/minio://x"))
}
