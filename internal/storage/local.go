package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalSource serves resources from a directory tree. Resource paths are
// relative to root and can never leave it.
type LocalSource struct {
	root string
}

func NewLocalSource(root string) *LocalSource {
	return &LocalSource{root: root}
}

func (s *LocalSource) Root() string {
	return s.root
}

// NormalizeRelPath cleans user input into a slash-separated relative path.
func NormalizeRelPath(p string) string {
	clean := strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	clean = strings.TrimPrefix(clean, "./")
	if clean == "." || clean == "/" {
		return ""
	}
	clean = strings.TrimPrefix(path.Clean("/"+clean), "/")
	if clean == "." {
		return ""
	}
	return clean
}

func absPath(p string) (string, error) {
	a, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(a), nil
}

func symlinkAwarePath(p string) string {
	real, err := filepath.EvalSymlinks(p)
	if err != nil {
		return p
	}
	return real
}

func withinRoot(root, target string) bool {
	if root == target {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// Resolve joins resourcePath under root, rejecting traversal including via symlinks.
func (s *LocalSource) Resolve(resourcePath string) (string, error) {
	if strings.ContainsRune(resourcePath, '\x00') {
		return "", fmt.Errorf("%w: invalid path", ErrOutsideRoot)
	}
	rootAbs, err := absPath(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	joined, err := absPath(filepath.Join(rootAbs, filepath.FromSlash(NormalizeRelPath(resourcePath))))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !withinRoot(rootAbs, joined) {
		return "", ErrOutsideRoot
	}

	rootReal := symlinkAwarePath(rootAbs)
	targetReal := joined
	if _, err := os.Stat(joined); err == nil {
		targetReal = symlinkAwarePath(joined)
	} else if !withinRoot(rootReal, symlinkAwarePath(filepath.Dir(joined))) {
		return "", ErrOutsideRoot
	}
	if !withinRoot(rootReal, targetReal) {
		return "", ErrOutsideRoot
	}
	return joined, nil
}

func infoOf(fi fs.FileInfo) ObjectInfo {
	info := ObjectInfo{
		Name:    fi.Name(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}
	if !info.IsDir {
		info.ContentType = mime.TypeByExtension(filepath.Ext(fi.Name()))
	}
	return info
}

func (s *LocalSource) Stat(_ context.Context, resourcePath string) (ObjectInfo, error) {
	abs, err := s.Resolve(resourcePath)
	if err != nil {
		return ObjectInfo{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, err
	}
	return infoOf(fi), nil
}

func (s *LocalSource) Open(ctx context.Context, resourcePath string) (io.ReadCloser, ObjectInfo, error) {
	info, err := s.Stat(ctx, resourcePath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if info.IsDir {
		return nil, ObjectInfo{}, fmt.Errorf("%s is a directory", resourcePath)
	}
	abs, err := s.Resolve(resourcePath)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return f, info, nil
}

// Walk visits regular files only; symlinks are skipped.
func (s *LocalSource) Walk(ctx context.Context, resourcePath string, fn WalkFunc) error {
	base, err := s.Resolve(resourcePath)
	if err != nil {
		return err
	}
	return filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), infoOf(fi), func() (io.ReadCloser, error) {
			return os.Open(p)
		})
	})
}

// Write replaces the file through a temp file in the same directory and a rename.
func (s *LocalSource) Write(_ context.Context, resourcePath string, r io.Reader, _ int64) (int64, error) {
	abs, err := s.Resolve(resourcePath)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%s is a directory", resourcePath)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".edit-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmpName, fi.Mode().Perm()); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return 0, err
	}
	return n, nil
}
