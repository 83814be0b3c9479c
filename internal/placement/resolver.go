// Package placement picks collision free file names under a directory.
package placement

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxSuffix = 999

// Resolver assigns final paths. The zero value checks the real filesystem.
type Resolver struct {
	// exists and now are swapped in tests.
	exists func(path string) (bool, error)
	now    func() time.Time
}

// NewResolver returns a Resolver backed by os.Lstat.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns basePath/desiredName if free, else the first free
// "<stem>[i]<ext>" for i in 1..999, else "<stem>_<unixNano><ext>".
// It does not create the file; the caller moves into the returned path.
func (r *Resolver) Resolve(basePath, desiredName string) (string, error) {
	candidate := filepath.Join(basePath, desiredName)
	taken, err := r.taken(candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	ext := filepath.Ext(desiredName)
	stem := strings.TrimSuffix(desiredName, ext)
	for i := 1; i <= maxSuffix; i++ {
		candidate = filepath.Join(basePath, fmt.Sprintf("%s[%d]%s", stem, i, ext))
		taken, err = r.taken(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return filepath.Join(basePath, fmt.Sprintf("%s_%d%s", stem, r.clock().UnixNano(), ext)), nil
}

func (r *Resolver) taken(path string) (bool, error) {
	if r.exists != nil {
		return r.exists(path)
	}
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func (r *Resolver) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
