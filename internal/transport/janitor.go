package transport

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor removes staging artifacts of uploads that were abandoned.
// Completed uploads are moved out by the ingest worker, so anything left
// behind long enough is dead.
type Janitor struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
}

func NewJanitor(dir string, maxAge time.Duration) *Janitor {
	return &Janitor{
		dir:    dir,
		maxAge: maxAge,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start schedules Sweep with a cron spec such as "@hourly".
func (j *Janitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() {
		removed, err := j.Sweep(time.Now())
		if err != nil {
			log.Printf("staging janitor: %v", err)
		}
		if removed > 0 {
			log.Printf("staging janitor: removed %d stale uploads", removed)
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes every upload whose data and info files were last touched
// more than maxAge before now. It returns the number of uploads removed.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := now.Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".info") {
			continue
		}
		infoPath := filepath.Join(j.dir, name)
		dataPath := strings.TrimSuffix(infoPath, ".info")
		if !olderThan(infoPath, cutoff) || !olderThan(dataPath, cutoff) {
			continue
		}
		if err := os.Remove(dataPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("staging janitor: remove %s: %v", dataPath, err)
			continue
		}
		if err := os.Remove(infoPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("staging janitor: remove %s: %v", infoPath, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// olderThan treats a missing file as old.
func olderThan(path string, cutoff time.Time) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}
	return fi.ModTime().Before(cutoff)
}
