// Package cache implements the content-addressed output cache: a
// directory per key plus a sibling ".status" lockfile coordinating
// cross-process readers and writers via OS advisory locks.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Status is the ASCII token written into a cache entry's status file.
type Status string

const (
	StatusEmpty          Status = ""
	StatusSuccess        Status = "success"
	StatusPermanentFail  Status = "permanentFail"
	StatusTemporaryFail  Status = "temporaryFail"
)

// Entry represents an acquired cache slot. Exactly one of Hit or Miss
// handling applies: check Hit to decide which.
type Entry struct {
	Key       string
	Dir       string
	statusPath string
	lock      *flock.Flock
	Hit       bool // true: status file already reads "success"
}

// Lookup opens (creating if absent) {cachedir}/{key}.status, takes a
// shared advisory lock, and inspects the current status. If the cache
// directory exists and the status is "success" the returned Entry has
// Hit=true and the shared lock is retained for the caller to release
// after consuming the cached directory via Release. Otherwise the lock
// is upgraded to exclusive, the cache directory is destroyed and
// recreated, and the exclusive lock is retained until the caller calls
// Finish with the final status.
func Lookup(cacheDir, key string, logger *slog.Logger) (*Entry, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create cachedir: %w", err)
	}
	dir := filepath.Join(cacheDir, key)
	statusPath := filepath.Join(cacheDir, key+".status")

	// Ensure the status file exists before locking it.
	f, err := os.OpenFile(statusPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cache: open status file: %w", err)
	}
	f.Close()

	lock := flock.New(statusPath)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("cache: acquire shared lock: %w", err)
	}
	status, readErr := readStatus(statusPath)
	if readErr != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cache: read status: %w", readErr)
	}

	_, statErr := os.Stat(dir)
	dirExists := statErr == nil

	if dirExists && status == StatusSuccess {
		logger.Debug("cache hit", "key", key)
		return &Entry{Key: key, Dir: dir, statusPath: statusPath, lock: lock, Hit: true}, nil
	}

	logger.Debug("cache miss", "key", key, "status", string(status))
	// Upgrade the shared lock on the same descriptor to exclusive before
	// the directory is destroyed and recreated.
	if err := lock.Lock(); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cache: upgrade to exclusive lock: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cache: remove stale cache dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("cache: create cache dir: %w", err)
	}
	return &Entry{Key: key, Dir: dir, statusPath: statusPath, lock: lock, Hit: false}, nil
}

func readStatus(statusPath string) (Status, error) {
	b, err := os.ReadFile(statusPath)
	if err != nil {
		return StatusEmpty, err
	}
	return Status(b), nil
}

// Finish writes the final status (truncate + write + close, releasing
// the lock) for a cache-miss Entry. Readers never observe a
// half-populated cache directory because "success" is written last,
// after the job's output directory (Entry.Dir) has been fully populated.
func (e *Entry) Finish(status Status) error {
	defer e.lock.Unlock()
	f, err := os.OpenFile(e.statusPath, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cache: open status for write: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(string(status)); err != nil {
		return fmt.Errorf("cache: write status: %w", err)
	}
	return nil
}

// Release releases the lock held for a cache-hit Entry without
// modifying the status file.
func (e *Entry) Release() error {
	return e.lock.Unlock()
}
