package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"kwsearch/internal/domain"
)

// BuildLock serializes index builds across processes.
// The lock file lives at <dir>/build.lock.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func NewBuildLock(dir string) *BuildLock {
	path := filepath.Join(dir, "build.lock")
	return &BuildLock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryLock acquires the lock without blocking. A lock held elsewhere
// returns ErrBuildInProgress.
func (l *BuildLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", domain.ErrBuildInProgress, l.path)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked BuildLock is a no-op.
func (l *BuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *BuildLock) Path() string {
	return l.path
}
