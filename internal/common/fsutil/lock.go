package fsutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// lockPollInterval is how often a blocked Lock retries the file lock.
const lockPollInterval = 50 * time.Millisecond

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("lock held by another owner")

// FileLock is an advisory, cross-process exclusive lock on a file path.
type FileLock struct {
	path string
	f    *os.File
}

// NewFileLock returns a lock bound to path. The file is created on first use.
func NewFileLock(path string) *FileLock { return &FileLock{path: path} }

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// TryLock attempts to take the lock without waiting.
func (l *FileLock) TryLock() error {
	if l.f != nil {
		return fmt.Errorf("lock %s: already held", l.path)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	return nil
}

// Lock blocks until the lock is taken or ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	for {
		err := l.TryLock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock %s: %w", l.path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	uerr := unlockFile(f)
	cerr := f.Close()
	if uerr != nil {
		return uerr
	}
	return cerr
}

// ComboLock pairs an in-process mutex with a FileLock so that goroutines of
// this process and other processes on the host are excluded together.
type ComboLock struct {
	mu   sync.Mutex
	file *FileLock
}

// NewComboLock returns a combined lock on path.
func NewComboLock(path string) *ComboLock {
	return &ComboLock{file: NewFileLock(path)}
}

// Lock takes the in-process mutex, then the file lock.
func (c *ComboLock) Lock(ctx context.Context) error {
	c.mu.Lock()
	if err := c.file.Lock(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	return nil
}

// Unlock releases the file lock, then the mutex.
func (c *ComboLock) Unlock() error {
	err := c.file.Unlock()
	c.mu.Unlock()
	return err
}
