// Package lock provides the cycle-exclusivity guarantee: at most one
// scheduling cycle (or out-of-band satisfaction) may run against a given
// state store at a time. The file lock covers the single-host case; the
// Redis lock covers deployments where cycles may fire from more than one
// host against shared state.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// ErrHeld is returned when the lock is already held by another cycle.
var ErrHeld = errors.New("cycle lock already held")

// CycleLock serializes full engine cycles against a state store.
type CycleLock interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// FileLock implements CycleLock with an exclusive lock file next to the
// state document. A lock file older than Stale is assumed abandoned by a
// crashed cycle and is broken.
type FileLock struct {
	Path  string
	Stale time.Duration
}

// NewFileLock creates a file lock with a default staleness window.
func NewFileLock(path string) *FileLock {
	return &FileLock{Path: path, Stale: 5 * time.Minute}
}

// Acquire creates the lock file exclusively. If the file exists and is
// stale, it is removed and acquisition retried once.
func (l *FileLock) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := l.tryCreate(); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	info, err := os.Stat(l.Path)
	if err == nil && l.Stale > 0 && time.Since(info.ModTime()) > l.Stale {
		log.Printf("[Lock] Breaking stale lock file %s (age %s)", l.Path, time.Since(info.ModTime()).Round(time.Second))
		os.Remove(l.Path)
		if err := l.tryCreate(); err == nil {
			return nil
		}
	}

	return ErrHeld
}

func (l *FileLock) tryCreate() error {
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return f.Close()
}

// Release removes the lock file.
func (l *FileLock) Release(ctx context.Context) error {
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
