// Package lockfile acquires a store's exclusive coordination lock with
// bounded wait, using flock(2) on a lock file at the store (or sysroot)
// root.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockTimeout reports that the lock could not be acquired within the
// configured bound.
var ErrLockTimeout = errors.New("timed out waiting for repository lock")

// Locker acquires the lock file at Path. RetryInterval and ProgressEvery
// default to one second and one minute; tests shorten them.
type Locker struct {
	Path          string
	Log           *slog.Logger
	RetryInterval time.Duration
	ProgressEvery time.Duration
}

type handle struct {
	f *os.File
}

func (h *handle) Close() error {
	// Releasing the flock before closing keeps the unlock explicit even
	// though closing the descriptor would drop it anyway.
	if err := unix.Flock(int(h.f.Fd()), unix.LOCK_UN); err != nil {
		h.f.Close()
		return fmt.Errorf("release lock: %w", err)
	}
	return h.f.Close()
}

// Acquire takes the exclusive lock, retrying until it succeeds, timeout
// elapses, or ctx is cancelled. While waiting it logs periodic progress so
// an operator can tell the tool is not hung. The returned Closer releases
// the lock; callers defer it so every exit path unlocks.
func (l *Locker) Acquire(ctx context.Context, timeout time.Duration) (io.Closer, error) {
	retry := l.RetryInterval
	if retry <= 0 {
		retry = time.Second
	}
	progress := l.ProgressEvery
	if progress <= 0 {
		progress = time.Minute
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	start := time.Now()
	deadline := start.Add(timeout)
	lastProgress := start
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &handle{f: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", l.Path, err)
		}

		now := time.Now()
		if now.After(deadline) {
			f.Close()
			return nil, fmt.Errorf("%s: %w", l.Path, ErrLockTimeout)
		}
		if now.Sub(lastProgress) >= progress {
			l.Log.Info("still waiting for repository lock",
				"path", l.Path, "elapsed", now.Sub(start).Round(time.Second).String())
			lastProgress = now
		}

		select {
		case <-time.After(retry):
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		}
	}
}
