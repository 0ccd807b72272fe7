// Package evict finds and terminates processes holding a store open, so a
// repair run cannot race with concurrent readers or writers.
package evict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// Evictor signals processes whose open file descriptors resolve to paths
// inside a store. Each Evict call takes a fresh snapshot of the process
// table; nothing is cached between signal phases.
type Evictor struct {
	ProcMount string // procfs mount point, normally /proc
	SelfPID   int    // never signalled
	Kill      func(pid int, sig unix.Signal) error
	Log       *slog.Logger
}

// New returns an Evictor bound to the real /proc and the calling process.
func New(log *slog.Logger) *Evictor {
	return &Evictor{
		ProcMount: "/proc",
		SelfPID:   os.Getpid(),
		Kill: func(pid int, sig unix.Signal) error {
			return unix.Kill(pid, sig)
		},
		Log: log,
	}
}

// Evict sends sig to every live process (excluding self) holding a
// descriptor whose target equals path or is nested under it, and returns
// the number of processes signalled. Processes that exit between
// enumeration and inspection are silently skipped.
func (e *Evictor) Evict(ctx context.Context, path string, sig unix.Signal) (int, error) {
	path = filepath.Clean(path)

	fs, err := procfs.NewFS(e.ProcMount)
	if err != nil {
		return 0, fmt.Errorf("evict: %w", err)
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return 0, fmt.Errorf("evict: list processes: %w", err)
	}

	signalled := 0
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return signalled, err
		}
		if p.PID == e.SelfPID {
			continue
		}
		targets, err := p.FileDescriptorTargets()
		if err != nil {
			// The process vanished or its fd table is unreadable; either
			// way it cannot be holding the store by the time we act.
			continue
		}
		if !holdsPath(targets, path) {
			continue
		}

		comm, _ := p.Comm()
		e.Log.Info("signalling process holding store", "pid", p.PID, "comm", comm, "signal", unix.SignalName(sig))
		if err := e.Kill(p.PID, sig); err != nil {
			if errors.Is(err, unix.ESRCH) {
				continue
			}
			return signalled, fmt.Errorf("evict: signal pid %d: %w", p.PID, err)
		}
		signalled++
	}
	return signalled, nil
}

func holdsPath(targets []string, path string) bool {
	prefix := path + string(os.PathSeparator)
	for _, t := range targets {
		if t == path || strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}
