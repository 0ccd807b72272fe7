package fsck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// Phase is one stage of the repair state machine. Transitions are strictly
// sequential; no phase is revisited.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEvicting
	PhaseLocking
	PhaseIndexing
	PhaseRepairingRefs
	PhaseMarkingPartial
	PhaseHealing
	PhaseDone
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:           "idle",
	PhaseEvicting:       "evicting",
	PhaseLocking:        "locking",
	PhaseIndexing:       "indexing",
	PhaseRepairingRefs:  "repairing-refs",
	PhaseMarkingPartial: "marking-partial",
	PhaseHealing:        "healing",
	PhaseDone:           "done",
	PhaseFailed:         "failed",
}

func (p Phase) String() string { return phaseNames[p] }

// Runner sequences a full repair of one store. All mutators of the OS and
// network boundary are injected so the sequencing logic is testable without
// privilege.
type Runner struct {
	Store    *cask.Store
	Fetcher  Fetcher
	Evictor  Evictor
	Locker   Locker
	Identity Identity
	Log      *slog.Logger
	Config   Config

	phase Phase
}

// NewRunner wires a Runner with the real system identity.
func NewRunner(st *cask.Store, fetcher Fetcher, evictor Evictor, locker Locker, log *slog.Logger, cfg Config) *Runner {
	return &Runner{
		Store:    st,
		Fetcher:  fetcher,
		Evictor:  evictor,
		Locker:   locker,
		Identity: UnixIdentity{},
		Log:      log,
		Config:   cfg,
	}
}

// Phase returns the runner's current phase.
func (r *Runner) Phase() Phase { return r.phase }

func (r *Runner) enter(p Phase) {
	r.phase = p
	r.Log.Info("phase", "phase", p.String())
}

func (r *Runner) fail(err error) error {
	r.phase = PhaseFailed
	r.Log.Error("repair failed", "error", err)
	return err
}

// Run executes the full repair sequence. It returns a Report on reaching
// Done; any structural or precondition failure aborts immediately. Per-ref
// fetch failures do not abort and are visible in the Report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.preflight(); err != nil {
		return nil, r.fail(err)
	}

	// Eviction is the one deliberately destructive step, so it runs only
	// after ownership has been verified, and fully before the lock is
	// taken: a process holding the store open may also hold the lock.
	r.enter(PhaseEvicting)
	if err := r.evict(ctx); err != nil {
		return nil, r.fail(err)
	}

	r.enter(PhaseLocking)
	lock, err := r.Locker.Acquire(ctx, time.Duration(r.Config.LockTimeout))
	if err != nil {
		return nil, r.fail(fmt.Errorf("acquire lock: %w", err))
	}
	defer lock.Close()

	if err := r.touchCacheMarker(); err != nil {
		return nil, r.fail(err)
	}

	r.enter(PhaseIndexing)
	ix, err := BuildIndex(r.Store)
	if err != nil {
		return nil, r.fail(err)
	}
	report := &Report{ObjectsIndexed: ix.Len()}

	r.enter(PhaseRepairingRefs)
	report.Dangling, err = repairDanglingRefs(ctx, r.Store, r.Fetcher, r.Config.DefaultRemote, r.Log)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(PhaseMarkingPartial)
	report.MarkedPartial, err = markPartialCommits(r.Store, ix, r.Log)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(PhaseHealing)
	skip, err := r.Config.CompileSkipPatterns()
	if err != nil {
		return nil, r.fail(err)
	}
	report.Healing, err = healPartialRefs(ctx, r.Store, r.Fetcher, skip, r.Log)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(PhaseDone)
	return report, nil
}

// preflight verifies superuser privilege and that the invoking identity
// owns the store on disk. An ownership mismatch refuses the run before any
// eviction happens.
func (r *Runner) preflight() error {
	euid := r.Identity.EUID()
	if euid != 0 {
		return ErrNotSuperuser
	}
	owner, err := r.Identity.OwnerUID(r.Store.Root())
	if err != nil {
		return fmt.Errorf("stat store owner: %w", err)
	}
	if owner != euid {
		return fmt.Errorf("store %s owned by uid %d, invoked as uid %d: %w",
			r.Store.Root(), owner, euid, ErrOwnershipMismatch)
	}
	return nil
}

// evict runs both signal phases: graceful termination, a grace interval,
// then a forced kill for anything that ignored the first signal. The
// process table is re-queried for each phase.
func (r *Runner) evict(ctx context.Context) error {
	n, err := r.Evictor.Evict(ctx, r.Store.Root(), unix.SIGTERM)
	if err != nil {
		return fmt.Errorf("evict (term): %w", err)
	}
	r.Log.Info("sent graceful termination", "processes", n)
	if n > 0 {
		select {
		case <-time.After(time.Duration(r.Config.EvictGrace)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n, err = r.Evictor.Evict(ctx, r.Store.Root(), unix.SIGKILL)
	if err != nil {
		return fmt.Errorf("evict (kill): %w", err)
	}
	if n > 0 {
		r.Log.Info("forcibly killed stragglers", "processes", n)
	}
	return nil
}

// touchCacheMarker refreshes the store's cache liveness marker so the cache
// janitor does not reclaim resources mid-run. A missing marker (rather than
// a stale one) may indicate a dissimilar layout and is a hard failure; it
// is never recreated here.
func (r *Runner) touchCacheMarker() error {
	marker := filepath.Join(r.Store.Root(), "tmp", "cache")
	if _, err := os.Stat(marker); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", marker, ErrCacheMarkerMissing)
		}
		return fmt.Errorf("stat cache marker: %w", err)
	}
	now := time.Now()
	if err := os.Chtimes(marker, now, now); err != nil {
		return fmt.Errorf("refresh cache marker: %w", err)
	}
	return nil
}
