package fsck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// End to end: a dangling remote ref is restored by a metadata fetch, comes
// out of the marker phase partial, and is fully healed before Done.
func TestRunRepairsDanglingRef(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	remote := newTestStore(t, cask.ModeBare)
	s := seedCommit(t, remote, "os")
	require.NoError(t, local.UpdateRef(cask.Ref{Remote: "origin", Branch: "os/stable", Target: s.Commit}))

	fetcher := &fakeFetcher{src: remote, dst: local}
	r := newTestRunner(local, fetcher, &fakeEvictor{}, &fakeLocker{})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, PhaseDone, r.Phase())

	require.Len(t, report.Dangling, 1)
	require.Equal(t, ActionCommitRefetched, report.Dangling[0].Kind)
	require.Len(t, report.Healing, 1)
	require.Equal(t, ActionHealed, report.Healing[0].Kind)
	require.Empty(t, report.Unhealed())

	// Metadata fetch first, then the full fetch that healed it.
	require.Len(t, fetcher.calls, 2)
	require.Equal(t, FetchMetadataOnly, fetcher.calls[0].depth)
	require.Equal(t, FetchFull, fetcher.calls[1].depth)

	require.False(t, local.IsPartial(s.Commit))
}

// A commit with a deleted blob is detected against the index, marked, and
// healed from the remote in the same run.
func TestRunMarksAndHealsIncompleteCommit(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	remote := newTestStore(t, cask.ModeBare)
	s := seedCommit(t, remote, "os")
	seedCommit(t, local, "os")
	deleteObject(t, local, cask.ObjectID{Checksum: s.Blob1, Kind: cask.KindFile})
	require.NoError(t, local.UpdateRef(cask.Ref{Remote: "origin", Branch: "os/stable", Target: s.Commit}))

	fetcher := &fakeFetcher{src: remote, dst: local}
	r := newTestRunner(local, fetcher, &fakeEvictor{}, &fakeLocker{})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Dangling)
	require.Equal(t, 1, report.MarkedPartial)
	require.Len(t, report.Healing, 1)
	require.Equal(t, ActionHealed, report.Healing[0].Kind)

	require.True(t, local.Has(cask.ObjectID{Checksum: s.Blob1, Kind: cask.KindFile}))
	require.False(t, local.IsPartial(s.Commit))
}

// A second run over a healed store does nothing: no fetches, nothing
// marked.
func TestRunIdempotent(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	remote := newTestStore(t, cask.ModeBare)
	s := seedCommit(t, remote, "os")
	require.NoError(t, local.UpdateRef(cask.Ref{Remote: "origin", Branch: "os/stable", Target: s.Commit}))

	fetcher := &fakeFetcher{src: remote, dst: local}
	r := newTestRunner(local, fetcher, &fakeEvictor{}, &fakeLocker{})
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	fetcher.calls = nil
	r2 := newTestRunner(local, fetcher, &fakeEvictor{}, &fakeLocker{})
	report, err := r2.Run(context.Background())
	require.NoError(t, err)

	require.Empty(t, fetcher.calls)
	require.Empty(t, report.Dangling)
	require.Zero(t, report.MarkedPartial)
	require.Empty(t, report.Healing)
}

func TestRunRequiresSuperuser(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	evictor := &fakeEvictor{}
	r := newTestRunner(local, &fakeFetcher{}, evictor, &fakeLocker{})
	r.Identity = fakeIdentity{euid: 1000, owner: 1000}

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrNotSuperuser)
	require.Equal(t, PhaseFailed, r.Phase())
	require.Empty(t, evictor.calls)
}

// Ownership is verified before anything is signalled: a mismatch must not
// cost any process its life.
func TestRunOwnershipMismatchBeforeEviction(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	evictor := &fakeEvictor{}
	locker := &fakeLocker{}
	r := newTestRunner(local, &fakeFetcher{}, evictor, locker)
	r.Identity = fakeIdentity{euid: 0, owner: 1000}

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrOwnershipMismatch)
	require.Empty(t, evictor.calls)
	require.Zero(t, locker.acquired)
}

// Eviction is two passes, graceful then forced, and both complete before
// the lock is taken.
func TestRunEvictionOrdering(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	evictor := &fakeEvictor{n: 2}
	locker := &fakeLocker{}
	r := newTestRunner(local, &fakeFetcher{src: local, dst: local}, evictor, locker)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, evictor.calls, 2)
	require.Equal(t, unix.SIGTERM, evictor.calls[0].sig)
	require.Equal(t, unix.SIGKILL, evictor.calls[1].sig)
	require.Equal(t, local.Root(), evictor.calls[0].path)
	require.Equal(t, 1, locker.acquired)
	require.Equal(t, 1, locker.released)
}

func TestRunLockFailureIsFatal(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	locker := &fakeLocker{err: errors.New("lock held elsewhere")}
	r := newTestRunner(local, &fakeFetcher{}, &fakeEvictor{}, locker)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, PhaseFailed, r.Phase())
}

// The cache liveness marker must already exist; the repair never creates
// one.
func TestRunCacheMarkerMissing(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	require.NoError(t, os.Remove(filepath.Join(local.Root(), "tmp", "cache")))

	fetcher := &fakeFetcher{}
	r := newTestRunner(local, fetcher, &fakeEvictor{}, &fakeLocker{})

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrCacheMarkerMissing)
	require.Equal(t, PhaseFailed, r.Phase())
	require.Empty(t, fetcher.calls)
}

func TestRunLockReleasedOnLateFailure(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	csum, err := local.WriteObject(cask.KindCommit, []byte("garbage"))
	require.NoError(t, err)
	require.NoError(t, local.UpdateRef(cask.Ref{Remote: "origin", Branch: "os/stable", Target: csum}))

	locker := &fakeLocker{}
	r := newTestRunner(local, &fakeFetcher{err: errors.New("unreachable")}, &fakeEvictor{}, locker)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, locker.released)
}

// Per-ref fetch failures surface in the report but never fail the run.
func TestRunFetchFailuresReportedNotFatal(t *testing.T) {
	local := newTestStore(t, cask.ModeBare)
	remote := newTestStore(t, cask.ModeBare)
	s := seedCommit(t, remote, "os")
	require.NoError(t, local.UpdateRef(cask.Ref{Remote: "origin", Branch: "os/stable", Target: s.Commit}))

	fetcher := &fakeFetcher{err: errors.New("remote unavailable")}
	r := newTestRunner(local, fetcher, &fakeEvictor{}, &fakeLocker{})

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, PhaseDone, r.Phase())
	require.Len(t, report.Unhealed(), 1)
	require.Equal(t, ActionRefetchFailed, report.Unhealed()[0].Kind)
}
