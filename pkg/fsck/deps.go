package fsck

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// FetchDepth selects how much of a commit a fetch transfers.
type FetchDepth int

const (
	// FetchMetadataOnly transfers the structural commit object only.
	FetchMetadataOnly FetchDepth = iota
	// FetchFull transfers the commit and its entire closure.
	FetchFull
)

func (d FetchDepth) String() string {
	if d == FetchFull {
		return "full"
	}
	return "metadata-only"
}

// Fetcher restores objects from a named remote into the local store. A
// metadata-only fetch leaves the commit marked partial; a successful full
// fetch clears the marker.
type Fetcher interface {
	Fetch(ctx context.Context, remote string, commit cask.Checksum, depth FetchDepth) error
}

// Evictor signals every process holding an open descriptor under path,
// returning the number of processes signalled. The process table is
// snapshotted fresh on each call.
type Evictor interface {
	Evict(ctx context.Context, path string, sig unix.Signal) (int, error)
}

// Locker acquires the store's exclusive coordination lock, waiting up to
// timeout. The returned Closer releases the lock.
type Locker interface {
	Acquire(ctx context.Context, timeout time.Duration) (io.Closer, error)
}

// Identity answers who is invoking the run and who owns a path on disk.
// Split out so tests can run the orchestrator without superuser privilege.
type Identity interface {
	EUID() int
	OwnerUID(path string) (int, error)
}

// UnixIdentity is the real-system Identity.
type UnixIdentity struct{}

func (UnixIdentity) EUID() int { return os.Geteuid() }

func (UnixIdentity) OwnerUID(path string) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return int(st.Uid), nil
}
