package fsck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/caskstore/caskfsck/pkg/cask"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, mode cask.Mode) *cask.Store {
	t.Helper()
	st, err := cask.InitStore(t.TempDir(), mode, map[string]string{
		"origin": "http://unused.invalid/repo",
	})
	require.NoError(t, err)
	return st
}

// snapshot is one seeded commit with handles to every object in its
// closure.
type snapshot struct {
	Commit  cask.Checksum
	Tree    cask.Checksum
	Meta    cask.Checksum
	SubTree cask.Checksum
	SubMeta cask.Checksum
	Blob1   cask.Checksum
	Blob2   cask.Checksum
}

// seedCommit writes a two-level snapshot into st:
//
//	/
//	  etc/        (subdir with its own dirmeta)
//	    conf      (blob2)
//	  kernel      (blob1)
//
// The label is baked into the blob contents so different labels produce
// disjoint commits.
func seedCommit(t *testing.T, st *cask.Store, label string) snapshot {
	t.Helper()
	var s snapshot
	var err error

	s.Blob1, err = st.WriteObject(cask.KindFile, []byte("kernel image "+label))
	require.NoError(t, err)
	s.Blob2, err = st.WriteObject(cask.KindFile, []byte("conf "+label))
	require.NoError(t, err)
	s.Meta, err = st.WriteObject(cask.KindDirMeta, []byte("uid 0\ngid 0\nmode 755\n"))
	require.NoError(t, err)
	s.SubMeta, err = st.WriteObject(cask.KindDirMeta, []byte("uid 0\ngid 0\nmode 700\n"))
	require.NoError(t, err)

	s.SubTree, err = st.WriteObject(cask.KindDirTree, cask.MarshalTree(&cask.TreeObj{
		Entries: []cask.TreeEntry{{Name: "conf", Blob: s.Blob2}},
	}))
	require.NoError(t, err)

	s.Tree, err = st.WriteObject(cask.KindDirTree, cask.MarshalTree(&cask.TreeObj{
		Entries: []cask.TreeEntry{
			{Name: "etc", IsDir: true, Subtree: s.SubTree, Meta: s.SubMeta},
			{Name: "kernel", Blob: s.Blob1},
		},
	}))
	require.NoError(t, err)

	s.Commit, err = st.WriteObject(cask.KindCommit, cask.MarshalCommit(&cask.CommitObj{
		RootTree: s.Tree,
		RootMeta: s.Meta,
		Time:     1700000000,
		Subject:  label,
	}))
	require.NoError(t, err)
	return s
}

// deleteObject removes one object file from the store out from under it.
func deleteObject(t *testing.T, st *cask.Store, id cask.ObjectID) {
	t.Helper()
	path := filepath.Join(st.Root(), filepath.FromSlash(cask.ObjectRelPath(id, st.Mode())))
	require.NoError(t, os.Remove(path))
}

// fakeFetcher serves fetches from a second store standing in for the
// remote. It mirrors the real client's marker behavior: metadata-only
// leaves the commit marked partial, full clears the marker.
type fakeFetcher struct {
	src   *cask.Store // remote contents; nil means every fetch fails
	dst   *cask.Store
	calls []fetchCall
	err   error // injected failure
}

type fetchCall struct {
	remote string
	commit cask.Checksum
	depth  FetchDepth
}

func (f *fakeFetcher) Fetch(ctx context.Context, remote string, commit cask.Checksum, depth FetchDepth) error {
	f.calls = append(f.calls, fetchCall{remote: remote, commit: commit, depth: depth})
	if f.err != nil {
		return f.err
	}

	payload, err := f.src.ReadObject(cask.ObjectID{Checksum: commit, Kind: cask.KindCommit})
	if err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	if _, err := f.dst.WriteObject(cask.KindCommit, payload); err != nil {
		return err
	}
	if depth == FetchMetadataOnly {
		return f.dst.MarkPartial(commit)
	}

	closure, err := Closure(f.src, commit)
	if err != nil {
		return err
	}
	for id := range closure {
		data, err := f.src.ReadObject(id)
		if err != nil {
			return err
		}
		if _, err := f.dst.WriteObject(id.Kind, data); err != nil {
			return err
		}
	}
	return f.dst.ClearPartial(commit)
}

// fakeEvictor records eviction calls.
type fakeEvictor struct {
	calls []evictCall
	n     int
	err   error
}

type evictCall struct {
	path string
	sig  unix.Signal
}

func (e *fakeEvictor) Evict(ctx context.Context, path string, sig unix.Signal) (int, error) {
	e.calls = append(e.calls, evictCall{path: path, sig: sig})
	return e.n, e.err
}

// fakeLocker records acquisitions and releases.
type fakeLocker struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

type fakeLockHandle struct{ l *fakeLocker }

func (h *fakeLockHandle) Close() error {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	h.l.released++
	return nil
}

func (l *fakeLocker) Acquire(ctx context.Context, timeout time.Duration) (io.Closer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return &fakeLockHandle{l: l}, nil
}

// fakeIdentity stands in for the real uid probes.
type fakeIdentity struct {
	euid  int
	owner int
}

func (f fakeIdentity) EUID() int { return f.euid }

func (f fakeIdentity) OwnerUID(string) (int, error) { return f.owner, nil }

// newTestRunner wires a Runner over fakes, rooted at st.
func newTestRunner(st *cask.Store, fetcher *fakeFetcher, evictor *fakeEvictor, locker *fakeLocker) *Runner {
	cfg := DefaultConfig()
	cfg.EvictGrace = duration(time.Millisecond)
	return &Runner{
		Store:    st,
		Fetcher:  fetcher,
		Evictor:  evictor,
		Locker:   locker,
		Identity: fakeIdentity{euid: 0, owner: 0},
		Log:      testLogger(),
		Config:   cfg,
	}
}
