package fsck

import (
	"errors"
	"fmt"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// Closure returns every object reachable from a commit: the commit itself,
// its root dirtree and dirmeta, and recursively every nested tree, meta,
// and file blob. Parent commits are not followed; completeness is a
// per-commit property.
//
// Structural objects (the commit and every dirtree) must be readable to
// continue; absence of one fails with MissingObjectError. Dirmetas and file
// blobs are leaves: they are recorded in the closure without being read, so
// a successful traversal says nothing about their presence. The caller
// checks the returned closure against the object index for that.
func Closure(st *cask.Store, commit cask.Checksum) (map[cask.ObjectID]struct{}, error) {
	out := make(map[cask.ObjectID]struct{})

	c, err := st.ReadCommit(commit)
	if err != nil {
		if errors.Is(err, cask.ErrObjectNotFound) {
			return nil, &MissingObjectError{ID: cask.ObjectID{Checksum: commit, Kind: cask.KindCommit}}
		}
		return nil, fmt.Errorf("traverse %s: %w", commit, err)
	}
	out[cask.ObjectID{Checksum: commit, Kind: cask.KindCommit}] = struct{}{}
	out[cask.ObjectID{Checksum: c.RootMeta, Kind: cask.KindDirMeta}] = struct{}{}

	stack := []cask.Checksum{c.RootTree}
	for len(stack) > 0 {
		treeSum := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		treeID := cask.ObjectID{Checksum: treeSum, Kind: cask.KindDirTree}
		if _, seen := out[treeID]; seen {
			continue
		}

		tree, err := st.ReadTree(treeSum)
		if err != nil {
			if errors.Is(err, cask.ErrObjectNotFound) {
				return nil, &MissingObjectError{ID: treeID}
			}
			return nil, fmt.Errorf("traverse %s: %w", commit, err)
		}
		out[treeID] = struct{}{}

		for _, e := range tree.Entries {
			if e.IsDir {
				out[cask.ObjectID{Checksum: e.Meta, Kind: cask.KindDirMeta}] = struct{}{}
				stack = append(stack, e.Subtree)
				continue
			}
			out[cask.ObjectID{Checksum: e.Blob, Kind: cask.KindFile}] = struct{}{}
		}
	}
	return out, nil
}
