package fsck

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// Index is a point-in-time enumeration of every object physically present
// in a store. It is built exactly once per repair run and is deliberately
// independent of any listing capability the store library itself might
// offer, since completeness reasoning must not depend on one being present
// or correct.
type Index struct {
	objects map[cask.ObjectID]struct{}
}

// BuildIndex scans the store's objects area and returns a complete index.
// A listing failure on the objects directory itself is fatal: without a
// full enumeration there is nothing safe to say about completeness.
func BuildIndex(st *cask.Store) (*Index, error) {
	objectsDir := filepath.Join(st.Root(), "objects")
	fanouts, err := os.ReadDir(objectsDir)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", objectsDir, err)
	}

	ix := &Index{objects: make(map[cask.ObjectID]struct{})}
	for _, fan := range fanouts {
		if !fan.IsDir() || len(fan.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(objectsDir, fan.Name()))
		if err != nil {
			return nil, fmt.Errorf("index %s/%s: %w", objectsDir, fan.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			id, ok := cask.ParseObjectName(fan.Name(), e.Name(), st.Mode())
			if !ok {
				// Temp files and foreign extensions are not objects.
				continue
			}
			ix.objects[id] = struct{}{}
		}
	}
	return ix, nil
}

// Has reports whether the object was present when the index was built.
func (ix *Index) Has(id cask.ObjectID) bool {
	_, ok := ix.objects[id]
	return ok
}

// Len returns the number of indexed objects.
func (ix *Index) Len() int { return len(ix.objects) }

// Commits returns the checksums of every indexed commit, sorted.
func (ix *Index) Commits() []cask.Checksum {
	var out []cask.Checksum
	for id := range ix.objects {
		if id.Kind == cask.KindCommit {
			out = append(out, id.Checksum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
