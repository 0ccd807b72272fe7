package fsck

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// StatusReport is a read-only view of a store's consistency. Nothing is
// evicted, locked, fetched, or marked while producing it, so it may race
// with concurrent store mutators; it is an operator aid, not a repair.
type StatusReport struct {
	ObjectsIndexed int
	Partial        []cask.Checksum // commits marked or detected incomplete
	Dangling       []cask.Ref      // refs whose target commit is absent
	PartialRefs    []cask.Ref      // refs whose target commit is incomplete
}

// Status inspects the store and reports partial commits and the refs
// affected by them, without repairing anything.
func Status(st *cask.Store, log *slog.Logger) (*StatusReport, error) {
	ix, err := BuildIndex(st)
	if err != nil {
		return nil, err
	}
	out := &StatusReport{ObjectsIndexed: ix.Len()}

	partial := make(map[cask.Checksum]bool)
	for _, csum := range ix.Commits() {
		if st.IsPartial(csum) {
			partial[csum] = true
			out.Partial = append(out.Partial, csum)
			continue
		}
		incomplete, err := commitIncomplete(st, ix, csum)
		if err != nil {
			return nil, err
		}
		if incomplete {
			partial[csum] = true
			out.Partial = append(out.Partial, csum)
		}
	}

	refs, err := st.ListRefs()
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if !ix.Has(cask.ObjectID{Checksum: ref.Target, Kind: cask.KindCommit}) {
			out.Dangling = append(out.Dangling, ref)
			continue
		}
		if partial[ref.Target] {
			out.PartialRefs = append(out.PartialRefs, ref)
		}
	}

	log.Info("status computed",
		"objects", out.ObjectsIndexed,
		"partial_commits", len(out.Partial),
		"dangling_refs", len(out.Dangling))
	return out, nil
}

// Print writes a human-readable status summary.
func (s *StatusReport) Print(w io.Writer) {
	fmt.Fprintf(w, "indexed %d object(s)\n", s.ObjectsIndexed)
	if len(s.Partial) == 0 && len(s.Dangling) == 0 {
		fmt.Fprintln(w, "store is consistent")
		return
	}
	for _, c := range s.Partial {
		fmt.Fprintf(w, "partial commit %s\n", c)
	}
	for _, r := range s.Dangling {
		fmt.Fprintf(w, "dangling ref %s -> %s\n", r.Refspec(), r.Target)
	}
	for _, r := range s.PartialRefs {
		fmt.Fprintf(w, "partial ref %s -> %s\n", r.Refspec(), r.Target)
	}
}
