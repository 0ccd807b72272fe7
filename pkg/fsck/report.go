package fsck

import (
	"fmt"
	"io"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// ActionKind classifies one per-ref repair outcome.
type ActionKind string

const (
	// ActionCommitRefetched: a dangling ref's commit object was restored by
	// a metadata-only fetch.
	ActionCommitRefetched ActionKind = "commit-refetched"
	// ActionRefetchFailed: the metadata-only fetch for a dangling ref
	// failed; the ref still dangles.
	ActionRefetchFailed ActionKind = "refetch-failed"
	// ActionHealed: a partial commit was made complete by a full fetch.
	ActionHealed ActionKind = "healed"
	// ActionHealFailed: the full fetch failed; the commit remains partial.
	ActionHealFailed ActionKind = "heal-failed"
	// ActionSkippedByDesign: the ref matches an intentionally-partial
	// pattern and was not fetched.
	ActionSkippedByDesign ActionKind = "skipped-by-design"
)

// Action records one per-ref repair outcome.
type Action struct {
	Ref    string
	Commit cask.Checksum
	Kind   ActionKind
	Err    string // set for failed actions
}

// Report summarizes a full repair run.
type Report struct {
	ObjectsIndexed int
	Dangling       []Action
	MarkedPartial  int
	Healing        []Action
}

// Unhealed returns the healing actions that left a commit partial: failed
// full fetches and dangling refs whose metadata fetch failed.
func (r *Report) Unhealed() []Action {
	var out []Action
	for _, a := range r.Dangling {
		if a.Kind == ActionRefetchFailed {
			out = append(out, a)
		}
	}
	for _, a := range r.Healing {
		if a.Kind == ActionHealFailed {
			out = append(out, a)
		}
	}
	return out
}

// Print writes a human-readable summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "indexed %d object(s)\n", r.ObjectsIndexed)
	fmt.Fprintf(w, "marked %d commit(s) partial\n", r.MarkedPartial)
	for _, a := range r.Dangling {
		switch a.Kind {
		case ActionCommitRefetched:
			fmt.Fprintf(w, "restored commit %s for dangling ref %s\n", a.Commit, a.Ref)
		case ActionRefetchFailed:
			fmt.Fprintf(w, "ref %s still dangling: %s\n", a.Ref, a.Err)
		}
	}
	for _, a := range r.Healing {
		switch a.Kind {
		case ActionHealed:
			fmt.Fprintf(w, "healed ref %s (commit %s)\n", a.Ref, a.Commit)
		case ActionHealFailed:
			fmt.Fprintf(w, "ref %s still partial: %s\n", a.Ref, a.Err)
		case ActionSkippedByDesign:
			fmt.Fprintf(w, "ref %s is partial by design, skipped\n", a.Ref)
		}
	}
	if len(r.Unhealed()) == 0 {
		fmt.Fprintln(w, "store is consistent")
	}
}
