package fsck

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// markPartialCommits writes a partial marker for every indexed commit whose
// closure is incomplete: either traversal hit a missing structural object,
// or some leaf in the closure is absent from the index. Commits already
// marked are skipped, so re-running is a no-op once markers are correct.
func markPartialCommits(st *cask.Store, ix *Index, log *slog.Logger) (int, error) {
	marked := 0
	for _, csum := range ix.Commits() {
		if st.IsPartial(csum) {
			continue
		}

		incomplete, err := commitIncomplete(st, ix, csum)
		if err != nil {
			return marked, err
		}
		if !incomplete {
			continue
		}

		log.Info("marking partial commit", "commit", csum)
		if err := st.MarkPartial(csum); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

func commitIncomplete(st *cask.Store, ix *Index, csum cask.Checksum) (bool, error) {
	closure, err := Closure(st, csum)
	if err != nil {
		var missing *MissingObjectError
		if errors.As(err, &missing) {
			return true, nil
		}
		return false, fmt.Errorf("commit %s: %w", csum, err)
	}
	for id := range closure {
		if !ix.Has(id) {
			return true, nil
		}
	}
	return false, nil
}
