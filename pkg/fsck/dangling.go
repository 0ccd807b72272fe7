package fsck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// repairDanglingRefs restores the target commit object of every ref whose
// target is entirely absent, via a metadata-only fetch from the ref's
// remote (or the default remote for purely local refs). It runs before any
// traversal: a dangling ref's commit cannot be traversed until the commit
// object exists locally.
//
// Only clean absence is repaired. A commit that loads but fails to parse
// signals corruption this engine cannot reason about and aborts the run.
func repairDanglingRefs(ctx context.Context, st *cask.Store, fetcher Fetcher, defaultRemote string, log *slog.Logger) ([]Action, error) {
	refs, err := st.ListRefs()
	if err != nil {
		return nil, err
	}

	var actions []Action
	for _, ref := range refs {
		_, err := st.ReadCommit(ref.Target)
		if err == nil {
			continue
		}
		if !errors.Is(err, cask.ErrObjectNotFound) {
			return nil, fmt.Errorf("ref %s: %w", ref.Refspec(), err)
		}

		remote := ref.Remote
		if remote == "" {
			remote = defaultRemote
		}
		log.Info("restoring dangling ref", "ref", ref.Refspec(), "commit", ref.Target, "remote", remote)

		if err := fetcher.Fetch(ctx, remote, ref.Target, FetchMetadataOnly); err != nil {
			log.Warn("metadata fetch failed", "ref", ref.Refspec(), "error", err)
			actions = append(actions, Action{
				Ref:    ref.Refspec(),
				Commit: ref.Target,
				Kind:   ActionRefetchFailed,
				Err:    err.Error(),
			})
			continue
		}
		actions = append(actions, Action{
			Ref:    ref.Refspec(),
			Commit: ref.Target,
			Kind:   ActionCommitRefetched,
		})
	}
	return actions, nil
}
