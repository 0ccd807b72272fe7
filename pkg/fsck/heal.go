package fsck

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// healPartialRefs attempts a full re-fetch of every remotely-backed ref
// whose target commit is marked partial. Purely local refs are skipped:
// they represent locally-managed checkouts and are repaired through other
// local mechanisms, not by re-fetching. Refs matching an
// intentionally-partial pattern are reported skipped and never fetched.
// Fetch failures are per-ref; the commit stays partial and the run
// continues.
func healPartialRefs(ctx context.Context, st *cask.Store, fetcher Fetcher, skip []*regexp.Regexp, log *slog.Logger) ([]Action, error) {
	refs, err := st.ListRefs()
	if err != nil {
		return nil, err
	}

	var actions []Action
	for _, ref := range refs {
		if ref.Remote == "" {
			continue
		}
		if !st.IsPartial(ref.Target) {
			continue
		}
		if matchesAny(skip, ref.Refspec()) {
			log.Info("ref is partial by design, skipping", "ref", ref.Refspec())
			actions = append(actions, Action{
				Ref:    ref.Refspec(),
				Commit: ref.Target,
				Kind:   ActionSkippedByDesign,
			})
			continue
		}

		log.Info("healing partial ref", "ref", ref.Refspec(), "commit", ref.Target)
		if err := fetcher.Fetch(ctx, ref.Remote, ref.Target, FetchFull); err != nil {
			log.Warn("full fetch failed", "ref", ref.Refspec(), "error", err)
			actions = append(actions, Action{
				Ref:    ref.Refspec(),
				Commit: ref.Target,
				Kind:   ActionHealFailed,
				Err:    err.Error(),
			})
			continue
		}
		actions = append(actions, Action{
			Ref:    ref.Refspec(),
			Commit: ref.Target,
			Kind:   ActionHealed,
		})
	}
	return actions, nil
}

func matchesAny(patterns []*regexp.Regexp, refspec string) bool {
	for _, re := range patterns {
		if re.MatchString(refspec) {
			return true
		}
	}
	return false
}
