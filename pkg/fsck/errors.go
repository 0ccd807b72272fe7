package fsck

import (
	"errors"
	"fmt"

	"github.com/caskstore/caskfsck/pkg/cask"
)

// Preflight and structural failures. All of these abort the run before or
// during the phase that raises them; per-object and per-ref conditions are
// reported in the Report instead.
var (
	// ErrNotSuperuser reports that the tool was invoked without superuser
	// privilege.
	ErrNotSuperuser = errors.New("superuser privilege required")

	// ErrOwnershipMismatch reports that the invoking identity does not own
	// the store on disk. Repair against a store owned by someone else is
	// refused before any process is evicted.
	ErrOwnershipMismatch = errors.New("store owner does not match invoking user")

	// ErrCacheMarkerMissing reports that the store's cache liveness marker
	// is absent altogether, which may indicate a dissimilar layout. The
	// marker is never recreated automatically.
	ErrCacheMarkerMissing = errors.New("cache liveness marker missing; re-run the tool")
)

// MissingObjectError reports that a structural object needed to continue a
// graph traversal is absent. Leaf absence (file blobs, dirmetas) never
// raises it; that is detected by comparing the closure against the index.
type MissingObjectError struct {
	ID cask.ObjectID
}

func (e *MissingObjectError) Error() string {
	return fmt.Sprintf("missing %s object %s", e.ID.Kind, e.ID.Checksum)
}
