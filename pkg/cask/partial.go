package cask

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

const partialSuffix = ".commitpartial"

func (s *Store) partialPath(csum Checksum) string {
	return filepath.Join(s.root, "state", string(csum)+partialSuffix)
}

// IsPartial reports whether the commit carries a partial marker. The
// marker's existence is the whole contract; its contents are never read.
func (s *Store) IsPartial(csum Checksum) bool {
	_, err := os.Stat(s.partialPath(csum))
	return err == nil
}

// MarkPartial records that the commit's reachable-object closure is
// incomplete. Idempotent.
func (s *Store) MarkPartial(csum Checksum) error {
	path := s.partialPath(csum)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mark partial %s: %w", csum, err)
	}
	if err := renameio.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("mark partial %s: %w", csum, err)
	}
	return nil
}

// ClearPartial removes the commit's partial marker, if present.
func (s *Store) ClearPartial(csum Checksum) error {
	err := os.Remove(s.partialPath(csum))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear partial %s: %w", csum, err)
	}
	return nil
}
