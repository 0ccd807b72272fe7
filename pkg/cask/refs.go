package cask

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"
)

// ParseRefspec splits a refspec into its remote and branch parts. A bare
// branch name is a local ref with an empty remote.
func ParseRefspec(refspec string) (remote, branch string, err error) {
	refspec = strings.TrimSpace(refspec)
	if refspec == "" {
		return "", "", fmt.Errorf("parse refspec: empty")
	}
	remote, branch, ok := strings.Cut(refspec, ":")
	if !ok {
		return "", refspec, nil
	}
	if remote == "" || branch == "" {
		return "", "", fmt.Errorf("parse refspec %q: empty remote or branch", refspec)
	}
	return remote, branch, nil
}

func (s *Store) refPath(r Ref) string {
	if r.Remote == "" {
		return filepath.Join(s.root, "refs", "heads", filepath.FromSlash(r.Branch))
	}
	return filepath.Join(s.root, "refs", "remotes", r.Remote, filepath.FromSlash(r.Branch))
}

// ListRefs enumerates every ref in the store, local and remote, sorted by
// refspec.
func (s *Store) ListRefs() ([]Ref, error) {
	var refs []Ref

	heads := filepath.Join(s.root, "refs", "heads")
	err := walkRefs(heads, func(branch string, target Checksum) {
		refs = append(refs, Ref{Branch: branch, Target: target})
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	remotesDir := filepath.Join(s.root, "refs", "remotes")
	entries, err := os.ReadDir(remotesDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		remote := e.Name()
		err := walkRefs(filepath.Join(remotesDir, remote), func(branch string, target Checksum) {
			refs = append(refs, Ref{Remote: remote, Branch: branch, Target: target})
		})
		if err != nil {
			return nil, fmt.Errorf("list refs: %w", err)
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Refspec() < refs[j].Refspec() })
	return refs, nil
}

func walkRefs(root string, fn func(branch string, target Checksum)) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fn(filepath.ToSlash(rel), Checksum(strings.TrimSpace(string(data))))
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// UpdateRef atomically writes a ref binding. This is the store's own
// ref-write mechanism; repair never retargets refs through it.
func (s *Store) UpdateRef(r Ref) error {
	if !ValidChecksum(r.Target) {
		return fmt.Errorf("update ref %s: invalid target %q", r.Refspec(), r.Target)
	}
	path := s.refPath(r)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("update ref %s: %w", r.Refspec(), err)
	}
	if err := renameio.WriteFile(path, []byte(string(r.Target)+"\n"), 0o644); err != nil {
		return fmt.Errorf("update ref %s: %w", r.Refspec(), err)
	}
	return nil
}
