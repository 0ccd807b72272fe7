package cask

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"
)

// Store is a content-addressed object store with a 2-character fan-out
// layout: objects/ab/cdef...<ext>. The extension encodes the object kind;
// file blobs are stored raw (.file) in bare mode and zstd-compressed
// (.filez) in archive mode.
type Store struct {
	root    string
	mode    Mode
	remotes map[string]string
}

// Open opens the store rooted at the given directory, resolving symlinks so
// that every path comparison during a repair run operates on the real path.
// The store's config file selects the mode and names the remotes.
func Open(root string) (*Store, error) {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", root, err)
	}
	cfg, err := readStoreConfig(filepath.Join(resolved, "config"))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", root, err)
	}
	return &Store{root: resolved, mode: cfg.mode(), remotes: cfg.remoteURLs()}, nil
}

// Root returns the store's resolved root directory.
func (s *Store) Root() string { return s.root }

// Mode returns the store's storage mode.
func (s *Store) Mode() Mode { return s.mode }

// RemoteURL returns the configured URL for the given remote name.
func (s *Store) RemoteURL(name string) (string, error) {
	url, ok := s.remotes[name]
	if !ok || url == "" {
		return "", fmt.Errorf("remote %q: %w", name, ErrUnknownRemote)
	}
	return url, nil
}

// objectPath returns the filesystem path for an object under this store's
// mode.
func (s *Store) objectPath(id ObjectID) string {
	return filepath.Join(s.root, filepath.FromSlash(ObjectRelPath(id, s.mode)))
}

// Has reports whether the store contains the given object.
func (s *Store) Has(id ObjectID) bool {
	_, err := os.Stat(s.objectPath(id))
	return err == nil
}

// ReadObject retrieves an object's payload. Absence is reported as
// ErrObjectNotFound (wrapped); any other failure, including a corrupt
// archive-mode blob, is a distinct read error.
func (s *Store) ReadObject(id ObjectID) ([]byte, error) {
	raw, err := os.ReadFile(s.objectPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s %s: %w", id.Kind, id.Checksum, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read %s %s: %w", id.Kind, id.Checksum, err)
	}
	if id.Kind == KindFile && s.mode == ModeArchive {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("read %s %s: %w", id.Kind, id.Checksum, err)
		}
		defer dec.Close()
		payload, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("read %s %s: decompress: %w", id.Kind, id.Checksum, err)
		}
		return payload, nil
	}
	return raw, nil
}

// WriteObject stores a payload and returns its checksum. The checksum is
// computed over the uncompressed payload, so identity does not depend on
// mode. Writes are atomic.
func (s *Store) WriteObject(kind ObjectKind, payload []byte) (Checksum, error) {
	csum := HashObject(kind, payload)
	id := ObjectID{Checksum: csum, Kind: kind}
	if s.Has(id) {
		return csum, nil
	}

	raw := payload
	if kind == KindFile && s.mode == ModeArchive {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return "", fmt.Errorf("write %s: %w", kind, err)
		}
		defer enc.Close()
		raw = enc.EncodeAll(payload, nil)
	}

	dest := s.objectPath(id)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("write %s %s: mkdir: %w", kind, csum, err)
	}
	if err := renameio.WriteFile(dest, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s %s: %w", kind, csum, err)
	}
	return csum, nil
}

// ReadCommit reads and parses a commit object.
func (s *Store) ReadCommit(csum Checksum) (*CommitObj, error) {
	payload, err := s.ReadObject(ObjectID{Checksum: csum, Kind: KindCommit})
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(payload)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", csum, err)
	}
	return c, nil
}

// ReadTree reads and parses a dirtree object.
func (s *Store) ReadTree(csum Checksum) (*TreeObj, error) {
	payload, err := s.ReadObject(ObjectID{Checksum: csum, Kind: KindDirTree})
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(payload)
	if err != nil {
		return nil, fmt.Errorf("dirtree %s: %w", csum, err)
	}
	return tr, nil
}
