// Package fetch restores objects from a configured remote into a local
// cask store. Remotes are archive-mode stores served statically over HTTP,
// so a fetch is a sequence of plain GETs against the remote's objects area.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/caskstore/caskfsck/pkg/cask"
	"github.com/caskstore/caskfsck/pkg/fsck"
)

// Client fetches objects over HTTP into a local store. It implements
// fsck.Fetcher.
type Client struct {
	Store       *cask.Store
	HTTP        *http.Client
	MaxAttempts int
	Log         *slog.Logger
}

// NewClient returns a Client with the default transport settings.
func NewClient(st *cask.Store, log *slog.Logger) *Client {
	return &Client{
		Store:       st,
		HTTP:        &http.Client{Timeout: 60 * time.Second},
		MaxAttempts: 3,
		Log:         log,
	}
}

// Fetch restores a commit from the named remote. A metadata-only fetch
// transfers just the commit object and leaves the commit marked partial,
// since its closure is known to be absent. A full fetch transfers the
// commit's entire closure and clears the partial marker on success.
func (c *Client) Fetch(ctx context.Context, remote string, commit cask.Checksum, depth fsck.FetchDepth) error {
	base, err := c.Store.RemoteURL(remote)
	if err != nil {
		return err
	}
	c.Log.Info("fetching commit", "remote", remote, "commit", commit, "depth", depth.String())

	payload, err := c.fetchObject(ctx, base, cask.ObjectID{Checksum: commit, Kind: cask.KindCommit})
	if err != nil {
		return err
	}
	if _, err := c.Store.WriteObject(cask.KindCommit, payload); err != nil {
		return err
	}

	if depth == fsck.FetchMetadataOnly {
		return c.Store.MarkPartial(commit)
	}

	if err := c.fetchClosure(ctx, base, payload); err != nil {
		return err
	}
	return c.Store.ClearPartial(commit)
}

// fetchClosure walks the commit's structural graph, transferring every
// object the local store does not already have. Parent commits are not
// followed; completeness is per-commit.
func (c *Client) fetchClosure(ctx context.Context, base string, commitPayload []byte) error {
	commit, err := cask.UnmarshalCommit(commitPayload)
	if err != nil {
		return fmt.Errorf("fetched commit: %w", err)
	}

	if err := c.ensureObject(ctx, base, cask.ObjectID{Checksum: commit.RootMeta, Kind: cask.KindDirMeta}); err != nil {
		return err
	}

	stack := []cask.Checksum{commit.RootTree}
	seen := make(map[cask.Checksum]struct{})
	for len(stack) > 0 {
		treeSum := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[treeSum]; ok {
			continue
		}
		seen[treeSum] = struct{}{}

		treePayload, err := c.ensureAndRead(ctx, base, cask.ObjectID{Checksum: treeSum, Kind: cask.KindDirTree})
		if err != nil {
			return err
		}
		tree, err := cask.UnmarshalTree(treePayload)
		if err != nil {
			return fmt.Errorf("fetched dirtree %s: %w", treeSum, err)
		}

		for _, e := range tree.Entries {
			if e.IsDir {
				if err := c.ensureObject(ctx, base, cask.ObjectID{Checksum: e.Meta, Kind: cask.KindDirMeta}); err != nil {
					return err
				}
				stack = append(stack, e.Subtree)
				continue
			}
			if err := c.ensureObject(ctx, base, cask.ObjectID{Checksum: e.Blob, Kind: cask.KindFile}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureObject transfers the object unless the local store already has it.
func (c *Client) ensureObject(ctx context.Context, base string, id cask.ObjectID) error {
	if c.Store.Has(id) {
		return nil
	}
	payload, err := c.fetchObject(ctx, base, id)
	if err != nil {
		return err
	}
	_, err = c.Store.WriteObject(id.Kind, payload)
	return err
}

// ensureAndRead returns the object's payload, transferring it first if the
// local store lacks it.
func (c *Client) ensureAndRead(ctx context.Context, base string, id cask.ObjectID) ([]byte, error) {
	if c.Store.Has(id) {
		return c.Store.ReadObject(id)
	}
	payload, err := c.fetchObject(ctx, base, id)
	if err != nil {
		return nil, err
	}
	if _, err := c.Store.WriteObject(id.Kind, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// fetchObject GETs one object from the remote, decompresses archive-mode
// file blobs, and verifies the payload against the requested checksum
// before returning it.
func (c *Client) fetchObject(ctx context.Context, base string, id cask.ObjectID) ([]byte, error) {
	url := strings.TrimRight(base, "/") + "/" + cask.ObjectRelPath(id, cask.ModeArchive)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", id.Kind, id.Checksum, err)
	}

	resp, err := retryDo(c.HTTP, req, c.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", id.Kind, id.Checksum, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s %s: not present on remote", id.Kind, id.Checksum)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s %s: remote returned %s", id.Kind, id.Checksum, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: read body: %w", id.Kind, id.Checksum, err)
	}

	payload := raw
	if id.Kind == cask.KindFile {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", id.Kind, id.Checksum, err)
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: decompress: %w", id.Kind, id.Checksum, err)
		}
	}

	if got := cask.HashObject(id.Kind, payload); got != id.Checksum {
		return nil, fmt.Errorf("fetch %s %s: checksum mismatch (got %s)", id.Kind, id.Checksum, got)
	}
	return payload, nil
}
