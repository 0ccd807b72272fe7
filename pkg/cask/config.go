package cask

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio"
)

// storeConfig mirrors the store's on-disk config file:
//
//	[core]
//	mode = "bare"
//
//	[remotes.origin]
//	url = "https://updates.example.com/repo"
type storeConfig struct {
	Core struct {
		Mode string `toml:"mode"`
	} `toml:"core"`
	Remotes map[string]remoteConfig `toml:"remotes"`
}

type remoteConfig struct {
	URL string `toml:"url"`
}

func (c *storeConfig) mode() Mode {
	if c.Core.Mode == string(ModeArchive) {
		return ModeArchive
	}
	return ModeBare
}

func (c *storeConfig) remoteURLs() map[string]string {
	out := make(map[string]string, len(c.Remotes))
	for name, r := range c.Remotes {
		out[name] = r.URL
	}
	return out
}

func readStoreConfig(path string) (*storeConfig, error) {
	var cfg storeConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			// A configless store is a bare store with no remotes.
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if m := cfg.Core.Mode; m != "" && m != string(ModeBare) && m != string(ModeArchive) {
		return nil, fmt.Errorf("read config: unknown mode %q", m)
	}
	return &cfg, nil
}

// InitStore creates an empty store at root with the given mode and remotes.
// Used by store tooling and tests; a repair run never creates stores.
func InitStore(root string, mode Mode, remotes map[string]string) (*Store, error) {
	for _, dir := range []string{"objects", "refs/heads", "refs/remotes", "state", "tmp/cache"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}

	cfg := storeConfig{Remotes: make(map[string]remoteConfig, len(remotes))}
	cfg.Core.Mode = string(mode)
	for name, url := range remotes {
		cfg.Remotes[name] = remoteConfig{URL: url}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(&cfg); err != nil {
		return nil, fmt.Errorf("init store: encode config: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(root, "config"), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("init store: write config: %w", err)
	}
	return Open(root)
}
