package fsck

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 30*time.Minute, time.Duration(cfg.LockTimeout))
	require.Equal(t, 5*time.Second, time.Duration(cfg.EvictGrace))
	require.Equal(t, "origin", cfg.DefaultRemote)

	skip, err := cfg.CompileSkipPatterns()
	require.NoError(t, err)
	require.Len(t, skip, 1)
	require.True(t, skip[0].MatchString("origin:apps/Editor.Locale/fr/stable"))
	require.False(t, skip[0].MatchString("origin:apps/Editor/stable"))
}

func TestLoadConfigMissingFileIsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caskfsck.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
lock_timeout = "2m"
default_remote = "mirror"
skip_ref_patterns = ['\.Locale/', '\.Debug$']
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, time.Duration(cfg.LockTimeout))
	require.Equal(t, "mirror", cfg.DefaultRemote)
	require.Len(t, cfg.SkipRefPatterns, 2)

	// Unmentioned fields keep their defaults.
	require.Equal(t, 5*time.Second, time.Duration(cfg.EvictGrace))
}

func TestLoadConfigRejectsBadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caskfsck.toml")
	require.NoError(t, os.WriteFile(path, []byte("skip_ref_patterns = ['[']\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caskfsck.toml")
	require.NoError(t, os.WriteFile(path, []byte("evict_grace = \"soon\"\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
