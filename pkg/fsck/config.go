package fsck

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the repair run's tunables. All fields have working defaults;
// an on-disk TOML file can override them.
type Config struct {
	// LockTimeout bounds the wait for the store's coordination lock.
	LockTimeout duration `toml:"lock_timeout"`
	// EvictGrace is the interval between the graceful-termination signal
	// and the forced kill.
	EvictGrace duration `toml:"evict_grace"`
	// DefaultRemote is the remote consulted for purely local refs whose
	// target commit is absent.
	DefaultRemote string `toml:"default_remote"`
	// SkipRefPatterns are regexps matched against refspecs that are
	// intentionally partial and must never be healed by re-fetching.
	SkipRefPatterns []string `toml:"skip_ref_patterns"`
}

// DefaultConfig returns the built-in tunables.
func DefaultConfig() Config {
	return Config{
		LockTimeout:     duration(30 * time.Minute),
		EvictGrace:      duration(5 * time.Second),
		DefaultRemote:   "origin",
		SkipRefPatterns: []string{`\.Locale/`},
	}
}

// LoadConfig reads tunables from a TOML file, layered over the defaults.
// A missing file returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if _, err := cfg.CompileSkipPatterns(); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// CompileSkipPatterns compiles the intentionally-partial ref patterns.
func (c Config) CompileSkipPatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.SkipRefPatterns))
	for _, p := range c.SkipRefPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("skip pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// duration is a time.Duration that TOML-decodes from strings like "30m".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
