package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/folio/pkg/cache"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/objstore"
	"github.com/matzehuels/folio/pkg/store"
)

// Validate checks enumerated values and numeric ranges. Credentials are not
// checked here; backends report them when opened.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("server.max_concurrent must not be negative")
	}
	if c.Store.Backend != "" && !slices.Contains(store.Backends(), c.Store.Backend) {
		return fmt.Errorf("store.backend: unknown backend %q (want one of %v)", c.Store.Backend, store.Backends())
	}
	if c.Objects.Backend != "" && !slices.Contains(objstore.Backends(), c.Objects.Backend) {
		return fmt.Errorf("objects.backend: unknown backend %q (want one of %v)", c.Objects.Backend, objstore.Backends())
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required for the redis backend")
	}
	for key, alg := range map[string]cache.Algorithm{
		"pipeline.hash_algorithm": c.Pipeline.HashAlgorithm,
		"objects.hash_algorithm":  c.Objects.HashAlgorithm,
	} {
		if _, err := cache.ParseAlgorithm(string(alg)); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if _, ok := latex.ParseOverlayMode(c.Latex.Overlay); !ok {
		return fmt.Errorf("latex.overlay: unknown mode %q (want strict or compat)", c.Latex.Overlay)
	}
	if c.Toolchain.Passes < 1 {
		return fmt.Errorf("toolchain.passes must be at least 1")
	}
	l := c.Toolchain.Limits
	if l.MinPages < 0 || l.MaxPages < l.MinPages {
		return fmt.Errorf("toolchain.limits: invalid page range %d..%d", l.MinPages, l.MaxPages)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// OverlayMode returns the configured mark overlay mode.
func (c *Config) OverlayMode() latex.OverlayMode {
	m, _ := latex.ParseOverlayMode(c.Latex.Overlay)
	return m
}

// =============================================================================
// Paths
// =============================================================================

// DefaultCacheDir returns the cache directory using XDG standard (~/.cache/folio/).
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "cache")
	}
	return filepath.Join(home, ".cache", appName)
}

// DefaultDataDir returns the data directory using XDG standard (~/.local/share/folio/).
func DefaultDataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "data")
	}
	return filepath.Join(home, ".local", "share", appName)
}
