package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/folio/pkg/cache"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/objstore"
	"github.com/matzehuels/folio/pkg/store"
	"github.com/matzehuels/folio/pkg/toolchain"
)

// isolate points HOME at an empty directory and runs in another, so no
// folio.toml on the machine leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, log.InfoLevel, cfg.Level())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, store.BackendAirtable, cfg.Store.Backend)
	assert.Equal(t, store.DefaultAirtableURL, cfg.Store.AirtableURL)
	assert.Equal(t, objstore.BackendR2, cfg.Objects.Backend)
	assert.Equal(t, DefaultBucket, cfg.Objects.Bucket)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join(home, ".cache", "folio"), cfg.Cache.Dir)
	assert.Equal(t, cache.SHA256, cfg.Pipeline.HashAlgorithm)
	assert.Equal(t, latex.DefaultParams(), cfg.Pipeline.Defaults)
	assert.Equal(t, toolchain.DefaultEngine, cfg.Toolchain.Engine)
	assert.Equal(t, toolchain.DefaultLimits(), cfg.Toolchain.Limits)
	assert.Equal(t, latex.OverlayStrict, cfg.OverlayMode())
	assert.True(t, cfg.Latex.GroupListItems)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "folio.toml", `
log_level = "debug"

[server]
port = 9090
max_concurrent = 2

[store]
backend = "sqlite"
dsn = "folio.db"

[objects]
backend = "local"
dir = "objects"
public_base_url = "https://cdn.example.com"

[pipeline]
archive_source = true
hash_algorithm = "blake3"

[pipeline.defaults]
trim_size = "5x8"

[toolchain.limits]
enforce_min_pages = true

[latex]
overlay = "compat"
`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, cfg.Level())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxConcurrent)
	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "folio.db", cfg.Store.DSN)
	assert.Equal(t, objstore.BackendLocal, cfg.Objects.Backend)
	assert.Equal(t, "https://cdn.example.com", cfg.Pipeline.PublicBaseURL, "pipeline inherits the object store public base")
	assert.True(t, cfg.Pipeline.ArchiveSource)
	assert.Equal(t, cache.BLAKE3, cfg.Pipeline.HashAlgorithm)
	assert.Equal(t, "5x8", cfg.Pipeline.Defaults.TrimSize)
	assert.Equal(t, latex.DefaultFont, cfg.Pipeline.Defaults.Font)
	assert.True(t, cfg.Toolchain.Limits.EnforceMinPages)
	assert.Equal(t, 828, cfg.Toolchain.Limits.MaxPages)
	assert.Equal(t, latex.OverlayCompat, cfg.OverlayMode())
	assert.Equal(t, "folio.toml", filepath.Base(cfg.File))
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("AIRTABLE_TOKEN", "pat123")
	t.Setenv("AIRTABLE_BASE_ID", "appXYZ")
	t.Setenv("R2_ACCOUNT_ID", "acct")
	t.Setenv("R2_BUCKET_NAME", "books")
	t.Setenv("R2_PUBLIC_BASE_URL", "https://pub.r2.dev")
	t.Setenv("PORT", "3000")
	t.Setenv("FOLIO_CACHE_BACKEND", "none")
	t.Setenv("FOLIO_PIPELINE_KEEP_WORK_FILES", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pat123", cfg.Store.AirtableToken)
	assert.Equal(t, "appXYZ", cfg.Store.AirtableBaseID)
	assert.Equal(t, "acct", cfg.Objects.AccountID)
	assert.Equal(t, "books", cfg.Objects.Bucket)
	assert.Equal(t, "https://pub.r2.dev", cfg.Pipeline.PublicBaseURL)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.True(t, cfg.Pipeline.KeepWorkFiles)
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	isolate(t)
	t.Setenv("FOLIO_SERVER_PORT", "7000")
	t.Setenv("PORT", "3000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{"bad log level", map[string]string{"FOLIO_LOG_LEVEL": "loud"}, "log_level"},
		{"bad store", map[string]string{"FOLIO_STORE_BACKEND": "dynamo"}, "store.backend"},
		{"bad objects", map[string]string{"FOLIO_OBJECTS_BACKEND": "ftp"}, "objects.backend"},
		{"bad cache", map[string]string{"FOLIO_CACHE_BACKEND": "memcached"}, "cache.backend"},
		{"redis without url", map[string]string{"FOLIO_CACHE_BACKEND": "redis"}, "redis_url"},
		{"bad hash", map[string]string{"FOLIO_PIPELINE_HASH_ALGORITHM": "md5"}, "hash_algorithm"},
		{"bad overlay", map[string]string{"FOLIO_LATEX_OVERLAY": "loose"}, "latex.overlay"},
		{"zero passes", map[string]string{"FOLIO_TOOLCHAIN_PASSES": "0"}, "passes"},
		{"bad port", map[string]string{"FOLIO_SERVER_PORT": "70000"}, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDefaultCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")
	assert.Equal(t, "/xdg/cache/folio", DefaultCacheDir())
}
