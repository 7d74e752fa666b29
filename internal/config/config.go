// Package config loads worker settings from folio.toml and the environment.
//
// Every key has a default. Values are read, in increasing precedence, from
// the defaults, the config file and environment variables. Environment names
// are the key path upper-cased under FOLIO_ (store.backend is
// FOLIO_STORE_BACKEND); the deployment variables of the hosted worker
// (AIRTABLE_TOKEN, R2_BUCKET_NAME, PORT, ...) are bound as well.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/folio/pkg/cache"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/objstore"
	"github.com/matzehuels/folio/pkg/pipeline"
	"github.com/matzehuels/folio/pkg/store"
	"github.com/matzehuels/folio/pkg/toolchain"
)

const (
	appName   = "folio"
	envPrefix = "FOLIO"

	// DefaultBucket is the artifact bucket of the hosted deployment.
	DefaultBucket = "pronto-artifacts"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete worker configuration.
type Config struct {
	LogLevel  string           `mapstructure:"log_level"`
	Server    Server           `mapstructure:"server"`
	Store     store.Options    `mapstructure:"store"`
	Objects   objstore.Options `mapstructure:"objects"`
	Cache     Cache            `mapstructure:"cache"`
	Pipeline  pipeline.Options `mapstructure:"pipeline"`
	Toolchain Toolchain        `mapstructure:"toolchain"`
	Latex     Latex            `mapstructure:"latex"`
	Policy    Policy           `mapstructure:"policy"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Server configures the HTTP worker.
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxConcurrent bounds simultaneous /process runs. Zero means no limit.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Cache selects the artifact and PDF cache.
type Cache struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	RedisURL string `mapstructure:"redis_url"`

	// Prefix namespaces keys when several deployments share one Redis.
	Prefix string `mapstructure:"prefix"`
}

// Toolchain configures the external binaries.
type Toolchain struct {
	Engine string           `mapstructure:"engine"`
	Passes int              `mapstructure:"passes"`
	Limits toolchain.Limits `mapstructure:"limits"`
}

// Latex configures markup generation.
type Latex struct {
	Overlay        string `mapstructure:"overlay"`
	GroupListItems bool   `mapstructure:"group_list_items"`
}

// Policy points at an optional YAML rules override.
type Policy struct {
	RulesFile string `mapstructure:"rules_file"`
}

// envAliases binds keys to the variable names used by existing deployments.
var envAliases = map[string][]string{
	"store.airtable_token":      {"AIRTABLE_TOKEN"},
	"store.airtable_base_id":    {"AIRTABLE_BASE_ID"},
	"objects.account_id":        {"R2_ACCOUNT_ID"},
	"objects.access_key_id":     {"R2_ACCESS_KEY_ID"},
	"objects.secret_access_key": {"R2_SECRET_ACCESS_KEY"},
	"objects.bucket":            {"R2_BUCKET_NAME"},
	"objects.public_base_url":   {"R2_PUBLIC_BASE_URL"},
	"server.port":               {"PORT"},
	"cache.redis_url":           {"REDIS_URL"},
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_concurrent", 0)

	v.SetDefault("store.backend", store.BackendAirtable)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.database", appName)
	v.SetDefault("store.airtable_token", "")
	v.SetDefault("store.airtable_base_id", "")
	v.SetDefault("store.airtable_url", store.DefaultAirtableURL)

	v.SetDefault("objects.backend", objstore.BackendR2)
	v.SetDefault("objects.account_id", "")
	v.SetDefault("objects.endpoint", "")
	v.SetDefault("objects.region", "")
	v.SetDefault("objects.access_key_id", "")
	v.SetDefault("objects.secret_access_key", "")
	v.SetDefault("objects.bucket", DefaultBucket)
	v.SetDefault("objects.insecure", false)
	v.SetDefault("objects.dir", filepath.Join(DefaultDataDir(), "objects"))
	v.SetDefault("objects.public_base_url", "")
	v.SetDefault("objects.hash_algorithm", string(cache.SHA256))

	v.SetDefault("cache.backend", CacheFile)
	v.SetDefault("cache.dir", DefaultCacheDir())
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "")

	v.SetDefault("pipeline.work_dir", pipeline.DefaultWorkDir())
	v.SetDefault("pipeline.worker_version", "")
	v.SetDefault("pipeline.public_base_url", "")
	v.SetDefault("pipeline.archive_source", false)
	v.SetDefault("pipeline.keep_work_files", false)
	v.SetDefault("pipeline.refresh", false)
	v.SetDefault("pipeline.hash_algorithm", string(cache.SHA256))
	d := latex.DefaultParams()
	v.SetDefault("pipeline.defaults.trim_size", d.TrimSize)
	v.SetDefault("pipeline.defaults.font", d.Font)
	v.SetDefault("pipeline.defaults.chapter_style", d.ChapterStyle)
	v.SetDefault("pipeline.defaults.genre", d.Genre)
	v.SetDefault("pipeline.defaults.author_name", d.AuthorName)
	v.SetDefault("pipeline.defaults.book_title", d.BookTitle)

	l := toolchain.DefaultLimits()
	v.SetDefault("toolchain.engine", toolchain.DefaultEngine)
	v.SetDefault("toolchain.passes", toolchain.DefaultPasses)
	v.SetDefault("toolchain.limits.max_size_mb", l.MaxSizeMB)
	v.SetDefault("toolchain.limits.min_pages", l.MinPages)
	v.SetDefault("toolchain.limits.max_pages", l.MaxPages)
	v.SetDefault("toolchain.limits.enforce_min_pages", l.EnforceMinPages)

	v.SetDefault("latex.overlay", latex.OverlayStrict.String())
	v.SetDefault("latex.group_list_items", true)

	v.SetDefault("policy.rules_file", "")
}

// New returns a viper instance with defaults, file search paths and
// environment bindings configured. cfgFile overrides the search.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		_ = v.BindEnv(append([]string{key, envName(key)}, names...)...)
	}
	return v
}

// envName is the prefixed variable name of key. BindEnv with explicit names
// skips the prefix, so it has to be listed alongside the aliases.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads the configuration. A missing config file is not an error
// unless cfgFile names it explicitly.
func Load(cfgFile string) (*Config, error) {
	v := New(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.Pipeline.PublicBaseURL == "" {
		cfg.Pipeline.PublicBaseURL = cfg.Objects.PublicBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
