package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/folio/internal/config"
	"github.com/matzehuels/folio/pkg/buildinfo"
	"github.com/matzehuels/folio/pkg/cache"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/objstore"
	"github.com/matzehuels/folio/pkg/pipeline"
	"github.com/matzehuels/folio/pkg/policy"
	"github.com/matzehuels/folio/pkg/schema"
	"github.com/matzehuels/folio/pkg/store"
	"github.com/matzehuels/folio/pkg/toolchain"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "folio"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfgFile string
	verbose bool
	cfg     *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Folio typesets manuscripts into print-ready interior PDFs",
		Long: `Folio turns structured manuscript artifacts into print-ready book interiors.

It validates the manuscript, decides from its analysis warnings whether to
proceed, degrade or fail, renders LaTeX, typesets it with xelatex and checks
the PDF against print-on-demand limits. As a worker it picks up service
records, uploads the PDF and records the outcome.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./folio.toml or ~/.config/folio/folio.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	// Register all subcommands
	root.AddCommand(c.processCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.policyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration once and applies its log level.
// --verbose always wins.
func (c *CLI) loadConfig() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	level := cfg.Level()
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	if cfg.File != "" {
		c.Logger.Debug("using config file", "path", cfg.File)
	}
	return nil
}

// settings returns the loaded configuration, loading it on first use.
func (c *CLI) settings() (*config.Config, error) {
	if err := c.loadConfig(); err != nil {
		return nil, err
	}
	return c.cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOpts are per-invocation overrides of the configured pipeline.
type runnerOpts struct {
	noCache  bool
	refresh  bool
	archive  bool
	keep     bool
	overlay  string
	rules    string
	withData bool // open the record and object stores
}

// newRunner creates a pipeline runner from the configuration. Stores are
// only opened when opts.withData is set, so local commands work without
// credentials.
func (c *CLI) newRunner(ctx context.Context, opts runnerOpts) (*pipeline.Runner, error) {
	cfg, err := c.settings()
	if err != nil {
		return nil, err
	}

	cc, err := newCache(ctx, cfg.Cache, opts.noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}

	r, err := pipeline.NewRunner(cc, keyer, c.Logger)
	if err != nil {
		cc.Close()
		return nil, err
	}
	r.Options = cfg.Pipeline
	r.Options.Refresh = r.Options.Refresh || opts.refresh
	r.Options.ArchiveSource = r.Options.ArchiveSource || opts.archive
	r.Options.KeepWorkFiles = r.Options.KeepWorkFiles || opts.keep
	r.Options.SetDefaults()

	r.Converter, err = c.newConverter(cfg, opts)
	if err != nil {
		r.Close()
		return nil, err
	}
	ts := toolchain.NewTypesetter(c.Logger)
	ts.Engine = cfg.Toolchain.Engine
	ts.Passes = cfg.Toolchain.Passes
	r.Typesetter = ts
	r.Inspector = toolchain.NewInspector(cfg.Toolchain.Limits, c.Logger)

	if !opts.withData {
		return r, nil
	}
	records, err := store.Open(ctx, cfg.Store)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("open record store: %w", err)
	}
	objects, err := objstore.Open(cfg.Objects)
	if err != nil {
		records.Close()
		r.Close()
		return nil, fmt.Errorf("open object store: %w", err)
	}
	r.Services = store.NewServices(records, c.Logger)
	r.Objects = objects
	return r, nil
}

// closeRunner releases the runner's cache and record store.
func closeRunner(r *pipeline.Runner) {
	if r.Services != nil {
		r.Services.Store.Close()
	}
	r.Close()
}

// newConverter builds a converter honoring the overlay mode and policy
// rules from the configuration, with flag overrides.
func (c *CLI) newConverter(cfg *config.Config, opts runnerOpts) (*pipeline.Converter, error) {
	mode := cfg.OverlayMode()
	if opts.overlay != "" {
		m, ok := latex.ParseOverlayMode(opts.overlay)
		if !ok {
			return nil, fmt.Errorf("invalid overlay mode: %s (must be 'strict' or 'compat')", opts.overlay)
		}
		mode = m
	}

	engine, err := c.newPolicy(cfg, opts.rules)
	if err != nil {
		return nil, err
	}

	reg, err := schema.NewRegistry("")
	if err != nil {
		return nil, err
	}
	asm := latex.NewAssembler(mode, c.Logger)
	asm.GroupListItems = cfg.Latex.GroupListItems
	return pipeline.NewConverter(schema.NewValidator(reg), engine, asm, c.Logger), nil
}

// newPolicy loads the rules file named by the flag or the configuration,
// falling back to the built-in rules.
func (c *CLI) newPolicy(cfg *config.Config, rulesFile string) (*policy.Engine, error) {
	if rulesFile == "" {
		rulesFile = cfg.Policy.RulesFile
	}
	if rulesFile == "" {
		return policy.NewDefault(c.Logger), nil
	}
	rules, err := policy.LoadRules(rulesFile)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded policy rules", "path", rulesFile, "max_degrade", rules.MaxDegrade)
	return policy.New(rules, c.Logger), nil
}

func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	case config.CacheNone:
		return cache.NewNullCache(), nil
	default:
		return cache.NewFileCache(cfg.Dir)
	}
}
