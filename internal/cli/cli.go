// Package cli implements the kinview command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinview/pkg/buildinfo"
	"github.com/matzehuels/kinview/pkg/cache"
	"github.com/matzehuels/kinview/pkg/config"
	"github.com/matzehuels/kinview/pkg/engine"
	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/observability"
	"github.com/matzehuels/kinview/pkg/observability/prom"
	"github.com/matzehuels/kinview/pkg/prefetch"
	"github.com/matzehuels/kinview/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "kinview"

	// defaultLoadTimeout bounds record loading when the config sets none.
	defaultLoadTimeout = 30 * time.Second
)

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

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Kinview lays out and explores family trees",
		Long:         `Kinview computes tidy layouts for large family trees and renders them with level-of-detail, gesture-driven viewports.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML config file (default: built-in defaults)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.frameCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	if c.configPath == "" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("loaded config", "path", c.configPath)
	return nil
}

// =============================================================================
// Records
// =============================================================================

// loadRecords reads records from path, or from the configured source when path
// is empty.
func (c *CLI) loadRecords(ctx context.Context, path string) ([]family.PersonRecord, error) {
	opts := c.cfg.Source.Options()
	if path != "" {
		opts = source.Options{Backend: "file", Path: path}
	}
	if opts.Backend == "file" && opts.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no records file given and source.path is not set")
	}

	timeout := c.cfg.Source.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	src, err := source.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer src.Close(context.Background())

	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	c.Logger.Debug("loaded records", "source", src, "count", len(records))
	return records, nil
}

// =============================================================================
// Engine Factory
// =============================================================================

type stackOptions struct {
	noCache  bool
	prefetch bool
	registry prometheus.Registerer
}

// stack is an engine together with the resources it borrows.
type stack struct {
	engine     *engine.Engine
	cache      cache.Cache
	prefetcher *prefetch.Prefetcher
	hooks      observability.Hooks
}

// newStack opens the cache and prefetcher and builds an engine on them.
func (c *CLI) newStack(ctx context.Context, so stackOptions) (*stack, error) {
	s := &stack{hooks: observability.Noop()}
	if so.registry != nil {
		s.hooks = prom.New(so.registry).Hooks()
	}

	ccfg := c.cfg.Cache
	if so.noCache {
		ccfg.Backend = "none"
	}
	store, keyer, err := ccfg.Open(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", ccfg.Backend, "err", err)
		store, keyer = cache.NewNullCache(), cache.NewDefaultKeyer()
	}
	s.cache = cache.Instrument(store, s.hooks.Cache)

	opts := []engine.Option{
		engine.WithLogger(c.Logger),
		engine.WithHooks(s.hooks),
		engine.WithCache(s.cache, keyer),
	}
	if so.prefetch && c.cfg.Prefetch.Enabled {
		popts := c.cfg.Prefetch.Options(c.Logger)
		popts.Cache = s.cache
		popts.Keyer = keyer
		popts.Hooks = s.hooks.Prefetch
		s.prefetcher = prefetch.New(popts)
		opts = append(opts, engine.WithPrefetcher(s.prefetcher))
	}
	s.engine = engine.New(c.cfg, opts...)
	return s, nil
}

func (s *stack) Close() error {
	s.engine.Close()
	if s.prefetcher != nil {
		s.prefetcher.Close()
	}
	return s.cache.Close()
}
