// Package cli implements the jar2appimage command-line interface.
//
// This package provides commands for analyzing JAR dependency sets,
// exporting the dependency graph as DOT/SVG/PNG, and managing the
// analysis cache. The CLI is built using cobra and supports verbose
// logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - analyze: Analyze JARs and resolve an ordered classpath
//   - graph: Export the dependency graph as DOT, SVG, or PNG
//   - cache: Manage the analysis cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context for structured progress tracking.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dtg01100/jar2appimage/pkg/analysis"
	"github.com/dtg01100/jar2appimage/pkg/buildinfo"
	"github.com/dtg01100/jar2appimage/pkg/cache"
)

// appName is the application name used for directories and display.
const appName = "jar2appimage"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
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
		Use:          appName,
		Short:        "jar2appimage analyzes JAR dependencies for AppImage packaging",
		Long:         `jar2appimage inspects compiled Java archives at the binary level, builds a dependency graph, and resolves it into an ordered classpath with bundling decisions for AppImage packaging.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", defaultConfigPath(),
		"path to the TOML configuration file")

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configured TOML file. A missing file is fine.
func (c *CLI) loadConfig() (analysis.Config, error) {
	return analysis.LoadConfig(c.configPath)
}

// newCache builds the cache backend selected by the configuration.
// Backend failures fall back to no caching rather than failing the run.
func (c *CLI) newCache(cmd *cobra.Command, cfg analysis.Config, noCache bool) cache.Cache {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache()
	}
	switch cfg.Cache.Backend {
	case "memory":
		if mc, err := cache.NewMemoryCache(0); err == nil {
			return mc
		}
	case "redis":
		rc, err := cache.NewRedisCache(cmd.Context(), cache.RedisConfig{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		if err == nil {
			return rc
		}
		c.Logger.Warn("redis cache unavailable, continuing without cache", "err", err)
		return cache.NewNullCache()
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache()
		}
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the cache directory using the XDG convention
// (~/.cache/jar2appimage/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// defaultConfigPath returns ~/.config/jar2appimage/config.toml, honoring
// XDG_CONFIG_HOME.
func defaultConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}
