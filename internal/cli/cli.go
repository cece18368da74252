// Package cli implements the wheelfix command-line interface.
//
// This package provides commands for bundling external shared libraries into
// Python wheels and plain directory trees, listing the libraries binaries
// depend on, and managing the inspection cache. The CLI is built using cobra
// and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - wheel: Copy external libraries into wheels and fix install names
//   - path: Do the same for a directory tree
//   - listdeps: List the libraries required by wheels or directories
//   - graph: Render the dependency graph of a wheel
//   - cache: Manage the inspection cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
//
// # Configuration
//
// Settings are read from wheelfix.toml and WHEELFIX_* environment variables
// (see package config); command-line flags take precedence.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/wheelfix/internal/config"
	"github.com/matzehuels/wheelfix/pkg/cache"
	"github.com/matzehuels/wheelfix/pkg/delocate"
	"github.com/matzehuels/wheelfix/pkg/macho"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "wheelfix"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// ToolFactory builds the inspector and editor used by commands.
type ToolFactory func(cfg config.Config) (delocate.Inspector, delocate.Editor, error)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Tools builds the binary inspector and editor. Nil uses the Mach-O
	// implementations with the inspection cache.
	Tools ToolFactory

	cfgFile string
	stats   *relocationStats
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Configuration
// =============================================================================

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"lib-sdir":          "lib_sdir",
	"exclude":           "exclude_prefixes",
	"ext":               "extensions",
	"install-name-tool": "install_name_tool",
	"no-cache":          "no_cache",
}

// loadConfig reads the configuration and overlays the flags of cmd that
// were set explicitly.
func (c *CLI) loadConfig(cmd *cobra.Command) (config.Config, error) {
	v, err := config.New(c.cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	bindFlags(v, cmd)
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Verbose {
		c.SetLogLevel(LogDebug)
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// =============================================================================
// Relocator Factory
// =============================================================================

// newRelocator creates a relocator for CLI use.
func (c *CLI) newRelocator(cfg config.Config) (*delocate.Relocator, error) {
	tools := c.Tools
	if tools == nil {
		tools = machoTools
	}
	insp, ed, err := tools(cfg)
	if err != nil {
		return nil, err
	}
	return delocate.New(insp, ed, c.Logger), nil
}

func machoTools(cfg config.Config) (delocate.Inspector, delocate.Editor, error) {
	c, err := newCache(cfg.NoCache)
	if err != nil {
		return nil, nil, err
	}
	return macho.NewCachedInspector(macho.NewInspector(), c), macho.NewEditor(cfg.InstallNameTool), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/wheelfix/).
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
