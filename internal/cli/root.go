package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/wheelfix/pkg/buildinfo"
	"github.com/matzehuels/wheelfix/pkg/observability"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The persistent pre-run attaches the CLI logger to the command context and
// registers the observability hooks that feed the per-run summary.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "wheelfix bundles external dynamic libraries into macOS wheels",
		Long: `wheelfix copies the dynamic libraries that compiled extension modules link against
into the wheel that ships them and rewrites the install names, so the wheel works on
machines without the original build environment.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			c.stats = &relocationStats{}
			observability.SetRelocationHooks(c.stats)
			observability.SetCacheHooks(c.stats)
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./wheelfix.toml or $XDG_CONFIG_HOME/wheelfix/wheelfix.toml)")
	root.PersistentFlags().Bool("no-cache", false, "do not read or write the inspection cache")

	// Register all subcommands
	root.AddCommand(c.wheelCommand())
	root.AddCommand(c.pathCommand())
	root.AddCommand(c.listdepsCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
