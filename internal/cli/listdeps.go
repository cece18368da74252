package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wheelfix/pkg/delocate"
	"github.com/matzehuels/wheelfix/pkg/errors"
	"github.com/matzehuels/wheelfix/pkg/report"
)

// listdepsCommand creates the listdeps command.
func (c *CLI) listdepsCommand() *cobra.Command {
	var (
		all       bool
		depending bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "listdeps <wheel-or-dir>...",
		Short: "List the libraries required by wheels or directories",
		Long: `List the install names declared by the binaries of wheels or directory trees.

System libraries and @-relative install names are hidden unless --all is given.
Binaries are shown relative to the wheel or directory they belong to.`,
		Example: `  # Libraries a wheel still needs from the build machine
  wheelfix listdeps dist/demo-1.0-cp312-cp312-macosx_11_0_arm64.whl

  # Which binaries need each library, as JSON
  wheelfix listdeps -d -f json build/lib`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := report.ValidateFormat(format); err != nil {
				return err
			}
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			r, err := c.newRelocator(cfg)
			if err != nil {
				return err
			}
			reports, err := collectReports(cmd.Context(), r, args, cfg.LibFilter(), report.Options{All: all})
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), reports, format, depending)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include system libraries and @-relative install names")
	cmd.Flags().BoolVarP(&depending, "depending", "d", false, "show the binaries requiring each library")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "output format: text, json, yaml, toml, dot")
	cmd.Flags().StringSlice("ext", nil, "extensions of binaries to inspect (default .so,.dylib)")

	return cmd
}

// collectReports builds one report per wheel or directory, in argument
// order.
func collectReports(ctx context.Context, r *delocate.Relocator, sources []string, filter delocate.LibFilter, opts report.Options) ([]report.Report, error) {
	reports := make([]report.Report, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := sourceLibs(r, src, filter)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		reports = append(reports, report.Build(src, g, opts))
	}
	return reports, nil
}

// sourceLibs returns the dependency graph of a wheel or a directory, with
// binaries relative to it.
func sourceLibs(r *delocate.Relocator, src string, filter delocate.LibFilter) (delocate.Graph, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "stat %s", src)
	}
	if !info.IsDir() {
		return r.WheelLibs(src, filter)
	}
	g, err := r.TreeLibs(src, filter)
	if err != nil {
		return nil, err
	}
	return g.RelativeTo(src), nil
}
