package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wheelfix/pkg/errors"
	"github.com/matzehuels/wheelfix/pkg/report"
)

// graphCommand creates the graph command for drawing dependency graphs.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "graph <wheel-or-dir>...",
		Short: "Draw the library dependency graph of wheels or directories",
		Long: `Draw which binaries require which libraries.

The output format follows the extension of --output: .svg renders with
Graphviz, anything else is written as DOT. Without --output, DOT is
printed to stdout.`,
		Example: `  # Render a wheel's dependencies
  wheelfix graph -o deps.svg dist/demo-1.0-cp312-cp312-macosx_11_0_arm64.whl

  # Pipe DOT to another tool
  wheelfix graph --all build/lib | dot -Tpng > deps.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			dot := report.ToDOT(reports)
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), dot)
				return err
			}

			data := []byte(dot)
			if strings.EqualFold(filepath.Ext(output), "."+report.FormatSVG) {
				if data, err = report.RenderSVG(dot); err != nil {
					return err
				}
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "write %s", output)
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Wrote %s", output)
			if !strings.EqualFold(filepath.Ext(output), "."+report.FormatSVG) {
				printNextStep(out, "Render it with", fmt.Sprintf("dot -Tsvg %s", output))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.svg or .dot)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include system libraries and @-relative install names")
	cmd.Flags().StringSlice("ext", nil, "extensions of binaries to inspect (default .so,.dylib)")

	return cmd
}
