package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wheelfix/internal/config"
	"github.com/matzehuels/wheelfix/pkg/delocate"
)

// pathCommand creates the path command for repairing directory trees.
func (c *CLI) pathCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path <dir>...",
		Short: "Copy external libraries into directory trees and fix install names",
		Long: `Copy the dynamic libraries required by the binaries below each directory into
<dir>/<lib-sdir> and rewrite the install names to point there.

Unlike the wheel command, the directory is modified in place. Missing
libraries and file name collisions are reported before anything changes.`,
		Example: `  # Bundle libraries into build/lib/.dylibs
  wheelfix path build/lib`,
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
			return c.runPaths(cmd.Context(), cmd.OutOrStdout(), r, args, cfg)
		},
	}

	addRelocationFlags(cmd)

	return cmd
}

func (c *CLI) runPaths(ctx context.Context, out io.Writer, r *delocate.Relocator, dirs []string, cfg config.Config) error {
	logger := loggerFromContext(ctx)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		prog := newProgress(logger)
		libPath := filepath.Join(dir, cfg.LibSubdir)

		copied, err := r.DelocatePath(dir, libPath, cfg.LibFilter(), cfg.CopyFilter())
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		prog.done("Relocated "+dir, "copied", len(copied))
		stats := c.stats.snapshot()

		if len(copied) == 0 {
			printInfo(out, "Nothing to copy in %s", dir)
			continue
		}
		printSuccess(out, "Copied %d libraries into %s", len(copied), libPath)
		for _, lib := range copied.Sorted() {
			printFile(out, lib)
		}
		printStats(out, stats)
	}
	return nil
}
