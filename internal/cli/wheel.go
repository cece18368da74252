package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wheelfix/pkg/delocate"
	"github.com/matzehuels/wheelfix/pkg/macho"
)

// wheelCommand creates the wheel command for repairing wheels.
func (c *CLI) wheelCommand() *cobra.Command {
	var wheelDir string

	cmd := &cobra.Command{
		Use:   "wheel <wheel>...",
		Short: "Copy external libraries into wheels and fix install names",
		Long: `Copy the dynamic libraries required by the compiled modules of each wheel
into a directory inside each package and rewrite the install names to point there.

A wheel is only rewritten after every package was relocated. If a library is
missing or two libraries share a file name, the wheel is left unchanged.`,
		Example: `  # Repair a wheel in place
  wheelfix wheel dist/demo-1.0-cp312-cp312-macosx_11_0_arm64.whl

  # Write repaired wheels to another directory
  wheelfix wheel -w wheelhouse dist/*.whl

  # Keep Homebrew libraries out of the wheel
  wheelfix wheel -e /opt/homebrew dist/*.whl`,
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
			opts := cfg.WheelOptions()
			opts.OutputDir = wheelDir
			return c.runWheels(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), r, args, opts)
		},
	}

	addRelocationFlags(cmd)
	cmd.Flags().StringVarP(&wheelDir, "wheel-dir", "w", "", "directory for repaired wheels (default: rewrite in place)")

	return cmd
}

// addRelocationFlags registers the flags shared by wheel and path. Their
// values are read through loadConfig.
func addRelocationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("lib-sdir", "L", delocate.DefaultLibSubdir, "directory inside each package that receives copied libraries")
	cmd.Flags().StringSliceP("exclude", "e", nil, "path prefixes of libraries never copied, in addition to /usr/lib and /System")
	cmd.Flags().StringSlice("ext", nil, "extensions of binaries to inspect (default .so,.dylib)")
	cmd.Flags().String("install-name-tool", macho.DefaultInstallNameTool, "install_name_tool executable")
}

func (c *CLI) runWheels(ctx context.Context, out, errOut io.Writer, r *delocate.Relocator, wheels []string, opts delocate.WheelOptions) error {
	logger := loggerFromContext(ctx)
	for _, path := range wheels {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(path)
		prog := newProgress(logger)

		var spin *Spinner
		if logger.GetLevel() > log.DebugLevel {
			spin = newSpinner(ctx, errOut, "Relocating "+name)
			spin.Start()
		}

		results, err := r.DelocateWheel(path, opts)
		if err != nil {
			if spin != nil {
				spin.StopWithError("Failed " + name)
			}
			printWarning(errOut, "%s was left unchanged", name)
			return fmt.Errorf("%s: %w", path, err)
		}
		if spin != nil {
			spin.Stop()
		}

		copied := 0
		for _, res := range results {
			copied += len(res.Copied)
		}
		prog.done("Relocated "+name, "packages", len(results), "copied", copied)

		dest := path
		if opts.OutputDir != "" {
			dest = filepath.Join(opts.OutputDir, name)
		}
		printWheelResult(out, dest, results)
		printStats(out, c.stats.snapshot())
	}
	return nil
}

func printWheelResult(w io.Writer, dest string, results []delocate.PackageResult) {
	if len(results) == 0 {
		printWarning(w, "No packages found in %s", filepath.Base(dest))
		return
	}
	printSuccess(w, "Repaired %s", dest)
	for _, res := range results {
		if len(res.Copied) == 0 {
			printDetail(w, "%s: nothing to copy", res.Package)
			continue
		}
		printDetail(w, "%s:", res.Package)
		for _, lib := range res.Copied.Sorted() {
			printFile(w, lib)
		}
	}
}
