package delocate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/wheelfix/pkg/archive"
	"github.com/matzehuels/wheelfix/pkg/errors"
)

// PackageMarker identifies a top-level directory of a wheel as a package.
const PackageMarker = "__init__.py"

// DefaultLibSubdir is the directory, relative to each package, that
// receives copied libraries.
const DefaultLibSubdir = ".dylibs"

// WheelOptions configures DelocateWheel.
type WheelOptions struct {
	// LibSubdir is the bundling directory inside each package.
	// Empty uses DefaultLibSubdir.
	LibSubdir string

	// OutputDir receives the repaired wheel under its original name.
	// Empty rewrites the input wheel in place.
	OutputDir string

	// LibFilter selects binaries to inspect. Nil uses DylibsOnly.
	LibFilter LibFilter

	// CopyFilter selects libraries that may be copied. Nil uses NotSystemLibs.
	CopyFilter CopyFilter
}

func (o *WheelOptions) setDefaults() error {
	if o.LibSubdir == "" {
		o.LibSubdir = DefaultLibSubdir
	}
	if err := errors.ValidateLibSubdir(o.LibSubdir); err != nil {
		return err
	}
	if o.LibFilter == nil {
		o.LibFilter = DylibsOnly
	}
	if o.CopyFilter == nil {
		o.CopyFilter = NotSystemLibs
	}
	return nil
}

// PackageResult describes the relocation of one package of a wheel.
type PackageResult struct {
	// Package is the directory name of the package inside the wheel.
	Package string
	// Copied holds the install names copied into the package.
	Copied Set
}

// DelocateWheel relocates every package of the wheel at wheelPath and
// writes the result back (or into opts.OutputDir).
//
// The wheel is unpacked into a scratch directory; the destination is only
// written after every package succeeded, so on error the input wheel is
// unchanged. It fails with TARGET_EXISTS when a package already has the
// bundling directory, which makes running twice on the same wheel an error.
func (r *Relocator) DelocateWheel(wheelPath string, opts WheelOptions) ([]PackageResult, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	absWheel, err := filepath.Abs(wheelPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", wheelPath)
	}
	if _, err := os.Stat(absWheel); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "wheel %s", wheelPath)
	}

	out := absWheel
	if opts.OutputDir != "" {
		out = filepath.Join(opts.OutputDir, filepath.Base(absWheel))
	}

	var results []PackageResult
	err = archive.WithTempDir(r.TempDir, func(tmp string) error {
		wheelDir := filepath.Join(tmp, "wheel")
		if err := archive.Unpack(absWheel, wheelDir); err != nil {
			return err
		}
		pkgs, err := FindPackages(wheelDir)
		if err != nil {
			return err
		}

		for _, pkg := range pkgs {
			libPath := filepath.Join(pkg, opts.LibSubdir)
			if _, err := os.Stat(libPath); err == nil {
				return errors.New(errors.ErrCodeTargetExists,
					"%s already exists in wheel %s", filepath.Join(filepath.Base(pkg), opts.LibSubdir), filepath.Base(absWheel))
			}
		}

		for _, pkg := range pkgs {
			name := filepath.Base(pkg)
			libPath := filepath.Join(pkg, opts.LibSubdir)
			copied, err := r.DelocatePath(pkg, libPath, opts.LibFilter, opts.CopyFilter)
			if err != nil {
				return fmt.Errorf("package %s: %w", name, err)
			}
			if err := removeIfEmpty(libPath); err != nil {
				return err
			}
			r.Logger.Debug("relocated package", "package", name, "copied", len(copied))
			results = append(results, PackageResult{Package: name, Copied: copied})
		}

		if opts.OutputDir != "" {
			if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "create %s", opts.OutputDir)
			}
		}
		return archive.Pack(wheelDir, out)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// WheelLibs returns the aggregate dependency graph of every package of the
// wheel at wheelPath. Requiring binaries are given relative to the wheel
// root with forward slashes (pkg/mod.so). The wheel is not modified.
func (r *Relocator) WheelLibs(wheelPath string, filter LibFilter) (Graph, error) {
	agg := make(Graph)
	err := archive.WithTempDir(r.TempDir, func(tmp string) error {
		wheelDir := filepath.Join(tmp, "wheel")
		if err := archive.Unpack(wheelPath, wheelDir); err != nil {
			return err
		}
		pkgs, err := FindPackages(wheelDir)
		if err != nil {
			return err
		}
		for _, pkg := range pkgs {
			g, err := r.TreeLibs(pkg, filter)
			if err != nil {
				return err
			}
			agg.Merge(g.RelativeTo(wheelDir))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// FindPackages returns the top-level directories of dir holding a
// PackageMarker file, in lexical order.
func FindPackages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", dir)
	}
	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if info, err := os.Stat(filepath.Join(path, PackageMarker)); err == nil && info.Mode().IsRegular() {
			pkgs = append(pkgs, path)
		}
	}
	return pkgs, nil
}

func removeIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read %s", dir)
	}
	if len(entries) > 0 {
		return nil
	}
	if err := os.Remove(dir); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove empty %s", dir)
	}
	return nil
}
