// Package archive unpacks and repacks zip-format distributables and provides
// scoped temporary working directories for archive operations.
//
// Packing is atomic with respect to the destination: the new archive is
// written next to it under a temporary name and renamed into place only when
// complete, so a failed pack never leaves a truncated file behind.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// TempDir creates a fresh, empty, private directory for one archive
// operation and returns its path.
type TempDir func() (string, error)

// SystemTempDir returns a TempDir creating directories below os.TempDir with
// the given pattern (see os.MkdirTemp).
func SystemTempDir(pattern string) TempDir {
	return func() (string, error) {
		return os.MkdirTemp("", pattern)
	}
}

// WithTempDir creates a directory with mk, runs fn inside it, and removes the
// directory on every exit path. A nil mk uses SystemTempDir("wheelfix-*").
func WithTempDir(mk TempDir, fn func(dir string) error) (err error) {
	if mk == nil {
		mk = SystemTempDir("wheelfix-*")
	}
	dir, err := mk()
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create temporary directory")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeIO, rmErr, "remove temporary directory %s", dir)
		}
	}()
	return fn(dir)
}

// Unpack extracts every entry of the zip file at zipPath below dest,
// creating dest if needed. Entries that would land outside dest are
// rejected. File modes and modification times are restored.
func Unpack(zipPath, dest string) error {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "resolve destination %s", dest)
	}
	if err := os.MkdirAll(absDest, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create destination %s", absDest)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeArchive, err, "open %s", zipPath)
	}
	defer zr.Close()

	for _, f := range zr.File {
		destPath := filepath.Join(absDest, filepath.FromSlash(f.Name))

		// Validate path doesn't escape destination
		rel, err := filepath.Rel(absDest, destPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return errors.New(errors.ErrCodeArchive, "invalid path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "create directory %s", destPath)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create directory for %s", f.Name)
		}
		if err := extractFile(f, destPath); err != nil {
			return errors.Wrap(errors.ErrCodeArchive, err, "extract %s", f.Name)
		}
	}
	return nil
}

func extractFile(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile applies the umask; restore the recorded permissions.
	if err := os.Chmod(destPath, mode); err != nil {
		return err
	}
	if !f.Modified.IsZero() {
		_ = os.Chtimes(destPath, time.Now(), f.Modified)
	}
	return nil
}

// Pack writes every regular file below srcDir into a new zip archive at
// zipPath, replacing any existing file. Entry names are relative to srcDir
// and use forward slashes; directories are implied by file entries.
func Pack(srcDir, zipPath string) error {
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "resolve %s", srcDir)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(zipPath); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(zipPath), ".wheelfix-*.zip")
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create archive next to %s", zipPath)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	zw := zip.NewWriter(tmp)
	err = filepath.WalkDir(absSrc, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(absSrc, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		cleanup()
		return errors.Wrap(errors.ErrCodeArchive, err, "pack %s", srcDir)
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return errors.Wrap(errors.ErrCodeArchive, err, "finish %s", zipPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeIO, err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, zipPath); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeIO, err, "replace %s", zipPath)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	// Stat follows symlinks so linked files are stored by content.
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
