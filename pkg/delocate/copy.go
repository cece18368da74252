package delocate

import (
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// copyLib copies src into dir under its basename, keeping permissions and
// modification time. The copy is made owner-writable so it can be edited
// afterwards.
func copyLib(src, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))

	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return "", errors.Wrap(errors.ErrCodeLibraryNotFound, err, "library %s does not exist", src)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCopyFailed, err, "stat %s", src)
	}

	if err := copyContents(src, dst, info.Mode().Perm()|0o200); err != nil {
		return "", errors.Wrap(errors.ErrCodeCopyFailed, err, "copy %s to %s", src, dir)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", errors.Wrap(errors.ErrCodeCopyFailed, err, "set times on %s", dst)
	}
	return dst, nil
}

func copyContents(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}
