package delocate

import (
	"os"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// DelocatePath makes the binaries below treePath self-contained, copying
// external libraries into libPath. libPath is created only when something
// has to be copied, so a failed plan leaves the tree untouched.
//
// libFilter selects the binaries to inspect and copyFilter the libraries
// that may be copied; libraries rejected by copyFilter keep their install
// names. Nil filters accept everything. It returns every install name
// copied, including those pulled in by copied libraries.
func (r *Relocator) DelocatePath(treePath, libPath string, libFilter LibFilter, copyFilter CopyFilter) (Set, error) {
	info, err := os.Stat(treePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "tree %s", treePath)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s is not a directory", treePath)
	}

	g, err := r.TreeLibs(treePath, libFilter)
	if err != nil {
		return nil, err
	}
	if copyFilter != nil {
		g = g.Filter(copyFilter)
	}

	copied, err := r.DelocateTreeLibs(g, libPath, treePath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return copied, nil
	}
	return r.CopyRecurse(libPath, copyFilter, copied)
}
