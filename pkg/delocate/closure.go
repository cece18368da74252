package delocate

import (
	"path/filepath"

	"github.com/matzehuels/wheelfix/pkg/errors"
	"github.com/matzehuels/wheelfix/pkg/observability"
)

// CopyRecurse copies the dependencies of the libraries in libPath into
// libPath until a pass adds nothing new. References inside libPath are
// rewritten to @loader_path/<basename>, since every copy sits next to the
// libraries that need it.
//
// copied holds the install names already copied; it is not modified. The
// returned set is copied plus every library added. filter restricts what
// may be copied (nil accepts all).
func (r *Relocator) CopyRecurse(libPath string, filter CopyFilter, copied Set) (Set, error) {
	all := copied.Clone()
	hooks := observability.Relocation()
	for pass := 1; ; pass++ {
		added, err := r.copyRequired(libPath, filter, all)
		if err != nil {
			return nil, err
		}
		for lib := range added {
			all.Add(lib)
		}
		hooks.OnClosurePass(libPath, pass, len(added))
		r.Logger.Debug("closure pass", "dir", libPath, "pass", pass, "copied", len(added))
		if len(added) == 0 {
			return all, nil
		}
	}
}

// copyRequired runs one closure pass and returns the libraries it copied.
func (r *Relocator) copyRequired(libPath string, filter CopyFilter, copied Set) (Set, error) {
	g, err := r.TreeLibs(libPath, nil)
	if err != nil {
		return nil, err
	}

	// Basenames present in libPath and where they came from.
	owners := make(map[string]string, len(copied))
	for lib := range copied {
		owners[filepath.Base(lib)] = lib
	}

	added := make(Set)
	for _, required := range g.Keys() {
		if IsPlaceholder(required) {
			continue
		}
		if filter != nil && !filter(required) {
			continue
		}
		base := filepath.Base(required)
		if !copied.Has(required) {
			owner, taken := owners[base]
			switch {
			case !taken:
				if _, err := copyLib(required, libPath); err != nil {
					return nil, err
				}
				observability.Relocation().OnCopy(required, libPath)
				r.Logger.Debug("copied library", "lib", required, "dest", libPath)
				owners[base] = required
			case realPath(owner) != realPath(required):
				return nil, errors.New(errors.ErrCodeBasenameCollision,
					"%s already holds a copy of %s, cannot also copy %s", libPath, owner, required)
			}
			added.Add(required)
		}
		for _, requiring := range g.Requiring(required) {
			if err := r.changeInstallName(requiring, required, "@loader_path/"+base); err != nil {
				return nil, err
			}
		}
	}
	return added, nil
}
