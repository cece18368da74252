package delocate

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/wheelfix/pkg/errors"
	"github.com/matzehuels/wheelfix/pkg/observability"
)

// Execute applies plan to the binaries recorded in g.
//
// Every external library is copied into libPath. Each binary requiring one
// gets a single rpath entry pointing from its directory to libPath, and its
// reference is rewritten to @rpath/<basename>. References to internal
// libraries are rewritten to @loader_path/<relative path> without touching
// rpaths. It returns the external libraries copied.
func (r *Relocator) Execute(plan *Plan, g Graph, libPath string) (Set, error) {
	copied := make(Set)
	if len(plan.External) > 0 {
		if err := os.MkdirAll(libPath, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", libPath)
		}
	}

	hooks := observability.Relocation()
	rpathed := make(Set)
	for _, required := range plan.External.Sorted() {
		if _, err := copyLib(required, libPath); err != nil {
			return nil, err
		}
		copied.Add(required)
		hooks.OnCopy(required, libPath)
		r.Logger.Debug("copied library", "lib", required, "dest", libPath)

		newName := "@rpath/" + filepath.Base(required)
		for _, requiring := range g.Requiring(required) {
			if !rpathed.Has(requiring) {
				rpath, err := loaderRelative(libPath, requiring)
				if err != nil {
					return nil, err
				}
				if err := r.Editor.AddRPath(requiring, rpath); err != nil {
					return nil, errors.Wrap(errors.ErrCodeRewriteFailed, err, "add rpath %s to %s", rpath, requiring)
				}
				rpathed.Add(requiring)
				hooks.OnRPath(requiring, rpath)
			}
			if err := r.changeInstallName(requiring, required, newName); err != nil {
				return nil, err
			}
		}
	}

	for _, required := range plan.Internal.Sorted() {
		for _, requiring := range g.Requiring(required) {
			newName, err := loaderRelative(required, requiring)
			if err != nil {
				return nil, err
			}
			if err := r.changeInstallName(requiring, required, newName); err != nil {
				return nil, err
			}
		}
	}
	return copied, nil
}

// DelocateTreeLibs plans the relocation of g against root and executes it,
// copying external libraries into libPath. Nothing is changed when planning
// fails.
func (r *Relocator) DelocateTreeLibs(g Graph, libPath, root string) (Set, error) {
	plan, err := PlanRelocation(g, root)
	if err != nil {
		return nil, err
	}
	observability.Relocation().OnPlan(root, len(plan.External), len(plan.Internal))
	r.Logger.Debug("planned relocation", "root", root,
		"external", len(plan.External), "internal", len(plan.Internal))
	return r.Execute(plan, g, libPath)
}

func (r *Relocator) changeInstallName(binary, oldName, newName string) error {
	if err := r.Editor.ChangeInstallName(binary, oldName, newName); err != nil {
		return errors.Wrap(errors.ErrCodeRewriteFailed, err, "change %s to %s in %s", oldName, newName, binary)
	}
	observability.Relocation().OnRewrite(binary, oldName, newName)
	r.Logger.Debug("rewrote install name", "binary", binary, "old", oldName, "new", newName)
	return nil
}
