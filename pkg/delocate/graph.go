package delocate

import (
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// =============================================================================
// Set
// =============================================================================

// Set is an unordered set of paths or install names.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts item.
func (s Set) Add(item string) { s[item] = struct{}{} }

// Has reports whether item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the items in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// =============================================================================
// Graph
// =============================================================================

// Graph maps each required install name to the set of binaries declaring
// it. A Graph is a snapshot: it does not follow later changes on disk.
type Graph map[string]Set

// Add records that requiring declares required.
func (g Graph) Add(required, requiring string) {
	s, ok := g[required]
	if !ok {
		s = make(Set)
		g[required] = s
	}
	s.Add(requiring)
}

// Merge adds every edge of other to g.
func (g Graph) Merge(other Graph) {
	for required, requiring := range other {
		for r := range requiring {
			g.Add(required, r)
		}
	}
}

// Keys returns the required install names in lexical order.
func (g Graph) Keys() []string {
	out := make([]string, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Requiring returns the binaries declaring required, in lexical order.
func (g Graph) Requiring(required string) []string {
	return g[required].Sorted()
}

// Filter returns a new graph holding the keys accepted by keep.
func (g Graph) Filter(keep func(string) bool) Graph {
	out := make(Graph, len(g))
	for required, requiring := range g {
		if keep(required) {
			out[required] = requiring.Clone()
		}
	}
	return out
}

// RelativeTo returns a copy of g with requiring paths below root given
// relative to it, with forward slashes. Other paths are kept as they are.
func (g Graph) RelativeTo(root string) Graph {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	out := make(Graph, len(g))
	for required, requiring := range g {
		for path := range requiring {
			if rel, err := filepath.Rel(absRoot, path); err == nil && isInside(path, absRoot) {
				path = filepath.ToSlash(rel)
			}
			out.Add(required, path)
		}
	}
	return out
}

// TreeLibs walks root and inspects every regular file accepted by filter
// (nil accepts all). The returned graph records each file under its
// absolute path. Symbolic links are not followed; the files they point to
// are inspected where they live. Any inspection failure aborts the walk.
func (r *Relocator) TreeLibs(root string, filter LibFilter) (Graph, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", root)
	}

	g := make(Graph)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return errors.Wrap(errors.ErrCodeIO, walkErr, "walk %s", path)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if filter != nil && !filter(path) {
			return nil
		}
		deps, err := r.Inspector.Dependencies(path)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInspection, err, "inspect %s", path)
		}
		for _, dep := range deps {
			g.Add(dep, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
