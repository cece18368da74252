package delocate

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// Plan splits the non-placeholder keys of a graph by location relative to a
// root directory. External and Internal are disjoint.
type Plan struct {
	// External libraries live outside the root and are copied in.
	External Set
	// Internal libraries live inside the root and are re-pointed in place.
	Internal Set
}

// PlanRelocation classifies every key of g against root. It fails with
// BASENAME_COLLISION when two external libraries share a file name and with
// LIBRARY_NOT_FOUND when an external library does not exist. Keys are
// checked in lexical order. Nothing is modified.
func PlanRelocation(g Graph, root string) (*Plan, error) {
	rootReal := realPath(root)
	plan := &Plan{External: make(Set), Internal: make(Set)}
	basenames := make(map[string]string)

	for _, required := range g.Keys() {
		if IsPlaceholder(required) {
			continue
		}
		if isInside(realPath(required), rootReal) {
			plan.Internal.Add(required)
			continue
		}

		base := filepath.Base(required)
		if prev, ok := basenames[base]; ok {
			return nil, errors.New(errors.ErrCodeBasenameCollision,
				"already planned a library named %s (%s), cannot also copy %s", base, prev, required)
		}
		if _, err := os.Stat(required); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLibraryNotFound, err,
				"library %s required by %s does not exist", required, strings.Join(g.Requiring(required), ", "))
		}
		basenames[base] = required
		plan.External.Add(required)
	}
	return plan, nil
}

// realPath resolves symlinks when the path exists and falls back to the
// cleaned absolute path otherwise.
func realPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// isInside reports whether path equals root or lies below it.
func isInside(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// loaderRelative returns "@loader_path/<target relative to the directory of
// binary>", using forward slashes.
func loaderRelative(target, binary string) (string, error) {
	rel, err := filepath.Rel(realPath(filepath.Dir(binary)), realPath(target))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "relate %s to %s", target, binary)
	}
	return "@loader_path/" + filepath.ToSlash(rel), nil
}
