package delocate

import "strings"

// PlaceholderPrefix marks install names that the loader resolves relative
// to a runtime location (@rpath, @loader_path, @executable_path).
const PlaceholderPrefix = "@"

// Inspector reads the dependency install names declared by a binary.
type Inspector interface {
	// Dependencies returns the install names in load-command order.
	Dependencies(path string) ([]string, error)
}

// Editor rewrites the load commands of a binary in place.
type Editor interface {
	// AddRPath appends a runtime search path entry.
	AddRPath(path, rpath string) error

	// ChangeInstallName replaces the dependency reference oldName by newName.
	ChangeInstallName(path, oldName, newName string) error
}

// IsPlaceholder reports whether name starts with PlaceholderPrefix.
func IsPlaceholder(name string) bool {
	return strings.HasPrefix(name, PlaceholderPrefix)
}
