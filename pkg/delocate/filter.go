package delocate

import (
	"path/filepath"
	"strings"
)

// LibFilter selects which files of a tree are inspected as binaries.
// It receives the file's path.
type LibFilter func(path string) bool

// CopyFilter selects which required libraries may be copied into the tree.
// It receives the install name.
type CopyFilter func(libName string) bool

// DefaultExtensions are the file suffixes DylibsOnly accepts.
var DefaultExtensions = []string{".so", ".dylib"}

// DefaultSystemPrefixes are the locations NotSystemLibs never copies from.
var DefaultSystemPrefixes = []string{"/usr/lib", "/System"}

// AcceptAll accepts every path. It can be used as a LibFilter or a
// CopyFilter to disable filtering.
func AcceptAll(string) bool { return true }

// DylibsOnly accepts files ending in .so or .dylib.
func DylibsOnly(path string) bool {
	return hasExtension(path, DefaultExtensions)
}

// NotSystemLibs rejects install names below /usr/lib or /System.
func NotSystemLibs(libName string) bool {
	return !hasPrefix(libName, DefaultSystemPrefixes)
}

// ExtensionFilter returns a LibFilter accepting files with one of exts.
// With no extensions it behaves like DylibsOnly.
func ExtensionFilter(exts ...string) LibFilter {
	if len(exts) == 0 {
		return DylibsOnly
	}
	exts = append([]string(nil), exts...)
	return func(path string) bool {
		return hasExtension(path, exts)
	}
}

// ExcludePrefixes returns a CopyFilter rejecting the default system
// prefixes and every prefix given.
func ExcludePrefixes(prefixes ...string) CopyFilter {
	all := append(append([]string(nil), DefaultSystemPrefixes...), prefixes...)
	return func(libName string) bool {
		return !hasPrefix(libName, all)
	}
}

func hasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// hasPrefix matches whole path components: /usr/lib covers /usr/lib/x but
// not /usr/libexec.
func hasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}
