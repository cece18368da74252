package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateLibSubdir validates the name of the directory that receives
// bundled libraries inside each package.
//
// Validation rules:
//   - Name cannot be empty
//   - No null bytes or control characters
//   - No absolute paths (must be relative to the package)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateLibSubdir(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "library subdirectory cannot be empty")
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "library subdirectory contains invalid characters")
		}
	}

	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return New(ErrCodeInvalidPath, "library subdirectory must be relative: %q", name)
	}

	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "library subdirectory cannot contain path traversal sequences (..)")
		}
	}

	if strings.Contains(name, "\\") {
		return New(ErrCodeInvalidPath, "library subdirectory cannot contain backslashes")
	}

	if filepath.Clean(name) == "." {
		return New(ErrCodeInvalidPath, "library subdirectory must name a directory below the package")
	}

	return nil
}

// ValidatePrefix validates a library path prefix used to exclude system
// libraries from copying. Prefixes must be absolute.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidInput, "exclude prefix cannot be empty")
	}
	if !strings.HasPrefix(prefix, "/") {
		return New(ErrCodeInvalidInput, "exclude prefix must be an absolute path: %q", prefix)
	}
	return nil
}

// ValidateExtension validates a binary file extension such as ".so".
func ValidateExtension(ext string) error {
	if len(ext) < 2 || !strings.HasPrefix(ext, ".") {
		return New(ErrCodeInvalidInput, "extension must start with a dot: %q", ext)
	}
	if strings.ContainsAny(ext, "/\\") {
		return New(ErrCodeInvalidInput, "extension cannot contain path separators: %q", ext)
	}
	return nil
}
