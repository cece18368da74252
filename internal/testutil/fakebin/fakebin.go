// Package fakebin provides text files that stand in for Mach-O binaries in
// tests, with an inspector and editor operating on them.
//
// A fake binary starts with the line "FAKEBIN" followed by one directive per
// line:
//
//	dep /usr/local/lib/libA.dylib
//	rpath @loader_path/.dylibs
//
// Copying a fake binary copies its dependencies, so transitive relocation
// can be tested on any platform.
package fakebin

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const magic = "FAKEBIN"

// Inspector reads the dep lines of a fake binary.
type Inspector struct{}

// Dependencies returns the dep entries in file order. Files without the
// header are rejected like non-Mach-O files.
func (Inspector) Dependencies(path string) ([]string, error) {
	lines, err := read(path)
	if err != nil {
		return nil, err
	}
	var deps []string
	for _, l := range lines {
		if name, ok := strings.CutPrefix(l, "dep "); ok {
			deps = append(deps, name)
		}
	}
	return deps, nil
}

// Editor edits fake binaries in place.
type Editor struct{}

// AddRPath appends an rpath line. Adding an existing rpath fails, as
// install_name_tool does.
func (Editor) AddRPath(path, rpath string) error {
	lines, err := read(path)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l == "rpath "+rpath {
			return fmt.Errorf("%s: would duplicate path, file already has LC_RPATH for: %s", path, rpath)
		}
	}
	return write(path, append(lines, "rpath "+rpath))
}

// ChangeInstallName replaces the dep line oldName by newName. It fails when
// the binary does not declare oldName.
func (Editor) ChangeInstallName(path, oldName, newName string) error {
	lines, err := read(path)
	if err != nil {
		return err
	}
	found := false
	for i, l := range lines {
		if l == "dep "+oldName {
			lines[i] = "dep " + newName
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%s does not depend on %s", path, oldName)
	}
	return write(path, lines)
}

// Write creates a fake binary at path declaring deps, creating parent
// directories as needed.
func Write(tb testing.TB, path string, deps ...string) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatal(err)
	}
	lines := make([]string, 0, len(deps))
	for _, d := range deps {
		lines = append(lines, "dep "+d)
	}
	if err := write(path, lines); err != nil {
		tb.Fatal(err)
	}
}

// Deps returns the current dep entries of the fake binary at path.
func Deps(tb testing.TB, path string) []string {
	tb.Helper()
	deps, err := Inspector{}.Dependencies(path)
	if err != nil {
		tb.Fatal(err)
	}
	return deps
}

// RPaths returns the rpath entries of the fake binary at path.
func RPaths(tb testing.TB, path string) []string {
	tb.Helper()
	lines, err := read(path)
	if err != nil {
		tb.Fatal(err)
	}
	var rpaths []string
	for _, l := range lines {
		if r, ok := strings.CutPrefix(l, "rpath "); ok {
			rpaths = append(rpaths, r)
		}
	}
	return rpaths
}

func read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() || sc.Text() != magic {
		return nil, fmt.Errorf("%s: not a binary", path)
	}
	var lines []string
	for sc.Scan() {
		if l := sc.Text(); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, sc.Err()
}

func write(path string, lines []string) error {
	var b strings.Builder
	b.WriteString(magic + "\n")
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
