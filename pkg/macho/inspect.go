// Package macho reads and edits the dependency load commands of Mach-O
// binaries.
//
// [Inspector] parses thin and universal (fat) files with debug/macho.
// [Editor] shells out to install_name_tool, which ships with the Xcode
// command line tools. [CachedInspector] memoizes inspection results by file
// content.
package macho

import (
	"debug/macho"
	"encoding/binary"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// Load commands that name a dependent library.
const (
	lcLoadDylib       = 0xc
	lcLazyLoadDylib   = 0x20
	lcLoadWeakDylib   = 0x18 | 0x80000000
	lcReexportDylib   = 0x1f | 0x80000000
	lcLoadUpwardDylib = 0x23 | 0x80000000
)

// Inspector lists the install names a Mach-O file depends on.
type Inspector struct{}

// NewInspector returns an Inspector.
func NewInspector() *Inspector { return &Inspector{} }

// Dependencies returns the install names of every dylib load command
// (regular, weak, re-exported, upward and lazy) in load-command order. For
// universal binaries the architectures are merged, keeping the first
// occurrence of each name.
func (i *Inspector) Dependencies(path string) ([]string, error) {
	fat, err := macho.OpenFat(path)
	if err == nil {
		defer fat.Close()
		var names []string
		seen := make(map[string]bool)
		for _, arch := range fat.Arches {
			for _, name := range dylibNames(arch.File) {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		return names, nil
	}

	f, err := macho.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInspection, err, "%s is not a Mach-O file", path)
	}
	defer f.Close()
	return dylibNames(f), nil
}

func dylibNames(f *macho.File) []string {
	var names []string
	for _, l := range f.Loads {
		if name, ok := dylibName(f.ByteOrder, l.Raw()); ok {
			names = append(names, name)
		}
	}
	return names
}

// dylibName decodes a dylib_command: cmd, cmdsize, then the offset of the
// NUL-terminated name from the start of the command.
func dylibName(bo binary.ByteOrder, raw []byte) (string, bool) {
	if len(raw) < 12 {
		return "", false
	}
	switch bo.Uint32(raw[0:4]) {
	case lcLoadDylib, lcLazyLoadDylib, lcLoadWeakDylib, lcReexportDylib, lcLoadUpwardDylib:
	default:
		return "", false
	}
	off := bo.Uint32(raw[8:12])
	if off >= uint32(len(raw)) {
		return "", false
	}
	name := raw[off:]
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	return string(name), true
}
