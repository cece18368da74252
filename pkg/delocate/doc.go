// Package delocate makes trees of Mach-O binaries self-contained by copying
// the shared libraries they depend on into the tree and rewriting the
// binaries' install names to point at the copies.
//
// # Overview
//
// A compiled extension module built on a developer machine usually records
// absolute paths to the libraries it links against, for example
// /usr/local/opt/libpng/lib/libpng16.16.dylib. Those paths do not exist on
// other machines. This package finds such references, bundles the libraries
// next to the binaries that need them, and rewrites each reference so the
// dynamic loader resolves it relative to the loading binary.
//
// # Pipeline
//
// Relocation of one directory tree runs in four steps:
//
//  1. [Relocator.TreeLibs] builds a [Graph] mapping every declared install
//     name to the set of binaries declaring it.
//  2. [PlanRelocation] classifies each name as internal (inside the tree)
//     or external (outside, to be copied). Basename collisions and missing
//     libraries are reported here, before anything is touched.
//  3. [Relocator.Execute] copies external libraries into the target
//     directory, adds one @loader_path rpath per binary and rewrites
//     references to @rpath/<basename>. Internal references are rewritten to
//     @loader_path relative paths.
//  4. [Relocator.CopyRecurse] re-scans the target directory until no copied
//     library pulls in a new one.
//
// [Relocator.DelocatePath] runs the steps for a directory and
// [Relocator.DelocateWheel] runs them for every package of a wheel archive,
// repacking the archive only when all packages succeeded.
// [Relocator.WheelLibs] reports the aggregate graph of a wheel without
// changing it.
//
// # Placeholders
//
// Install names starting with "@" (@rpath/, @loader_path/,
// @executable_path/) are already resolved relative to the loading binary
// and are never classified, copied or rewritten.
//
// # Tools
//
// The package never parses or edits binaries itself. It talks to an
// [Inspector] and an [Editor]; package macho provides implementations backed
// by debug/macho and install_name_tool.
package delocate
