// Package pkg provides the libraries behind wheelfix, which bundles the
// external dynamic libraries of macOS Python wheels into the wheels
// themselves.
//
// # Overview
//
// A compiled extension module records the install names of the dynamic
// libraries it links against. When those libraries live outside the wheel,
// for example under /usr/local or a Homebrew prefix, the wheel only works on
// machines that have them too. wheelfix copies them into a directory inside
// each package and rewrites the install names to point there.
//
//  1. [delocate] - Graph building, planning, relocation and the wheel flow
//  2. [macho] - Reading install names and editing them with install_name_tool
//  3. [archive] - Zip unpacking and atomic repacking in scratch directories
//  4. [report] - Text, JSON, YAML, TOML and Graphviz views of dependency graphs
//  5. [cache] - Content-addressed cache of inspection results
//
// # Architecture
//
// The data flow for one wheel:
//
//	wheel (.whl)
//	     ↓
//	[archive] unpack into a scratch directory
//	     ↓
//	[delocate] TreeLibs per package, using [macho] to read install names
//	     ↓
//	[delocate] PlanRelocation, then copy and rewrite with [macho]
//	     ↓
//	[delocate] CopyRecurse until the bundling directory is closed
//	     ↓
//	[archive] repack over the original wheel
//
// # Supporting Packages
//
//   - [errors] - Error codes shared by all packages
//   - [observability] - Hooks for relocation and cache events
//   - [buildinfo] - Version information set at build time
package pkg
