package delocate

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/wheelfix/internal/testutil/fakebin"
	"github.com/matzehuels/wheelfix/pkg/archive"
	"github.com/matzehuels/wheelfix/pkg/errors"
)

// buildWheel packs the tree created by populate into dir/name.
func buildWheel(t *testing.T, dir, name string, populate func(root string)) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src")
	populate(src)
	wheel := filepath.Join(dir, name)
	if err := archive.Pack(src, wheel); err != nil {
		t.Fatalf("pack wheel: %v", err)
	}
	return wheel
}

func unpackWheel(t *testing.T, wheel string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	if err := archive.Unpack(wheel, dir); err != nil {
		t.Fatalf("unpack wheel: %v", err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// fixedTempDir makes the scratch directory predictable so binaries can
// declare install names inside the unpacked wheel.
func fixedTempDir(t *testing.T) (string, archive.TempDir) {
	work := filepath.Join(t.TempDir(), "work")
	return work, func() (string, error) {
		return work, os.Mkdir(work, 0o700)
	}
}

func TestDelocateWheel(t *testing.T) {
	outside := t.TempDir()
	libA := filepath.Join(outside, "libA.dylib")
	libD := filepath.Join(outside, "libD.dylib")
	fakebin.Write(t, libA, libD, "/usr/lib/libSystem.B.dylib")
	fakebin.Write(t, libD)

	wheel := buildWheel(t, t.TempDir(), "demo-1.0-cp312-cp312-macosx_11_0_arm64.whl", func(root string) {
		writeFile(t, filepath.Join(root, "demo", "__init__.py"), "")
		fakebin.Write(t, filepath.Join(root, "demo", "_core.so"), libA, "/usr/lib/libSystem.B.dylib")
		writeFile(t, filepath.Join(root, "demo-1.0.dist-info", "RECORD"), "")
	})

	results, err := newTestRelocator().DelocateWheel(wheel, WheelOptions{})
	if err != nil {
		t.Fatalf("DelocateWheel: %v", err)
	}
	if len(results) != 1 || results[0].Package != "demo" {
		t.Fatalf("results = %+v, want one result for demo", results)
	}
	if got := results[0].Copied.Sorted(); !slices.Equal(got, []string{libA, libD}) {
		t.Errorf("copied = %v", got)
	}

	out := unpackWheel(t, wheel)
	core := filepath.Join(out, "demo", "_core.so")
	if got := fakebin.Deps(t, core); !slices.Equal(got, []string{"@rpath/libA.dylib", "/usr/lib/libSystem.B.dylib"}) {
		t.Errorf("_core.so deps = %v", got)
	}
	if got := fakebin.RPaths(t, core); !slices.Equal(got, []string{"@loader_path/.dylibs"}) {
		t.Errorf("_core.so rpaths = %v", got)
	}
	if got := fakebin.Deps(t, filepath.Join(out, "demo", ".dylibs", "libA.dylib")); !slices.Equal(got, []string{"@loader_path/libD.dylib", "/usr/lib/libSystem.B.dylib"}) {
		t.Errorf("bundled libA.dylib deps = %v", got)
	}
	if _, err := os.Stat(filepath.Join(out, "demo", ".dylibs", "libD.dylib")); err != nil {
		t.Errorf("libD.dylib not bundled: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "demo-1.0.dist-info", "RECORD")); err != nil {
		t.Errorf("non-package content lost: %v", err)
	}

	// A processed wheel already has the bundling directory.
	_, err = newTestRelocator().DelocateWheel(wheel, WheelOptions{})
	if !errors.Is(err, errors.ErrCodeTargetExists) {
		t.Errorf("second run err = %v, want TARGET_EXISTS", err)
	}
}

func TestDelocateWheelInternalDependency(t *testing.T) {
	work, mk := fixedTempDir(t)
	outside := t.TempDir()
	libA := filepath.Join(outside, "libA.dylib")
	fakebin.Write(t, libA)
	libB := filepath.Join(work, "wheel", "pkg", "libB.dylib")

	wheel := buildWheel(t, t.TempDir(), "pkg-1.0-py3-none-any.whl", func(root string) {
		writeFile(t, filepath.Join(root, "pkg", "__init__.py"), "")
		fakebin.Write(t, filepath.Join(root, "pkg", "libB.dylib"))
		fakebin.Write(t, filepath.Join(root, "pkg", "mod.so"), libA, libB, "@rpath/libC.dylib")
	})

	r := newTestRelocator()
	r.TempDir = mk
	if _, err := r.DelocateWheel(wheel, WheelOptions{}); err != nil {
		t.Fatalf("DelocateWheel: %v", err)
	}
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Error("scratch directory should be removed")
	}

	out := unpackWheel(t, wheel)
	want := []string{"@rpath/libA.dylib", "@loader_path/libB.dylib", "@rpath/libC.dylib"}
	if got := fakebin.Deps(t, filepath.Join(out, "pkg", "mod.so")); !slices.Equal(got, want) {
		t.Errorf("mod.so deps = %v, want %v", got, want)
	}
	if _, err := os.Stat(filepath.Join(out, "pkg", ".dylibs", "libA.dylib")); err != nil {
		t.Errorf("libA.dylib not bundled: %v", err)
	}
}

func TestDelocateWheelFailureLeavesArchiveUnchanged(t *testing.T) {
	work, mk := fixedTempDir(t)
	missing := filepath.Join(t.TempDir(), "libmissing.dylib")
	wheel := buildWheel(t, t.TempDir(), "pkg-1.0-py3-none-any.whl", func(root string) {
		writeFile(t, filepath.Join(root, "pkg", "__init__.py"), "")
		fakebin.Write(t, filepath.Join(root, "pkg", "mod.so"), missing)
	})
	before, err := os.ReadFile(wheel)
	if err != nil {
		t.Fatal(err)
	}

	r := newTestRelocator()
	r.TempDir = mk
	_, err = r.DelocateWheel(wheel, WheelOptions{})
	if !errors.Is(err, errors.ErrCodeLibraryNotFound) {
		t.Fatalf("err = %v, want LIBRARY_NOT_FOUND", err)
	}
	after, err := os.ReadFile(wheel)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("wheel was modified after a failed relocation")
	}
	if _, err := os.Stat(work); !os.IsNotExist(err) {
		t.Error("scratch directory should be removed on failure")
	}
}

func TestDelocateWheelOutputDir(t *testing.T) {
	libA := filepath.Join(t.TempDir(), "libA.dylib")
	fakebin.Write(t, libA)
	wheel := buildWheel(t, t.TempDir(), "pkg-1.0-py3-none-any.whl", func(root string) {
		writeFile(t, filepath.Join(root, "pkg", "__init__.py"), "")
		fakebin.Write(t, filepath.Join(root, "pkg", "mod.so"), libA)
	})
	before, _ := os.ReadFile(wheel)
	outDir := filepath.Join(t.TempDir(), "fixed")

	if _, err := newTestRelocator().DelocateWheel(wheel, WheelOptions{OutputDir: outDir, LibSubdir: "libs"}); err != nil {
		t.Fatalf("DelocateWheel: %v", err)
	}
	if after, _ := os.ReadFile(wheel); !bytes.Equal(before, after) {
		t.Error("input wheel should be untouched when writing elsewhere")
	}
	out := unpackWheel(t, filepath.Join(outDir, filepath.Base(wheel)))
	if _, err := os.Stat(filepath.Join(out, "pkg", "libs", "libA.dylib")); err != nil {
		t.Errorf("libA.dylib not bundled in custom subdir: %v", err)
	}
	if got := fakebin.RPaths(t, filepath.Join(out, "pkg", "mod.so")); !slices.Equal(got, []string{"@loader_path/libs"}) {
		t.Errorf("rpaths = %v", got)
	}
}

func TestDelocateWheelRemovesEmptyTarget(t *testing.T) {
	wheel := buildWheel(t, t.TempDir(), "pkg-1.0-py3-none-any.whl", func(root string) {
		writeFile(t, filepath.Join(root, "pkg", "__init__.py"), "")
		fakebin.Write(t, filepath.Join(root, "pkg", "mod.so"), "/usr/lib/libSystem.B.dylib")
	})

	results, err := newTestRelocator().DelocateWheel(wheel, WheelOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0].Copied) != 0 {
		t.Errorf("results = %+v, want one package with nothing copied", results)
	}
	out := unpackWheel(t, wheel)
	if _, err := os.Stat(filepath.Join(out, "pkg", ".dylibs")); !os.IsNotExist(err) {
		t.Error("empty .dylibs should not be in the wheel")
	}
}

func TestDelocateWheelInvalidLibSubdir(t *testing.T) {
	wheel := buildWheel(t, t.TempDir(), "pkg.whl", func(root string) {
		writeFile(t, filepath.Join(root, "pkg", "__init__.py"), "")
	})
	_, err := newTestRelocator().DelocateWheel(wheel, WheelOptions{LibSubdir: "../escape"})
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("err = %v, want INVALID_PATH", err)
	}
}

func TestWheelLibsAggregatesPackages(t *testing.T) {
	wheel := buildWheel(t, t.TempDir(), "two-1.0-py3-none-any.whl", func(root string) {
		writeFile(t, filepath.Join(root, "pkg1", "__init__.py"), "")
		writeFile(t, filepath.Join(root, "pkg2", "__init__.py"), "")
		fakebin.Write(t, filepath.Join(root, "pkg1", "a.so"), "/opt/libz.dylib")
		fakebin.Write(t, filepath.Join(root, "pkg2", "b.so"), "/opt/libz.dylib", "/opt/liby.dylib")
		fakebin.Write(t, filepath.Join(root, "notapkg", "c.so"), "/opt/libx.dylib")
	})
	before, _ := os.ReadFile(wheel)

	g, err := newTestRelocator().WheelLibs(wheel, DylibsOnly)
	if err != nil {
		t.Fatalf("WheelLibs: %v", err)
	}
	if got := g.Keys(); !slices.Equal(got, []string{"/opt/liby.dylib", "/opt/libz.dylib"}) {
		t.Errorf("keys = %v", got)
	}
	if got := g.Requiring("/opt/libz.dylib"); !slices.Equal(got, []string{"pkg1/a.so", "pkg2/b.so"}) {
		t.Errorf("requiring libz = %v", got)
	}
	if after, _ := os.ReadFile(wheel); !bytes.Equal(before, after) {
		t.Error("inspection must not modify the wheel")
	}
}

func TestFindPackages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "__init__.py"), "")
	writeFile(t, filepath.Join(dir, "a", "__init__.py"), "")
	writeFile(t, filepath.Join(dir, "a.dist-info", "METADATA"), "")
	writeFile(t, filepath.Join(dir, "top.py"), "")

	pkgs, err := FindPackages(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
	if !slices.Equal(pkgs, want) {
		t.Errorf("FindPackages = %v, want %v", pkgs, want)
	}
}
