package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/wheelfix/pkg/cache"
	"github.com/matzehuels/wheelfix/pkg/errors"
)

const (
	cpuAmd64  = 0x01000007
	cpuArm64  = 0x0100000c
	lcIDDylib = 0xd
)

type loadCmd struct {
	cmd  uint32
	name string
}

// buildThin encodes a little-endian 64-bit MH_DYLIB with the given dylib
// commands.
func buildThin(cpu uint32, cmds ...loadCmd) []byte {
	var body bytes.Buffer
	le := binary.LittleEndian
	for _, c := range cmds {
		name := append([]byte(c.name), 0)
		size := 24 + len(name)
		size = (size + 7) &^ 7
		cmd := make([]byte, size)
		le.PutUint32(cmd[0:], c.cmd)
		le.PutUint32(cmd[4:], uint32(size))
		le.PutUint32(cmd[8:], 24)
		copy(cmd[24:], name)
		body.Write(cmd)
	}

	hdr := make([]byte, 32)
	le.PutUint32(hdr[0:], 0xfeedfacf)
	le.PutUint32(hdr[4:], cpu)
	le.PutUint32(hdr[8:], 0)
	le.PutUint32(hdr[12:], 6) // MH_DYLIB
	le.PutUint32(hdr[16:], uint32(len(cmds)))
	le.PutUint32(hdr[20:], uint32(body.Len()))
	return append(hdr, body.Bytes()...)
}

// buildFat wraps thin images in a universal header.
func buildFat(images map[uint32][]byte, order []uint32) []byte {
	be := binary.BigEndian
	hdr := make([]byte, 8+20*len(order))
	be.PutUint32(hdr[0:], 0xcafebabe)
	be.PutUint32(hdr[4:], uint32(len(order)))

	var body []byte
	offset := uint32(len(hdr))
	for i, cpu := range order {
		img := images[cpu]
		entry := hdr[8+20*i:]
		be.PutUint32(entry[0:], cpu)
		be.PutUint32(entry[4:], 0)
		be.PutUint32(entry[8:], offset)
		be.PutUint32(entry[12:], uint32(len(img)))
		be.PutUint32(entry[16:], 3)
		body = append(body, img...)
		offset += uint32(len(img))
	}
	return append(hdr, body...)
}

func writeBytes(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.dylib")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInspectorThin(t *testing.T) {
	path := writeBytes(t, buildThin(cpuArm64,
		loadCmd{lcIDDylib, "@rpath/libself.dylib"},
		loadCmd{lcLoadDylib, "/usr/local/lib/libA.dylib"},
		loadCmd{lcLoadWeakDylib, "/opt/lib/libweak.dylib"},
		loadCmd{lcReexportDylib, "@rpath/libre.dylib"},
		loadCmd{lcLoadDylib, "/usr/lib/libSystem.B.dylib"},
	))

	got, err := NewInspector().Dependencies(path)
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	want := []string{
		"/usr/local/lib/libA.dylib",
		"/opt/lib/libweak.dylib",
		"@rpath/libre.dylib",
		"/usr/lib/libSystem.B.dylib",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Dependencies = %v, want %v", got, want)
	}
}

func TestInspectorFat(t *testing.T) {
	images := map[uint32][]byte{
		cpuAmd64: buildThin(cpuAmd64,
			loadCmd{lcLoadDylib, "/usr/local/lib/libA.dylib"},
			loadCmd{lcLoadDylib, "/usr/lib/libSystem.B.dylib"}),
		cpuArm64: buildThin(cpuArm64,
			loadCmd{lcLoadDylib, "/opt/homebrew/lib/libA.dylib"},
			loadCmd{lcLoadDylib, "/usr/lib/libSystem.B.dylib"}),
	}
	path := writeBytes(t, buildFat(images, []uint32{cpuAmd64, cpuArm64}))

	got, err := NewInspector().Dependencies(path)
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	want := []string{
		"/usr/local/lib/libA.dylib",
		"/usr/lib/libSystem.B.dylib",
		"/opt/homebrew/lib/libA.dylib",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Dependencies = %v, want %v", got, want)
	}
}

func TestInspectorRejectsNonMachO(t *testing.T) {
	path := writeBytes(t, []byte("#!/bin/sh\necho hi\n"))
	_, err := NewInspector().Dependencies(path)
	if !errors.Is(err, errors.ErrCodeInspection) {
		t.Errorf("err = %v, want INSPECTION_ERROR", err)
	}
}

func TestDylibNameBounds(t *testing.T) {
	le := binary.LittleEndian
	raw := make([]byte, 16)
	le.PutUint32(raw[0:], lcLoadDylib)
	le.PutUint32(raw[8:], 64)
	if _, ok := dylibName(le, raw); ok {
		t.Error("name offset past the command should be rejected")
	}
	if _, ok := dylibName(le, raw[:8]); ok {
		t.Error("short command should be rejected")
	}
}

func TestEditorArguments(t *testing.T) {
	var calls []string
	e := NewEditor("/usr/bin/install_name_tool")
	e.run = func(name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+strings.Join(args, " "))
		return nil, nil
	}

	if err := e.AddRPath("/t/mod.so", "@loader_path/.dylibs"); err != nil {
		t.Fatal(err)
	}
	if err := e.ChangeInstallName("/t/mod.so", "/opt/libA.dylib", "@rpath/libA.dylib"); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"/usr/bin/install_name_tool -add_rpath @loader_path/.dylibs /t/mod.so",
		"/usr/bin/install_name_tool -change /opt/libA.dylib @rpath/libA.dylib /t/mod.so",
	}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestEditorError(t *testing.T) {
	e := NewEditor("")
	if e.Tool() != DefaultInstallNameTool {
		t.Errorf("Tool() = %s, want %s", e.Tool(), DefaultInstallNameTool)
	}
	e.run = func(string, ...string) ([]byte, error) {
		return []byte("error: would duplicate path\n"), fmt.Errorf("exit status 1")
	}

	err := e.AddRPath("/t/mod.so", "@loader_path")
	if !errors.Is(err, errors.ErrCodeRewriteFailed) {
		t.Fatalf("err = %v, want REWRITE_FAILED", err)
	}
	if !strings.Contains(err.Error(), "would duplicate path") {
		t.Errorf("error should include tool output: %v", err)
	}
}

type countingInspector struct {
	calls int
}

func (c *countingInspector) Dependencies(path string) ([]string, error) {
	c.calls++
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}

func TestCachedInspector(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingInspector{}
	ci := NewCachedInspector(inner, fc)

	path := filepath.Join(t.TempDir(), "mod.so")
	if err := os.WriteFile(path, []byte("/opt/libA.dylib"), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		got, err := ci.Dependencies(path)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(got, []string{"/opt/libA.dylib"}) {
			t.Errorf("Dependencies = %v", got)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}

	// Edited content is a different key.
	if err := os.WriteFile(path, []byte("@rpath/libA.dylib"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ci.Dependencies(path)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"@rpath/libA.dylib"}) || inner.calls != 2 {
		t.Errorf("after edit: deps %v, calls %d", got, inner.calls)
	}
}

func TestCachedInspectorNilCache(t *testing.T) {
	inner := &countingInspector{}
	ci := NewCachedInspector(inner, nil)
	path := filepath.Join(t.TempDir(), "mod.so")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := ci.Dependencies(path); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2 without a cache", inner.calls)
	}
}
