package macho

import (
	"os/exec"
	"strings"

	"github.com/matzehuels/wheelfix/pkg/errors"
)

// DefaultInstallNameTool is looked up on PATH when no tool is configured.
const DefaultInstallNameTool = "install_name_tool"

// Editor rewrites load commands with install_name_tool.
type Editor struct {
	tool string
	run  func(name string, args ...string) ([]byte, error)
}

// NewEditor returns an Editor running tool, or DefaultInstallNameTool when
// tool is empty.
func NewEditor(tool string) *Editor {
	if tool == "" {
		tool = DefaultInstallNameTool
	}
	return &Editor{tool: tool, run: runCombined}
}

// Tool returns the configured install_name_tool path.
func (e *Editor) Tool() string { return e.tool }

// AddRPath adds an LC_RPATH entry to the binary at path.
func (e *Editor) AddRPath(path, rpath string) error {
	return e.exec("-add_rpath", rpath, path)
}

// ChangeInstallName replaces the dependency oldName by newName in the binary
// at path.
func (e *Editor) ChangeInstallName(path, oldName, newName string) error {
	return e.exec("-change", oldName, newName, path)
}

func (e *Editor) exec(args ...string) error {
	out, err := e.run(e.tool, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return errors.Wrap(errors.ErrCodeRewriteFailed, err, "%s %s", e.tool, strings.Join(args, " "))
		}
		return errors.Wrap(errors.ErrCodeRewriteFailed, err, "%s %s: %s", e.tool, strings.Join(args, " "), msg)
	}
	return nil
}

func runCombined(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}
