package delocate

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/wheelfix/pkg/archive"
)

// Relocator runs relocations with a given inspector and editor.
//
// A Relocator holds no state between calls. It is not safe to run two
// relocations over the same tree concurrently.
type Relocator struct {
	Inspector Inspector
	Editor    Editor
	Logger    *log.Logger

	// TempDir creates the scratch directory wheels are unpacked into.
	// Nil uses a fresh directory below os.TempDir.
	TempDir archive.TempDir
}

// New creates a relocator. If logger is nil, log.Default() is used.
func New(insp Inspector, ed Editor, logger *log.Logger) *Relocator {
	if logger == nil {
		logger = log.Default()
	}
	return &Relocator{
		Inspector: insp,
		Editor:    ed,
		Logger:    logger,
	}
}
