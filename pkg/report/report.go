// Package report formats dependency graphs for people and tools.
//
// A [Report] is the sorted, serializable view of a [delocate.Graph] for one
// wheel or directory. [Write] encodes reports as text, JSON, YAML, TOML or
// Graphviz DOT; [RenderSVG] turns DOT source into an SVG drawing.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/wheelfix/pkg/delocate"
	"github.com/matzehuels/wheelfix/pkg/errors"
)

// =============================================================================
// Formats
// =============================================================================

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// Formats lists the formats accepted by Write.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatTOML, FormatDOT}

// ValidateFormat returns an INVALID_FORMAT error for unknown formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if f == format {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidFormat,
		"unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// =============================================================================
// Model
// =============================================================================

// Report lists the libraries required by the binaries of one source.
type Report struct {
	Source    string    `json:"source" yaml:"source" toml:"source"`
	Libraries []Library `json:"libraries" yaml:"libraries" toml:"library"`
}

// Library is one required install name and the binaries declaring it.
type Library struct {
	Name      string   `json:"name" yaml:"name" toml:"name"`
	Requiring []string `json:"requiring,omitempty" yaml:"requiring,omitempty" toml:"requiring,omitempty"`
}

// Options controls which libraries Build keeps.
type Options struct {
	// All keeps system libraries and @-relative install names.
	All bool
}

// Build converts g into a report for source. Libraries and requiring
// binaries are sorted.
func Build(source string, g delocate.Graph, opts Options) Report {
	r := Report{Source: source, Libraries: []Library{}}
	for _, name := range g.Keys() {
		if !opts.All && (delocate.IsPlaceholder(name) || !delocate.NotSystemLibs(name)) {
			continue
		}
		r.Libraries = append(r.Libraries, Library{Name: name, Requiring: g.Requiring(name)})
	}
	return r
}

// =============================================================================
// Encoding
// =============================================================================

// Write encodes reports to w. depending includes the requiring binaries
// in text output; structured formats always include them.
func Write(w io.Writer, reports []Report, format string, depending bool) error {
	switch format {
	case FormatText:
		return writeText(w, reports, depending)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		doc := struct {
			Reports []Report `toml:"report"`
		}{reports}
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(reports))
		return err
	}
	return ValidateFormat(format)
}

func writeText(w io.Writer, reports []Report, depending bool) error {
	indent := ""
	for _, r := range reports {
		if len(reports) > 1 {
			if _, err := fmt.Fprintf(w, "%s:\n", r.Source); err != nil {
				return err
			}
			indent = "    "
		}
		for _, lib := range r.Libraries {
			if !depending {
				if _, err := fmt.Fprintf(w, "%s%s\n", indent, lib.Name); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s%s:\n", indent, lib.Name); err != nil {
				return err
			}
			for _, req := range lib.Requiring {
				if _, err := fmt.Fprintf(w, "%s    %s\n", indent, req); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
