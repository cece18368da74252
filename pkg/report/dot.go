package report

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/wheelfix/pkg/delocate"
)

// ToDOT converts reports to Graphviz DOT. Binaries are boxes, libraries are
// ellipses, and each edge points from a binary to a library it requires.
// Libraries that would be bundled are filled; system and @-relative ones
// are drawn dashed.
func ToDOT(reports []Report) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	binaries := make(delocate.Set)
	libs := make(delocate.Set)
	var edges [][2]string
	for _, r := range reports {
		for _, lib := range r.Libraries {
			libs.Add(lib.Name)
			for _, req := range lib.Requiring {
				binaries.Add(req)
				edges = append(edges, [2]string{req, lib.Name})
			}
		}
	}

	for _, b := range binaries.Sorted() {
		fmt.Fprintf(&buf, "  %q [shape=box, style=\"rounded,filled\", fillcolor=white];\n", b)
	}
	for _, l := range libs.Sorted() {
		fmt.Fprintf(&buf, "  %q [%s];\n", l, libAttrs(l))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e[0], e[1])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func libAttrs(name string) string {
	if delocate.IsPlaceholder(name) || !delocate.NotSystemLibs(name) {
		return "shape=ellipse, style=dashed"
	}
	return "shape=ellipse, style=filled, fillcolor=lightgoldenrod1"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root svg tag so the drawing scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
