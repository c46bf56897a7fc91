// Package dot exports a positioned family tree as a Graphviz graph.
//
// The export is a static overview of the whole layout, independent of the
// viewport: every node and parent edge is emitted, with hero nodes
// highlighted. [RenderSVG] lays it out with Graphviz.
//
//	dot := dot.ToDOT(scene.Layout, scene.Index, dot.Options{Detailed: true})
//	svg, err := dot.RenderSVG(ctx, dot)
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/kinview/pkg/index"
	"github.com/matzehuels/kinview/pkg/layout"
)

// Options configures DOT export.
type Options struct {
	// Detailed adds depth and subtree size to node labels.
	Detailed bool
	// RightToLeft orders each sibling group right to left.
	RightToLeft bool
}

// ToDOT converts a layout to Graphviz DOT. Children are emitted in layout
// order so Graphviz keeps the sibling order. ix may be nil, in which case
// no node is highlighted and detailed labels omit subtree sizes.
func ToDOT(res *layout.Result, ix *index.Indices, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  ordering=\"out\";\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowhead=none, color=\"#8a8178\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	for i := range res.Nodes {
		n := &res.Nodes[i]
		label := fmtLabel(n, ix, opts.Detailed)
		attrs := fmtAttrs(n, ix, label)
		fmt.Fprintf(&buf, "  %d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range res.Connections {
		children := c.Children
		if opts.RightToLeft {
			children = reversed(children)
		}
		for _, ch := range children {
			fmt.Fprintf(&buf, "  %d -> %d;\n", c.ParentID, ch.ID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func reversed(in []layout.ChildPoint) []layout.ChildPoint {
	out := make([]layout.ChildPoint, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}

func fmtLabel(n *layout.Node, ix *index.Indices, detailed bool) string {
	name := n.Name
	if name == "" {
		name = strconv.FormatInt(n.ID, 10)
	}
	if !detailed {
		return name
	}
	parts := []string{fmt.Sprintf("depth: %d", n.Depth)}
	if ix != nil {
		parts = append(parts, fmt.Sprintf("descendants: %d", ix.SubtreeSizes[n.ID]-1))
	}
	return name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *layout.Node, ix *index.Indices, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if ix != nil && ix.IsHero(n.ID) {
		attrs = append(attrs, "penwidth=3", "color=\"#d4a017\"")
	}
	if n.HasPhoto() {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", n.PhotoURL))
	}
	return attrs
}

// RenderSVG lays out a DOT graph with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
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

// normalizeViewBox replaces Graphviz's pt-sized root element with one whose
// width and height match the viewBox.
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

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
