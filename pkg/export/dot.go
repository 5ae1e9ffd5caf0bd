package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
	"github.com/mkuhlmann/flowlayout/pkg/layout"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes categories and port names in node labels.
	// When false, only the node title (or ID) is shown.
	Detailed bool
}

// blockPalette maps a block's color tag to a cluster background. Indexes
// beyond the palette wrap around.
var blockPalette = []string{
	"#e3f2fd", "#e8f5e9", "#fff3e0", "#f3e5f5",
	"#e0f7fa", "#fbe9e7", "#f1f8e9", "#ede7f6",
}

// ToDOT converts a laid-out graph to Graphviz DOT format. Each block becomes
// a cluster labeled with its event title; nodes not claimed by any block are
// emitted at top level. The resulting DOT string can be rendered with
// [RenderSVG] or [RenderPNG].
func ToDOT(g *graph.Graph, res *layout.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	claimed := make(map[string]bool)
	for _, b := range res.Blocks {
		fmt.Fprintf(&buf, "  subgraph \"cluster_%s\" {\n", b.ID)
		label := b.EventTitle
		if label == "" {
			label = b.ID
		}
		fmt.Fprintf(&buf, "    label=%q;\n", label)
		fmt.Fprintf(&buf, "    style=\"rounded,filled\";\n")
		fmt.Fprintf(&buf, "    fillcolor=%q;\n", blockPalette[b.Color%len(blockPalette)])
		for _, id := range b.NodeIDs() {
			claimed[id] = true
			writeNode(&buf, "    ", g, id, opts)
		}
		buf.WriteString("  }\n")
	}

	for _, id := range g.NodeIDs() {
		if !claimed[id] {
			writeNode(&buf, "  ", g, id, opts)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if g.IsFlowEdge(e) {
			fmt.Fprintf(&buf, "  %q -> %q [penwidth=2];\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [style=dotted];\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, indent string, g *graph.Graph, id string, opts Options) {
	n, ok := g.Node(id)
	if !ok {
		return
	}
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
	switch {
	case n.IsCopy:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case n.Category == graph.CategoryEvent:
		attrs = append(attrs, "shape=cds", "fillcolor=\"#fff9c4\"")
	case n.IsPureData():
		attrs = append(attrs, "shape=ellipse")
	}
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, id, strings.Join(attrs, ", "))
}

func fmtLabel(n *graph.Node, detailed bool) string {
	label := n.Title
	if label == "" {
		label = n.ID
	}
	if !detailed {
		return label
	}

	var parts []string
	if n.Category != "" {
		parts = append(parts, "category: "+n.Category)
	}
	for _, p := range n.Inputs {
		parts = append(parts, "in: "+p.Name)
	}
	for _, p := range n.Outputs {
		parts = append(parts, "out: "+p.Name)
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}
