package export

import (
	"strings"
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
	"github.com/mkuhlmann/flowlayout/pkg/layout"
)

func laidOutGraph(t *testing.T) (*graph.Graph, *layout.Result) {
	t.Helper()
	g := graph.New()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(g.AddNode(&graph.Node{
		ID:       "ev",
		Title:    "On Start",
		Category: graph.CategoryEvent,
		Outputs:  []graph.Port{{Name: "then", Flow: true}},
	}))
	must(g.AddNode(&graph.Node{
		ID:     "f1",
		Title:  "Process",
		Inputs: []graph.Port{{Name: "exec", Flow: true}, {Name: "value"}},
	}))
	must(g.AddNode(&graph.Node{
		ID:      "d1",
		Title:   "Constant",
		Outputs: []graph.Port{{Name: "out"}},
	}))
	must(g.AddEdge(&graph.Edge{From: "ev", FromPort: "then", To: "f1", ToPort: "exec"}))
	must(g.AddEdge(&graph.Edge{From: "d1", FromPort: "out", To: "f1", ToPort: "value"}))

	res, err := layout.New().Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	return g, res
}

func TestToDOT(t *testing.T) {
	g, res := laidOutGraph(t)
	dot := ToDOT(g, res, Options{})

	if !strings.HasPrefix(dot, "digraph G {") {
		t.Error("missing digraph header")
	}
	if !strings.Contains(dot, `subgraph "cluster_block_0"`) {
		t.Error("block cluster missing")
	}
	for _, id := range []string{`"ev"`, `"f1"`, `"d1"`} {
		if !strings.Contains(dot, id) {
			t.Errorf("node %s missing from DOT", id)
		}
	}
	// flow edges are heavy, data edges dotted
	if !strings.Contains(dot, `"ev" -> "f1" [penwidth=2];`) {
		t.Error("flow edge not emitted")
	}
	if !strings.Contains(dot, `"d1" -> "f1" [style=dotted];`) {
		t.Error("data edge not emitted as dotted")
	}
	// titles used as labels
	if !strings.Contains(dot, `label="On Start"`) {
		t.Error("node title not used as label")
	}
}

func TestToDOTDetailed(t *testing.T) {
	g, res := laidOutGraph(t)
	dot := ToDOT(g, res, Options{Detailed: true})
	if !strings.Contains(dot, "in: exec") || !strings.Contains(dot, "out: then") {
		t.Error("detailed labels should list ports")
	}
}

func TestToDOTUnclaimedNodes(t *testing.T) {
	g, res := laidOutGraph(t)
	if err := g.AddNode(&graph.Node{ID: "orphan", Outputs: []graph.Port{{Name: "out"}}}); err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(g, res, Options{})
	if !strings.Contains(dot, `"orphan"`) {
		t.Error("node outside every block should still be emitted")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<?xml version="1.0"?><svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg">body</svg>`)
	out := normalizeViewBox(in)
	if !strings.Contains(string(out), `viewBox="0 0 100.00 50.00"`) {
		t.Errorf("viewBox not normalized: %s", out)
	}
	if !strings.Contains(string(out), `width="100" height="50"`) {
		t.Errorf("pixel size not set: %s", out)
	}

	// No viewBox passes through untouched
	plain := []byte("<svg>x</svg>")
	if string(normalizeViewBox(plain)) != "<svg>x</svg>" {
		t.Error("SVG without viewBox should pass through")
	}
}
