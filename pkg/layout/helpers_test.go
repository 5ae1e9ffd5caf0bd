package layout

import (
	"fmt"
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// Test graph builders. Flow nodes use an exec/then port pair plus two data
// value inputs; branch nodes expose two flow outputs; data nodes are pure.

func addEvent(t *testing.T, g *graph.Graph, id string, order int) {
	t.Helper()
	err := g.AddNode(&graph.Node{
		ID:         id,
		Title:      id,
		Category:   graph.CategoryEvent,
		Outputs:    []graph.Port{{Name: "then", Flow: true}},
		EventOrder: order,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func addFlow(t *testing.T, g *graph.Graph, id string) {
	t.Helper()
	err := g.AddNode(&graph.Node{
		ID:    id,
		Title: id,
		Inputs: []graph.Port{
			{Name: "exec", Flow: true},
			{Name: "value"},
			{Name: "value2"},
		},
		Outputs: []graph.Port{
			{Name: "then", Flow: true},
			{Name: "result"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func addBranch(t *testing.T, g *graph.Graph, id string) {
	t.Helper()
	err := g.AddNode(&graph.Node{
		ID:    id,
		Title: id,
		Inputs: []graph.Port{
			{Name: "exec", Flow: true},
			{Name: "condition"},
		},
		Outputs: []graph.Port{
			{Name: "then", Flow: true},
			{Name: "else", Flow: true},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func addData(t *testing.T, g *graph.Graph, id string) {
	t.Helper()
	err := g.AddNode(&graph.Node{
		ID:      id,
		Title:   id,
		Inputs:  []graph.Port{{Name: "a"}, {Name: "b"}},
		Outputs: []graph.Port{{Name: "out"}},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func connectFlow(t *testing.T, g *graph.Graph, from, fromPort, to string) {
	t.Helper()
	if err := g.AddEdge(&graph.Edge{From: from, FromPort: fromPort, To: to, ToPort: "exec"}); err != nil {
		t.Fatal(err)
	}
}

func connectData(t *testing.T, g *graph.Graph, from, to, toPort string) {
	t.Helper()
	if err := g.AddEdge(&graph.Edge{From: from, FromPort: "out", To: to, ToPort: toPort}); err != nil {
		t.Fatal(err)
	}
}

// identify runs root finding and block identification over the graph.
func identify(t *testing.T, ctx *Context) []*Block {
	t.Helper()
	visited := make(map[string]bool)
	var blocks []*Block
	seq := 0
	for _, root := range FindEventRoots(ctx) {
		identifyBlocks(ctx, root.ID, visited, root.ID, root.Title, &seq, &blocks)
	}
	return blocks
}

func blockByFirstNode(t *testing.T, blocks []*Block, nodeID string) *Block {
	t.Helper()
	for _, b := range blocks {
		if len(b.FlowNodes) > 0 && b.FlowNodes[0] == nodeID {
			return b
		}
	}
	t.Fatalf("no block starts at %s", nodeID)
	return nil
}

// sharedDataGraph builds two event-rooted blocks whose flow nodes both
// consume the same data node, the canonical cross-block sharing setup.
func sharedDataGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addEvent(t, g, "ev1", 1)
	addEvent(t, g, "ev2", 2)
	addFlow(t, g, "f1")
	addFlow(t, g, "f2")
	addData(t, g, "d")
	connectFlow(t, g, "ev1", "then", "f1")
	connectFlow(t, g, "ev2", "then", "f2")
	connectData(t, g, "d", "f1", "value")
	connectData(t, g, "d", "f2", "value")
	return g
}

// diamondGraph builds event -> split -> (a | b) -> merge.
func diamondGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addEvent(t, g, "ev", 1)
	addBranch(t, g, "split")
	addFlow(t, g, "a")
	addFlow(t, g, "b")
	addFlow(t, g, "merge")
	connectFlow(t, g, "ev", "then", "split")
	connectFlow(t, g, "split", "then", "a")
	connectFlow(t, g, "split", "else", "b")
	connectFlow(t, g, "a", "then", "merge")
	connectFlow(t, g, "b", "then", "merge")
	return g
}

// chainedGraph builds one event-rooted block whose flow node consumes a
// two-hop data chain plus a second shared producer.
func chainedGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addEvent(t, g, "ev", 1)
	addFlow(t, g, "f1")
	addFlow(t, g, "f2")
	addData(t, g, "d1")
	addData(t, g, "d2")
	addData(t, g, "d3")
	connectFlow(t, g, "ev", "then", "f1")
	connectFlow(t, g, "f1", "then", "f2")
	connectData(t, g, "d2", "d1", "a")
	connectData(t, g, "d3", "d1", "b")
	connectData(t, g, "d1", "f2", "value")
	connectData(t, g, "d3", "f1", "value")
	return g
}

// fanInGraph builds one event-rooted block whose flow node consumes a data
// hub fed by the given number of producers.
func fanInGraph(t *testing.T, producers int) *graph.Graph {
	t.Helper()
	g := graph.New()
	addEvent(t, g, "ev", 1)
	addFlow(t, g, "sink")
	addData(t, g, "hub")
	connectFlow(t, g, "ev", "then", "sink")
	connectData(t, g, "hub", "sink", "value")
	for i := 0; i < producers; i++ {
		id := fmt.Sprintf("p%05d", i)
		addData(t, g, id)
		connectData(t, g, id, "hub", "a")
	}
	return g
}
