package layout

import (
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

func TestFindEventRootsDataOnly(t *testing.T) {
	g := graph.New()
	addData(t, g, "d1")
	addData(t, g, "d2")
	connectData(t, g, "d1", "d2", "a")

	roots := FindEventRoots(NewContext(g))
	if len(roots) != 0 {
		t.Errorf("data-only graph should have no roots, got %d", len(roots))
	}
}

func TestFindEventRootsEventOrder(t *testing.T) {
	g := graph.New()
	addEvent(t, g, "ev_b", 2)
	addEvent(t, g, "ev_a", 1)
	addFlow(t, g, "f1")
	addFlow(t, g, "f2")
	connectFlow(t, g, "ev_a", "then", "f1")
	connectFlow(t, g, "ev_b", "then", "f2")

	roots := FindEventRoots(NewContext(g))
	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	if roots[0].ID != "ev_a" || roots[1].ID != "ev_b" {
		t.Errorf("roots not in declared event order: %s, %s", roots[0].ID, roots[1].ID)
	}
}

func TestFindEventRootsZeroIndegreeFallback(t *testing.T) {
	g := graph.New()
	addFlow(t, g, "start")
	addFlow(t, g, "next")
	connectFlow(t, g, "start", "then", "next")

	roots := FindEventRoots(NewContext(g))
	if len(roots) != 1 || roots[0].ID != "start" {
		t.Errorf("expected single root start, got %v", roots)
	}
}

func TestFindEventRootsPureCycle(t *testing.T) {
	g := graph.New()
	addFlow(t, g, "x")
	addFlow(t, g, "y")
	connectFlow(t, g, "x", "then", "y")
	connectFlow(t, g, "y", "then", "x")

	roots := FindEventRoots(NewContext(g))
	if len(roots) != 1 {
		t.Fatalf("pure cycle should yield exactly one root, got %d", len(roots))
	}
	if roots[0].ID != "x" {
		t.Errorf("cycle root should be stable first flow node, got %s", roots[0].ID)
	}
}

func TestFindEventRootsIgnoresVirtualPins(t *testing.T) {
	g := graph.New()
	if err := g.AddNode(&graph.Node{
		ID:       "pin",
		Category: graph.CategoryVirtualPin,
		Outputs:  []graph.Port{{Name: "then", Flow: true}},
	}); err != nil {
		t.Fatal(err)
	}
	addFlow(t, g, "start")
	connectFlow(t, g, "pin", "then", "start")

	roots := FindEventRoots(NewContext(g))
	if len(roots) != 1 || roots[0].ID != "start" {
		t.Errorf("pin-fed node should still count as a root, got %v", roots)
	}
}
