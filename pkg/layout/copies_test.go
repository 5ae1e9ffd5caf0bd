package layout

import (
	"strings"
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

func findCopyOf(g *graph.Graph, canonical string) *graph.Node {
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		if n.IsCopy && n.OriginalID == canonical {
			return n
		}
	}
	return nil
}

func TestCopyManagerSharedNode(t *testing.T) {
	g := sharedDataGraph(t)
	ctx := NewContext(g)
	blocks := identify(t, ctx)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	m := NewCopyManager(ctx, blocks)
	m.Analyze()

	plans := m.Plans()
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan entry, got %d", len(plans))
	}
	plan := plans[0]
	if plan.CanonicalID != "d" || plan.OwnerBlockID != "block_0" {
		t.Errorf("plan = %+v", plan)
	}
	if len(plan.CopyTargets) != 1 {
		t.Errorf("one non-owning block should get exactly one copy, got %d", len(plan.CopyTargets))
	}

	if err := m.Apply(); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if m.NodesAdded() != 1 {
		t.Errorf("NodesAdded = %d, want 1", m.NodesAdded())
	}

	cp := findCopyOf(g, "d")
	if cp == nil {
		t.Fatal("copy node not created")
	}
	if cp.OwningBlockID != "block_1" {
		t.Errorf("copy owning block = %q, want block_1", cp.OwningBlockID)
	}
	if !strings.HasPrefix(cp.ID, "d_copy_block_1_") {
		t.Errorf("copy ID %q does not follow the naming convention", cp.ID)
	}

	// f2 now reads the copy, not the canonical node
	for _, e := range ctx.DataIn("f2") {
		if e.From == "d" {
			t.Error("edge into f2 should have been redirected to the copy")
		}
	}
	if g.FindEdge(cp.ID, "out", "f2", "value") == nil {
		t.Error("redirected edge from copy to f2 missing")
	}
	// the owner keeps its original edge untouched
	if g.FindEdge("d", "out", "f1", "value") == nil {
		t.Error("owner block edge should be preserved")
	}
}

func TestCopyManagerSingleCopyPerBlock(t *testing.T) {
	// d feeds two inputs of the same foreign flow node: still one copy.
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
	connectData(t, g, "d", "f2", "value2")

	ctx := NewContext(g)
	blocks := identify(t, ctx)
	m := NewCopyManager(ctx, blocks)
	m.Analyze()
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	if m.NodesAdded() != 1 {
		t.Errorf("NodesAdded = %d, want exactly 1 copy", m.NodesAdded())
	}
}

func TestCopyManagerReplaysUpstreamEdges(t *testing.T) {
	// d1 <- d2; d1 feeds both blocks, so the copy of d1 needs its own copy
	// of d2 plus the replayed edge between them.
	g := graph.New()
	addEvent(t, g, "ev1", 1)
	addEvent(t, g, "ev2", 2)
	addFlow(t, g, "f1")
	addFlow(t, g, "f2")
	addData(t, g, "d1")
	addData(t, g, "d2")
	connectFlow(t, g, "ev1", "then", "f1")
	connectFlow(t, g, "ev2", "then", "f2")
	connectData(t, g, "d2", "d1", "a")
	connectData(t, g, "d1", "f1", "value")
	connectData(t, g, "d1", "f2", "value")

	ctx := NewContext(g)
	blocks := identify(t, ctx)
	m := NewCopyManager(ctx, blocks)
	m.Analyze()
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}

	if m.NodesAdded() != 2 {
		t.Errorf("NodesAdded = %d, want copies of d1 and d2", m.NodesAdded())
	}
	d1c := findCopyOf(g, "d1")
	d2c := findCopyOf(g, "d2")
	if d1c == nil || d2c == nil {
		t.Fatal("missing closure copies")
	}
	if g.FindEdge(d2c.ID, "out", d1c.ID, "a") == nil {
		t.Error("replayed edge between copies missing")
	}
}

func TestCopyManagerIdempotent(t *testing.T) {
	g := sharedDataGraph(t)
	ctx := NewContext(g)
	m := NewCopyManager(ctx, identify(t, ctx))
	m.Analyze()
	if err := m.Apply(); err != nil {
		t.Fatal(err)
	}
	nodesAfterFirst := g.NodeCount()
	edgesAfterFirst := g.EdgeCount()

	// Re-run the whole pipeline over the already-copied graph.
	ctx2 := NewContext(g)
	m2 := NewCopyManager(ctx2, identify(t, ctx2))
	m2.Analyze()
	if err := m2.Apply(); err != nil {
		t.Fatal(err)
	}
	if m2.NodesAdded() != 0 || m2.EdgesAdded() != 0 {
		t.Errorf("second run added %d nodes, %d edges; want 0, 0",
			m2.NodesAdded(), m2.EdgesAdded())
	}
	if g.NodeCount() != nodesAfterFirst || g.EdgeCount() != edgesAfterFirst {
		t.Error("second run changed graph size")
	}
}

func TestUnassignedDataNodes(t *testing.T) {
	g := graph.New()
	addEvent(t, g, "ev", 1)
	addFlow(t, g, "f1")
	addData(t, g, "floating")
	connectFlow(t, g, "ev", "then", "f1")

	ctx := NewContext(g)
	blocks := identify(t, ctx)
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}
	got := UnassignedDataNodes(ctx, blocks)
	if len(got) != 1 || got[0] != "floating" {
		t.Errorf("UnassignedDataNodes = %v, want [floating]", got)
	}
}
