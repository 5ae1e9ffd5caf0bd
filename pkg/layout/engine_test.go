package layout

import (
	"maps"
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// complexGraph combines two event flows, a branch, cross-block data sharing,
// and a multi-hop chain.
func complexGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	addEvent(t, g, "ev1", 1)
	addEvent(t, g, "ev2", 2)
	addBranch(t, g, "split")
	addFlow(t, g, "left")
	addFlow(t, g, "right")
	addFlow(t, g, "other")
	addData(t, g, "shared")
	addData(t, g, "mid")
	addData(t, g, "deep")

	connectFlow(t, g, "ev1", "then", "split")
	connectFlow(t, g, "split", "then", "left")
	connectFlow(t, g, "split", "else", "right")
	connectFlow(t, g, "ev2", "then", "other")

	connectData(t, g, "deep", "mid", "a")
	connectData(t, g, "mid", "left", "value")
	connectData(t, g, "shared", "left", "value2")
	connectData(t, g, "shared", "other", "value")
	return g
}

func TestLayoutEmptyAndDataOnly(t *testing.T) {
	e := New()

	res, err := e.Layout(graph.New())
	if err != nil {
		t.Fatalf("empty graph: %v", err)
	}
	if len(res.Blocks) != 0 || len(res.Positions) != 0 {
		t.Error("empty graph should produce an empty result")
	}

	g := graph.New()
	addData(t, g, "d1")
	addData(t, g, "d2")
	connectData(t, g, "d1", "d2", "a")
	res, err = e.Layout(g)
	if err != nil {
		t.Fatalf("data-only graph: %v", err)
	}
	if len(res.Blocks) != 0 {
		t.Error("data-only graph should produce no blocks")
	}
}

func TestLayoutDeterminism(t *testing.T) {
	run := func() (*Result, *graph.Graph) {
		g := complexGraph(t)
		res, err := New().Layout(g)
		if err != nil {
			t.Fatal(err)
		}
		return res, g
	}

	res1, g1 := run()
	res2, g2 := run()

	if !maps.Equal(res1.Positions, res2.Positions) {
		t.Error("two runs on identical input produced different positions")
	}
	ids1, ids2 := g1.NodeIDs(), g2.NodeIDs()
	if len(ids1) != len(ids2) {
		t.Fatalf("node sets differ: %d vs %d", len(ids1), len(ids2))
	}
	for i := range ids1 {
		if ids1[i] != ids2[i] {
			t.Fatalf("node ID mismatch at %d: %s vs %s", i, ids1[i], ids2[i])
		}
	}
	if g1.EdgeCount() != g2.EdgeCount() {
		t.Error("edge counts differ between runs")
	}
	if len(res1.Blocks) != len(res2.Blocks) {
		t.Fatal("block counts differ between runs")
	}
	for i := range res1.Blocks {
		a, b := res1.Blocks[i], res2.Blocks[i]
		if a.ID != b.ID || a.X != b.X || a.Y != b.Y || a.Width != b.Width || a.Height != b.Height {
			t.Errorf("block %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestLayoutRelayoutIdempotent(t *testing.T) {
	g := complexGraph(t)
	e := New()

	res1, err := e.Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if res1.NodesAdded == 0 {
		t.Fatal("expected the shared node to be copied on the first run")
	}

	res2, err := e.Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if res2.NodesAdded != 0 || res2.EdgesAdded != 0 {
		t.Errorf("re-layout added %d nodes, %d edges; want 0, 0",
			res2.NodesAdded, res2.EdgesAdded)
	}
}

func TestLayoutColumnNonOverlap(t *testing.T) {
	g := complexGraph(t)
	res, err := New().Layout(g)
	if err != nil {
		t.Fatal(err)
	}

	ctx := NewContext(g)
	md := nullMetadata{}
	for _, b := range res.Blocks {
		byColumn := make(map[float64][]string)
		for id, pos := range b.LocalPos {
			byColumn[pos.X] = append(byColumn[pos.X], id)
		}
		for x, ids := range byColumn {
			for i := 0; i < len(ids); i++ {
				for j := i + 1; j < len(ids); j++ {
					a, c := ids[i], ids[j]
					aTop := b.LocalPos[a].Y
					aBot := aTop + estimateNodeHeight(ctx, md, a)
					cTop := b.LocalPos[c].Y
					cBot := cTop + estimateNodeHeight(ctx, md, c)
					if aTop < cBot && cTop < aBot {
						t.Errorf("block %s column %.0f: %s [%.1f,%.1f) overlaps %s [%.1f,%.1f)",
							b.ID, x, a, aTop, aBot, c, cTop, cBot)
					}
				}
			}
		}
	}
}

func TestLayoutSingleOwnership(t *testing.T) {
	g := complexGraph(t)
	res, err := New().Layout(g)
	if err != nil {
		t.Fatal(err)
	}

	owner := make(map[string]string)
	for _, b := range res.Blocks {
		for _, id := range b.DataNodes {
			if prev, taken := owner[id]; taken {
				t.Errorf("data node %s claimed by both %s and %s", id, prev, b.ID)
			}
			owner[id] = b.ID
		}
	}

	ctx := NewContext(g)
	if floating := UnassignedDataNodes(ctx, res.Blocks); len(floating) != 0 {
		t.Errorf("unassigned data nodes after layout: %v", floating)
	}
}

func TestLayoutWritesBackPositions(t *testing.T) {
	g := chainedGraph(t)
	res, err := New().Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(res.Blocks))
	}
	for _, id := range []string{"ev", "f1", "f2", "d1", "d2", "d3"} {
		pos, ok := res.Positions[id]
		if !ok {
			t.Errorf("no position for %s", id)
			continue
		}
		n, _ := g.Node(id)
		if n.X != pos.X || n.Y != pos.Y {
			t.Errorf("node %s position not written back", id)
		}
	}
	if res.Blocks[0].Color < 0 || res.Blocks[0].Color >= blockColorCount {
		t.Errorf("color tag out of range: %d", res.Blocks[0].Color)
	}
}

func TestLayoutBudgetExhaustion(t *testing.T) {
	g := fanInGraph(t, 10000)
	res, err := New().Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exhausted {
		t.Error("pathological fan-in should report budget exhaustion")
	}
	if len(res.Blocks) != 1 {
		t.Errorf("expected one block, got %d", len(res.Blocks))
	}
}

func TestLayoutSharedDataAcrossEvents(t *testing.T) {
	g := sharedDataGraph(t)
	e := New()

	res, err := e.Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	if res.NodesAdded != 1 {
		t.Errorf("NodesAdded = %d, want exactly one copy of the shared node", res.NodesAdded)
	}
	if findCopyOf(g, "d") == nil {
		t.Fatal("shared node was not copied into the second block")
	}

	res2, err := e.Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if res2.NodesAdded != 0 || res2.EdgesAdded != 0 {
		t.Errorf("re-layout added %d nodes, %d edges; want 0, 0",
			res2.NodesAdded, res2.EdgesAdded)
	}
}

func TestLayoutDebugRecords(t *testing.T) {
	g := chainedGraph(t)
	res, err := New().Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"d1", "d2"} {
		snap, ok := res.DebugY[id]
		if !ok {
			t.Errorf("no debug record for %s", id)
			continue
		}
		if snap.BlockID != "block_0" {
			t.Errorf("debug record for %s carries block %q", id, snap.BlockID)
		}
		if snap.NodeHeight <= 0 {
			t.Errorf("debug record for %s has no node height", id)
		}
	}
}

func TestLayoutOptions(t *testing.T) {
	g := sharedDataGraph(t)
	e := New(EnableCrossBlockCopies(false), EnableYRelaxation(false))
	res, err := e.Layout(g)
	if err != nil {
		t.Fatal(err)
	}
	if res.NodesAdded != 0 {
		t.Error("copies disabled but nodes were added")
	}
	if findCopyOf(g, "d") != nil {
		t.Error("copies disabled but a copy node exists")
	}
}
