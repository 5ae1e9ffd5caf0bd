package layout

import (
	"slices"
	"testing"
)

func TestEnumerateChains(t *testing.T) {
	ctx := NewContext(chainedGraph(t))
	blocks := identify(t, ctx)
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}

	bc := newBlockContext(ctx, blocks[0], nullMetadata{}, DefaultBudget(), nil)
	bc.enumerateChains()
	bc.placeDataNodes()

	if len(bc.chains) == 0 {
		t.Fatal("no chains enumerated")
	}
	for id, c := range bc.chains {
		if !bc.flowSet[c.ConsumerFlow] {
			t.Errorf("chain %d consumer %s outside the block", id, c.ConsumerFlow)
		}
		if len(c.Nodes) == 0 {
			t.Errorf("chain %d has no nodes", id)
		}
	}

	for _, id := range []string{"d1", "d2", "d3"} {
		if !slices.Contains(bc.dataOrder, id) {
			t.Errorf("data node %s not placed", id)
		}
	}
	// d1 sits adjacent to its consumer; d2 one hop further upstream
	if len(bc.chainIDsByNode["d2"]) == 0 {
		t.Error("upstream node d2 belongs to no chain")
	}
	if bc.exhausted {
		t.Error("small graph should not exhaust any budget")
	}
}

func TestEnumerateChainsBudget(t *testing.T) {
	ctx := NewContext(fanInGraph(t, 500))
	blocks := identify(t, ctx)
	if len(blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(blocks))
	}

	tight := Budget{MaxPerNode: 4, MaxPerStart: 8, MaxPerBlock: 16}
	bc := newBlockContext(ctx, blocks[0], nullMetadata{}, tight, nil)
	bc.enumerateChains()

	if !bc.exhausted {
		t.Error("tight budget over wide fan-in should be exhausted")
	}
	if len(bc.chains) > 16 {
		t.Errorf("per-block budget exceeded: %d chains", len(bc.chains))
	}
}

func TestChainsSkipEarlierBlockNodes(t *testing.T) {
	ctx := NewContext(chainedGraph(t))
	blocks := identify(t, ctx)

	skip := map[string]bool{"d2": true}
	bc := newBlockContext(ctx, blocks[0], nullMetadata{}, DefaultBudget(), skip)
	bc.enumerateChains()
	bc.placeDataNodes()

	if slices.Contains(bc.dataOrder, "d2") {
		t.Error("node claimed by an earlier block must not be placed again")
	}
	if !slices.Contains(bc.dataOrder, "d1") {
		t.Error("remaining chain nodes should still be placed")
	}
}
