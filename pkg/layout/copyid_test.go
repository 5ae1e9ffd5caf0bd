package layout

import (
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

func TestCopyRank(t *testing.T) {
	tests := []struct {
		name    string
		node    *graph.Node
		block   int
		counter int
	}{
		{
			name:    "naming convention",
			node:    &graph.Node{ID: "sum_copy_block_3_4"},
			block:   3,
			counter: 4,
		},
		{
			name:    "explicit owning block wins over the ID",
			node:    &graph.Node{ID: "sum_copy_block_3_0", OwningBlockID: "block_1"},
			block:   1,
			counter: 0,
		},
		{
			name:    "not a copy",
			node:    &graph.Node{ID: "plain"},
			block:   orderMaxFallback,
			counter: orderMaxFallback,
		},
		{
			name:    "mangled block segment",
			node:    &graph.Node{ID: "sum_copy_blk_x_2"},
			block:   orderMaxFallback,
			counter: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, counter := CopyRank(tt.node)
			if block != tt.block || counter != tt.counter {
				t.Errorf("CopyRank = (%d, %d), want (%d, %d)",
					block, counter, tt.block, tt.counter)
			}
		})
	}
}

func TestCopiesByRank(t *testing.T) {
	g := graph.New()
	for _, n := range []*graph.Node{
		{ID: "x_copy_block_1_0", IsCopy: true, OriginalID: "x"},
		{ID: "y_copy_block_0_1", IsCopy: true, OriginalID: "y"},
		{ID: "y_copy_block_0_0", IsCopy: true, OriginalID: "y"},
		{ID: "x", Outputs: []graph.Port{{Name: "out"}}},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}

	got := CopiesByRank(g)
	want := []string{"y_copy_block_0_0", "y_copy_block_0_1", "x_copy_block_1_0"}
	if len(got) != len(want) {
		t.Fatalf("got %d copies, want %d", len(got), len(want))
	}
	for i, n := range got {
		if n.ID != want[i] {
			t.Errorf("copies[%d] = %s, want %s", i, n.ID, want[i])
		}
	}
}

func TestCopiesByRankAfterLayout(t *testing.T) {
	g := sharedDataGraph(t)
	if _, err := New().Layout(g); err != nil {
		t.Fatal(err)
	}

	copies := CopiesByRank(g)
	if len(copies) != 1 {
		t.Fatalf("got %d copies, want 1", len(copies))
	}
	block, counter := CopyRank(copies[0])
	if block != 1 || counter != 1 {
		t.Errorf("CopyRank = (%d, %d), want (1, 1)", block, counter)
	}
}
