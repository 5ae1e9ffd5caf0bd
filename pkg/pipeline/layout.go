package pipeline

import (
	"fmt"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
	flowio "github.com/mkuhlmann/flowlayout/pkg/io"
	"github.com/mkuhlmann/flowlayout/pkg/layout"
)

// computeLayout runs the layout engine and packages the result as a
// document. The engine mutates its input (data-node copies, positions), so
// it works on a clone and the caller's graph stays untouched.
func computeLayout(g *graph.Graph, opts Options) (flowio.LayoutDocument, error) {
	work, err := graph.ToGraph(graph.FromGraph(g))
	if err != nil {
		return flowio.LayoutDocument{}, fmt.Errorf("clone graph: %w", err)
	}

	engine := layout.New(
		layout.EnableCrossBlockCopies(!opts.NoCopies),
		layout.EnableYRelaxation(!opts.NoRelax),
		layout.WithBudget(layout.Budget{
			MaxPerNode:  opts.MaxPerNode,
			MaxPerStart: opts.MaxPerStart,
			MaxPerBlock: opts.MaxPerBlock,
		}),
		layout.WithPositionConfig(layout.PositionConfig{
			InitialX:      opts.InitialX,
			InitialY:      opts.InitialY,
			BlockXSpacing: opts.BlockXSpacing,
			BlockYSpacing: opts.BlockYSpacing,
			TightSpacing:  !opts.NoTightSpacing,
		}),
		layout.WithLogger(opts.Logger),
	)

	res, err := engine.Layout(work)
	if err != nil {
		return flowio.LayoutDocument{}, err
	}
	return flowio.FromResult(work, res), nil
}
