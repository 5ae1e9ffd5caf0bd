package layout

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// =============================================================================
// Engine - full pipeline orchestration
// =============================================================================

// blockColorCount is the size of the palette cycle used to tag blocks for
// visualization.
const blockColorCount = 8

// Engine runs the complete layout pipeline over one graph. Engines are
// cheap, stateless between runs, and safe to reuse; construct with New.
type Engine struct {
	md       Metadata
	budget   Budget
	relaxCfg RelaxConfig
	posCfg   PositionConfig
	padding  float64

	enableCopies bool
	enableRelax  bool

	logger *log.Logger
}

// Result is the outcome of one layout run.
type Result struct {
	// Positions maps every laid-out node to its absolute position.
	Positions map[string]Pos

	// Blocks in stable order, with bounds and absolute placement filled in.
	Blocks []*Block

	// Roots lists the event-root node IDs in processing order.
	Roots []string

	// ShiftPlans carries the precomputed fan-out/merge offsets per block
	// ID, for callers that post-process block placement.
	ShiftPlans map[string]ShiftPlan

	// DebugY explains, per data node, which Y candidate won. Diagnostic
	// only; the engine never reads it back.
	DebugY map[string]*DebugY

	// Exhausted is set when any block hit a chain-enumeration budget and
	// the result was truncated.
	Exhausted bool

	// NodesAdded and EdgesAdded count the topology the copy step created.
	// Both are zero when the graph was already fully copied.
	NodesAdded int
	EdgesAdded int
}

// New builds an engine with the package defaults: cross-block copies and Y
// relaxation enabled, default budgets and spacings, no metadata provider.
func New(opts ...Option) *Engine {
	e := &Engine{
		md:           nullMetadata{},
		budget:       DefaultBudget(),
		relaxCfg:     DefaultRelaxConfig(),
		posCfg:       PositionConfig{TightSpacing: true}.normalized(),
		padding:      defaultBlockPadding,
		enableCopies: true,
		enableRelax:  true,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout runs the pipeline: event roots, block identification, cross-block
// copy resolution, per-block chain enumeration and coordinate assignment,
// bounds, block relationships, and block positioning. The graph is mutated:
// copy nodes and edges are added and every laid-out node's position is
// written back.
func (e *Engine) Layout(g *graph.Graph) (*Result, error) {
	ctx := NewContext(g)

	roots := FindEventRoots(ctx)
	res := &Result{
		Positions:  make(map[string]Pos),
		ShiftPlans: make(map[string]ShiftPlan),
		DebugY:     make(map[string]*DebugY),
	}
	if len(roots) == 0 {
		return res, nil
	}

	visited := make(map[string]bool)
	var blocks []*Block
	seq := 0
	for _, root := range roots {
		res.Roots = append(res.Roots, root.ID)
		identifyBlocks(ctx, root.ID, visited, root.ID, root.Title, &seq, &blocks)
	}
	for _, b := range blocks {
		if err := b.Validate(ctx); err != nil {
			return nil, fmt.Errorf("block %s: %w", b.ID, err)
		}
	}
	e.logger.Debug("identified blocks", "roots", len(roots), "blocks", len(blocks))

	if e.enableCopies {
		cm := NewCopyManager(ctx, blocks)
		cm.Analyze()
		if err := cm.Apply(); err != nil {
			return nil, fmt.Errorf("apply copy plan: %w", err)
		}
		res.NodesAdded = cm.NodesAdded()
		res.EdgesAdded = cm.EdgesAdded()
		if res.NodesAdded > 0 || res.EdgesAdded > 0 {
			e.logger.Debug("resolved cross-block sharing",
				"nodes_added", res.NodesAdded, "edges_added", res.EdgesAdded)
		}
	}

	globalPlaced := make(map[string]bool)
	for i, b := range blocks {
		b.Color = i % blockColorCount

		bc := newBlockContext(ctx, b, e.md, e.budget, globalPlaced)
		bc.enumerateChains()
		bc.placeDataNodes()
		bc.assignCoordinates()
		if e.enableRelax {
			bc.relaxDataY(e.relaxCfg)
		}
		bc.computeBounds(e.padding)

		for id := range bc.placed {
			globalPlaced[id] = true
		}
		for id, snap := range bc.debugY {
			res.DebugY[id] = snap
		}
		if bc.exhausted {
			res.Exhausted = true
			e.logger.Warn("chain enumeration budget exhausted", "block", b.ID)
		}
	}

	rel := AnalyzeRelations(ctx, blocks)
	for b, plan := range rel.ComputeShiftPlans(blocks) {
		res.ShiftPlans[b.ID] = plan
	}
	PositionBlocks(ctx, blocks, rel, res.Roots, e.posCfg)

	for _, b := range blocks {
		for id, lp := range b.LocalPos {
			pos := Pos{X: b.X + lp.X, Y: b.Y + lp.Y}
			res.Positions[id] = pos
			if n, ok := g.Node(id); ok {
				n.X = pos.X
				n.Y = pos.Y
			}
		}
	}
	res.Blocks = blocks
	return res, nil
}
