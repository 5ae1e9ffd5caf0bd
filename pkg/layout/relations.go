package layout

import (
	"slices"
)

// =============================================================================
// Block-Relationship Analyzer
// =============================================================================

// portExitLoop names the flow input port a loop node exposes for break
// edges. Those edges jump out of a loop body and are excluded from the
// block-level layout DAG so loops do not widen the diagram.
const portExitLoop = "exit-loop"

// Relations is the block-level parent/child view derived from flow
// branches. Children keep output-port order; parents are sets.
type Relations struct {
	BlockByFlowNode map[string]*Block
	Children        map[*Block][]*Block
	Parents         map[*Block]map[*Block]bool
}

// ShiftPlan is a precomputed vertical offset for a block that fans out to
// two or more children or merges two or more parents, along with the blocks
// the offset was measured against.
type ShiftPlan struct {
	Shift      float64
	References []*Block
}

// AnalyzeRelations builds the block-level directed relationships from each
// block's branches, skipping jump-out edges.
func AnalyzeRelations(ctx *Context, blocks []*Block) *Relations {
	r := &Relations{
		BlockByFlowNode: make(map[string]*Block),
		Children:        make(map[*Block][]*Block),
		Parents:         make(map[*Block]map[*Block]bool, len(blocks)),
	}
	for _, b := range blocks {
		r.Parents[b] = make(map[*Block]bool)
		for _, id := range b.FlowNodes {
			r.BlockByFlowNode[id] = b
		}
	}
	for _, b := range blocks {
		var children []*Block
		if len(b.FlowNodes) > 0 {
			inBlock := make(map[string]bool, len(b.FlowNodes))
			for _, id := range b.FlowNodes {
				inBlock[id] = true
			}
			seen := make(map[*Block]bool)
			for _, br := range b.Branches {
				if isJumpOutEdge(ctx, inBlock, br.Target) {
					continue
				}
				next := r.BlockByFlowNode[br.Target]
				if next == nil || next == b || seen[next] {
					continue
				}
				seen[next] = true
				children = append(children, next)
				r.Parents[next][b] = true
			}
		}
		r.Children[b] = children
	}
	return r
}

// isJumpOutEdge reports whether some flow edge from inside the block lands
// on the target's loop-exit port.
func isJumpOutEdge(ctx *Context, inBlock map[string]bool, targetID string) bool {
	for _, e := range ctx.FlowIn(targetID) {
		if inBlock[e.From] && e.ToPort == portExitLoop {
			return true
		}
	}
	return false
}

// ComputeShiftPlans precomputes each block's downward offset: half the
// larger of its unique children's summed heights and its unique parents'
// summed heights, applied only when either side has two or more blocks.
func (r *Relations) ComputeShiftPlans(blocks []*Block) map[*Block]ShiftPlan {
	plans := make(map[*Block]ShiftPlan, len(blocks))
	for _, b := range blocks {
		uniqueChildren := make(map[*Block]bool)
		for _, c := range r.Children[b] {
			uniqueChildren[c] = true
		}
		parents := r.Parents[b]

		var rightSum, leftSum float64
		if len(uniqueChildren) >= 2 {
			for c := range uniqueChildren {
				rightSum += c.Height
			}
		}
		if len(parents) >= 2 {
			for p := range parents {
				leftSum += p.Height
			}
		}

		shift := 0.5 * max(rightSum, leftSum)
		if shift <= 0 {
			plans[b] = ShiftPlan{}
			continue
		}

		source := parents
		if rightSum >= leftSum {
			source = uniqueChildren
		}
		refs := make([]*Block, 0, len(source))
		for blk := range source {
			refs = append(refs, blk)
		}
		slices.SortFunc(refs, func(a, b *Block) int { return a.OrderIndex - b.OrderIndex })
		plans[b] = ShiftPlan{Shift: shift, References: refs}
	}
	return plans
}
