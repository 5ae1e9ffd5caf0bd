package layout

import (
	"math"
)

// =============================================================================
// Block-Bounds Calculator
// =============================================================================

// computeBounds derives the block's bounding box from its placed nodes and
// re-bases every local position to the block's own top-left corner, leaving
// a uniform padding margin on all sides.
func (bc *blockContext) computeBounds(padding float64) {
	b := bc.block
	if len(bc.localPos) == 0 {
		b.Width = bc.nodeWidth + 2*padding
		b.Height = DefaultNodeHeight + 2*padding
		b.LocalPos = make(map[string]Pos)
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for id, pos := range bc.localPos {
		h := bc.height(id)
		minX = math.Min(minX, pos.X)
		minY = math.Min(minY, pos.Y)
		maxX = math.Max(maxX, pos.X+bc.nodeWidth)
		maxY = math.Max(maxY, pos.Y+h)
	}

	rebased := make(map[string]Pos, len(bc.localPos))
	for id, pos := range bc.localPos {
		rebased[id] = Pos{
			X: pos.X - minX + padding,
			Y: pos.Y - minY + padding,
		}
	}
	b.LocalPos = rebased
	b.Width = maxX - minX + 2*padding
	b.Height = maxY - minY + 2*padding
}
