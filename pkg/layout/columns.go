package layout

import (
	"slices"
)

// =============================================================================
// Block Positioning Engine - column leveling and column X offsets
// =============================================================================

// solveColumnIndices levels the group's block DAG by longest path from the
// roots: a block with no in-group parents sits in column 0, every other
// block one past its deepest parent. Back edges that survive the jump-out
// filter are ignored instead of looping.
func solveColumnIndices(group map[*Block]bool, parentSets map[*Block]map[*Block]bool) map[*Block]int {
	columns := make(map[*Block]int, len(group))
	onStack := make(map[*Block]bool)

	var resolve func(b *Block) int
	resolve = func(b *Block) int {
		if col, ok := columns[b]; ok {
			return col
		}
		if onStack[b] {
			return 0
		}
		onStack[b] = true
		col := 0
		for _, p := range sortedBlockSet(parentSets[b]) {
			if !group[p] || p == b || onStack[p] {
				continue
			}
			if c := resolve(p) + 1; c > col {
				col = c
			}
		}
		onStack[b] = false
		columns[b] = col
		return col
	}

	for _, b := range sortedBlockSet(group) {
		resolve(b)
	}
	return columns
}

// solveColumnX converts column indices to pixel offsets. Each column starts
// after the previous column's widest block, and skipped index values keep
// their spacing so sparse columns are not compressed.
func solveColumnX(cfg PositionConfig, columns map[*Block]int) map[int]float64 {
	if len(columns) == 0 {
		return map[int]float64{}
	}

	maxWidth := make(map[int]float64)
	for b, idx := range columns {
		if b.Width > maxWidth[idx] {
			maxWidth[idx] = b.Width
		}
	}

	indices := make([]int, 0, len(maxWidth))
	for idx := range maxWidth {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	left := make(map[int]float64, len(indices))
	offset := cfg.InitialX
	for i, idx := range indices {
		if i > 0 {
			prev := indices[i-1]
			offset += maxWidth[prev] + cfg.BlockXSpacing*float64(idx-prev)
		}
		left[idx] = offset
	}
	return left
}
