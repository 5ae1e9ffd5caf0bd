package layout

import (
	"math"
	"slices"
)

// =============================================================================
// Block Positioning Engine - in-column stacking
// =============================================================================

const (
	stackMaxRounds = 12
	stackEpsilon   = 0.5
	// When a block is both a fanned-out sibling and a multi-child parent,
	// the two centering targets can disagree. Past this gap the sibling
	// target wins outright so branch groups stay compact.
	stackConflictThreshold = 500.0
	// Small vertical grazes against a wide placed block would otherwise
	// trigger a huge rightward push; instead the column is nudged down.
	maxNudgeOverlap = 20.0
	minXImprovement = 120.0
)

type stackInput struct {
	columns    map[*Block]int
	columnLeft map[int]float64
	groupTopY  float64
	group      map[*Block]bool
	children   map[*Block][]*Block
	parentSets map[*Block]map[*Block]bool
}

// stackColumns assigns every group block its final top-left position. Blocks
// start as a compact stack per column, relax toward parent/child centers
// over a bounded number of rounds, get chained entries aligned, and finally
// receive an X that hugs the placed blocks to their left. Returns the
// group's bottom Y.
func (p *positioner) stackColumns(in stackInput) float64 {
	if len(in.columns) == 0 {
		return in.groupTopY
	}

	distinct := distinctColumnIndices(in.columns)
	stableBlocks := sortedBlockSet(in.group)

	columnBlocks := make(map[int][]*Block)
	for _, b := range stableBlocks {
		col, ok := in.columns[b]
		if !ok {
			continue
		}
		columnBlocks[col] = append(columnBlocks[col], b)
	}
	for _, blocks := range columnBlocks {
		slices.SortStableFunc(blocks, func(a, b *Block) int { return a.OrderIndex - b.OrderIndex })
	}

	// Children deduplicated in port order; parents rebuilt from those edges
	// so both sides agree on the jump-out filtering.
	uniqueChildren := make(map[*Block][]*Block, len(stableBlocks))
	for _, parent := range stableBlocks {
		seen := make(map[*Block]bool)
		var kept []*Block
		for _, child := range in.children[parent] {
			if seen[child] || !in.group[child] {
				continue
			}
			seen[child] = true
			kept = append(kept, child)
		}
		uniqueChildren[parent] = kept
	}
	edgeParents := make(map[*Block]map[*Block]bool, len(stableBlocks))
	for _, b := range stableBlocks {
		edgeParents[b] = make(map[*Block]bool)
	}
	for _, parent := range stableBlocks {
		for _, child := range uniqueChildren[parent] {
			if set, ok := edgeParents[child]; ok {
				set[parent] = true
			}
		}
	}

	p.reorderSiblingSlots(stableBlocks, columnBlocks, uniqueChildren, edgeParents)

	spacing := p.cfg.BlockYSpacing
	topY := make(map[*Block]float64, len(stableBlocks))
	for _, col := range distinct {
		cursor := in.groupTopY
		for _, b := range columnBlocks[col] {
			topY[b] = cursor
			cursor += b.Height + spacing
		}
	}

	parentsOf := func(b *Block) map[*Block]bool {
		if set := edgeParents[b]; len(set) > 0 {
			return set
		}
		return in.parentSets[b]
	}
	center := func(b *Block) float64 {
		y, ok := topY[b]
		if !ok {
			y = in.groupTopY
		}
		return y + b.Height*0.5
	}

	if stackNeedsRelax(stableBlocks, parentsOf, uniqueChildren) {
		relaxStack(stableBlocks, distinct, columnBlocks, parentsOf, uniqueChildren,
			topY, center, in.groupTopY, spacing)
	}

	alignChainComponents(stableBlocks, distinct, columnBlocks, in.group,
		uniqueChildren, edgeParents, topY, in.groupTopY, spacing)

	groupBottom := in.groupTopY
	for _, col := range distinct {
		blocks := columnBlocks[col]
		if len(blocks) == 0 {
			continue
		}
		columnLeft, ok := in.columnLeft[col]
		if !ok {
			columnLeft = p.cfg.InitialX
		}

		for i, b := range blocks {
			y := topY[b]

			if p.cfg.TightSpacing {
				y = p.nudgeForSmallOverlap(b, blocks[i:], topY, columnLeft)
			}
			left := columnLeft
			if p.cfg.TightSpacing {
				left = p.finalBlockLeftX(b, columnLeft, y)
			}
			b.X = left
			b.Y = y
			p.rt.positioned[b] = true
			p.rt.register(b)

			if bottom := y + b.Height; bottom > groupBottom {
				groupBottom = bottom
			}
		}
	}

	p.normalizeGroupX(stableBlocks)
	return groupBottom
}

// reorderSiblingSlots rearranges the single-parent children of a branching
// parent within the slots they already occupy, so siblings appear in port
// order without displacing unrelated blocks in the column.
func (p *positioner) reorderSiblingSlots(
	stableBlocks []*Block,
	columnBlocks map[int][]*Block,
	uniqueChildren map[*Block][]*Block,
	edgeParents map[*Block]map[*Block]bool,
) {
	var branching []*Block
	for _, b := range stableBlocks {
		if len(uniqueChildren[b]) >= 2 {
			branching = append(branching, b)
		}
	}
	if len(branching) == 0 {
		return
	}

	for _, blocks := range columnBlocks {
		if len(blocks) < 2 {
			continue
		}
		inColumn := make(map[*Block]bool, len(blocks))
		for _, b := range blocks {
			inColumn[b] = true
		}
		for _, parent := range branching {
			var candidates []*Block
			for _, child := range uniqueChildren[parent] {
				cp := edgeParents[child]
				if len(cp) == 1 && cp[parent] && inColumn[child] {
					candidates = append(candidates, child)
				}
			}
			if len(candidates) < 2 {
				continue
			}
			candidateSet := make(map[*Block]bool, len(candidates))
			for _, c := range candidates {
				candidateSet[c] = true
			}
			var slots []int
			for idx, b := range blocks {
				if candidateSet[b] {
					slots = append(slots, idx)
				}
			}
			if len(slots) < 2 {
				continue
			}
			for i, slot := range slots {
				if i < len(candidates) {
					blocks[slot] = candidates[i]
				}
			}
		}
	}
}

// stackNeedsRelax reports whether any block has a centering target; when
// none does the rounds would only reproduce the compact stack.
func stackNeedsRelax(
	stableBlocks []*Block,
	parentsOf func(*Block) map[*Block]bool,
	uniqueChildren map[*Block][]*Block,
) bool {
	for _, b := range stableBlocks {
		parents := parentsOf(b)
		if len(parents) >= 2 || len(uniqueChildren[b]) >= 2 {
			return true
		}
		if len(parents) == 1 {
			parent := singleBlock(parents)
			siblings := uniqueChildren[parent]
			if len(siblings) >= 2 {
				return true
			}
			if len(siblings) == 1 && siblings[0] == b {
				return true
			}
		}
	}
	return false
}

// relaxStack is the block-granularity centering loop: each round computes a
// desired top per block, then per column projects the desired values onto a
// non-overlapping stack with a forward pass (targetless blocks compact
// upward), a backward pull, and a final forward sweep.
func relaxStack(
	stableBlocks []*Block,
	distinct []int,
	columnBlocks map[int][]*Block,
	parentsOf func(*Block) map[*Block]bool,
	uniqueChildren map[*Block][]*Block,
	topY map[*Block]float64,
	center func(*Block) float64,
	groupTop, spacing float64,
) {
	for range stackMaxRounds {
		desired := make(map[*Block]float64, len(stableBlocks))
		hasTarget := make(map[*Block]bool, len(stableBlocks))

		for _, b := range stableBlocks {
			current, ok := topY[b]
			if !ok {
				current = groupTop
			}
			parents := parentsOf(b)
			children := uniqueChildren[b]

			var splitTarget *float64
			if len(parents) == 1 {
				parent := singleBlock(parents)
				siblings := uniqueChildren[parent]
				if _, placed := topY[parent]; len(siblings) >= 2 && placed {
					total := spacing * float64(len(siblings)-1)
					for _, sib := range siblings {
						total += sib.Height
					}
					running := center(parent) - total*0.5
					for _, sib := range siblings {
						if sib == b {
							v := running
							splitTarget = &v
							break
						}
						running += sib.Height + spacing
					}
				}
			}

			if len(parents) >= 2 {
				var sum float64
				n := 0
				for _, parent := range sortedBlockSet(parents) {
					if _, placed := topY[parent]; placed {
						sum += center(parent)
						n++
					}
				}
				if n >= 2 {
					desired[b] = sum/float64(n) - b.Height*0.5
					hasTarget[b] = true
					continue
				}
			}

			var multiChildTarget *float64
			if len(children) >= 2 {
				var sum float64
				n := 0
				for _, child := range children {
					if _, placed := topY[child]; placed {
						sum += center(child)
						n++
					}
				}
				if n >= 2 {
					v := sum/float64(n) - b.Height*0.5
					multiChildTarget = &v
				}
			}

			if splitTarget != nil {
				if multiChildTarget != nil {
					if math.Abs(*splitTarget-*multiChildTarget) >= stackConflictThreshold {
						desired[b] = *splitTarget
					} else {
						desired[b] = 0.5**splitTarget + 0.5**multiChildTarget
					}
				} else {
					desired[b] = *splitTarget
				}
				hasTarget[b] = true
				continue
			}

			if multiChildTarget != nil {
				desired[b] = *multiChildTarget
				hasTarget[b] = true
				continue
			}

			// Only the sole child of its parent is pulled to the parent
			// center; with several children that pull would crush them.
			if len(parents) == 1 {
				parent := singleBlock(parents)
				pc := uniqueChildren[parent]
				if _, placed := topY[parent]; placed && len(pc) == 1 && pc[0] == b {
					desired[b] = center(parent) - b.Height*0.5
					hasTarget[b] = true
					continue
				}
			}

			desired[b] = current
			hasTarget[b] = false
		}

		maxDelta := 0.0
		for _, col := range distinct {
			blocks := columnBlocks[col]
			if len(blocks) == 0 {
				continue
			}
			ys := make([]float64, len(blocks))
			for i, b := range blocks {
				if v, ok := desired[b]; ok {
					ys[i] = v
				} else if v, ok := topY[b]; ok {
					ys[i] = v
				} else {
					ys[i] = groupTop
				}
			}

			cursor := groupTop
			for i, b := range blocks {
				if hasTarget[b] {
					if ys[i] < cursor {
						ys[i] = cursor
					}
				} else {
					ys[i] = cursor
				}
				cursor = ys[i] + b.Height + spacing
			}
			for i := len(blocks) - 2; i >= 0; i-- {
				b := blocks[i]
				maxAllowed := ys[i+1] - b.Height - spacing
				if ys[i] > maxAllowed {
					ys[i] = math.Max(groupTop, maxAllowed)
				}
			}
			cursor = groupTop
			for i, b := range blocks {
				if ys[i] < cursor {
					ys[i] = cursor
				}
				cursor = ys[i] + b.Height + spacing
			}

			for i, b := range blocks {
				old, ok := topY[b]
				if !ok {
					old = groupTop
				}
				if delta := math.Abs(ys[i] - old); delta > maxDelta {
					maxDelta = delta
				}
				topY[b] = ys[i]
			}
		}
		if maxDelta <= stackEpsilon {
			break
		}
	}
}

// alignChainComponents equalizes the top Y along 1-to-1 parent/child block
// chains. The component is shifted down to its current maximum top (never
// up), dragging same-column followers along to preserve non-overlap.
func alignChainComponents(
	stableBlocks []*Block,
	distinct []int,
	columnBlocks map[int][]*Block,
	group map[*Block]bool,
	uniqueChildren map[*Block][]*Block,
	edgeParents map[*Block]map[*Block]bool,
	topY map[*Block]float64,
	groupTop, spacing float64,
) {
	indexInColumn := make(map[*Block]int)
	columnByBlock := make(map[*Block]int)
	for _, col := range distinct {
		for idx, b := range columnBlocks[col] {
			indexInColumn[b] = idx
			columnByBlock[b] = col
		}
	}

	adjacency := make(map[*Block][]*Block, len(stableBlocks))
	for _, parent := range stableBlocks {
		children := uniqueChildren[parent]
		if len(children) != 1 {
			continue
		}
		child := children[0]
		if !group[child] {
			continue
		}
		cp := edgeParents[child]
		if len(cp) != 1 || !cp[parent] {
			continue
		}
		adjacency[parent] = append(adjacency[parent], child)
		adjacency[child] = append(adjacency[child], parent)
	}

	visited := make(map[*Block]bool)
	for _, start := range stableBlocks {
		if visited[start] {
			continue
		}
		if len(adjacency[start]) == 0 {
			visited[start] = true
			continue
		}
		stack := []*Block{start}
		var component []*Block
		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[b] {
				continue
			}
			visited[b] = true
			component = append(component, b)
			for _, nb := range adjacency[b] {
				if !visited[nb] {
					stack = append(stack, nb)
				}
			}
		}
		if len(component) < 2 {
			continue
		}

		targetTop := groupTop
		for _, b := range component {
			if y, ok := topY[b]; ok && y > targetTop {
				targetTop = y
			}
		}
		requiredMin := groupTop
		for _, b := range component {
			col, ok := columnByBlock[b]
			if !ok {
				continue
			}
			idx := indexInColumn[b]
			if idx <= 0 {
				continue
			}
			prev := columnBlocks[col][idx-1]
			prevTop, ok := topY[prev]
			if !ok {
				prevTop = groupTop
			}
			if minAllowed := prevTop + prev.Height + spacing; minAllowed > requiredMin {
				requiredMin = minAllowed
			}
		}
		if requiredMin > targetTop {
			targetTop = requiredMin
		}

		slices.SortFunc(component, func(a, b *Block) int {
			if columnByBlock[a] != columnByBlock[b] {
				return columnByBlock[a] - columnByBlock[b]
			}
			return indexInColumn[a] - indexInColumn[b]
		})
		for _, b := range component {
			col, ok := columnByBlock[b]
			if !ok {
				continue
			}
			old, placed := topY[b]
			if !placed {
				old = groupTop
			}
			delta := targetTop - old
			if delta <= 1e-6 {
				continue
			}
			blocks := columnBlocks[col]
			for _, later := range blocks[indexInColumn[b]:] {
				cur, ok := topY[later]
				if !ok {
					cur = groupTop
				}
				topY[later] = cur + delta
			}
		}
	}
}

// nudgeForSmallOverlap shifts the block and its same-column followers down
// by a grazing overlap's height when that frees a large leftward move.
// Returns the block's possibly-updated top Y.
func (p *positioner) nudgeForSmallOverlap(b *Block, tail []*Block, topY map[*Block]float64, columnLeft float64) float64 {
	y := topY[b]
	portLeft, ok := p.minLeftFromPortGap(b)
	if !ok {
		portLeft = columnLeft
	}

	top := y
	bottom := y + b.Height
	var maxRight, overlapAmount float64
	found := false
	for _, placed := range p.rt.overlapCandidates(top, bottom) {
		if placed == b {
			continue
		}
		placedBottom := placed.Y + placed.Height
		if placedBottom <= top || placed.Y >= bottom {
			continue
		}
		overlap := math.Min(bottom, placedBottom) - math.Max(top, placed.Y)
		if overlap <= 0 {
			continue
		}
		if right := placed.X + placed.Width; !found || right > maxRight {
			found = true
			maxRight = right
			overlapAmount = overlap
		}
	}
	if found && overlapAmount > 0 && overlapAmount <= maxNudgeOverlap {
		requiredFromOverlap := maxRight + p.cfg.BlockXSpacing
		if requiredFromOverlap-portLeft >= minXImprovement {
			delta := overlapAmount + 1
			for _, later := range tail {
				topY[later] += delta
			}
			y = topY[b]
		}
	}
	return y
}

// normalizeGroupX shifts the whole group horizontally so every event flow
// starts at the same left anchor.
func (p *positioner) normalizeGroupX(stableBlocks []*Block) {
	minX := math.Inf(1)
	for _, b := range stableBlocks {
		if p.rt.positioned[b] && b.X < minX {
			minX = b.X
		}
	}
	if math.IsInf(minX, 1) {
		return
	}
	delta := p.cfg.InitialX - minX
	if math.Abs(delta) <= 1e-6 {
		return
	}
	for _, b := range stableBlocks {
		if p.rt.positioned[b] {
			b.X += delta
		}
	}
}

func distinctColumnIndices(columns map[*Block]int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, idx := range columns {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out
}

func singleBlock(set map[*Block]bool) *Block {
	for b := range set {
		return b
	}
	return nil
}
