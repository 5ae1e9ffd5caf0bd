package layout

import (
	"maps"
	"math"
	"slices"
	"strings"
)

// =============================================================================
// Y-Relaxation Engine - in-block vertical centering of data nodes
// =============================================================================

// RelaxConfig tunes the in-block vertical relaxation of data nodes.
type RelaxConfig struct {
	MaxRounds int
	Epsilon   float64
	Damping   float64
	// ConflictThreshold picks one side when fan-out compaction and
	// neighbor alignment disagree by more than this many pixels.
	ConflictThreshold float64
	CompactPull       float64
	CompactSlack      float64
}

// DefaultRelaxConfig returns the tuned relaxation parameters.
func DefaultRelaxConfig() RelaxConfig {
	return RelaxConfig{
		MaxRounds:         8,
		Epsilon:           0.5,
		Damping:           0.6,
		ConflictThreshold: 500,
		CompactPull:       0.6,
		CompactSlack:      200,
	}
}

func (c RelaxConfig) normalized() RelaxConfig {
	d := DefaultRelaxConfig()
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	if c.Damping <= 0 || c.Damping > 1 {
		c.Damping = d.Damping
	}
	if c.ConflictThreshold <= 0 {
		c.ConflictThreshold = d.ConflictThreshold
	}
	if c.CompactPull < 0 || c.CompactPull > 1 {
		c.CompactPull = d.CompactPull
	}
	if c.CompactSlack < 0 {
		c.CompactSlack = d.CompactSlack
	}
	return c
}

type topBounds struct {
	min, max float64
}

// relaxDataY iteratively nudges data nodes with multiple data parents or
// children toward the vertical center of their neighbors, then projects
// every column back onto a non-overlapping, floor-respecting stack. Flow
// nodes never move. Reports whether any position changed.
func (bc *blockContext) relaxDataY(cfg RelaxConfig) bool {
	cfg = cfg.normalized()

	nodes := bc.relaxScope()
	if len(nodes) < 2 {
		return false
	}
	inScope := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		inScope[id] = true
	}

	children, parents := bc.pureDataAdjacency(nodes, inScope)
	xKey := make(map[string]int, len(nodes))
	for _, id := range nodes {
		xKey[id] = int(math.Round(bc.nodeX[id]))
	}
	if !bc.shouldRelax(nodes, children, parents, xKey) {
		return false
	}

	height := make(map[string]float64, len(nodes))
	lower := make(map[string]float64, len(nodes))
	current := make(map[string]float64, len(nodes))
	for _, id := range nodes {
		height[id] = bc.height(id)
		flowBottom := bc.flowBottomBySlot[xKey[id]]
		columnMin := flowBottom + flowToDataGap
		lower[id] = math.Max(0, math.Max(columnMin, bc.minChainPortY(id)))
		current[id] = bc.localPos[id].Y
	}

	centerOf := func(id string) float64 { return current[id] + height[id]/2 }

	changed := false
	for round := 0; round < cfg.MaxRounds; round++ {
		desired := make(map[string]float64)
		multiParentBounds := make(map[string]topBounds)

		// Fan-out groups: spread a parent's children around its center
		// in port order.
		splitTarget := make(map[string]float64)
		for _, parentID := range nodes {
			kids := children[parentID]
			if len(kids) < 2 {
				continue
			}
			total := -dataStackGap
			for _, kid := range kids {
				total += height[kid] + dataStackGap
			}
			top := centerOf(parentID) - total/2
			for _, kid := range kids {
				splitTarget[kid] = top
				top += height[kid] + dataStackGap
			}
		}

		for _, id := range nodes {
			parentSet := parents[id]
			kids := children[id]
			strongPair := isStrongPair(id, parents, children, xKey)

			var neighborCenters []float64
			for _, pid := range slices.Sorted(maps.Keys(parentSet)) {
				neighborCenters = append(neighborCenters, centerOf(pid))
			}
			for _, kid := range kids {
				neighborCenters = append(neighborCenters, centerOf(kid))
			}

			switch {
			case len(parentSet) >= 2:
				var centers []float64
				for _, pid := range slices.Sorted(maps.Keys(parentSet)) {
					centers = append(centers, centerOf(pid))
				}
				avg := mean(centers)
				desired[id] = avg - height[id]/2
				half := height[id] / 2
				minTop := slices.Min(centers) - half
				maxTop := slices.Max(centers) - half
				if minTop > maxTop {
					minTop, maxTop = maxTop, minTop
				}
				multiParentBounds[id] = topBounds{minTop, maxTop}
				bc.recordMultiParent(id, minTop, maxTop, slices.Sorted(maps.Keys(parentSet)))
			case len(kids) >= 2:
				var centers []float64
				for _, kid := range kids {
					centers = append(centers, centerOf(kid))
				}
				desired[id] = mean(centers) - height[id]/2
			default:
				// One-to-one pairs crossing columns get aligned so the
				// edge runs straight; everything else stays put.
				if strongPair && len(neighborCenters) > 0 {
					desired[id] = mean(neighborCenters) - height[id]/2
				}
			}

			split, ok := splitTarget[id]
			if !ok {
				continue
			}
			existing, has := desired[id]
			switch {
			case !has:
				desired[id] = split
			case strongPair:
				desired[id] = 0.75*existing + 0.25*split
			case math.Abs(existing-split) >= cfg.ConflictThreshold:
				desired[id] = split
			default:
				desired[id] = 0.5*existing + 0.5*split
			}
		}

		// Damped update plus a compaction pull toward the hard lower
		// bound when a node floats far above it.
		preferred := make(map[string]float64, len(nodes))
		for _, id := range nodes {
			p := current[id]
			if target, ok := desired[id]; ok {
				p = current[id] + cfg.Damping*(target-current[id])
			}
			if slack := p - lower[id]; slack > cfg.CompactSlack {
				p = lower[id] + slack*cfg.CompactPull
			}
			preferred[id] = p
		}

		projected := bc.projectColumns(nodes, xKey, preferred, lower, height, multiParentBounds)
		maxDelta := 0.0
		for id, top := range projected {
			if d := math.Abs(top - current[id]); d > maxDelta {
				maxDelta = d
			}
			current[id] = top
		}
		if maxDelta > 0 {
			changed = true
		}
		if maxDelta < cfg.Epsilon {
			break
		}
	}

	// Constraint finishing: column projection can push a parent past a
	// multi-parent node's feasible interval, so clamp and re-project a few
	// more times.
	const maxConstraintRounds = 4
	for round := 0; round < maxConstraintRounds; round++ {
		bounds := make(map[string]topBounds)
		for _, id := range nodes {
			var parentTops []float64
			var parentIDs []string
			for _, e := range bc.ctx.DataIn(id) {
				pid := e.From
				if !inScope[pid] || !bc.ctx.IsPureData(pid) {
					continue
				}
				if slices.Contains(parentIDs, pid) {
					continue
				}
				parentIDs = append(parentIDs, pid)
			}
			if len(parentIDs) < 2 {
				continue
			}
			slices.Sort(parentIDs)
			for _, pid := range parentIDs {
				parentTops = append(parentTops, current[pid])
			}
			minTop, maxTop := slices.Min(parentTops), slices.Max(parentTops)
			bounds[id] = topBounds{minTop, maxTop}
			bc.recordMultiParent(id, minTop, maxTop, parentIDs)
		}
		if len(bounds) == 0 {
			break
		}

		violated := false
		for _, id := range slices.Sorted(maps.Keys(bounds)) {
			b := bounds[id]
			clamped := math.Min(math.Max(current[id], b.min), b.max)
			if math.Abs(clamped-current[id]) > 1e-9 {
				violated = true
				current[id] = clamped
			}
		}

		projected := bc.projectColumns(nodes, xKey, current, lower, height, bounds)
		maxDelta := 0.0
		for id, top := range projected {
			if d := math.Abs(top - current[id]); d > maxDelta {
				maxDelta = d
			}
			current[id] = top
		}
		if violated || maxDelta > 1e-9 {
			changed = true
		}
		if !violated && maxDelta <= cfg.Epsilon {
			break
		}
	}

	if !changed {
		return false
	}
	for _, id := range nodes {
		pos := bc.localPos[id]
		pos.Y = current[id]
		bc.localPos[id] = pos
		if info := bc.debugY[id]; info != nil {
			info.FinalY = current[id]
		}
	}
	return true
}

func (bc *blockContext) recordMultiParent(id string, minTop, maxTop float64, parentIDs []string) {
	info := bc.debugY[id]
	if info == nil {
		return
	}
	lo, hi := minTop, maxTop
	info.MultiParentMinTop = &lo
	info.MultiParentMaxTop = &hi
	info.MultiParentIDs = parentIDs
}

// relaxScope returns the block's placed pure data nodes in claim order.
func (bc *blockContext) relaxScope() []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range bc.dataOrder {
		if id == "" || seen[id] {
			continue
		}
		if _, ok := bc.localPos[id]; !ok {
			continue
		}
		if !bc.ctx.IsPureData(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// pureDataAdjacency builds the parent/child maps over the block's placed
// data nodes. Multiple edges between the same pair collapse to one child
// entry keyed by the topmost source port, so multi-port connections are not
// mistaken for fan-out.
func (bc *blockContext) pureDataAdjacency(nodes []string, inScope map[string]bool) (map[string][]string, map[string]map[string]bool) {
	children := make(map[string][]string, len(nodes))
	parents := make(map[string]map[string]bool, len(nodes))
	for _, id := range nodes {
		parents[id] = make(map[string]bool)
	}

	for _, srcID := range nodes {
		bestPort := make(map[string]int)
		for _, e := range bc.ctx.DataOut(srcID) {
			dstID := e.To
			if dstID == "" || !inScope[dstID] || !bc.ctx.IsPureData(dstID) {
				continue
			}
			idx := bc.ctx.OutputPortIndex(srcID, e.FromPort)
			if cur, ok := bestPort[dstID]; !ok || idx < cur {
				bestPort[dstID] = idx
			}
			if parents[dstID] == nil {
				parents[dstID] = make(map[string]bool)
			}
			parents[dstID][srcID] = true
		}
		if len(bestPort) == 0 {
			continue
		}
		kids := make([]string, 0, len(bestPort))
		for id := range bestPort {
			kids = append(kids, id)
		}
		slices.SortFunc(kids, func(a, b string) int {
			if bestPort[a] != bestPort[b] {
				return bestPort[a] - bestPort[b]
			}
			return strings.Compare(a, b)
		})
		children[srcID] = kids
	}
	return children, parents
}

func (bc *blockContext) shouldRelax(nodes []string, children map[string][]string, parents map[string]map[string]bool, xKey map[string]int) bool {
	for _, id := range nodes {
		if len(parents[id]) >= 2 || len(children[id]) >= 2 {
			return true
		}
		if len(parents[id]) == 1 {
			for pid := range parents[id] {
				if len(children[pid]) >= 2 {
					return true
				}
			}
		}
		if isStrongPair(id, parents, children, xKey) {
			return true
		}
	}
	return false
}

// isStrongPair reports a one-to-one data edge crossing columns: the node
// has exactly one pure-data child whose only pure-data parent is this node.
func isStrongPair(id string, parents map[string]map[string]bool, children map[string][]string, xKey map[string]int) bool {
	kids := children[id]
	if len(kids) != 1 {
		return false
	}
	child := kids[0]
	if len(parents[child]) != 1 {
		return false
	}
	return xKey[id] != xKey[child]
}

// projectColumns projects preferred positions onto each column's feasible
// region: lower bounds, pairwise non-overlap, and optional hard top
// intervals. Pure function of its inputs apart from the stable in-column
// ordering taken from chain priorities.
func (bc *blockContext) projectColumns(nodes []string, xKey map[string]int, preferred, lower, height map[string]float64, hardBounds map[string]topBounds) map[string]float64 {
	byColumn := make(map[int][]string)
	for _, id := range nodes {
		byColumn[xKey[id]] = append(byColumn[xKey[id]], id)
	}
	out := make(map[string]float64, len(nodes))
	cols := make([]int, 0, len(byColumn))
	for col := range byColumn {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		bc.projectSingleColumn(byColumn[col], preferred, lower, height, hardBounds, out)
	}
	return out
}

// projectSingleColumn keeps the column's established chain order: chained
// nodes first by smallest chain ID, then stacking hint, then the preferred
// position as a tiebreak. Reordering by preferred Y alone would let relaxed
// nodes swap places within a column.
func (bc *blockContext) projectSingleColumn(ids []string, preferred, lower, height map[string]float64, hardBounds map[string]topBounds, out map[string]float64) {
	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b string) int {
		ab, ak := chainSortKey(bc, a)
		bb, bk := chainSortKey(bc, b)
		if ab != bb {
			return ab - bb
		}
		if ak != bk {
			return ak - bk
		}
		ah, bh := bc.stackOrder[a], bc.stackOrder[b]
		if ah != bh {
			return ah - bh
		}
		if pa, pb := preferred[a], preferred[b]; pa != pb {
			if pa < pb {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})

	clampBounds := func(id string, lb float64) (float64, float64) {
		maxTop := math.Inf(1)
		if b, ok := hardBounds[id]; ok {
			lo, hi := b.min, b.max
			if lo > hi {
				lo, hi = hi, lo
			}
			lb = math.Max(lb, lo)
			maxTop = hi
		}
		return lb, maxTop
	}

	// Forward pass: respect lower bounds and stack without overlap.
	forward := make([]float64, len(ordered))
	for i, id := range ordered {
		lb, _ := clampBounds(id, lower[id])
		y := math.Max(lb, preferred[id])
		if i > 0 {
			prev := ordered[i-1]
			y = math.Max(y, forward[i-1]+height[prev]+dataStackGap)
		}
		forward[i] = y
	}

	// Backward pass: pull nodes up toward their bounds so the column does
	// not only ever grow downward.
	backward := slices.Clone(forward)
	for i := len(ordered) - 2; i >= 0; i-- {
		id := ordered[i]
		maxAllowed := backward[i+1] - height[id] - dataStackGap
		lb, hardMax := clampBounds(id, lower[id])
		maxAllowed = math.Min(maxAllowed, hardMax)
		backward[i] = math.Max(lb, math.Min(backward[i], maxAllowed))
	}

	for i, id := range ordered {
		out[id] = backward[i]
	}
}

func chainSortKey(bc *blockContext, id string) (bucket, key int) {
	chainIDs := bc.chainIDsByNode[id]
	if len(chainIDs) == 0 {
		return 1, orderMaxFallback
	}
	return 0, slices.Min(chainIDs)
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
