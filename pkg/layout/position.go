package layout

// =============================================================================
// Block Positioning Engine - per-event-group orchestration
// =============================================================================

// Orphan columns wrap once their stacked height passes this, keeping
// disconnected blocks in a readable grid instead of one endless strip.
const orphanColumnMaxHeight = 1200.0

// positioner carries the shared state of one positioning run. The runtime
// set persists across event groups: earlier groups must stay visible to
// overlap queries and to the final orphan sweep.
type positioner struct {
	ctx *Context
	cfg PositionConfig
	rel *Relations
	rt  *positionRuntime

	blocks []*Block
}

// PositionBlocks assigns every block its absolute top-left corner. Groups
// are processed per event root in root order: column leveling, column X
// offsets, in-column stacking. Blocks reachable from no root are stacked in
// fresh columns to the right afterwards.
func PositionBlocks(ctx *Context, blocks []*Block, rel *Relations, roots []string, cfg PositionConfig) {
	cfg = cfg.normalized()
	p := &positioner{
		ctx:    ctx,
		cfg:    cfg,
		rel:    rel,
		rt:     newPositionRuntime(cfg),
		blocks: blocks,
	}

	groupTop := cfg.InitialY
	for _, rootID := range roots {
		start := p.findStartBlock(rootID)
		if start == nil || p.rt.positioned[start] {
			continue
		}
		group := p.collectGroupBlocks(start)
		parentSets := p.groupParentSets(group)
		columns := solveColumnIndices(group, parentSets)
		columnLeft := solveColumnX(cfg, columns)
		bottom := p.stackColumns(stackInput{
			columns:    columns,
			columnLeft: columnLeft,
			groupTopY:  groupTop,
			group:      group,
			children:   p.rel.Children,
			parentSets: parentSets,
		})
		groupTop = bottom + cfg.EventYSpacing
	}

	p.placeOrphans()
}

// findStartBlock resolves the block anchoring an event root: the block that
// contains the root flow node, else the earliest block recorded against the
// root.
func (p *positioner) findStartBlock(rootID string) *Block {
	if b := p.rel.BlockByFlowNode[rootID]; b != nil {
		return b
	}
	var best *Block
	for _, b := range p.blocks {
		if b.EventRootID != rootID {
			continue
		}
		if best == nil || b.OrderIndex < best.OrderIndex {
			best = b
		}
	}
	return best
}

// collectGroupBlocks walks the child relation from the start block and
// returns every reachable block.
func (p *positioner) collectGroupBlocks(start *Block) map[*Block]bool {
	visited := make(map[*Block]bool)
	stack := []*Block{start}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[b] {
			continue
		}
		visited[b] = true
		for _, child := range p.rel.Children[b] {
			if !visited[child] {
				stack = append(stack, child)
			}
		}
	}
	return visited
}

// groupParentSets restricts the global parent relation to the group.
func (p *positioner) groupParentSets(group map[*Block]bool) map[*Block]map[*Block]bool {
	out := make(map[*Block]map[*Block]bool)
	for _, b := range sortedBlockSet(group) {
		parents := p.rel.Parents[b]
		if len(parents) == 0 {
			continue
		}
		filtered := make(map[*Block]bool)
		for parent := range parents {
			if group[parent] {
				filtered[parent] = true
			}
		}
		if len(filtered) > 0 {
			out[b] = filtered
		}
	}
	return out
}

// placeOrphans stacks every still-unpositioned block into columns right of
// everything placed so far, widening each column to its own widest block.
func (p *positioner) placeOrphans() {
	var orphans []*Block
	for _, b := range p.blocks {
		if !p.rt.positioned[b] {
			orphans = append(orphans, b)
		}
	}
	if len(orphans) == 0 {
		return
	}

	x := p.cfg.InitialX
	for b := range p.rt.positioned {
		if right := b.X + b.Width + p.cfg.BlockXSpacing; right > x {
			x = right
		}
	}

	y := p.cfg.InitialY
	columnWidth := 0.0
	for _, b := range orphans {
		if y > p.cfg.InitialY && y+b.Height > p.cfg.InitialY+orphanColumnMaxHeight {
			x += columnWidth + p.cfg.BlockXSpacing
			y = p.cfg.InitialY
			columnWidth = 0
		}
		b.X = x
		b.Y = y
		p.rt.positioned[b] = true
		p.rt.register(b)
		y += b.Height + p.cfg.BlockYSpacing
		if b.Width > columnWidth {
			columnWidth = b.Width
		}
	}
}
