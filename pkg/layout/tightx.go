package layout

// =============================================================================
// Block Positioning Engine - tight horizontal spacing
// =============================================================================

// finalBlockLeftX resolves a block's left edge once its top Y is fixed.
// Port-gap and rectangle-overlap constraints each yield a minimum left
// bound; the block is placed at the largest of them, pulled left toward it
// when the column base sits further right, but never left of the layout
// anchor.
func (p *positioner) finalBlockLeftX(b *Block, baseLeft, topY float64) float64 {
	var bounds []float64
	if portLeft, ok := p.minLeftFromPortGap(b); ok {
		bounds = append(bounds, portLeft)
	}
	if overlapLeft, ok := p.minLeftFromOverlap(b, topY); ok {
		bounds = append(bounds, overlapLeft)
	}
	if len(bounds) == 0 {
		return baseLeft
	}

	target := bounds[0]
	for _, v := range bounds[1:] {
		if v > target {
			target = v
		}
	}
	if target < p.cfg.InitialX {
		return p.cfg.InitialX
	}
	return target
}

// minLeftFromPortGap computes the left bound imposed by "a flow entrance
// must sit at least one spacing right of the rightmost placed predecessor's
// exit". The exit X is approximated as the source block's left plus the
// source node's local X plus the node width; the entrance as this block's
// left plus the destination node's local X.
func (p *positioner) minLeftFromPortGap(b *Block) (float64, bool) {
	var havePair bool
	var maxExitX, minEntranceX float64

	for _, dstID := range b.FlowNodes {
		for _, e := range p.ctx.FlowIn(dstID) {
			srcBlock := p.rel.BlockByFlowNode[e.From]
			if srcBlock == nil || srcBlock == b || !p.rt.positioned[srcBlock] {
				continue
			}
			srcLocal, ok := srcBlock.LocalPos[e.From]
			if !ok {
				continue
			}
			dstLocal, ok := b.LocalPos[dstID]
			if !ok {
				continue
			}
			nodeWidth := srcBlock.NodeWidth
			if nodeWidth <= 0 {
				nodeWidth = DefaultNodeWidth
			}
			exitX := srcBlock.X + srcLocal.X + nodeWidth

			if !havePair {
				havePair = true
				maxExitX = exitX
				minEntranceX = dstLocal.X
				continue
			}
			if exitX > maxExitX {
				maxExitX = exitX
			}
			if dstLocal.X < minEntranceX {
				minEntranceX = dstLocal.X
			}
		}
	}
	if !havePair {
		return 0, false
	}
	return maxExitX + p.cfg.BlockXSpacing - minEntranceX, true
}

// minLeftFromOverlap keeps the block clear of every placed block whose
// vertical span intersects [topY, topY+height), requiring one spacing of
// horizontal clearance past the widest such block.
func (p *positioner) minLeftFromOverlap(b *Block, topY float64) (float64, bool) {
	top := topY
	bottom := topY + b.Height

	var maxRight float64
	found := false
	for _, placed := range p.rt.overlapCandidates(top, bottom) {
		if placed == b {
			continue
		}
		if placed.Y+placed.Height <= top || placed.Y >= bottom {
			continue
		}
		right := placed.X + placed.Width
		if !found || right > maxRight {
			found = true
			maxRight = right
		}
	}
	if !found {
		return 0, false
	}
	return maxRight + p.cfg.BlockXSpacing, true
}
