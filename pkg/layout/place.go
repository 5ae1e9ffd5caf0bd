package layout

import (
	"slices"
)

// =============================================================================
// Data-node placement - pulling owned data nodes into a block
// =============================================================================

// ownsDataNode decides whether the block should claim the data node.
// Rules, in priority order: boundary nodes claimed by an earlier block are
// never taken; only pure data nodes qualify; a node with outgoing data edges
// belongs here when any consumer is a block flow node or an already-placed
// block data node; a node with no outgoing edges belongs here when any of
// its input sources is in the block.
func (bc *blockContext) ownsDataNode(dataID string) bool {
	if bc.skip[dataID] {
		return false
	}
	if !bc.ctx.IsPureData(dataID) {
		return false
	}
	out := bc.ctx.DataOut(dataID)
	if len(out) > 0 {
		for _, e := range out {
			if bc.flowSet[e.To] || bc.placed[e.To] {
				return true
			}
		}
		return false
	}
	in := bc.ctx.DataIn(dataID)
	for _, e := range in {
		if bc.flowSet[e.From] || bc.placed[e.From] {
			return true
		}
	}
	return false
}

// placeDataNodes claims data nodes for the block by walking the chain
// placement instructions in enumeration order, then sweeps up orphan
// producers that feed the block but sit on no chain.
func (bc *blockContext) placeDataNodes() {
	for _, inst := range bc.instructions {
		for _, nodeID := range inst.nodes {
			bc.claim(nodeID)
		}
	}

	// Orphans: pure data nodes fed by block members but consumed by
	// nothing, so no chain ever reaches them.
	var orphans []string
	for _, nodeID := range bc.ctx.Graph.NodeIDs() {
		if bc.placed[nodeID] || bc.skip[nodeID] {
			continue
		}
		if !bc.ctx.IsPureData(nodeID) {
			continue
		}
		if len(bc.ctx.DataOut(nodeID)) > 0 {
			continue
		}
		if bc.ownsDataNode(nodeID) {
			orphans = append(orphans, nodeID)
		}
	}
	slices.Sort(orphans)
	for _, nodeID := range orphans {
		bc.claim(nodeID)
	}

	bc.applyChainStackOrder()
	bc.block.DataNodes = append([]string(nil), bc.dataOrder...)
}

func (bc *blockContext) claim(dataID string) {
	if bc.placed[dataID] {
		return
	}
	if !bc.ownsDataNode(dataID) {
		return
	}
	bc.placed[dataID] = true
	bc.dataOrder = append(bc.dataOrder, dataID)
}

// applyChainStackOrder assigns each placed data node a stable stacking hint:
// chains in ID order, nodes in chain order, first mention wins. Nodes on no
// chain keep their placement order after every chained node.
func (bc *blockContext) applyChainStackOrder() {
	counter := 0
	chainIDs := make([]int, 0, len(bc.chains))
	for id := range bc.chains {
		chainIDs = append(chainIDs, id)
	}
	slices.Sort(chainIDs)
	for _, id := range chainIDs {
		for _, nodeID := range bc.chains[id].Nodes {
			if !bc.placed[nodeID] {
				continue
			}
			if _, ok := bc.stackOrder[nodeID]; ok {
				continue
			}
			bc.stackOrder[nodeID] = counter
			counter++
		}
	}
	for _, nodeID := range bc.dataOrder {
		if _, ok := bc.stackOrder[nodeID]; ok {
			continue
		}
		bc.stackOrder[nodeID] = counter
		counter++
	}
}
