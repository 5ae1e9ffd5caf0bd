package layout

import (
	"math"
)

// =============================================================================
// Coordinate Assigner - per-block column (X) and row (Y) assignment
// =============================================================================

// assignCoordinates converts the block's relative ordering into local
// coordinates: flow nodes on a shared baseline with chain-aware column
// spacing, data nodes stacked under their consumer columns.
func (bc *blockContext) assignCoordinates() {
	bc.computeFlowColumns()
	bc.computeDataColumns()
	bc.assignFlowCoordinates()
	bc.assignDataCoordinates()
}

// computeFlowColumns runs a weighted longest-path pass along the block's
// flow sequence. Adjacent nodes sit one slot apart; a flow pair with a data
// chain strung between them is pushed apart far enough for the chain's
// columns to fit.
func (bc *blockContext) computeFlowColumns() {
	seq := bc.block.FlowNodes
	index := make(map[string]int, len(seq))
	for i, id := range seq {
		index[id] = i
	}
	cols := make([]float64, len(seq))
	for i := range seq {
		if i > 0 {
			cols[i] = cols[i-1] + 1
		}
		for pair, gap := range bc.flowPairGap {
			if pair.dst != seq[i] {
				continue
			}
			srcIdx, ok := index[pair.src]
			if !ok || srcIdx >= i {
				continue
			}
			if c := cols[srcIdx] + float64(gap); c > cols[i] {
				cols[i] = c
			}
		}
	}
	for i, id := range seq {
		bc.nodeX[id] = cols[i]
	}
}

// computeDataColumns derives each placed data node's column from the chains
// it belongs to: the consumer's column minus one per hop back along the
// chain, keeping the rightmost (nearest-consumer) candidate across chains.
func (bc *blockContext) computeDataColumns() {
	for _, dataID := range bc.dataOrder {
		chainIDs := bc.chainIDsByNode[dataID]
		if len(chainIDs) == 0 {
			bc.nodeX[dataID] = bc.orphanColumn(dataID)
			continue
		}
		best := math.Inf(-1)
		for _, id := range chainIDs {
			c := bc.chains[id]
			consumerX, ok := bc.nodeX[c.ConsumerFlow]
			if !ok {
				continue
			}
			pos := bc.nodePosInChain[nodeChainKey{dataID, id}]
			if x := consumerX - float64(pos+1); x > best {
				best = x
			}
		}
		if math.IsInf(best, -1) {
			best = 0
		}
		bc.nodeX[dataID] = best
	}
}

// orphanColumn places a chainless sink one slot right of its rightmost
// in-block source.
func (bc *blockContext) orphanColumn(dataID string) float64 {
	best := math.Inf(-1)
	for _, e := range bc.ctx.DataIn(dataID) {
		if x, ok := bc.nodeX[e.From]; ok {
			if x+1 > best {
				best = x + 1
			}
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

// assignFlowCoordinates puts every flow node on the block baseline and
// records per-column flow bottoms so data stacking starts below them.
func (bc *blockContext) assignFlowCoordinates() {
	for _, flowID := range bc.block.FlowNodes {
		x := bc.nodeX[flowID]
		bc.localPos[flowID] = Pos{X: x * bc.slotWidth, Y: 0}
		slot := int(math.Round(x))
		bottom := bc.height(flowID)
		if bottom > bc.flowBottomBySlot[slot] {
			bc.flowBottomBySlot[slot] = bottom
		}
	}
}

func (bc *blockContext) assignDataCoordinates() {
	for _, plan := range bc.planDataCoordinates() {
		bc.localPos[plan.nodeID] = Pos{X: plan.x, Y: plan.y}
		snap := plan.debug
		snap.BlockID = bc.block.ID
		snap.BlockIndex = bc.block.OrderIndex
		snap.EventRootID = bc.block.EventRootID
		snap.EventTitle = bc.block.EventTitle
		snap.Chains = bc.debugChainsFor(plan.nodeID)
		bc.debugY[plan.nodeID] = snap
	}
}

func (bc *blockContext) debugChainsFor(dataID string) []DebugChain {
	ids := bc.chainIDsByNode[dataID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]DebugChain, 0, len(ids))
	for _, id := range ids {
		c := bc.chains[id]
		out = append(out, DebugChain{
			ChainID:      id,
			Position:     bc.nodePosInChain[nodeChainKey{dataID, id}],
			Length:       len(c.Nodes),
			TargetFlow:   c.ConsumerFlow,
			SourceFlow:   c.SourceFlow,
			FlowOrigin:   c.FlowOrigin,
			ConsumerPort: c.ConsumerPort,
		})
	}
	return out
}
