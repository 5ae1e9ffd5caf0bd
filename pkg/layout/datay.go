package layout

import (
	"math"
	"slices"
	"strings"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// =============================================================================
// Data-node Y planning
// =============================================================================

// dataPlan is the final local coordinate chosen for one data node plus the
// snapshot explaining the decision.
type dataPlan struct {
	nodeID string
	x, y   float64
	debug  *DebugY
}

// dataCandidate orders data nodes for column-wise placement: rightmost
// column first, then by chain priority, stacking hint, and claim order.
type dataCandidate struct {
	nodeID     string
	x          float64
	xKey       int
	minChainID int
	orderIndex int
	stackHint  int
}

func (bc *blockContext) buildDataCandidates() []dataCandidate {
	candidates := make([]dataCandidate, 0, len(bc.dataOrder))
	for i, nodeID := range bc.dataOrder {
		x := bc.nodeX[nodeID]
		minChain := orderMaxFallback
		for _, id := range bc.chainIDsByNode[nodeID] {
			if id < minChain {
				minChain = id
			}
		}
		hint, ok := bc.stackOrder[nodeID]
		if !ok {
			hint = i
		}
		candidates = append(candidates, dataCandidate{
			nodeID:     nodeID,
			x:          x,
			xKey:       int(math.Round(x)),
			minChainID: minChain,
			orderIndex: i,
			stackHint:  hint,
		})
	}
	slices.SortFunc(candidates, func(a, b dataCandidate) int {
		if a.xKey != b.xKey {
			return b.xKey - a.xKey
		}
		if a.minChainID != b.minChainID {
			return a.minChainID - b.minChainID
		}
		if a.stackHint != b.stackHint {
			return a.stackHint - b.stackHint
		}
		if a.orderIndex != b.orderIndex {
			return a.orderIndex - b.orderIndex
		}
		return strings.Compare(a.nodeID, b.nodeID)
	})
	return candidates
}

// planDataCoordinates walks the columns right to left, maintaining each
// column's running bottom so nodes in the same column never overlap.
func (bc *blockContext) planDataCoordinates() []dataPlan {
	columnBottom := make(map[int]float64)
	plans := make([]dataPlan, 0, len(bc.dataOrder))

	for _, cand := range bc.buildDataCandidates() {
		// Seed the column with the flow bottom so data stacks start
		// below any flow node sharing the slot.
		if fb := bc.flowBottomBySlot[cand.xKey]; fb > 0 {
			if seeded := fb + flowToDataGap; seeded > columnBottom[cand.xKey] {
				columnBottom[cand.xKey] = seeded
			}
		}

		finalY, snap := bc.decideDataY(cand.nodeID, cand.xKey, columnBottom)
		plans = append(plans, dataPlan{
			nodeID: cand.nodeID,
			x:      cand.x * bc.slotWidth,
			y:      finalY,
			debug:  snap,
		})
		columnBottom[cand.xKey] = finalY + snap.NodeHeight + dataStackGap
	}
	return plans
}

// decideDataY picks the node's vertical position from the competing
// candidates: column bottom (hard floor), chain consumer-port midpoint,
// single-target port-row alignment, or the multi-target midpoint which,
// when present, overrides the others before the floor clamp.
func (bc *blockContext) decideDataY(dataID string, xKey int, columnBottom map[int]float64) (float64, *DebugY) {
	fromAbove := columnBottom[xKey]
	fromChainPorts := bc.minChainPortY(dataID)
	rawPortY, portDebug := bc.chainPortInfo(dataID)
	outEdges := bc.ctx.DataOut(dataID)
	fromSingle := bc.singleTargetY(dataID, outEdges)
	fromMulti := bc.multiTargetsMidY(outEdges)

	forced := fromMulti != nil
	var baseY float64
	if forced {
		baseY = *fromMulti
	} else {
		if fromAbove > 0 {
			baseY = fromAbove
		}
		if fromChainPorts > 0 && fromChainPorts > baseY {
			baseY = fromChainPorts
		}
		if fromSingle != nil && *fromSingle > baseY {
			baseY = *fromSingle
		}
	}

	finalY := baseY
	strictBottom := columnBottom[xKey]
	if finalY < strictBottom {
		finalY = strictBottom
	}

	var chainRaw float64
	if len(rawPortY) > 1 {
		chainRaw = (slices.Min(rawPortY) + slices.Max(rawPortY)) / 2
	} else if len(rawPortY) == 1 {
		chainRaw = rawPortY[0]
	}

	snap := &DebugY{
		FinalY:               finalY,
		BaseY:                baseY,
		NodeHeight:           bc.height(dataID),
		StrictColumnBottom:   strictBottom,
		FromColumnBottom:     fromAbove,
		FromChainPorts:       fromChainPorts,
		FromSingleTarget:     fromSingle,
		FromMultiTargetsMid:  fromMulti,
		ForcedByMultiTargets: forced,
		ChainRawPortY:        chainRaw,
		ChainPorts:           portDebug,
	}
	return finalY, snap
}

// chainPortInfo resolves the actual input-port Y of every chain consumer
// the node feeds.
func (bc *blockContext) chainPortInfo(dataID string) ([]float64, []DebugChainPort) {
	var ys []float64
	var dbg []DebugChainPort
	for _, id := range bc.chainIDsByNode[dataID] {
		c := bc.chains[id]
		if !bc.flowSet[c.ConsumerFlow] {
			continue
		}
		pos, ok := bc.localPos[c.ConsumerFlow]
		if !ok {
			continue
		}
		portY := flowInputPortY(bc.ctx, bc.md, c.ConsumerFlow, c.ConsumerPort, pos.Y)
		if portY <= 0 {
			continue
		}
		ys = append(ys, portY)
		dbg = append(dbg, DebugChainPort{
			FlowID:    c.ConsumerFlow,
			PortIndex: c.ConsumerPortIndex,
			PortName:  c.ConsumerPort,
			PortY:     portY,
		})
	}
	return ys, dbg
}

// minChainPortY aggregates the node's chain consumer-port Y values into one
// candidate (midpoint of the extremes across chains), falling back to the
// column's flow bottom when the node sits on no resolvable chain.
func (bc *blockContext) minChainPortY(dataID string) float64 {
	fallback := func() float64 {
		xKey := int(math.Round(bc.nodeX[dataID]))
		return bc.flowBottomBySlot[xKey] + flowToDataGap
	}
	if len(bc.chainIDsByNode[dataID]) == 0 {
		return fallback()
	}
	ys, _ := bc.chainPortInfo(dataID)
	if len(ys) == 0 {
		return fallback()
	}
	var aggregated float64
	if len(ys) > 1 {
		aggregated = (slices.Min(ys) + slices.Max(ys)) / 2
	} else {
		aggregated = ys[0]
	}
	return aggregated + inputPortToDataGap
}

// singleTargetY aligns the node with its downstream pure-data target's
// connected port row when the target fans in from several sources. Targets
// with one input need no alignment; ports above the target's visual center
// contribute nothing.
func (bc *blockContext) singleTargetY(dataID string, outEdges []*graph.Edge) *float64 {
	var candidates []float64
	for _, e := range outEdges {
		targetID := e.To
		if !bc.ctx.IsPureData(targetID) {
			continue
		}
		targetPos, ok := bc.localPos[targetID]
		if !ok {
			continue
		}
		targetNode, ok := bc.ctx.Graph.Node(targetID)
		if !ok {
			continue
		}

		connected := make(map[string]bool)
		for _, in := range bc.ctx.DataIn(targetID) {
			if in.ToPort != "" {
				connected[in.ToPort] = true
			}
		}
		if len(connected) == 0 {
			continue
		}
		plan := buildPortPlan(bc.md, targetNode, connected)
		var ordered []string
		for _, name := range plan.renderInputs {
			if connected[name] {
				ordered = append(ordered, name)
			}
		}
		total := len(ordered)
		if total <= 1 {
			continue
		}
		idx := slices.Index(ordered, e.ToPort)
		if idx < 0 {
			continue
		}
		position := float64(idx + 1)
		var center float64
		if total%2 == 1 {
			center = float64(total+1) / 2
		} else {
			center = float64(total)/2 + 0.5
		}
		switch {
		case position < center:
			continue
		case position == center:
			candidates = append(candidates, targetPos.Y)
		default:
			steps := math.Ceil(position - center)
			candidates = append(candidates, targetPos.Y+steps*bc.height(dataID))
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	y := slices.Max(candidates)
	return &y
}

// multiTargetsMidY returns the midpoint of the node's placed pure-data
// targets when it fans out to two or more of them.
func (bc *blockContext) multiTargetsMidY(outEdges []*graph.Edge) *float64 {
	var ys []float64
	for _, e := range outEdges {
		if !bc.ctx.IsPureData(e.To) {
			continue
		}
		pos, ok := bc.localPos[e.To]
		if !ok {
			continue
		}
		ys = append(ys, pos.Y)
	}
	if len(ys) < 2 {
		return nil
	}
	mid := (slices.Min(ys) + slices.Max(ys)) / 2
	return &mid
}
