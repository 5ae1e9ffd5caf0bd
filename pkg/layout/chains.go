package layout

import (
	"strconv"
	"strings"
)

// =============================================================================
// Data-Chain Enumerator
// =============================================================================

// Budget bounds data-chain enumeration on degenerate fan-in graphs. Hitting
// any limit truncates enumeration and flags the block as exhausted; it never
// fails the run.
type Budget struct {
	MaxPerNode  int
	MaxPerStart int
	MaxPerBlock int
}

// DefaultBudget returns the tuned enumeration limits.
func DefaultBudget() Budget {
	return Budget{
		MaxPerNode:  DefaultMaxChainsPerNode,
		MaxPerStart: DefaultMaxChainsPerStart,
		MaxPerBlock: DefaultMaxChainsPerBlock,
	}
}

func (b Budget) normalized() Budget {
	d := DefaultBudget()
	if b.MaxPerNode <= 0 {
		b.MaxPerNode = d.MaxPerNode
	}
	if b.MaxPerStart <= 0 {
		b.MaxPerStart = d.MaxPerStart
	}
	if b.MaxPerBlock <= 0 {
		b.MaxPerBlock = d.MaxPerBlock
	}
	return b
}

// Chain is one enumerated consumer→upstream path of pure-data nodes feeding
// a single flow-node input. Nodes run from the consumer side backward.
type Chain struct {
	ID                int
	Nodes             []string
	FlowOrigin        bool
	SourceFlow        string
	ConsumerFlow      string
	ConsumerPort      string
	ConsumerPortIndex int
}

type nodeChainKey struct {
	nodeID  string
	chainID int
}

type flowPairKey struct {
	src, dst string
}

// chainPath is one raw enumeration result before it is assigned a chain ID.
type chainPath struct {
	nodes      []string
	srcFlow    string
	flowOrigin bool
}

// placement is one structured instruction emitted per surviving chain, in
// consumer order, consumed later when data nodes are pulled into the block.
type placement struct {
	chainID  int
	startID  string
	consumer string
	nodes    []string
}

// blockContext carries the mutable per-block layout state threaded through
// chain enumeration, data placement, coordinate assignment, and bounds.
type blockContext struct {
	ctx   *Context
	block *Block
	md    Metadata

	flowSet map[string]bool
	// skip holds data nodes already claimed by earlier blocks; chains end
	// at them and placement never claims them.
	skip map[string]bool

	budget      Budget
	remaining   int
	exhausted   bool
	seenSigs    map[string]bool
	sharedPaths map[string][]chainPath

	nextChainID    int
	chains         map[int]*Chain
	chainIDsByNode map[string][]int
	nodePosInChain map[nodeChainKey]int
	flowPairGap    map[flowPairKey]int
	instructions   []placement

	dataOrder  []string
	placed     map[string]bool
	stackOrder map[string]int

	nodeX            map[string]float64
	localPos         map[string]Pos
	flowBottomBySlot map[int]float64
	heights          map[string]float64
	debugY           map[string]*DebugY

	nodeWidth  float64
	nodeHeight float64
	slotWidth  float64
}

func newBlockContext(ctx *Context, b *Block, md Metadata, budget Budget, globalPlaced map[string]bool) *blockContext {
	bc := &blockContext{
		ctx:              ctx,
		block:            b,
		md:               md,
		flowSet:          make(map[string]bool, len(b.FlowNodes)),
		skip:             globalPlaced,
		budget:           budget.normalized(),
		seenSigs:         make(map[string]bool),
		sharedPaths:      make(map[string][]chainPath),
		nextChainID:      1,
		chains:           make(map[int]*Chain),
		chainIDsByNode:   make(map[string][]int),
		nodePosInChain:   make(map[nodeChainKey]int),
		flowPairGap:      make(map[flowPairKey]int),
		placed:           make(map[string]bool),
		stackOrder:       make(map[string]int),
		nodeX:            make(map[string]float64),
		localPos:         make(map[string]Pos),
		flowBottomBySlot: make(map[int]float64),
		heights:          make(map[string]float64),
		debugY:           make(map[string]*DebugY),
		nodeWidth:        b.NodeWidth,
		nodeHeight:       DefaultNodeHeight,
	}
	if bc.nodeWidth <= 0 {
		bc.nodeWidth = DefaultNodeWidth
	}
	bc.slotWidth = bc.nodeWidth * slotWidthMultiplier
	bc.remaining = bc.budget.MaxPerBlock
	for _, id := range b.FlowNodes {
		bc.flowSet[id] = true
	}
	if bc.skip == nil {
		bc.skip = make(map[string]bool)
	}
	return bc
}

func (bc *blockContext) height(nodeID string) float64 {
	if h, ok := bc.heights[nodeID]; ok {
		return h
	}
	h := estimateNodeHeight(bc.ctx, bc.md, nodeID)
	bc.heights[nodeID] = h
	return h
}

// enumerateChains numbers every consumer→upstream data chain in the block.
// Consumers are visited left to right along the flow sequence, ports top to
// bottom, so earlier chains get smaller IDs.
func (bc *blockContext) enumerateChains() {
	for _, consumerID := range bc.block.FlowNodes {
		if _, ok := bc.ctx.Graph.Node(consumerID); !ok {
			continue
		}
		for _, e := range bc.ctx.orderedDataIn(consumerID) {
			if bc.exhausted {
				return
			}
			if !bc.ctx.IsPureData(e.From) {
				continue
			}
			bc.enumerateFromStart(e.From, consumerID, e.ToPort)
		}
	}
}

func (bc *blockContext) enumerateFromStart(startID, consumerID, consumerPort string) {
	paths, pathsExhausted := collectChainPaths(bc.ctx, startID, bc.flowSet, bc.skip, bc.sharedPaths, bc.budget)
	portIndex := bc.ctx.InputPortIndex(consumerID, consumerPort)

	for _, p := range paths {
		if len(p.nodes) == 0 {
			continue
		}
		if bc.exhausted {
			break
		}
		sig := chainSignature(p, consumerID, consumerPort, portIndex)
		if bc.seenSigs[sig] {
			continue
		}
		bc.seenSigs[sig] = true

		id := bc.nextChainID
		bc.nextChainID++
		c := &Chain{
			ID:                id,
			Nodes:             append([]string(nil), p.nodes...),
			FlowOrigin:        p.flowOrigin,
			ConsumerFlow:      consumerID,
			ConsumerPort:      consumerPort,
			ConsumerPortIndex: portIndex,
		}
		if p.flowOrigin {
			c.SourceFlow = p.srcFlow
		}
		bc.chains[id] = c
		for pos, nodeID := range c.Nodes {
			bc.chainIDsByNode[nodeID] = append(bc.chainIDsByNode[nodeID], id)
			bc.nodePosInChain[nodeChainKey{nodeID, id}] = pos
		}

		if c.FlowOrigin && bc.flowSet[c.SourceFlow] && bc.flowSet[consumerID] {
			// The chain must fit horizontally between the two flow nodes.
			// Only the stretch from the consumer to the first node fed by
			// the source flow counts; shared upstream tails do not widen
			// the pair.
			gap := 1 + bc.effectiveChainLength(c.Nodes, c.SourceFlow)
			key := flowPairKey{c.SourceFlow, consumerID}
			if gap > bc.flowPairGap[key] {
				bc.flowPairGap[key] = gap
			}
		}

		bc.instructions = append(bc.instructions, placement{
			chainID:  id,
			startID:  startID,
			consumer: consumerID,
			nodes:    c.Nodes,
		})
		if bc.remaining > 0 {
			bc.remaining--
			if bc.remaining <= 0 {
				bc.exhausted = true
				break
			}
		}
	}

	if pathsExhausted {
		bc.exhausted = true
	}
}

// effectiveChainLength counts chain nodes from the consumer side up to and
// including the first node driven directly by srcFlow, falling back to the
// whole chain when no such entry exists.
func (bc *blockContext) effectiveChainLength(nodes []string, srcFlow string) int {
	for i, dataID := range nodes {
		for _, e := range bc.ctx.DataIn(dataID) {
			if e.From == srcFlow {
				return i + 1
			}
		}
	}
	return len(nodes)
}

func chainSignature(p chainPath, consumerID, consumerPort string, portIndex int) string {
	var sb strings.Builder
	for _, n := range p.nodes {
		sb.WriteString(n)
		sb.WriteByte(0x1f)
	}
	if p.flowOrigin {
		sb.WriteString(p.srcFlow)
	}
	sb.WriteByte(0x1e)
	sb.WriteString(strconv.FormatBool(p.flowOrigin))
	sb.WriteByte(0x1e)
	sb.WriteString(consumerID)
	sb.WriteByte(0x1e)
	sb.WriteString(consumerPort)
	sb.WriteByte(0x1e)
	sb.WriteString(strconv.Itoa(portIndex))
	return sb.String()
}

func pathSignature(p chainPath) string {
	var sb strings.Builder
	for _, n := range p.nodes {
		sb.WriteString(n)
		sb.WriteByte(0x1f)
	}
	if p.flowOrigin {
		sb.WriteString(p.srcFlow)
	}
	sb.WriteByte(0x1e)
	sb.WriteString(strconv.FormatBool(p.flowOrigin))
	return sb.String()
}

func dedupePaths(paths []chainPath) []chainPath {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		sig := pathSignature(p)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, p)
	}
	return out
}

// collectChainPaths enumerates every upstream pure-data path from startID,
// consumer side first. Results are memoized per node in sharedPaths so
// overlapping fan-ins across consumers reuse the same sub-problems. The
// second result reports budget truncation.
func collectChainPaths(ctx *Context, startID string, flowSet, skip map[string]bool, sharedPaths map[string][]chainPath, budget Budget) ([]chainPath, bool) {
	w := &chainWalker{
		ctx:     ctx,
		flowSet: flowSet,
		skip:    skip,
		memo:    sharedPaths,
		budget:  budget.normalized(),
	}
	result := w.collect(startID, make(map[string]bool))
	exhausted := w.exhausted
	if limit := w.budget.MaxPerStart; limit > 0 && len(result) > limit {
		exhausted = true
		result = result[:limit]
	}
	return result, exhausted
}

type chainWalker struct {
	ctx       *Context
	flowSet   map[string]bool
	skip      map[string]bool
	memo      map[string][]chainPath
	budget    Budget
	exhausted bool
}

func (w *chainWalker) collect(dataID string, visiting map[string]bool) []chainPath {
	if visiting[dataID] {
		return nil
	}
	if !w.ctx.IsPureData(dataID) {
		return nil
	}
	// Nodes claimed by an earlier block terminate the chain; they stay on
	// the path so callers can see the boundary.
	if w.skip[dataID] {
		return []chainPath{{nodes: []string{dataID}}}
	}
	if cached, ok := w.memo[dataID]; ok {
		return cached
	}

	visiting[dataID] = true
	defer delete(visiting, dataID)

	upstream := w.ctx.orderedDataIn(dataID)

	// A block flow node driving this data node marks it as a flow-origin
	// terminus; the smallest-port source wins and overrides subpath
	// origins.
	chosenFlowSrc := ""
	flowOriginHere := false
	bestPort := orderMaxFallback + 1
	for _, e := range upstream {
		if !w.flowSet[e.From] {
			continue
		}
		idx := w.ctx.InputPortIndex(dataID, e.ToPort)
		if !flowOriginHere || idx < bestPort {
			chosenFlowSrc = e.From
			bestPort = idx
			flowOriginHere = true
		}
	}

	var perInput [][]chainPath
	for _, e := range upstream {
		upID := e.From
		if w.flowSet[upID] || !w.ctx.IsPureData(upID) {
			continue
		}
		if w.skip[upID] {
			perInput = append(perInput, []chainPath{{nodes: []string{dataID, upID}}})
			continue
		}
		sub := dedupePaths(w.collect(upID, visiting))
		prefixed := make([]chainPath, 0, len(sub))
		for _, p := range sub {
			nodes := make([]string, 0, len(p.nodes)+1)
			nodes = append(nodes, dataID)
			nodes = append(nodes, p.nodes...)
			prefixed = append(prefixed, chainPath{nodes: nodes, srcFlow: p.srcFlow, flowOrigin: p.flowOrigin})
		}
		perInput = append(perInput, prefixed)
	}

	if len(perInput) == 0 {
		result := []chainPath{{nodes: []string{dataID}, srcFlow: chosenFlowSrc, flowOrigin: flowOriginHere}}
		w.memo[dataID] = result
		return result
	}

	maxPerNode := w.budget.MaxPerNode
	var all []chainPath
	appendPath := func(p chainPath) bool {
		if flowOriginHere {
			p = chainPath{nodes: p.nodes, srcFlow: chosenFlowSrc, flowOrigin: true}
		}
		all = append(all, p)
		if maxPerNode > 0 && len(all) >= maxPerNode {
			w.exhausted = true
			return false
		}
		return true
	}

	// Phase 1: every input port contributes at least one path before any
	// port gets a second, so a huge first fan-in cannot starve the rest.
	full := true
	for _, sub := range perInput {
		if len(sub) == 0 {
			continue
		}
		if !appendPath(sub[0]) {
			full = false
			break
		}
	}

	// Phase 2: round-robin merge of the remaining paths.
	if full {
		pointers := make([]int, len(perInput))
		for i := range pointers {
			pointers[i] = 1
		}
		for {
			progressed := false
			for i, sub := range perInput {
				if pointers[i] >= len(sub) {
					continue
				}
				if !appendPath(sub[pointers[i]]) {
					progressed = false
					break
				}
				pointers[i]++
				progressed = true
			}
			if !progressed {
				break
			}
		}
	}

	if len(all) == 0 {
		all = []chainPath{{nodes: []string{dataID}}}
	}
	all = dedupePaths(all)
	w.memo[dataID] = all
	return all
}
