package layout

import (
	"maps"
	"slices"
	"strings"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// =============================================================================
// Global Copy Manager - cross-block data-node copy resolution
// =============================================================================

// BlockDependency records which data nodes one block depends on: the nodes
// its flow nodes read directly, and the full upstream closure of that set
// along pure-data edges.
type BlockDependency struct {
	BlockID    string
	BlockIndex int
	FlowNodes  map[string]bool
	Direct     map[string]bool
	Closure    map[string]bool
}

// CopyPlanEntry describes how one shared data node is split across blocks:
// the first claiming block keeps the canonical node, every other claiming
// block gets exactly one copy.
type CopyPlanEntry struct {
	CanonicalID     string
	OwnerBlockID    string
	OwnerBlockIndex int

	// CopyTargets maps each non-owning block ID to its assigned copy node
	// ID. TargetOrder lists the block IDs in block-index order.
	CopyTargets map[string]string
	TargetOrder []string
}

type copyKey struct {
	canonical string
	blockID   string
}

// CopyManager analyzes data-node sharing across all identified blocks and
// rewrites the graph so no block references a data-node instance owned by
// another block. It is the only component that mutates graph topology.
//
// Usage:
//
//	m := NewCopyManager(ctx, blocks)
//	m.Analyze()
//	err := m.Apply()
type CopyManager struct {
	ctx    *Context
	blocks []*Block

	deps        map[string]*BlockDependency
	consumers   map[string][]string // canonical data ID -> claiming block IDs, block-index order
	plans       map[string]*CopyPlanEntry
	planOrder   []string
	created     map[copyKey]string
	flowToBlock map[string]string

	nodesAdded int
	edgesAdded int
}

// NewCopyManager creates a copy manager over the identified blocks.
func NewCopyManager(ctx *Context, blocks []*Block) *CopyManager {
	return &CopyManager{
		ctx:         ctx,
		blocks:      blocks,
		deps:        make(map[string]*BlockDependency),
		consumers:   make(map[string][]string),
		plans:       make(map[string]*CopyPlanEntry),
		created:     make(map[copyKey]string),
		flowToBlock: make(map[string]string),
	}
}

// Analyze computes each block's data dependency closure, finds data nodes
// claimed by more than one block, and produces the copy plan. Pre-existing
// copies for a (canonical, block) pair are detected by their copy identity
// and reused, which makes re-running the whole pipeline idempotent.
func (m *CopyManager) Analyze() {
	for _, b := range m.blocks {
		for _, flowID := range b.FlowNodes {
			m.flowToBlock[flowID] = b.ID
		}
	}
	m.collectDirectConsumers()
	m.expandClosures()
	m.identifySharedNodes()
	m.indexExistingCopies()
	m.generatePlans()
}

func (m *CopyManager) collectDirectConsumers() {
	for _, b := range m.blocks {
		dep := &BlockDependency{
			BlockID:    b.ID,
			BlockIndex: b.OrderIndex,
			FlowNodes:  make(map[string]bool, len(b.FlowNodes)),
			Direct:     make(map[string]bool),
			Closure:    make(map[string]bool),
		}
		for _, flowID := range b.FlowNodes {
			dep.FlowNodes[flowID] = true
			for _, e := range m.ctx.DataIn(flowID) {
				if m.ctx.IsPureData(e.From) {
					dep.Direct[e.From] = true
				}
			}
		}
		m.deps[b.ID] = dep
	}
}

func (m *CopyManager) expandClosures() {
	for _, b := range m.blocks {
		dep := m.deps[b.ID]
		queue := slices.Sorted(maps.Keys(dep.Direct))
		visited := make(map[string]bool)
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current] {
				continue
			}
			visited[current] = true
			if !m.ctx.IsPureData(current) {
				continue
			}
			dep.Closure[current] = true
			for _, e := range m.ctx.DataIn(current) {
				if m.ctx.IsPureData(e.From) && !visited[e.From] {
					queue = append(queue, e.From)
				}
			}
		}
	}
}

func (m *CopyManager) identifySharedNodes() {
	for _, b := range m.blocks {
		dep := m.deps[b.ID]
		for dataID := range dep.Closure {
			if !slices.Contains(m.consumers[dataID], b.ID) {
				m.consumers[dataID] = append(m.consumers[dataID], b.ID)
			}
		}
	}
	for _, blockIDs := range m.consumers {
		slices.SortFunc(blockIDs, func(a, b string) int {
			return m.deps[a].BlockIndex - m.deps[b].BlockIndex
		})
	}
}

// indexExistingCopies records copies already present in the graph so a
// second run reuses them instead of minting duplicates.
func (m *CopyManager) indexExistingCopies() {
	for _, id := range m.ctx.Graph.NodeIDs() {
		n, _ := m.ctx.Graph.Node(id)
		if !isDataNodeCopy(n) {
			continue
		}
		blockID := resolveCopyBlockID(n)
		if blockID == "" {
			continue
		}
		m.created[copyKey{canonicalOriginalID(m.ctx.Graph, n.ID), blockID}] = n.ID
	}
}

func (m *CopyManager) generatePlans() {
	for _, dataID := range slices.Sorted(maps.Keys(m.consumers)) {
		blockIDs := m.consumers[dataID]
		if len(blockIDs) <= 1 {
			continue
		}
		owner := blockIDs[0]
		plan := &CopyPlanEntry{
			CanonicalID:     dataID,
			OwnerBlockID:    owner,
			OwnerBlockIndex: m.deps[owner].BlockIndex,
			CopyTargets:     make(map[string]string, len(blockIDs)-1),
		}
		for _, blockID := range blockIDs[1:] {
			copyID, ok := m.created[copyKey{dataID, blockID}]
			if !ok {
				copyID = copyNodeID(dataID, blockID, 1)
			}
			plan.CopyTargets[blockID] = copyID
			plan.TargetOrder = append(plan.TargetOrder, blockID)
		}
		m.plans[dataID] = plan
		m.planOrder = append(m.planOrder, dataID)
	}
}

// Plans returns the copy plan entries in canonical-ID order.
func (m *CopyManager) Plans() []*CopyPlanEntry {
	out := make([]*CopyPlanEntry, 0, len(m.planOrder))
	for _, id := range m.planOrder {
		out = append(out, m.plans[id])
	}
	return out
}

// Apply materializes missing copy nodes, rewrites existing data edges in
// place so every block only references its own instances, synthesizes the
// copies' incoming edges from the canonical node's templates, and finally
// deduplicates edges. Applying the plan to an already-copied graph adds
// zero nodes and zero edges.
func (m *CopyManager) Apply() error {
	if len(m.plans) == 0 {
		return nil
	}
	if err := m.materializeCopies(); err != nil {
		return err
	}
	if err := m.redirectEdges(); err != nil {
		return err
	}
	if err := m.replayCopyInputs(); err != nil {
		return err
	}
	m.dedupeEdges()
	m.ctx.Invalidate()
	return nil
}

// NodesAdded reports how many copy nodes Apply created.
func (m *CopyManager) NodesAdded() int { return m.nodesAdded }

// EdgesAdded reports how many edges Apply created.
func (m *CopyManager) EdgesAdded() int { return m.edgesAdded }

func (m *CopyManager) materializeCopies() error {
	for _, canonical := range m.planOrder {
		plan := m.plans[canonical]
		source, ok := m.ctx.Graph.Node(canonical)
		if !ok {
			continue
		}
		for _, blockID := range plan.TargetOrder {
			copyID := plan.CopyTargets[blockID]
			if _, exists := m.ctx.Graph.Node(copyID); exists {
				continue
			}
			clone := source.CloneShape(copyID)
			clone.IsCopy = true
			clone.OriginalID = source.CanonicalID()
			clone.OwningBlockID = blockID
			if err := m.ctx.Graph.AddNode(clone); err != nil {
				return err
			}
			m.created[copyKey{canonical, blockID}] = copyID
			m.nodesAdded++
		}
	}
	return nil
}

// redirectEdges rewrites existing data edges whose destination lives in a
// non-owning block so their source (and pure-data destination) point at the
// block's assigned instances. Edge identifiers are preserved.
func (m *CopyManager) redirectEdges() error {
	for _, canonical := range m.planOrder {
		plan := m.plans[canonical]
		for _, e := range slices.Clone(m.ctx.DataOut(canonical)) {
			dstBlock := m.nodeBlock(e.To)
			if dstBlock == "" || dstBlock == plan.OwnerBlockID {
				continue
			}
			copyID, ok := plan.CopyTargets[dstBlock]
			if !ok {
				continue
			}
			newTo := e.To
			if m.ctx.IsPureData(e.To) {
				if dstCopy, ok := m.created[copyKey{canonicalOriginalID(m.ctx.Graph, e.To), dstBlock}]; ok {
					newTo = dstCopy
				}
			}
			if err := m.ctx.Graph.RedirectEdge(e.ID, copyID, newTo); err != nil {
				return err
			}
		}
	}
	return nil
}

// replayCopyInputs synthesizes each copy's incoming data edges by replaying
// the canonical node's own incoming-edge templates, resolving every source
// to the instance assigned to the copy's block. New edge IDs are derived
// from the endpoints, so re-running produces byte-identical edges; an edge
// that already exists is left alone.
func (m *CopyManager) replayCopyInputs() error {
	for _, canonical := range m.planOrder {
		plan := m.plans[canonical]
		templates := slices.Clone(m.ctx.DataIn(canonical))
		for _, blockID := range plan.TargetOrder {
			copyID := plan.CopyTargets[blockID]
			for _, tmpl := range templates {
				src := tmpl.From
				if srcCopy, ok := m.created[copyKey{canonicalOriginalID(m.ctx.Graph, src), blockID}]; ok {
					src = srcCopy
				}
				if m.ctx.Graph.FindEdge(src, tmpl.FromPort, copyID, tmpl.ToPort) != nil {
					continue
				}
				edge := &graph.Edge{
					ID:       graph.EdgeID(src, tmpl.FromPort, copyID, tmpl.ToPort),
					From:     src,
					FromPort: tmpl.FromPort,
					To:       copyID,
					ToPort:   tmpl.ToPort,
				}
				if err := m.ctx.Graph.AddEdge(edge); err != nil {
					return err
				}
				m.edgesAdded++
			}
		}
	}
	return nil
}

func (m *CopyManager) dedupeEdges() {
	type edgeKey struct{ from, fromPort, to, toPort string }
	seen := make(map[edgeKey]bool)
	var remove []string
	for _, e := range m.ctx.Graph.Edges() {
		k := edgeKey{e.From, e.FromPort, e.To, e.ToPort}
		if seen[k] {
			remove = append(remove, e.ID)
			continue
		}
		seen[k] = true
	}
	for _, id := range remove {
		m.ctx.Graph.RemoveEdge(id)
	}
}

// nodeBlock resolves which block a node belongs to: flow nodes by block
// membership, data nodes by their direct flow consumer, then by closure
// membership in block order.
func (m *CopyManager) nodeBlock(nodeID string) string {
	if blockID, ok := m.flowToBlock[nodeID]; ok {
		return blockID
	}
	for _, e := range m.ctx.DataOut(nodeID) {
		if blockID, ok := m.flowToBlock[e.To]; ok {
			return blockID
		}
	}
	for _, b := range m.blocks {
		if m.deps[b.ID].Closure[nodeID] {
			return b.ID
		}
	}
	return ""
}

// BlockCopyMapping returns canonical ID -> copy ID for one block.
func (m *CopyManager) BlockCopyMapping(blockID string) map[string]string {
	mapping := make(map[string]string)
	for key, copyID := range m.created {
		if key.blockID == blockID {
			mapping[key.canonical] = copyID
		}
	}
	return mapping
}

// BlockOwnedNodes returns the canonical data nodes a block keeps: the
// shared nodes it owns plus every closure node that is not shared at all.
func (m *CopyManager) BlockOwnedNodes(blockID string) map[string]bool {
	owned := make(map[string]bool)
	for _, plan := range m.plans {
		if plan.OwnerBlockID == blockID {
			owned[plan.CanonicalID] = true
		}
	}
	if dep, ok := m.deps[blockID]; ok {
		for dataID := range dep.Closure {
			if _, shared := m.plans[dataID]; !shared {
				owned[dataID] = true
			}
		}
	}
	return owned
}

// UnassignedDataNodes returns every pure data node that no block claims,
// sorted by ID. The result should normally be empty; it exists as a
// diagnostic for callers that want to warn about floating data nodes.
func UnassignedDataNodes(ctx *Context, blocks []*Block) []string {
	assigned := make(map[string]bool)
	for _, b := range blocks {
		for _, id := range b.DataNodes {
			assigned[id] = true
		}
	}
	var orphans []string
	for _, id := range ctx.Graph.NodeIDs() {
		if ctx.IsPureData(id) && !assigned[id] {
			orphans = append(orphans, id)
		}
	}
	slices.SortFunc(orphans, strings.Compare)
	return orphans
}
