package layout

import (
	"slices"
	"strings"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// =============================================================================
// Index Context - cached lookup tables over one graph
// =============================================================================

// Context is the per-run index over a graph: flow/data edge tables keyed by
// node ID, a pure-data predicate, and port ordinal queries. It is a
// read-only cached view; call Invalidate after mutating node or edge
// membership so the tables are rebuilt on next access.
type Context struct {
	Graph *graph.Graph

	flowOut  map[string][]*graph.Edge
	flowIn   map[string][]*graph.Edge
	dataOut  map[string][]*graph.Edge
	dataIn   map[string][]*graph.Edge
	pureData map[string]bool
	pins     map[string]bool
	hasFlow  bool
	built    bool
}

// NewContext creates an index context over the graph. Tables are built
// lazily on first access.
func NewContext(g *graph.Graph) *Context {
	return &Context{Graph: g}
}

// Invalidate drops the cached tables. The next query rebuilds them from the
// current graph content.
func (c *Context) Invalidate() { c.built = false }

func (c *Context) ensure() {
	if c.built {
		return
	}
	c.flowOut = make(map[string][]*graph.Edge)
	c.flowIn = make(map[string][]*graph.Edge)
	c.dataOut = make(map[string][]*graph.Edge)
	c.dataIn = make(map[string][]*graph.Edge)
	c.pureData = make(map[string]bool, c.Graph.NodeCount())
	c.pins = make(map[string]bool)
	c.hasFlow = false

	for _, n := range c.Graph.Nodes() {
		c.pureData[n.ID] = n.IsPureData()
		if n.IsVirtualPin() {
			c.pins[n.ID] = true
		}
	}

	// Edges referencing a missing node or port are skipped, not raised.
	for _, e := range c.Graph.Edges() {
		if _, ok := c.Graph.Node(e.To); !ok {
			continue
		}
		if c.Graph.IsFlowEdge(e) {
			c.flowOut[e.From] = append(c.flowOut[e.From], e)
			c.flowIn[e.To] = append(c.flowIn[e.To], e)
			c.hasFlow = true
		} else {
			c.dataOut[e.From] = append(c.dataOut[e.From], e)
			c.dataIn[e.To] = append(c.dataIn[e.To], e)
		}
	}
	c.built = true
}

// FlowOut returns the flow edges leaving the node, in edge-collection order.
func (c *Context) FlowOut(id string) []*graph.Edge { c.ensure(); return c.flowOut[id] }

// FlowIn returns the flow edges entering the node, in edge-collection order.
func (c *Context) FlowIn(id string) []*graph.Edge { c.ensure(); return c.flowIn[id] }

// DataOut returns the data edges leaving the node, in edge-collection order.
func (c *Context) DataOut(id string) []*graph.Edge { c.ensure(); return c.dataOut[id] }

// DataIn returns the data edges entering the node, in edge-collection order.
func (c *Context) DataIn(id string) []*graph.Edge { c.ensure(); return c.dataIn[id] }

// IsPureData reports whether the node exists and has no flow-typed ports.
func (c *Context) IsPureData(id string) bool { c.ensure(); return c.pureData[id] }

// IsVirtualPin reports whether the node is a synthetic pin marker.
func (c *Context) IsVirtualPin(id string) bool { c.ensure(); return c.pins[id] }

// HasFlowEdges reports whether the graph contains any flow edge at all.
// A graph without flow edges is laid out as a pure data graph.
func (c *Context) HasFlowEdges() bool { c.ensure(); return c.hasFlow }

// InputPortIndex returns the ordinal of the named input port on the node,
// or a large sentinel when the node or port is missing. Sentinel ordering
// keeps malformed references sorting last instead of failing.
func (c *Context) InputPortIndex(nodeID, portName string) int {
	n, ok := c.Graph.Node(nodeID)
	if !ok {
		return orderMaxFallback
	}
	if i := n.InputPortIndex(portName); i >= 0 {
		return i
	}
	return orderMaxFallback
}

// OutputPortIndex returns the ordinal of the named output port on the node,
// or a large sentinel when the node or port is missing.
func (c *Context) OutputPortIndex(nodeID, portName string) int {
	n, ok := c.Graph.Node(nodeID)
	if !ok {
		return orderMaxFallback
	}
	if i := n.OutputPortIndex(portName); i >= 0 {
		return i
	}
	return orderMaxFallback
}

// Branch is one (output port, target node) pair leaving a flow node.
type Branch struct {
	Port   string
	Target string
}

// OrderedFlowOut returns the node's flow branches sorted by output port
// ordinal, giving a stable left-to-right ordering for block traversal.
func (c *Context) OrderedFlowOut(nodeID string) []Branch {
	edges := c.FlowOut(nodeID)
	if len(edges) == 0 {
		return nil
	}
	ordered := slices.Clone(edges)
	slices.SortStableFunc(ordered, func(a, b *graph.Edge) int {
		ai, bi := c.OutputPortIndex(nodeID, a.FromPort), c.OutputPortIndex(nodeID, b.FromPort)
		if ai != bi {
			return ai - bi
		}
		return strings.Compare(a.To, b.To)
	})
	branches := make([]Branch, 0, len(ordered))
	for _, e := range ordered {
		if e.To != "" {
			branches = append(branches, Branch{Port: e.FromPort, Target: e.To})
		}
	}
	return branches
}

// orderedDataIn returns the node's incoming data edges sorted by input port
// ordinal, then edge ID for full determinism.
func (c *Context) orderedDataIn(nodeID string) []*graph.Edge {
	edges := c.DataIn(nodeID)
	if len(edges) == 0 {
		return nil
	}
	ordered := slices.Clone(edges)
	slices.SortStableFunc(ordered, func(a, b *graph.Edge) int {
		ai, bi := c.InputPortIndex(nodeID, a.ToPort), c.InputPortIndex(nodeID, b.ToPort)
		if ai != bi {
			return ai - bi
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ordered
}
