package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the
	// destination node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrDuplicateEdgeID is returned by [Graph.AddEdge] when an edge with
	// the same ID already exists.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownEdge is returned by [Graph.RedirectEdge] when the edge ID
	// is not found.
	ErrUnknownEdge = errors.New("unknown edge")
)

// Edge is a directed connection from one node's output port to another
// node's input port. An edge is a flow edge iff its destination port is
// flow-typed; everything else is a data edge.
type Edge struct {
	ID       string `json:"id" bson:"id"`
	From     string `json:"from" bson:"from"`
	FromPort string `json:"from_port,omitempty" bson:"from_port,omitempty"`
	To       string `json:"to" bson:"to"`
	ToPort   string `json:"to_port,omitempty" bson:"to_port,omitempty"`
}

// EdgeID derives a deterministic edge identifier from the edge's endpoints.
// Identical endpoints always produce the identical ID, so re-running a
// transformation that synthesizes edges yields byte-identical results.
func EdgeID(from, fromPort, to, toPort string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%s\x00%s", from, fromPort, to, toPort))
	return "edge_" + hex.EncodeToString(sum[:8])
}

// Graph holds nodes and edges with adjacency indexes for both directions.
// Nodes live in a string-keyed map; edges keep insertion order in a slice
// and are additionally indexed by ID and by endpoint.
//
// The zero value is not usable - use New.
type Graph struct {
	nodes    map[string]*Node
	edges    []*Edge
	edgeByID map[string]*Edge
	outgoing map[string][]*Edge // source node ID -> edges leaving it
	incoming map[string][]*Edge // destination node ID -> edges entering it
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edgeByID: make(map[string]*Edge),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
	}
}

// AddNode adds a node to the graph. Returns ErrInvalidNodeID for an empty ID
// or ErrDuplicateNodeID if the ID is already taken.
func (g *Graph) AddNode(n *Node) error {
	if n == nil || n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	g.nodes[n.ID] = n
	return nil
}

// AddEdge adds a directed edge between two existing nodes. An empty edge ID
// is filled in deterministically from the endpoints via EdgeID. Returns
// ErrUnknownSourceNode / ErrUnknownTargetNode when an endpoint is missing
// and ErrDuplicateEdgeID when the ID is already taken.
func (g *Graph) AddEdge(e *Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.To)
	}
	if e.ID == "" {
		e.ID = EdgeID(e.From, e.FromPort, e.To, e.ToPort)
	}
	if _, exists := g.edgeByID[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEdgeID, e.ID)
	}
	g.edges = append(g.edges, e)
	g.edgeByID[e.ID] = e
	g.outgoing[e.From] = append(g.outgoing[e.From], e)
	g.incoming[e.To] = append(g.incoming[e.To], e)
	return nil
}

// RemoveEdge removes the edge with the given ID. Removing a missing edge is
// a no-op.
func (g *Graph) RemoveEdge(id string) {
	e, ok := g.edgeByID[id]
	if !ok {
		return
	}
	delete(g.edgeByID, id)
	g.edges = slices.DeleteFunc(g.edges, func(x *Edge) bool { return x.ID == id })
	g.outgoing[e.From] = slices.DeleteFunc(g.outgoing[e.From], func(x *Edge) bool { return x.ID == id })
	g.incoming[e.To] = slices.DeleteFunc(g.incoming[e.To], func(x *Edge) bool { return x.ID == id })
}

// RedirectEdge rewrites an edge's endpoints in place, preserving its ID and
// port names and updating both adjacency indexes. Returns ErrUnknownEdge if
// the ID is not found, or an unknown-node error if a new endpoint is missing.
func (g *Graph) RedirectEdge(id, newFrom, newTo string) error {
	e, ok := g.edgeByID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEdge, id)
	}
	if _, ok := g.nodes[newFrom]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSourceNode, newFrom)
	}
	if _, ok := g.nodes[newTo]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTargetNode, newTo)
	}
	if e.From != newFrom {
		g.outgoing[e.From] = slices.DeleteFunc(g.outgoing[e.From], func(x *Edge) bool { return x.ID == id })
		e.From = newFrom
		g.outgoing[newFrom] = append(g.outgoing[newFrom], e)
	}
	if e.To != newTo {
		g.incoming[e.To] = slices.DeleteFunc(g.incoming[e.To], func(x *Edge) bool { return x.ID == id })
		e.To = newTo
		g.incoming[newTo] = append(g.incoming[newTo], e)
	}
	return nil
}

// Node returns the node with the given ID and true, or nil and false.
// The pointer refers to the live node, so position mutations stick.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in unspecified order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// NodeIDs returns all node IDs in sorted order.
func (g *Graph) NodeIDs() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Edge returns the edge with the given ID and true, or nil and false.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edgeByID[id]
	return e, ok
}

// Edges returns all edges in insertion order. The slice is a copy but the
// pointers refer to the live edges.
func (g *Graph) Edges() []*Edge { return slices.Clone(g.edges) }

// OutEdges returns the edges leaving the node, in insertion order.
// The returned slice is a read-only view.
func (g *Graph) OutEdges(id string) []*Edge { return g.outgoing[id] }

// InEdges returns the edges entering the node, in insertion order.
// The returned slice is a read-only view.
func (g *Graph) InEdges(id string) []*Edge { return g.incoming[id] }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// IsFlowEdge reports whether the edge lands on a flow-typed input port.
// Edges referencing a missing node or port are treated as data edges.
func (g *Graph) IsFlowEdge(e *Edge) bool {
	dst, ok := g.nodes[e.To]
	if !ok {
		return false
	}
	p, ok := dst.InputPort(e.ToPort)
	return ok && p.Flow
}

// FindEdge returns the first edge matching all four endpoints, or nil.
func (g *Graph) FindEdge(from, fromPort, to, toPort string) *Edge {
	for _, e := range g.outgoing[from] {
		if e.FromPort == fromPort && e.To == to && e.ToPort == toPort {
			return e
		}
	}
	return nil
}
