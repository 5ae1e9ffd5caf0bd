package graph

// =============================================================================
// Ports
// =============================================================================

// Port describes one input or output slot on a node. Flow-typed ports carry
// control flow; everything else carries data values.
type Port struct {
	Name string `json:"name" bson:"name"`
	Flow bool   `json:"flow,omitempty" bson:"flow,omitempty"`
}

// =============================================================================
// Nodes
// =============================================================================

// Node categories with special meaning to the layout engine.
const (
	// CategoryEvent marks an explicit event entry point of a flow sub-graph.
	CategoryEvent = "event"
	// CategoryVirtualPin marks a synthetic pin node; flow edges originating
	// from a virtual pin do not count as real predecessors.
	CategoryVirtualPin = "virtual-pin"
)

// Node is a vertex in the graph. A node is a pure data node iff none of its
// ports are flow-typed; otherwise it is a flow node.
//
// Copy-identity fields are only set on duplicates created during cross-block
// copy resolution: a non-copy node has an empty OriginalID, a copy's
// OriginalID names the canonical node it was cloned from and OwningBlockID
// names the block the copy belongs to.
type Node struct {
	ID       string `json:"id" bson:"id"`
	Title    string `json:"title,omitempty" bson:"title,omitempty"`
	Category string `json:"category,omitempty" bson:"category,omitempty"`

	Inputs  []Port `json:"inputs,omitempty" bson:"inputs,omitempty"`
	Outputs []Port `json:"outputs,omitempty" bson:"outputs,omitempty"`

	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`

	IsCopy        bool   `json:"is_copy,omitempty" bson:"is_copy,omitempty"`
	OriginalID    string `json:"original_id,omitempty" bson:"original_id,omitempty"`
	OwningBlockID string `json:"owning_block_id,omitempty" bson:"owning_block_id,omitempty"`

	// EventOrder is the declared ordering of explicit event nodes; it fixes
	// the left-to-right arrangement of independent flow groups.
	EventOrder int `json:"event_order,omitempty" bson:"event_order,omitempty"`
}

// IsPureData reports whether the node has no flow-typed ports.
func (n *Node) IsPureData() bool {
	for _, p := range n.Inputs {
		if p.Flow {
			return false
		}
	}
	for _, p := range n.Outputs {
		if p.Flow {
			return false
		}
	}
	return true
}

// IsFlow reports whether the node has at least one flow-typed port.
func (n *Node) IsFlow() bool { return !n.IsPureData() }

// IsEvent reports whether the node is an explicit event entry point.
func (n *Node) IsEvent() bool { return n.Category == CategoryEvent }

// IsVirtualPin reports whether the node is a synthetic pin marker.
func (n *Node) IsVirtualPin() bool { return n.Category == CategoryVirtualPin }

// DisplayTitle returns the title if set, otherwise the ID.
func (n *Node) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// InputPort returns the named input port and whether it exists.
func (n *Node) InputPort(name string) (Port, bool) {
	for _, p := range n.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// OutputPort returns the named output port and whether it exists.
func (n *Node) OutputPort(name string) (Port, bool) {
	for _, p := range n.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// InputPortIndex returns the ordinal position of the named port among the
// node's inputs, or -1 if absent. Ordinals give every consumer a stable
// left-to-right ordering regardless of edge insertion order.
func (n *Node) InputPortIndex(name string) int {
	for i, p := range n.Inputs {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// OutputPortIndex returns the ordinal position of the named port among the
// node's outputs, or -1 if absent.
func (n *Node) OutputPortIndex(name string) int {
	for i, p := range n.Outputs {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// CanonicalID returns the node this instance ultimately derives from:
// OriginalID for copies, the node's own ID otherwise.
func (n *Node) CanonicalID() string {
	if n.IsCopy && n.OriginalID != "" {
		return n.OriginalID
	}
	return n.ID
}

// CloneShape returns a new node with the same title, category, and port
// shape but no position and no copy identity. Used when materializing
// per-block duplicates of shared data nodes.
func (n *Node) CloneShape(id string) *Node {
	clone := &Node{
		ID:       id,
		Title:    n.Title,
		Category: n.Category,
		Inputs:   make([]Port, len(n.Inputs)),
		Outputs:  make([]Port, len(n.Outputs)),
	}
	copy(clone.Inputs, n.Inputs)
	copy(clone.Outputs, n.Outputs)
	return clone
}
