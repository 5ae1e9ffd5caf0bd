package layout

import (
	"errors"
	"fmt"
)

// ErrInvalidBlock is returned when a block's recorded flow-node sequence
// violates the single-chain invariant. This indicates an internal bug, not
// bad input, and is the only fail-fast condition in the engine.
var ErrInvalidBlock = errors.New("invalid basic block")

// Pos is a 2-D position.
type Pos struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Block is one straight-line run of flow nodes plus the data nodes assigned
// to it. Node positions inside LocalPos are relative to the block's own
// top-left corner once bounds have been computed.
type Block struct {
	ID         string
	OrderIndex int

	FlowNodes []string
	DataNodes []string
	LocalPos  map[string]Pos

	Width     float64
	Height    float64
	NodeWidth float64

	// X, Y is the block's absolute top-left placement.
	X float64
	Y float64

	EventRootID string
	EventTitle  string
	Color       int

	// Branches lists the (port, target) pairs leaving the block's flow
	// nodes toward other blocks, in output-port order, deduplicated by
	// target.
	Branches []Branch
}

// BlockID formats the stable identifier for a block order index.
func BlockID(orderIndex int) string { return fmt.Sprintf("block_%d", orderIndex) }

// NodeIDs returns the block's flow nodes followed by its data nodes.
func (b *Block) NodeIDs() []string {
	ids := make([]string, 0, len(b.FlowNodes)+len(b.DataNodes))
	ids = append(ids, b.FlowNodes...)
	return append(ids, b.DataNodes...)
}

// Contains reports whether the node belongs to the block.
func (b *Block) Contains(nodeID string) bool {
	for _, id := range b.FlowNodes {
		if id == nodeID {
			return true
		}
	}
	for _, id := range b.DataNodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

// CenterY returns the vertical center of the placed block.
func (b *Block) CenterY() float64 { return b.Y + b.Height/2 }

// Right returns the right edge of the placed block.
func (b *Block) Right() float64 { return b.X + b.Width }

// Bottom returns the bottom edge of the placed block.
func (b *Block) Bottom() float64 { return b.Y + b.Height }

// Validate checks the single-chain invariant over the recorded flow-node
// sequence: every node except the last has exactly one flow successor inside
// the block (the next node in the sequence), and no node other than the
// first has more than one flow predecessor.
func (b *Block) Validate(ctx *Context) error {
	for i, id := range b.FlowNodes {
		if _, ok := ctx.Graph.Node(id); !ok {
			return fmt.Errorf("%w: %s references missing node %s", ErrInvalidBlock, b.ID, id)
		}
		if i == 0 {
			continue
		}
		if flowIndegree(ctx, id) > 1 {
			return fmt.Errorf("%w: %s has internal merge at %s", ErrInvalidBlock, b.ID, id)
		}
		prev := b.FlowNodes[i-1]
		linked := false
		for _, e := range ctx.FlowOut(prev) {
			if e.To == id {
				linked = true
				break
			}
		}
		if !linked {
			return fmt.Errorf("%w: %s breaks chain between %s and %s", ErrInvalidBlock, b.ID, prev, id)
		}
		if len(ctx.FlowOut(prev)) > 1 {
			return fmt.Errorf("%w: %s has internal branch at %s", ErrInvalidBlock, b.ID, prev)
		}
	}
	return nil
}

// identifyBlockFlowNodes walks forward from start along single flow
// successors, collecting one straight-line block. The walk stops at a node
// already visited globally or earlier in this walk, at a merge (flow
// indegree > 1 after the first node), and keeps the current node the moment
// it has zero or multiple flow successors. Returns nil when start was
// already visited. The caller marks nodes visited.
func identifyBlockFlowNodes(ctx *Context, start string, visited map[string]bool) []string {
	if visited[start] {
		return nil
	}
	var nodes []string
	inWalk := make(map[string]bool)
	current := start
	for {
		if visited[current] || inWalk[current] {
			break
		}
		if current != start && flowIndegree(ctx, current) != 1 {
			break
		}
		if _, ok := ctx.Graph.Node(current); !ok {
			break
		}
		nodes = append(nodes, current)
		inWalk[current] = true

		out := ctx.FlowOut(current)
		if len(out) != 1 {
			break
		}
		current = out[0].To
	}
	return nodes
}

// identifyBlocks recursively identifies every block reachable from one
// event root, appending flow-only skeletons in discovery order. seq carries
// the global block sequence counter across roots.
func identifyBlocks(ctx *Context, start string, visited map[string]bool, eventRootID, eventTitle string, seq *int, out *[]*Block) {
	if visited[start] {
		return
	}
	flowNodes := identifyBlockFlowNodes(ctx, start, visited)
	if len(flowNodes) == 0 {
		return
	}
	for _, id := range flowNodes {
		visited[id] = true
	}

	b := &Block{
		ID:          BlockID(*seq),
		OrderIndex:  *seq,
		FlowNodes:   flowNodes,
		LocalPos:    make(map[string]Pos),
		NodeWidth:   DefaultNodeWidth,
		EventRootID: eventRootID,
		EventTitle:  eventTitle,
	}
	*seq++

	// Collect branch targets leaving the block, port-ordered, one entry
	// per target.
	inBlock := make(map[string]bool, len(flowNodes))
	for _, id := range flowNodes {
		inBlock[id] = true
	}
	seen := make(map[string]bool)
	for _, flowID := range flowNodes {
		for _, br := range ctx.OrderedFlowOut(flowID) {
			if inBlock[br.Target] || seen[br.Target] {
				continue
			}
			seen[br.Target] = true
			b.Branches = append(b.Branches, br)
		}
	}

	*out = append(*out, b)

	for _, br := range b.Branches {
		identifyBlocks(ctx, br.Target, visited, eventRootID, eventTitle, seq, out)
	}
}
