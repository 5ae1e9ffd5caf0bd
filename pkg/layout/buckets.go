package layout

import (
	"math"
	"slices"
	"strings"
)

// =============================================================================
// Block Positioning Engine - spatial buckets and runtime state
// =============================================================================

// PositionConfig drives block-to-block placement. Zero values fall back to
// the package defaults.
type PositionConfig struct {
	InitialX      float64
	InitialY      float64
	BlockXSpacing float64
	BlockYSpacing float64
	EventYSpacing float64
	TightSpacing  bool
}

func (c PositionConfig) normalized() PositionConfig {
	if c.BlockXSpacing <= 0 {
		c.BlockXSpacing = DefaultBlockXSpacing
	}
	if c.BlockYSpacing <= 0 {
		c.BlockYSpacing = DefaultBlockYSpacing
	}
	if c.EventYSpacing <= 0 {
		c.EventYSpacing = 2 * c.BlockYSpacing
	}
	return c
}

// positionRuntime tracks which blocks are already placed, across event
// groups. The bucket map indexes placed blocks by vertical span so overlap
// queries touch only nearby rows instead of every block.
type positionRuntime struct {
	positioned map[*Block]bool
	bucketSize float64
	buckets    map[int][]*Block
}

func newPositionRuntime(cfg PositionConfig) *positionRuntime {
	size := cfg.BlockYSpacing + DefaultNodeHeight*1.5
	if size < 200 {
		size = 200
	}
	return &positionRuntime{
		positioned: make(map[*Block]bool),
		bucketSize: size,
		buckets:    make(map[int][]*Block),
	}
}

func (rt *positionRuntime) bucketIndex(y float64) int {
	return int(math.Floor(y / rt.bucketSize))
}

// register files the block under every bucket its vertical span touches.
func (rt *positionRuntime) register(b *Block) {
	lo := rt.bucketIndex(b.Y)
	hi := rt.bucketIndex(b.Y + b.Height)
	for i := lo; i <= hi; i++ {
		rt.buckets[i] = append(rt.buckets[i], b)
	}
}

// overlapCandidates returns the placed blocks whose buckets intersect the
// [top, bottom] span, deduplicated, in stable block order.
func (rt *positionRuntime) overlapCandidates(top, bottom float64) []*Block {
	lo := rt.bucketIndex(top)
	hi := rt.bucketIndex(bottom)
	seen := make(map[*Block]bool)
	var out []*Block
	for i := lo; i <= hi; i++ {
		for _, b := range rt.buckets[i] {
			if seen[b] {
				continue
			}
			seen[b] = true
			out = append(out, b)
		}
	}
	slices.SortFunc(out, blockStableCompare)
	return out
}

// blockStableCompare is the one ordering used wherever blocks leave a map.
// Blocks are rebuilt every run, so pointer identity (and with it map
// iteration order) is not reproducible; the order index is.
func blockStableCompare(a, b *Block) int {
	if a.OrderIndex != b.OrderIndex {
		return a.OrderIndex - b.OrderIndex
	}
	if c := strings.Compare(a.EventRootID, b.EventRootID); c != 0 {
		return c
	}
	return strings.Compare(firstFlowNode(a), firstFlowNode(b))
}

func firstFlowNode(b *Block) string {
	if len(b.FlowNodes) == 0 {
		return ""
	}
	return b.FlowNodes[0]
}

func sortedBlockSet(set map[*Block]bool) []*Block {
	out := make([]*Block, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	slices.SortFunc(out, blockStableCompare)
	return out
}
