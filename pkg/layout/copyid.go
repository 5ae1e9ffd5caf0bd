package layout

import (
	"slices"
	"strconv"
	"strings"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// Copy nodes follow the naming convention {canonicalID}_copy_{blockID}_{n},
// e.g. "sum_copy_block_2_1". The helpers below parse that convention so
// copies created by an earlier run are recognized and reused.
const (
	copyMarker      = "_copy_"
	copyBlockMarker = "_copy_block_"
)

// copyNodeID formats the deterministic ID for the nth copy of a canonical
// node owned by the given block.
func copyNodeID(canonicalID, blockID string, n int) string {
	return canonicalID + copyMarker + blockID + "_" + strconv.Itoa(n)
}

// stripCopySuffix truncates a node ID at the first copy marker, returning
// the canonical portion.
func stripCopySuffix(nodeID string) string {
	if i := strings.Index(nodeID, copyMarker); i >= 0 {
		return nodeID[:i]
	}
	return nodeID
}

// parseBlockIndex extracts N from "block_N", or the sentinel on failure.
func parseBlockIndex(blockID string) int {
	rest, ok := strings.CutPrefix(blockID, "block_")
	if !ok {
		return orderMaxFallback
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return orderMaxFallback
	}
	return n
}

// parseCopyCounter extracts the trailing copy counter from a copy node ID,
// or the sentinel on failure.
func parseCopyCounter(nodeID string) int {
	i := strings.LastIndex(nodeID, copyMarker)
	if i < 0 {
		return orderMaxFallback
	}
	parts := strings.Split(nodeID[i+len(copyMarker):], "_")
	for j := len(parts) - 1; j >= 0; j-- {
		if n, err := strconv.Atoi(parts[j]); err == nil && n >= 0 {
			return n
		}
	}
	return orderMaxFallback
}

// inferCopyBlockID recovers "block_N" from a copy node ID following the
// naming convention, or "" when the ID does not encode one.
func inferCopyBlockID(nodeID string) string {
	i := strings.LastIndex(nodeID, copyMarker)
	if i < 0 {
		return ""
	}
	parts := strings.Split(nodeID[i+len(copyMarker):], "_")
	if len(parts) >= 2 && parts[0] == "block" {
		if _, err := strconv.Atoi(parts[1]); err == nil {
			return "block_" + parts[1]
		}
	}
	return ""
}

// isDataNodeCopy reports whether the node is a copy instance, either by its
// marker field or by naming convention.
func isDataNodeCopy(n *graph.Node) bool {
	if n == nil {
		return false
	}
	return n.IsCopy || strings.Contains(n.ID, copyBlockMarker)
}

// resolveCopyBlockID returns the block a copy belongs to, preferring the
// explicit field over the naming convention.
func resolveCopyBlockID(n *graph.Node) string {
	if n == nil {
		return ""
	}
	if n.OwningBlockID != "" {
		return n.OwningBlockID
	}
	return inferCopyBlockID(n.ID)
}

// resolveCopyBlockIndex returns the owning block's order index, or the
// sentinel when it cannot be determined.
func resolveCopyBlockIndex(n *graph.Node) int {
	if id := resolveCopyBlockID(n); id != "" {
		if idx := parseBlockIndex(id); idx < orderMaxFallback {
			return idx
		}
	}
	return orderMaxFallback
}

// CopyRank returns the sort key for a copy node: the owning block's order
// index, then the copy counter. Copies whose block or counter cannot be
// determined rank after all well-formed ones.
func CopyRank(n *graph.Node) (blockIndex, counter int) {
	return resolveCopyBlockIndex(n), parseCopyCounter(n.ID)
}

// CopiesByRank returns every copy node in the graph ordered by [CopyRank],
// ties broken by ID.
func CopiesByRank(g *graph.Graph) []*graph.Node {
	var copies []*graph.Node
	for _, id := range g.NodeIDs() {
		if n, ok := g.Node(id); ok && isDataNodeCopy(n) {
			copies = append(copies, n)
		}
	}
	slices.SortStableFunc(copies, func(a, b *graph.Node) int {
		ab, ac := CopyRank(a)
		bb, bc := CopyRank(b)
		if ab != bb {
			return ab - bb
		}
		if ac != bc {
			return ac - bc
		}
		return strings.Compare(a.ID, b.ID)
	})
	return copies
}

// canonicalOriginalID normalizes any data node ID (copy or not) to its
// canonical original ID, preferring the node's recorded OriginalID.
func canonicalOriginalID(g *graph.Graph, nodeID string) string {
	if nodeID == "" {
		return ""
	}
	if n, ok := g.Node(nodeID); ok && n.OriginalID != "" {
		return n.OriginalID
	}
	return stripCopySuffix(nodeID)
}
