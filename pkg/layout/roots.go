package layout

import (
	"slices"
	"strings"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// FindEventRoots returns the starting flow nodes of the graph's independent
// flow sub-graphs, in the order the resulting groups should be laid out.
//
// Explicit event nodes come first, ordered by their declared event order.
// When events exist, additional entry points are appended: flow nodes driven
// only by virtual pins, and flow nodes with a flow input port but zero
// incoming flow edges (pin edges do not count). Without any event node the
// fallback is the set of zero-flow-indegree flow nodes, then an arbitrary
// flow node when even that is empty (a pure cycle). A graph with no flow
// edges at all yields no roots.
func FindEventRoots(ctx *Context) []*graph.Node {
	nodes := ctx.Graph.Nodes()
	slices.SortFunc(nodes, func(a, b *graph.Node) int { return strings.Compare(a.ID, b.ID) })

	var events []*graph.Node
	var flowNodes []*graph.Node
	for _, n := range nodes {
		if n.IsEvent() {
			events = append(events, n)
		}
		if n.IsFlow() && !n.IsVirtualPin() {
			flowNodes = append(flowNodes, n)
		}
	}

	if len(events) == 0 {
		if !ctx.HasFlowEdges() {
			return nil
		}
		var starts []*graph.Node
		for _, n := range flowNodes {
			if flowIndegree(ctx, n.ID) == 0 {
				starts = append(starts, n)
			}
		}
		if len(starts) > 0 {
			return starts
		}
		// Flow edges but no start: a pure cycle. Any flow node will do;
		// pick the first for determinism.
		if len(flowNodes) > 0 {
			return flowNodes[:1]
		}
		return nil
	}

	slices.SortStableFunc(events, func(a, b *graph.Node) int {
		if a.EventOrder != b.EventOrder {
			return a.EventOrder - b.EventOrder
		}
		return strings.Compare(a.ID, b.ID)
	})

	result := slices.Clone(events)
	seen := make(map[string]bool, len(result))
	for _, n := range result {
		seen[n.ID] = true
	}

	var extra []*graph.Node
	for _, n := range flowNodes {
		if seen[n.ID] {
			continue
		}
		pinIn, realIn := partitionFlowIn(ctx, n.ID)
		if pinIn > 0 && realIn == 0 {
			extra = append(extra, n)
			seen[n.ID] = true
			continue
		}
		if hasFlowInput(n) && realIn == 0 {
			extra = append(extra, n)
			seen[n.ID] = true
		}
	}
	return append(result, extra...)
}

// flowIndegree counts incoming flow edges, ignoring virtual-pin sources.
func flowIndegree(ctx *Context, nodeID string) int {
	_, real := partitionFlowIn(ctx, nodeID)
	return real
}

func partitionFlowIn(ctx *Context, nodeID string) (pin, real int) {
	for _, e := range ctx.FlowIn(nodeID) {
		if ctx.IsVirtualPin(e.From) {
			pin++
		} else {
			real++
		}
	}
	return pin, real
}

func hasFlowInput(n *graph.Node) bool {
	for _, p := range n.Inputs {
		if p.Flow {
			return true
		}
	}
	return false
}
