package layout

import (
	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// Metadata is the narrow external provider the engine consults for node
// geometry. Implementations may answer from a node-definition registry; the
// engine falls back to a structural estimate when a query declines.
type Metadata interface {
	// EstimatedNodeHeight returns the rendered box height for the node, if
	// known. The second result reports whether the provider had an answer.
	EstimatedNodeHeight(nodeID string) (float64, bool)

	// IsVariadicPlaceholder reports whether the named input port on the
	// node is a collapsed variadic placeholder that does not occupy a row.
	IsVariadicPlaceholder(nodeTitle, portName string) bool
}

// nullMetadata declines every query, forcing the structural estimate.
type nullMetadata struct{}

func (nullMetadata) EstimatedNodeHeight(string) (float64, bool) { return 0, false }
func (nullMetadata) IsVariadicPlaceholder(string, string) bool  { return false }

// portPlan maps a node's rendered input ports to row indices, matching the
// box geometry the renderer uses: one row per visible input port, plus one
// control row under each unconnected data port.
type portPlan struct {
	renderInputs   []string
	rowByPort      map[string]int
	totalInputRows int
	plusRows       int
}

func (p portPlan) totalRowsWithPlus() int { return p.totalInputRows + p.plusRows }

// buildPortPlan computes the input-port row layout for a node given the set
// of input ports that have an incoming data edge.
func buildPortPlan(md Metadata, n *graph.Node, connected map[string]bool) portPlan {
	plan := portPlan{rowByPort: make(map[string]int)}
	if n == nil {
		return plan
	}
	variadic := false
	row := 0
	for _, p := range n.Inputs {
		if !p.Flow && md.IsVariadicPlaceholder(n.Title, p.Name) {
			variadic = true
			continue
		}
		plan.renderInputs = append(plan.renderInputs, p.Name)
		plan.rowByPort[p.Name] = row
		row++
		if !p.Flow && !connected[p.Name] {
			// Unconnected data inputs render an inline control row.
			row++
		}
	}
	plan.totalInputRows = row
	if variadic {
		plan.plusRows = 1
	}
	return plan
}

// estimateNodeHeight returns the node's box height, preferring the metadata
// provider and falling back to a row-count estimate mirroring the rendered
// geometry.
func estimateNodeHeight(ctx *Context, md Metadata, nodeID string) float64 {
	if h, ok := md.EstimatedNodeHeight(nodeID); ok && h > 0 {
		return h
	}
	n, ok := ctx.Graph.Node(nodeID)
	if !ok {
		return DefaultNodeHeight
	}
	connected := make(map[string]bool)
	for _, e := range ctx.DataIn(nodeID) {
		if e.ToPort != "" {
			connected[e.ToPort] = true
		}
	}
	plan := buildPortPlan(md, n, connected)
	outputRows := len(n.Outputs)
	maxRows := max(plan.totalRowsWithPlus(), outputRows)
	if maxRows < 1 {
		maxRows = 1
	}
	content := float64(maxRows)*uiRowHeight + uiNodePadding
	header := uiRowHeight + uiHeaderExtra
	return header + content + uiNodePadding
}

// flowInputPortY computes the absolute Y of a flow node's named input port
// center, given the node's local top Y. Returns 0 when the port has no row.
func flowInputPortY(ctx *Context, md Metadata, nodeID, portName string, topY float64) float64 {
	n, ok := ctx.Graph.Node(nodeID)
	if !ok {
		return 0
	}
	connected := make(map[string]bool)
	for _, e := range ctx.DataIn(nodeID) {
		if e.ToPort != "" {
			connected[e.ToPort] = true
		}
	}
	plan := buildPortPlan(md, n, connected)
	row, ok := plan.rowByPort[portName]
	if !ok {
		return 0
	}
	header := uiRowHeight + uiHeaderExtra
	inputStart := topY + header + uiNodePadding
	return inputStart + float64(row)*uiRowHeight + uiRowHeight/2
}
