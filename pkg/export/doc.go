// Package export renders laid-out flow graphs to DOT, SVG, and PNG.
//
// The DOT output groups nodes into one cluster per block, so the block
// decomposition computed by the layout engine stays visible in the rendered
// diagram. Data-node copies are drawn dashed to distinguish them from their
// canonical originals.
//
// Typical usage:
//
//	dot := export.ToDOT(g, res, export.Options{})
//	svg, err := export.RenderSVG(dot)
package export
