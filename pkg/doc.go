// Package pkg provides the core libraries for flowlayout.
//
// # Overview
//
// Flowlayout computes deterministic 2-D layouts for directed flow graphs
// that mix execution (flow) nodes and pure data nodes. The pkg directory is
// organized into five main areas:
//
//  1. [graph] - Graph model and JSON document serialization
//  2. [layout] - The layout engine (blocks, copies, coordinates)
//  3. [export] - DOT/SVG/PNG rendering of layout results
//  4. [pipeline] - Orchestration (load → layout → export) with caching
//  5. [session] - Persistence of saved layout runs
//
// # Architecture
//
// The typical data flow through flowlayout:
//
//	graph.json document
//	         ↓
//	    [graph] package (decode + validate)
//	         ↓
//	    [layout] package (blocks → copies → coordinates)
//	         ↓
//	    [export] package (DOT, SVG, PNG)
//	         ↓
//	    layout.json / rendered output
//
// # Quick Start
//
// Compute a layout and render it:
//
//	import (
//	    "github.com/mkuhlmann/flowlayout/pkg/export"
//	    "github.com/mkuhlmann/flowlayout/pkg/layout"
//	    flowio "github.com/mkuhlmann/flowlayout/pkg/io"
//	)
//
//	// 1. Load the graph
//	g, _ := flowio.ImportGraph("graph.json")
//
//	// 2. Compute the layout
//	engine := layout.New()
//	res, _ := engine.Layout(g)
//
//	// 3. Render to SVG
//	dot := export.ToDOT(g, res, export.Options{})
//	svg, _ := export.RenderSVG(dot)
//
// # Main Packages
//
// ## Core Domain Logic
//
// [graph] - The in-memory graph model: nodes with typed ports, flow and data
// edges, and the JSON document form used on disk and over the wire.
//
// [layout] - The layout engine. Partitions flow nodes into basic blocks,
// copies shared data nodes across block boundaries, assigns per-block local
// coordinates, and positions blocks on the global canvas.
//
// [export] - Rendering of layout results to Graphviz DOT, and on to SVG and
// PNG via the embedded Graphviz engine.
//
// [io] - Reading and writing graph and layout documents.
//
// ## Infrastructure
//
// [pipeline] - Complete layout pipeline (load → layout → export) used by the
// CLI and the HTTP API. Ensures consistent behavior across all entry points
// and caches both layouts and rendered artifacts.
//
// [cache] - Cache backends for layout results and rendered artifacts: file
// (CLI), Redis (server), and null (disabled).
//
// [session] - Saved layout runs with file and MongoDB backends.
//
// [observability] - Hook points for instrumenting pipeline stages, cache
// access, and HTTP requests.
//
// [errors] - Structured error codes shared by the CLI and the API.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/layout/...     # Specific package
//
// [graph]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/graph
// [layout]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/layout
// [export]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/export
// [io]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/cache
// [session]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/session
// [observability]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/observability
// [errors]: https://pkg.go.dev/github.com/mkuhlmann/flowlayout/pkg/errors
package pkg
