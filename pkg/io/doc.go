// Package io provides JSON import and export for flow graphs and layout
// results.
//
// # Overview
//
// This package moves graphs across the process boundary. The format is
// designed for:
//
//   - Feeding externally produced graphs into the layout engine
//   - Caching and persisting layout results for faster re-rendering
//   - Round-trip preservation: import, lay out, export, and re-import
//
// # Graph Format
//
// A graph document has two top-level arrays:
//
//	{
//	  "nodes": [
//	    {"id": "ev", "category": "event", "outputs": [{"name": "then", "flow": true}]},
//	    {"id": "f1", "inputs": [{"name": "exec", "flow": true}, {"name": "value"}]}
//	  ],
//	  "edges": [
//	    {"from": "ev", "from_port": "then", "to": "f1", "to_port": "exec"}
//	  ]
//	}
//
// Node fields:
//
//   - id: unique string identifier (required)
//   - title: display label
//   - category: "event" marks a flow entry point, "virtual-pin" marks a
//     synthetic pin whose flow edges do not count as real predecessors
//   - inputs/outputs: named ports; a port with "flow": true carries
//     execution order, all other ports carry data
//   - event_order: left-to-right ordering of independent event groups
//
// Edge fields reference node IDs and port names. Edge IDs may be omitted on
// import; they are derived from the endpoints.
//
// # Layout Format
//
// A layout document wraps the laid-out graph (including any data-node copies
// created during layout) together with absolute node positions and the block
// geometry:
//
//	{
//	  "graph": {...},
//	  "positions": {"ev": {"x": 100, "y": 150}},
//	  "blocks": [{"id": "block_0", "x": 100, "y": 150, "width": 420, ...}]
//	}
//
// # Import and Export
//
// Use [ImportGraph] to read a graph from a file path, or [ReadGraph] to read
// from any io.Reader. Use [ExportLayout] / [WriteLayout] for layout results
// and [ReadLayout] to load one back.
//
// All functions create independent values that can be modified freely after
// the call returns; none of them close the reader or writer they are given.
package io
