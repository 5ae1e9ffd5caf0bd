// Package layout computes a deterministic 2-D layout for graphs that mix
// flow nodes and pure data nodes.
//
// The engine partitions the flow sub-graph into straight-line basic blocks,
// duplicates data nodes that are shared across blocks so every block only
// references instances it owns, assigns per-block node coordinates, and
// finally positions the blocks themselves in columns. Every identifier and
// coordinate is a pure function of graph content plus configuration, so
// repeated runs over the same input produce byte-identical results.
package layout
