// Package graph defines the node/edge model consumed by the layout engine.
//
// A graph mixes two kinds of nodes: flow nodes (control-flow steps with
// flow-typed ports) and pure data nodes (value producers/consumers with only
// data-typed ports). Nodes and edges are held in string-keyed maps plus an
// ordered edge list, so cyclic references never require object pointers.
//
// The graph is not safe for concurrent use without external synchronization.
package graph
