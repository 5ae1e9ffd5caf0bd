package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// =============================================================================
// Document - Graph Serialization
// =============================================================================

// Document is the canonical serialization format for graphs. Used for API
// payloads, storage, and caching.
//
// The format is designed for round-trip fidelity: import → layout → export →
// re-import produces identical results.
type Document struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// FromGraph converts a graph to its serialization format. Nodes are sorted
// by ID for deterministic output; edges keep their insertion order.
func FromGraph(g *Graph) Document {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *Node) int { return strings.Compare(a.ID, b.ID) })

	doc := Document{
		Nodes: make([]Node, len(nodes)),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for i, n := range nodes {
		doc.Nodes[i] = *n
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, *e)
	}
	return doc
}

// ToGraph converts a document back into a live graph.
func ToGraph(doc Document) (*Graph, error) {
	g := New()
	for i := range doc.Nodes {
		n := doc.Nodes[i]
		if err := g.AddNode(&n); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.ID, err)
		}
	}
	for i := range doc.Edges {
		e := doc.Edges[i]
		if err := g.AddEdge(&e); err != nil {
			return nil, fmt.Errorf("add edge %s→%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// MarshalDocument serializes a Document to JSON bytes. The output is stable
// for a given document, which makes it usable as cache-key input.
func MarshalDocument(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

// UnmarshalDocument deserializes JSON bytes to a Document.
func UnmarshalDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}
