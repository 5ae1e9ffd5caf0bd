package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
	"github.com/mkuhlmann/flowlayout/pkg/layout"
)

// LayoutDocument is the serialization format for a complete layout result.
// It embeds the laid-out graph because layout may add data-node copies; a
// consumer that only has the original graph could not resolve positions for
// those.
type LayoutDocument struct {
	Graph     graph.Document        `json:"graph" bson:"graph"`
	Positions map[string]layout.Pos `json:"positions" bson:"positions"`
	Blocks    []BlockDocument       `json:"blocks" bson:"blocks"`
	Roots     []string              `json:"roots,omitempty" bson:"roots,omitempty"`

	// Copies lists every copy-node ID ordered by owning block, then copy
	// counter, so consumers can walk copies in block order without
	// re-deriving the ranking from node IDs.
	Copies []string `json:"copies,omitempty" bson:"copies,omitempty"`

	Exhausted  bool `json:"exhausted,omitempty" bson:"exhausted,omitempty"`
	NodesAdded int  `json:"nodes_added,omitempty" bson:"nodes_added,omitempty"`
	EdgesAdded int  `json:"edges_added,omitempty" bson:"edges_added,omitempty"`
}

// BlockDocument is the serialized geometry of one block.
type BlockDocument struct {
	ID          string `json:"id" bson:"id"`
	OrderIndex  int    `json:"order_index" bson:"order_index"`
	EventRootID string `json:"event_root_id,omitempty" bson:"event_root_id,omitempty"`
	EventTitle  string `json:"event_title,omitempty" bson:"event_title,omitempty"`
	Color       int    `json:"color" bson:"color"`

	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`

	FlowNodes []string              `json:"flow_nodes" bson:"flow_nodes"`
	DataNodes []string              `json:"data_nodes,omitempty" bson:"data_nodes,omitempty"`
	LocalPos  map[string]layout.Pos `json:"local_pos,omitempty" bson:"local_pos,omitempty"`
}

// FromResult converts a layout result and the graph it was computed on into
// a document.
func FromResult(g *graph.Graph, res *layout.Result) LayoutDocument {
	doc := LayoutDocument{
		Graph:      graph.FromGraph(g),
		Positions:  res.Positions,
		Blocks:     make([]BlockDocument, len(res.Blocks)),
		Roots:      res.Roots,
		Exhausted:  res.Exhausted,
		NodesAdded: res.NodesAdded,
		EdgesAdded: res.EdgesAdded,
	}
	for _, n := range layout.CopiesByRank(g) {
		doc.Copies = append(doc.Copies, n.ID)
	}
	for i, b := range res.Blocks {
		doc.Blocks[i] = BlockDocument{
			ID:          b.ID,
			OrderIndex:  b.OrderIndex,
			EventRootID: b.EventRootID,
			EventTitle:  b.EventTitle,
			Color:       b.Color,
			X:           b.X,
			Y:           b.Y,
			Width:       b.Width,
			Height:      b.Height,
			FlowNodes:   b.FlowNodes,
			DataNodes:   b.DataNodes,
			LocalPos:    b.LocalPos,
		}
	}
	return doc
}

// ToResult reconstructs a live graph and layout result from the document.
// This is the inverse of [FromResult]; a layout loaded from cache or disk
// can be rendered exactly like a freshly computed one.
func (d LayoutDocument) ToResult() (*graph.Graph, *layout.Result, error) {
	g, err := graph.ToGraph(d.Graph)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild graph: %w", err)
	}
	res := &layout.Result{
		Positions:  d.Positions,
		Blocks:     make([]*layout.Block, len(d.Blocks)),
		Roots:      d.Roots,
		Exhausted:  d.Exhausted,
		NodesAdded: d.NodesAdded,
		EdgesAdded: d.EdgesAdded,
	}
	for i, b := range d.Blocks {
		res.Blocks[i] = &layout.Block{
			ID:          b.ID,
			OrderIndex:  b.OrderIndex,
			EventRootID: b.EventRootID,
			EventTitle:  b.EventTitle,
			Color:       b.Color,
			X:           b.X,
			Y:           b.Y,
			Width:       b.Width,
			Height:      b.Height,
			FlowNodes:   b.FlowNodes,
			DataNodes:   b.DataNodes,
			LocalPos:    b.LocalPos,
		}
	}
	return g, res, nil
}

// MarshalLayout serializes a LayoutDocument to JSON bytes.
func MarshalLayout(doc LayoutDocument) ([]byte, error) {
	return json.Marshal(doc)
}

// WriteLayout encodes a layout document as indented JSON and writes it to w.
// The output can be re-imported with [ReadLayout].
func WriteLayout(doc LayoutDocument, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportLayout writes a layout document to a JSON file at path.
// This is a convenience wrapper around [WriteLayout] for file-based output.
func ExportLayout(doc LayoutDocument, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteLayout(doc, f)
}

// WriteGraph encodes a graph as indented JSON and writes it to w.
// The output can be re-imported with [ReadGraph].
func WriteGraph(g *graph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(graph.FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportGraph writes a graph to a JSON file at path.
func ExportGraph(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}
