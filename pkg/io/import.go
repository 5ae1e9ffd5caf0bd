package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

// ReadGraph decodes a JSON graph document from r.
//
// ReadGraph returns an error if:
//   - The JSON is malformed
//   - A node has a duplicate or empty ID
//   - An edge references an unknown node ID or port
//
// Errors are wrapped with context describing which node or edge caused the
// problem. Use errors.Is to check for specific graph errors.
//
// The returned graph is independent of r and can be modified safely after
// ReadGraph returns. ReadGraph does not close r.
func ReadGraph(r io.Reader) (*graph.Graph, error) {
	var doc graph.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return graph.ToGraph(doc)
}

// ImportGraph reads a JSON graph file at path.
//
// ImportGraph opens the file, decodes it using [ReadGraph], and closes the
// file. Errors wrap the underlying cause with the file path for context.
func ImportGraph(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadGraph(f)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return g, nil
}

// ReadLayout decodes a JSON layout document from r.
func ReadLayout(r io.Reader) (LayoutDocument, error) {
	var doc LayoutDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return LayoutDocument{}, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

// UnmarshalLayout deserializes JSON bytes to a LayoutDocument.
func UnmarshalLayout(data []byte) (LayoutDocument, error) {
	var doc LayoutDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return LayoutDocument{}, err
	}
	return doc, nil
}
