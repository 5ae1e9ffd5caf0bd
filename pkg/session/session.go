// Package session records layout runs for later retrieval.
//
// Every layout computed through the pipeline can be saved as a Run: the
// content hash of the input graph, the resulting layout document, and
// summary statistics. Runs let the server answer "show me the layout I
// computed yesterday" without recomputing, and let the CLI keep a local
// history.
//
// Two backends implement the Store interface:
//   - file: JSON files under the user config directory, for CLI usage
//   - mongo: MongoDB collection, for server deployments
//
// # Usage
//
//	store, err := session.NewFileStore("")  // ~/.config/flowlayout/runs/
//	run := session.NewRun(graphHash, doc)
//	store.Save(ctx, run)
//
//	// Later
//	run, err := store.Get(ctx, runID)
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mkuhlmann/flowlayout/pkg/io"
)

// Sentinel errors for run storage.
var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a run exists but has passed its retention.
	ErrExpired = errors.New("expired")
)

// DefaultRetention is how long saved runs are kept before Cleanup removes
// them.
const DefaultRetention = 30 * 24 * time.Hour

// Run is one recorded layout computation.
type Run struct {
	ID        string `json:"id" bson:"_id"`
	GraphHash string `json:"graph_hash" bson:"graph_hash"`

	// Layout is the full result document, including the laid-out graph.
	Layout io.LayoutDocument `json:"layout" bson:"layout"`

	NodeCount  int  `json:"node_count" bson:"node_count"`
	EdgeCount  int  `json:"edge_count" bson:"edge_count"`
	BlockCount int  `json:"block_count" bson:"block_count"`
	Exhausted  bool `json:"exhausted,omitempty" bson:"exhausted,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// IsExpired returns true if the run has passed its retention window.
func (r *Run) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Store is the interface for run storage backends.
type Store interface {
	// Get retrieves a run by ID.
	// Returns nil, nil if the run doesn't exist.
	// Returns nil, ErrExpired if the run exists but has expired.
	Get(ctx context.Context, runID string) (*Run, error)

	// Save stores a run.
	Save(ctx context.Context, run *Run) error

	// Delete removes a run.
	Delete(ctx context.Context, runID string) error

	// List returns the most recent runs, newest first, up to limit.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Cleanup removes expired runs.
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// NewRun creates a run record for a computed layout with the default
// retention.
func NewRun(graphHash string, doc io.LayoutDocument) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:         uuid.NewString(),
		GraphHash:  graphHash,
		Layout:     doc,
		NodeCount:  len(doc.Graph.Nodes),
		EdgeCount:  len(doc.Graph.Edges),
		BlockCount: len(doc.Blocks),
		Exhausted:  doc.Exhausted,
		CreatedAt:  now,
		ExpiresAt:  now.Add(DefaultRetention),
	}
}
