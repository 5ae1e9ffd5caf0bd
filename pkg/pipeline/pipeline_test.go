package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/mkuhlmann/flowlayout/pkg/cache"
	"github.com/mkuhlmann/flowlayout/pkg/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(g.AddNode(&graph.Node{
		ID:       "ev",
		Title:    "On Start",
		Category: graph.CategoryEvent,
		Outputs:  []graph.Port{{Name: "then", Flow: true}},
	}))
	must(g.AddNode(&graph.Node{
		ID:     "f1",
		Inputs: []graph.Port{{Name: "exec", Flow: true}, {Name: "value"}},
	}))
	must(g.AddNode(&graph.Node{
		ID:      "d1",
		Outputs: []graph.Port{{Name: "out"}},
	}))
	must(g.AddEdge(&graph.Edge{From: "ev", FromPort: "then", To: "f1", ToPort: "exec"}))
	must(g.AddEdge(&graph.Edge{From: "d1", FromPort: "out", To: "f1", ToPort: "value"}))
	return g
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options should validate: %v", err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatJSON {
		t.Errorf("default formats = %v, want [json]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("default logger should be set")
	}

	// Idempotent
	opts.Formats = nil
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Formats != nil {
		t.Error("second validation should be a no-op")
	}

	bad := Options{Formats: []string{"bogus"}}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("invalid format should fail validation")
	}
}

func TestLayoutKeyOpts(t *testing.T) {
	opts := Options{NoCopies: true, MaxPerBlock: 100}
	ko := opts.LayoutKeyOpts()
	if ko.Copies {
		t.Error("NoCopies should map to Copies=false")
	}
	if !ko.Relax || !ko.TightSpacing {
		t.Error("relax and tight spacing default to on")
	}
	if ko.MaxPerBlock != 100 {
		t.Errorf("MaxPerBlock = %d, want 100", ko.MaxPerBlock)
	}
}

func TestGraphHash(t *testing.T) {
	h1 := GraphHash(testGraph(t))
	h2 := GraphHash(testGraph(t))
	if h1 == "" || h1 != h2 {
		t.Errorf("identical graphs should hash identically: %q vs %q", h1, h2)
	}

	g := testGraph(t)
	if err := g.AddNode(&graph.Node{ID: "extra"}); err != nil {
		t.Fatal(err)
	}
	if GraphHash(g) == h1 {
		t.Error("different graphs should hash differently")
	}
}

func TestExecute(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	g := testGraph(t)
	opts := Options{Formats: []string{FormatJSON, FormatDOT}}

	res, err := r.Execute(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.GraphHash == "" {
		t.Error("graph hash missing")
	}
	if res.Stats.BlockCount != 1 {
		t.Errorf("block count = %d, want 1", res.Stats.BlockCount)
	}
	if res.CacheInfo.LayoutHit {
		t.Error("first run should not hit the layout cache")
	}
	if len(res.Artifacts[FormatJSON]) == 0 {
		t.Error("json artifact missing")
	}
	if !strings.Contains(string(res.Artifacts[FormatDOT]), "digraph G {") {
		t.Error("dot artifact missing or malformed")
	}
	// The input graph stays untouched even though layout adds positions.
	if n, _ := g.Node("ev"); n.X != 0 || n.Y != 0 {
		t.Error("input graph was mutated by the pipeline")
	}

	// Second run hits both caches.
	res2, err := r.Execute(context.Background(), g, Options{Formats: []string{FormatJSON, FormatDOT}})
	if err != nil {
		t.Fatal(err)
	}
	if !res2.CacheInfo.LayoutHit || !res2.CacheInfo.ExportHit {
		t.Errorf("second run should hit caches: %+v", res2.CacheInfo)
	}
	if len(res2.Layout.Positions) != len(res.Layout.Positions) {
		t.Error("cached layout differs from computed layout")
	}

	// Refresh bypasses the cache.
	res3, err := r.Execute(context.Background(), g, Options{Formats: []string{FormatJSON}, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if res3.CacheInfo.LayoutHit {
		t.Error("refresh run should not report a cache hit")
	}
}

func TestExecuteDifferentOptionsMissCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	g := testGraph(t)
	if _, err := r.Execute(context.Background(), g, Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(context.Background(), g, Options{NoRelax: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.LayoutHit {
		t.Error("changed layout options must not reuse the cached layout")
	}
}

func TestComputeLayout(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	doc, err := r.ComputeLayout(context.Background(), testGraph(t), Options{})
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	for _, id := range []string{"ev", "f1", "d1"} {
		if _, ok := doc.Positions[id]; !ok {
			t.Errorf("no position for %s", id)
		}
	}
	if len(doc.Blocks) != 1 {
		t.Errorf("got %d blocks, want 1", len(doc.Blocks))
	}
}

func TestExportRoundTripsThroughDocument(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	doc, err := r.ComputeLayout(ctx, testGraph(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	artifacts, err := r.Export(ctx, doc, Options{Formats: []string{FormatDOT}})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	dot := string(artifacts[FormatDOT])
	if !strings.Contains(dot, `subgraph "cluster_block_0"`) {
		t.Error("block cluster missing from exported DOT")
	}
}
