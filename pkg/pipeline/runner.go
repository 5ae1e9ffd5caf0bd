package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mkuhlmann/flowlayout/pkg/cache"
	"github.com/mkuhlmann/flowlayout/pkg/graph"
	flowio "github.com/mkuhlmann/flowlayout/pkg/io"
	"github.com/mkuhlmann/flowlayout/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete layout → export pipeline with caching.
// The input graph is not modified; layout works on a clone.
func (r *Runner) Execute(ctx context.Context, g *graph.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		GraphHash: GraphHash(g),
		Artifacts: make(map[string][]byte),
	}
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()

	// Stage 1: Layout
	layoutStart := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, g.NodeCount())
	doc, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, g, result.GraphHash, opts)
	result.Stats.LayoutTime = time.Since(layoutStart)
	observability.Pipeline().OnLayoutComplete(ctx, len(doc.Blocks), result.Stats.LayoutTime, err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = doc
	result.Stats.BlockCount = len(doc.Blocks)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"blocks", len(doc.Blocks),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Export
	exportStart := time.Now()
	observability.Pipeline().OnExportStart(ctx, opts.Formats)
	artifacts, exportHit, err := r.ExportWithCacheInfo(ctx, doc, opts)
	result.Stats.ExportTime = time.Since(exportStart)
	observability.Pipeline().OnExportComplete(ctx, opts.Formats, result.Stats.ExportTime, err)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"cached", exportHit,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// GraphHash computes the content hash of a graph's canonical document form.
// Identical graph content always hashes identically, independent of node
// insertion order.
func GraphHash(g *graph.Graph) string {
	data, err := graph.MarshalDocument(graph.FromGraph(g))
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// Load reads a graph from a file with pipeline instrumentation.
func (r *Runner) Load(ctx context.Context, path string) (*graph.Graph, error) {
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, path)

	g, err := flowio.ImportGraph(path)
	var nodes, edges int
	if g != nil {
		nodes, edges = g.NodeCount(), g.EdgeCount()
	}
	observability.Pipeline().OnLoadComplete(ctx, path, nodes, edges, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Debug("loaded graph", "path", path, "nodes", nodes, "edges", edges)
	return g, nil
}

// ComputeLayoutWithCacheInfo computes a layout with caching and returns
// cache hit info. graphHash keys the cache entry; pass the value from
// [GraphHash].
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, g *graph.Graph, graphHash string, opts Options) (flowio.LayoutDocument, bool, error) {
	r.applyLogger(&opts)
	cacheKey := r.Keyer.LayoutKey(graphHash, opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if doc, err := flowio.UnmarshalLayout(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return doc, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	doc, err := computeLayout(g, opts)
	if err != nil {
		return flowio.LayoutDocument{}, false, err
	}

	// Cache the result
	if data, err := flowio.MarshalLayout(doc); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout) == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}

	return doc, false, nil
}

// ComputeLayout is a convenience wrapper that hashes the graph itself and
// discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, g *graph.Graph, opts Options) (flowio.LayoutDocument, error) {
	doc, _, err := r.ComputeLayoutWithCacheInfo(ctx, g, GraphHash(g), opts)
	return doc, err
}

// ExportWithCacheInfo renders artifacts with caching and returns cache hit info.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, doc flowio.LayoutDocument, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key from layout data
	layoutData, err := flowio.MarshalLayout(doc)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ExportKey(layoutHash, opts.ExportKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "export")
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "export")
	}

	// Render all formats
	rendered, err := renderArtifacts(doc, opts)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ExportKey(layoutHash, opts.ExportKeyOpts(format))
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLExport) == nil {
			observability.Cache().OnCacheSet(ctx, "export", len(data))
		}
	}

	return rendered, false, nil
}

// Export is a convenience wrapper that calls ExportWithCacheInfo and discards the cache hit info.
func (r *Runner) Export(ctx context.Context, doc flowio.LayoutDocument, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.ExportWithCacheInfo(ctx, doc, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
