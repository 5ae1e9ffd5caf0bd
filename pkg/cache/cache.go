// Package cache provides layout-result caching with pluggable backends.
//
// The layout engine is deterministic: identical graph content plus identical
// engine options always produce identical output. That makes the pair
// (graph hash, options) a sound cache key, and the backends here store the
// serialized layout result under it. Three backends are provided:
//   - file: directory-backed cache for CLI usage
//   - redis: shared cache for server deployments
//   - null: caching disabled
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache TTLs per key type. Layout results are cheap to keep and expensive
// to recompute; rendered artifacts are the opposite.
const (
	TTLLayout = 7 * 24 * time.Hour
	TTLExport = 24 * time.Hour
)

// Cache is the storage interface for serialized layout results.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// LayoutKeyOpts are the engine options that affect layout output and must
// therefore be part of the cache key.
type LayoutKeyOpts struct {
	Copies       bool `json:"copies"`
	Relax        bool `json:"relax"`
	TightSpacing bool `json:"tight_spacing"`

	MaxPerNode  int `json:"max_per_node"`
	MaxPerStart int `json:"max_per_start"`
	MaxPerBlock int `json:"max_per_block"`
}

// ExportKeyOpts distinguish rendered artifacts derived from one layout.
type ExportKeyOpts struct {
	Format   string `json:"format"` // "json", "dot", "svg", "png"
	Detailed bool   `json:"detailed"`
}

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey generates a key for a layout result computed from the graph
	// with the given content hash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ExportKey generates a key for an artifact rendered from a layout.
	ExportKey(layoutHash string, opts ExportKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// LayoutKey generates a key for layout caching.
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ExportKey generates a key for artifact caching.
func (k *DefaultKeyer) ExportKey(layoutHash string, opts ExportKeyOpts) string {
	return hashKey("export", layoutHash, opts)
}

// Config selects and configures a cache backend.
type Config struct {
	// Backend is "file", "redis", or "none".
	Backend string

	// Dir is the cache directory for the file backend.
	Dir string

	// Redis connection settings.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates the cache backend named by the config.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return NewNullCache(), nil
	case "file":
		return NewFileCache(cfg.Dir)
	case "redis":
		return NewRedisCache(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
