package layout

import "github.com/charmbracelet/log"

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger to the engine. The default discards.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetadata installs a node-metadata provider for height estimation and
// variadic-port detection.
func WithMetadata(md Metadata) Option {
	return func(e *Engine) {
		if md != nil {
			e.md = md
		}
	}
}

// WithBudget overrides the chain-enumeration budgets.
func WithBudget(b Budget) Option {
	return func(e *Engine) { e.budget = b.normalized() }
}

// WithRelaxConfig overrides the data-node Y-relaxation tuning.
func WithRelaxConfig(c RelaxConfig) Option {
	return func(e *Engine) { e.relaxCfg = c.normalized() }
}

// WithPositionConfig overrides block-to-block placement: anchors, spacings,
// and tight horizontal packing.
func WithPositionConfig(c PositionConfig) Option {
	return func(e *Engine) { e.posCfg = c.normalized() }
}

// WithBlockPadding sets the margin blocks keep around their nodes.
func WithBlockPadding(padding float64) Option {
	return func(e *Engine) {
		if padding >= 0 {
			e.padding = padding
		}
	}
}

// EnableCrossBlockCopies toggles the copy step that duplicates data nodes
// shared across blocks. Disabling it leaves shared nodes attached to the
// first block that claims them.
func EnableCrossBlockCopies(enabled bool) Option {
	return func(e *Engine) { e.enableCopies = enabled }
}

// EnableYRelaxation toggles the per-block data-node centering pass.
func EnableYRelaxation(enabled bool) Option {
	return func(e *Engine) { e.enableRelax = enabled }
}
