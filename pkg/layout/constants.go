package layout

// Default node box dimensions, used whenever no metadata provider supplies a
// better estimate.
const (
	DefaultNodeWidth  = 200.0
	DefaultNodeHeight = 120.0
)

// Default spacing between blocks.
const (
	DefaultBlockXSpacing = 200.0
	DefaultBlockYSpacing = 150.0
)

// Traversal budgets for data-chain enumeration. They bound the work done on
// degenerate fan-in graphs; hitting a budget truncates enumeration and flags
// the result as exhausted instead of failing.
const (
	DefaultMaxChainsPerNode  = 64
	DefaultMaxChainsPerStart = 256
	DefaultMaxChainsPerBlock = 800
)

// Node box geometry used by the structural height estimate. One row per
// port, plus a header row.
const (
	uiRowHeight   = 28.0
	uiNodePadding = 10.0
	uiHeaderExtra = 6.0
)

// In-block vertical gaps between flow baseline, data columns, and stacked
// data nodes, and the horizontal slot width multiplier converting a column
// index into pixels.
const (
	slotWidthMultiplier = 1.5
	flowToDataGap       = 60.0
	dataStackGap        = 30.0
	inputPortToDataGap  = 40.0
	defaultBlockPadding = 40.0
)

// orderMaxFallback is the sentinel ordinal for missing ports, block indexes,
// and copy counters. Anything real sorts before it.
const orderMaxFallback = 1 << 20
