package layout

// DebugY explains how one data node's vertical position was decided. It is
// a write-only side channel for external tooling; nothing in the engine
// reads it back.
type DebugY struct {
	BlockID     string `json:"block_id"`
	BlockIndex  int    `json:"block_index"`
	EventRootID string `json:"event_root_id,omitempty"`
	EventTitle  string `json:"event_title,omitempty"`

	FinalY             float64 `json:"final_y"`
	BaseY              float64 `json:"base_y"`
	NodeHeight         float64 `json:"node_height"`
	StrictColumnBottom float64 `json:"strict_column_bottom"`

	FromColumnBottom     float64  `json:"from_column_bottom"`
	FromChainPorts       float64  `json:"from_chain_ports"`
	FromSingleTarget     *float64 `json:"from_single_target,omitempty"`
	FromMultiTargetsMid  *float64 `json:"from_multi_targets_mid,omitempty"`
	ForcedByMultiTargets bool     `json:"forced_by_multi_targets"`

	ChainRawPortY float64          `json:"chain_raw_port_y"`
	ChainPorts    []DebugChainPort `json:"chain_ports,omitempty"`
	Chains        []DebugChain     `json:"chains,omitempty"`

	// Filled in by the relaxation pass when the node has two or more
	// data parents constraining its center.
	MultiParentMinTop *float64 `json:"multi_parent_min_top,omitempty"`
	MultiParentMaxTop *float64 `json:"multi_parent_max_top,omitempty"`
	MultiParentIDs    []string `json:"multi_parent_ids,omitempty"`
}

// DebugChainPort records one resolved consumer input-port geometry used as
// a Y candidate.
type DebugChainPort struct {
	FlowID    string  `json:"flow_id"`
	PortIndex int     `json:"port_index"`
	PortName  string  `json:"port_name"`
	PortY     float64 `json:"port_y"`
}

// DebugChain records one chain membership of a data node.
type DebugChain struct {
	ChainID      int    `json:"chain_id"`
	Position     int    `json:"position"`
	Length       int    `json:"length"`
	TargetFlow   string `json:"target_flow"`
	SourceFlow   string `json:"source_flow,omitempty"`
	FlowOrigin   bool   `json:"flow_origin"`
	ConsumerPort string `json:"consumer_port"`
}
