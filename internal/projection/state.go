package projection

import (
	"time"

	"github.com/louisbranch/swarmlog/internal/event"
)

// AgentStatusActive is the default status assigned on registration.
const AgentStatusActive = "active"

// Agent is the derived registration record for one coordinating process.
//
// Re-registration with the same id refreshes Task, Interests and Status;
// RegisteredAt keeps the first registration time.
type Agent struct {
	ID           string    `json:"id"`
	Task         string    `json:"task"`
	Interests    []string  `json:"interests,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	Status       string    `json:"status"`
}

// Finding is a derived observation record, append-only and ordered by
// sequence.
type Finding struct {
	AgentID string   `json:"agent_id"`
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	Seq     uint64   `json:"seq"`
}

// State is the materialized view of the coordination session.
type State struct {
	Agents   map[string]Agent `json:"agents"`
	Findings []Finding        `json:"findings,omitempty"`
	// Unrecognized preserves events with unknown types for forward
	// compatibility instead of failing the fold.
	Unrecognized []event.Event `json:"unrecognized,omitempty"`
}

// NewState returns an empty materialized state.
func NewState() State {
	return State{Agents: make(map[string]Agent)}
}

// Stats summarizes the event stream, computed in the same pass as the fold.
type Stats struct {
	TotalEvents    int            `json:"total_events"`
	EventsByType   map[string]int `json:"events_by_type"`
	DistinctAgents int            `json:"distinct_agents"`
	// SequenceGaps counts breaks in the contiguous sequence order: either a
	// repaired corruption or external tampering. Non-fatal; replay continues
	// in observed order.
	SequenceGaps int `json:"sequence_gaps"`
	// CorruptLines counts fully-written journal lines that failed to decode.
	CorruptLines int    `json:"corrupt_lines"`
	LastSeq      uint64 `json:"last_seq"`
}

// NewStats returns zeroed stats with an initialized per-type map.
func NewStats() Stats {
	return Stats{EventsByType: make(map[string]int)}
}

// Snapshot is the checkpoint payload: a projection plus its stats at a known
// sequence, letting future folds replay only the delta.
type Snapshot struct {
	State State `json:"state"`
	Stats Stats `json:"stats"`
}
