package event

import (
	"encoding/json"
	"strings"
	"time"
)

// Type identifies the type of a coordination event.
type Type string

// Agent lifecycle events.
const (
	// TypeAgentRegistered records an agent joining the coordination session.
	TypeAgentRegistered Type = "agent.registered"
)

// Finding events.
const (
	// TypeFindingAdded records an observation an agent reports into the log.
	TypeFindingAdded Type = "finding.added"
)

// Event represents an immutable record in the coordination log.
//
// Events are append-only facts. Seq is globally unique and strictly
// increasing across the whole log regardless of which process wrote the
// event; it is assigned by the store on append and equals the record's
// position in file order.
type Event struct {
	// Seq is the event sequence number (starts at 0).
	Seq uint64 `json:"seq"`
	// Type identifies the kind of event.
	Type Type `json:"type"`
	// Payload holds event-specific data as JSON.
	Payload json.RawMessage `json:"payload"`
	// Timestamp is when the event was appended.
	Timestamp time.Time `json:"ts"`
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "agent", "finding").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
