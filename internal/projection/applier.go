package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/swarmlog/internal/event"
)

// Reducer folds one event into the state. Reducers must be deterministic:
// same state and event in, same state out, every time, in every process.
type Reducer func(state *State, evt event.Event) error

// Applier routes events to per-type reducers. Events with no registered
// reducer land in the state's Unrecognized side-bucket.
type Applier struct {
	reducers map[event.Type]Reducer
}

// NewApplier returns an applier with the core coordination reducers.
func NewApplier() *Applier {
	a := &Applier{reducers: make(map[event.Type]Reducer)}
	a.reducers[event.TypeAgentRegistered] = applyAgentRegistered
	a.reducers[event.TypeFindingAdded] = applyFindingAdded
	return a
}

// Register adds a reducer for an event type, replacing any existing one.
func (a *Applier) Register(t event.Type, reducer Reducer) error {
	if a == nil {
		return errors.New("applier is required")
	}
	if !t.IsValid() {
		return event.ErrTypeRequired
	}
	if reducer == nil {
		return errors.New("reducer is required")
	}
	a.reducers[t] = reducer
	return nil
}

// Apply folds one event into the state.
func (a *Applier) Apply(state *State, evt event.Event) error {
	if a == nil || state == nil {
		return errors.New("applier and state are required")
	}
	reducer, ok := a.reducers[evt.Type]
	if !ok {
		state.Unrecognized = append(state.Unrecognized, evt)
		return nil
	}
	return reducer(state, evt)
}

func applyAgentRegistered(state *State, evt event.Event) error {
	var payload event.AgentRegisteredPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload at seq %d: %w", evt.Type, evt.Seq, err)
	}
	id := strings.TrimSpace(payload.ID)
	if id == "" {
		// An id-less registration cannot be keyed; dropping it is
		// deterministic, failing the whole fold is not recoverable.
		return nil
	}
	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = AgentStatusActive
	}
	agent, exists := state.Agents[id]
	if !exists {
		agent.ID = id
		agent.RegisteredAt = evt.Timestamp
	}
	agent.Task = payload.Task
	agent.Interests = payload.Interests
	agent.Status = status
	state.Agents[id] = agent
	return nil
}

func applyFindingAdded(state *State, evt event.Event) error {
	var payload event.FindingAddedPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload at seq %d: %w", evt.Type, evt.Seq, err)
	}
	if strings.TrimSpace(payload.AgentID) == "" {
		return nil
	}
	state.Findings = append(state.Findings, Finding{
		AgentID: payload.AgentID,
		Type:    payload.FindingType,
		Content: payload.Content,
		Tags:    payload.Tags,
		Seq:     evt.Seq,
	})
	return nil
}
