package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/louisbranch/swarmlog/internal/checkpoint"
	"github.com/louisbranch/swarmlog/internal/event"
	"github.com/louisbranch/swarmlog/internal/projection"
	"github.com/louisbranch/swarmlog/internal/store"
)

const (
	// DefaultSessionID names the checkpoint row when callers do not scope
	// sessions explicitly.
	DefaultSessionID = "default"
	// DefaultCheckpointEvery is the applied-event count that triggers a
	// checkpoint save after a projection.
	DefaultCheckpointEvery = 100
)

// Coordinator binds a session directory's journal, checkpoint sidecar and
// projector behind the append/read surface.
type Coordinator struct {
	store       *store.Store
	checkpoints *checkpoint.Store
	projector   *projection.Projector

	sessionID       string
	checkpointEvery int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSessionID scopes checkpoints to a named session.
func WithSessionID(id string) Option {
	return func(c *Coordinator) {
		if strings.TrimSpace(id) != "" {
			c.sessionID = id
		}
	}
}

// WithCheckpointEvery sets how many newly applied events warrant a
// checkpoint save. Zero or negative disables automatic checkpoints.
func WithCheckpointEvery(n int) Option {
	return func(c *Coordinator) { c.checkpointEvery = n }
}

// Open prepares a coordinator for the given session directory.
//
// The checkpoint sidecar is a cache: when it cannot be opened the
// coordinator logs the failure and continues with full replays instead of
// failing the session.
func Open(dir string, opts ...Option) (*Coordinator, error) {
	s, err := store.Open(dir)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		store:           s,
		sessionID:       DefaultSessionID,
		checkpointEvery: DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	projectorOpts := []projection.ProjectorOption{}
	checkpoints, err := checkpoint.Open(filepath.Join(dir, checkpoint.SidecarFileName))
	if err != nil {
		log.Printf("swarmlog: checkpoint sidecar unavailable, replaying from zero: %v", err)
	} else {
		c.checkpoints = checkpoints
		projectorOpts = append(projectorOpts, projection.WithCheckpoints(checkpoints.Session(c.sessionID)))
	}
	c.projector = projection.NewProjector(s, projectorOpts...)
	return c, nil
}

// Close releases the checkpoint sidecar handle. The journal itself holds no
// open file descriptors between calls.
func (c *Coordinator) Close() error {
	if c == nil || c.checkpoints == nil {
		return nil
	}
	return c.checkpoints.Close()
}

// Store exposes the underlying event store for read paths that need paging.
func (c *Coordinator) Store() *store.Store {
	if c == nil {
		return nil
	}
	return c.store
}

// Append validates and durably writes one event, returning its sequence.
func (c *Coordinator) Append(ctx context.Context, eventType event.Type, payload json.RawMessage) (uint64, error) {
	if c == nil || c.store == nil {
		return 0, errors.New("coordinator is not configured")
	}
	return c.store.Append(ctx, eventType, payload)
}

// RegisterAgent appends an agent.registered event.
func (c *Coordinator) RegisterAgent(ctx context.Context, payload event.AgentRegisteredPayload) (uint64, error) {
	encoded, err := event.MarshalPayload(payload)
	if err != nil {
		return 0, err
	}
	return c.Append(ctx, event.TypeAgentRegistered, encoded)
}

// AddFinding appends a finding.added event.
func (c *Coordinator) AddFinding(ctx context.Context, payload event.FindingAddedPayload) (uint64, error) {
	encoded, err := event.MarshalPayload(payload)
	if err != nil {
		return 0, err
	}
	return c.Append(ctx, event.TypeFindingAdded, encoded)
}

// Project folds the journal into state and stats, saving a checkpoint when
// enough new events were applied since the last snapshot.
func (c *Coordinator) Project(ctx context.Context) (projection.Result, error) {
	if c == nil || c.projector == nil {
		return projection.Result{}, errors.New("coordinator is not configured")
	}
	result, err := c.projector.Project(ctx)
	if err != nil {
		return projection.Result{}, err
	}
	if c.checkpointEvery > 0 && result.Applied >= c.checkpointEvery {
		if err := c.projector.SaveCheckpoint(ctx, result); err != nil {
			// A failed snapshot only costs a longer replay next time.
			log.Printf("swarmlog: save checkpoint: %v", err)
		}
	}
	return result, nil
}

// Events returns all durable events with sequence >= fromSeq.
func (c *Coordinator) Events(ctx context.Context, fromSeq uint64) ([]event.Event, error) {
	if c == nil || c.store == nil {
		return nil, errors.New("coordinator is not configured")
	}
	return c.store.ReadEvents(ctx, fromSeq)
}
