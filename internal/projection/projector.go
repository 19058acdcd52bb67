package projection

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/swarmlog/internal/event"
	"github.com/louisbranch/swarmlog/internal/store"
)

// DefaultStaleEvents is the checkpoint lag above which a checkpoint is
// ignored and the fold restarts from sequence zero.
const DefaultStaleEvents = 1000

var (
	// ErrEventSourceRequired indicates a missing event source.
	ErrEventSourceRequired = errors.New("event source is required")
	// ErrCheckpointNotFound indicates no checkpoint exists yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// EventSource streams durable events for the fold. *store.Store satisfies it.
type EventSource interface {
	ScanEvents(ctx context.Context, fromSeq uint64, fn func(event.Event) error) (store.ScanInfo, error)
	NextSeq(ctx context.Context) (uint64, error)
}

// CheckpointStore loads and saves projection checkpoints for one session.
type CheckpointStore interface {
	Get(ctx context.Context) (Checkpoint, error)
	Save(ctx context.Context, cp Checkpoint) error
}

// Checkpoint is a cached projection at a known sequence.
type Checkpoint struct {
	LastSeq   uint64
	Snapshot  []byte
	UpdatedAt time.Time
}

// Projector folds ordered events into materialized state.
type Projector struct {
	source      EventSource
	checkpoints CheckpointStore
	applier     *Applier
	tracer      trace.Tracer
	staleEvents int
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithCheckpoints enables checkpointed folds.
func WithCheckpoints(checkpoints CheckpointStore) ProjectorOption {
	return func(p *Projector) { p.checkpoints = checkpoints }
}

// WithApplier replaces the default reducer set.
func WithApplier(applier *Applier) ProjectorOption {
	return func(p *Projector) {
		if applier != nil {
			p.applier = applier
		}
	}
}

// WithStaleEvents sets the checkpoint lag threshold in events.
func WithStaleEvents(staleEvents int) ProjectorOption {
	return func(p *Projector) {
		if staleEvents > 0 {
			p.staleEvents = staleEvents
		}
	}
}

// NewProjector creates a projector over an event source.
func NewProjector(source EventSource, opts ...ProjectorOption) *Projector {
	p := &Projector{
		source:      source,
		applier:     NewApplier(),
		tracer:      otel.Tracer("swarmlog/projection"),
		staleEvents: DefaultStaleEvents,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Result carries one fold's output.
type Result struct {
	State State
	Stats Stats
	// Applied is the number of events folded in this call (excludes events
	// already covered by the checkpoint).
	Applied int
}

// Project folds all durable events into state and stats.
//
// When a checkpoint store is configured and holds a snapshot that is not
// stale beyond the event-count threshold, the fold starts from the snapshot
// and replays only the delta; otherwise it starts from sequence zero. Either
// way the journal stays the single source of truth: a missing, unreadable or
// stale checkpoint only costs a longer replay.
func (p *Projector) Project(ctx context.Context) (Result, error) {
	if p == nil || p.source == nil {
		return Result{}, ErrEventSourceRequired
	}

	ctx, span := p.tracer.Start(ctx, "projection.Project")
	defer span.End()

	state := NewState()
	stats := NewStats()
	fromSeq := uint64(0)

	if p.checkpoints != nil {
		cp, err := p.checkpoints.Get(ctx)
		switch {
		case errors.Is(err, ErrCheckpointNotFound):
			// Full replay.
		case err != nil:
			return Result{}, err
		default:
			if snap, ok := p.usableSnapshot(ctx, cp); ok {
				state = snap.State
				stats = snap.Stats
				fromSeq = cp.LastSeq + 1
			}
		}
	}
	if state.Agents == nil {
		state.Agents = make(map[string]Agent)
	}
	if stats.EventsByType == nil {
		stats.EventsByType = make(map[string]int)
	}

	result := Result{}
	expected := fromSeq
	info, err := p.source.ScanEvents(ctx, fromSeq, func(evt event.Event) error {
		if evt.Seq != expected {
			stats.SequenceGaps++
		}
		expected = evt.Seq + 1
		stats.TotalEvents++
		stats.EventsByType[string(evt.Type)]++
		stats.LastSeq = evt.Seq
		result.Applied++
		return p.applier.Apply(&state, evt)
	})
	if err != nil {
		return Result{}, err
	}
	// ScanEvents counts corrupt lines over the whole file regardless of
	// fromSeq, so the scan's count replaces any carried by the snapshot.
	stats.CorruptLines = info.CorruptLines
	stats.DistinctAgents = len(state.Agents)

	span.SetAttributes(
		attribute.Int("swarmlog.projection.applied", result.Applied),
		attribute.Int("swarmlog.projection.total_events", stats.TotalEvents),
	)
	result.State = state
	result.Stats = stats
	return result, nil
}

// SaveCheckpoint persists the fold result at its last applied sequence.
// No-op when the projector has no checkpoint store or nothing was folded.
func (p *Projector) SaveCheckpoint(ctx context.Context, result Result) error {
	if p == nil || p.checkpoints == nil {
		return nil
	}
	if result.Stats.TotalEvents == 0 {
		return nil
	}
	encoded, err := json.Marshal(Snapshot{State: result.State, Stats: result.Stats})
	if err != nil {
		return err
	}
	return p.checkpoints.Save(ctx, Checkpoint{
		LastSeq:   result.Stats.LastSeq,
		Snapshot:  encoded,
		UpdatedAt: time.Now().UTC(),
	})
}

// usableSnapshot decodes a checkpoint snapshot and rejects it when the
// journal tail has moved more than the stale threshold past it.
func (p *Projector) usableSnapshot(ctx context.Context, cp Checkpoint) (Snapshot, bool) {
	if len(cp.Snapshot) == 0 {
		return Snapshot{}, false
	}
	next, err := p.source.NextSeq(ctx)
	if err != nil {
		return Snapshot{}, false
	}
	if p.staleEvents > 0 && next > cp.LastSeq+1+uint64(p.staleEvents) {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(cp.Snapshot, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}
