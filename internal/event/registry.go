package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = errors.New("event type is required")
	// ErrPayloadInvalid indicates a payload that is not a JSON object.
	ErrPayloadInvalid = errors.New("event payload must be a JSON object")
	// ErrTypeAlreadyRegistered indicates a duplicate type registration.
	ErrTypeAlreadyRegistered = errors.New("event type already registered")
)

// PayloadFactory creates an empty typed payload value for decoding.
type PayloadFactory func() any

// Registry maps known event types to strongly typed payload shapes.
//
// Unknown types are not an error: DecodePayload falls back to a generic
// map so forward-compatible event types survive replay untouched.
type Registry struct {
	mu        sync.RWMutex
	factories map[Type]PayloadFactory
}

// NewRegistry creates an empty event type registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Type]PayloadFactory)}
}

// DefaultRegistry returns a registry with the core coordination types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(TypeAgentRegistered, func() any { return &AgentRegisteredPayload{} })
	_ = r.Register(TypeFindingAdded, func() any { return &FindingAddedPayload{} })
	return r
}

// Register adds a payload factory for an event type.
func (r *Registry) Register(t Type, factory PayloadFactory) error {
	if r == nil {
		return errors.New("registry is required")
	}
	if !t.IsValid() {
		return ErrTypeRequired
	}
	if factory == nil {
		return errors.New("payload factory is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[Type]PayloadFactory)
	}
	if _, exists := r.factories[t]; exists {
		return fmt.Errorf("%w: %s", ErrTypeAlreadyRegistered, t)
	}
	r.factories[t] = factory
	return nil
}

// Known reports whether the event type has a registered payload shape.
func (r *Registry) Known(t Type) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[t]
	return ok
}

// ValidateForAppend checks type and payload before the store assigns a
// sequence number. A nil payload normalizes to an empty object.
func (r *Registry) ValidateForAppend(t Type, payload json.RawMessage) (json.RawMessage, error) {
	if !t.IsValid() {
		return nil, ErrTypeRequired
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		trimmed = json.RawMessage(`{}`)
	}
	if trimmed[0] != '{' {
		return nil, ErrPayloadInvalid
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if r.Known(t) {
		r.mu.RLock()
		factory := r.factories[t]
		r.mu.RUnlock()
		target := factory()
		if err := json.Unmarshal(trimmed, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return trimmed, nil
}

// DecodePayload decodes an event payload into its registered shape.
//
// Unknown event types decode into map[string]any so replay can preserve
// them without a hard failure.
func (r *Registry) DecodePayload(evt Event) (any, error) {
	if !evt.Type.IsValid() {
		return nil, ErrTypeRequired
	}
	var factory PayloadFactory
	if r != nil {
		r.mu.RLock()
		factory = r.factories[evt.Type]
		r.mu.RUnlock()
	}
	if factory == nil {
		generic := make(map[string]any)
		if len(evt.Payload) > 0 {
			if err := json.Unmarshal(evt.Payload, &generic); err != nil {
				return nil, fmt.Errorf("decode %s payload: %w", evt.Type, err)
			}
		}
		return generic, nil
	}
	target := factory()
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", evt.Type, err)
		}
	}
	return target, nil
}

// Types returns the registered event types, unordered.
func (r *Registry) Types() []Type {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// MarshalPayload encodes a typed payload for appending.
func MarshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage(`{}`), nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(encoded)), "{") {
		return nil, ErrPayloadInvalid
	}
	return encoded, nil
}
