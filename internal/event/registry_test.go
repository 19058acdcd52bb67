package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateForAppendRejectsEmptyType(t *testing.T) {
	r := DefaultRegistry()
	if _, err := r.ValidateForAppend(Type("  "), nil); !errors.Is(err, ErrTypeRequired) {
		t.Fatalf("expected ErrTypeRequired, got %v", err)
	}
}

func TestValidateForAppendNormalizesNilPayload(t *testing.T) {
	r := DefaultRegistry()
	payload, err := r.ValidateForAppend(TypeAgentRegistered, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if string(payload) != "{}" {
		t.Fatalf("expected empty object, got %s", payload)
	}
}

func TestValidateForAppendRejectsNonObjectPayload(t *testing.T) {
	r := DefaultRegistry()
	if _, err := r.ValidateForAppend(TypeFindingAdded, json.RawMessage(`[1,2]`)); !errors.Is(err, ErrPayloadInvalid) {
		t.Fatalf("expected ErrPayloadInvalid, got %v", err)
	}
	if _, err := r.ValidateForAppend(TypeFindingAdded, json.RawMessage(`{"broken`)); !errors.Is(err, ErrPayloadInvalid) {
		t.Fatalf("expected ErrPayloadInvalid for truncated JSON, got %v", err)
	}
}

func TestDecodePayloadKnownType(t *testing.T) {
	r := DefaultRegistry()
	evt := Event{
		Type:    TypeAgentRegistered,
		Payload: json.RawMessage(`{"id":"agent-1","task":"Test task","interests":["testing"]}`),
	}
	decoded, err := r.DecodePayload(evt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	payload, ok := decoded.(*AgentRegisteredPayload)
	if !ok {
		t.Fatalf("expected *AgentRegisteredPayload, got %T", decoded)
	}
	if payload.ID != "agent-1" || payload.Task != "Test task" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Interests) != 1 || payload.Interests[0] != "testing" {
		t.Fatalf("unexpected interests: %v", payload.Interests)
	}
}

func TestDecodePayloadUnknownTypeFallsBack(t *testing.T) {
	r := DefaultRegistry()
	evt := Event{
		Type:    Type("experiment.started"),
		Payload: json.RawMessage(`{"name":"run-7"}`),
	}
	decoded, err := r.DecodePayload(evt)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	generic, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("expected generic map, got %T", decoded)
	}
	if generic["name"] != "run-7" {
		t.Fatalf("unexpected generic payload: %v", generic)
	}
}

func TestRegisterDuplicateType(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(TypeFindingAdded, func() any { return &FindingAddedPayload{} }); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(TypeFindingAdded, func() any { return &FindingAddedPayload{} })
	if !errors.Is(err, ErrTypeAlreadyRegistered) {
		t.Fatalf("expected ErrTypeAlreadyRegistered, got %v", err)
	}
}

func TestTypeDomain(t *testing.T) {
	cases := []struct {
		t    Type
		want string
	}{
		{TypeAgentRegistered, "agent"},
		{TypeFindingAdded, "finding"},
		{Type("checkpoint"), "checkpoint"},
	}
	for _, tc := range cases {
		if got := tc.t.Domain(); got != tc.want {
			t.Fatalf("Domain(%q) = %q, want %q", tc.t, got, tc.want)
		}
	}
}
