package log

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"testing"
)

func parseTestConfig(t *testing.T, args ...string) Config {
	t.Helper()
	fs := flag.NewFlagSet("swarmlog", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SWARMLOG_DIR", "/tmp/env-dir")
	t.Setenv("SWARMLOG_FROM_SEQ", "3")
	t.Setenv("SWARMLOG_CHECKPOINT_EVERY", "7")

	cfg := parseTestConfig(t, "-dir", "/tmp/flag-dir")
	if cfg.Dir != "/tmp/flag-dir" {
		t.Fatalf("expected flag dir, got %q", cfg.Dir)
	}
	if cfg.FromSeq != 3 {
		t.Fatalf("expected env from-seq 3, got %d", cfg.FromSeq)
	}
	if cfg.CheckpointEvery != 7 {
		t.Fatalf("expected env checkpoint cadence 7, got %d", cfg.CheckpointEvery)
	}
	if cfg.SessionID != "default" {
		t.Fatalf("expected default session, got %q", cfg.SessionID)
	}
}

func runTestCommand(t *testing.T, cfg Config, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), cfg, args, &out); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out.String()
}

func TestAppendReadRoundTrip(t *testing.T) {
	cfg := Config{Dir: t.TempDir()}

	out := runTestCommand(t, cfg, "append", "agent.registered", `{"id":"agent-1","task":"Test task"}`)
	var appended struct {
		Seq uint64 `json:"seq"`
	}
	if err := json.Unmarshal([]byte(out), &appended); err != nil {
		t.Fatalf("decode append output: %v", err)
	}
	if appended.Seq != 0 {
		t.Fatalf("expected seq 0, got %d", appended.Seq)
	}

	out = runTestCommand(t, cfg, "read")
	var events []struct {
		Seq  uint64 `json:"seq"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode read output: %v", err)
	}
	if len(events) != 1 || events[0].Type != "agent.registered" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestStateAndStatsCommands(t *testing.T) {
	cfg := Config{Dir: t.TempDir()}
	runTestCommand(t, cfg, "append", "agent.registered", `{"id":"agent-1","task":"Test task"}`)
	runTestCommand(t, cfg, "append", "finding.added", `{"agent_id":"agent-1","finding_type":"discovery","content":"Found something interesting"}`)

	var state struct {
		Agents map[string]struct {
			Task string `json:"task"`
		} `json:"agents"`
		Findings []struct {
			Content string `json:"content"`
		} `json:"findings"`
	}
	if err := json.Unmarshal([]byte(runTestCommand(t, cfg, "state")), &state); err != nil {
		t.Fatalf("decode state output: %v", err)
	}
	if state.Agents["agent-1"].Task != "Test task" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if len(state.Findings) != 1 || state.Findings[0].Content != "Found something interesting" {
		t.Fatalf("unexpected findings: %+v", state.Findings)
	}

	var stats struct {
		TotalEvents int `json:"total_events"`
	}
	if err := json.Unmarshal([]byte(runTestCommand(t, cfg, "stats")), &stats); err != nil {
		t.Fatalf("decode stats output: %v", err)
	}
	if stats.TotalEvents != 2 {
		t.Fatalf("expected 2 events, got %d", stats.TotalEvents)
	}
}

func TestReadEmptySessionYieldsEmptyArray(t *testing.T) {
	cfg := Config{Dir: t.TempDir()}
	out := runTestCommand(t, cfg, "read")
	var events []json.RawMessage
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode read output: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty array, got %s", out)
	}
}

func TestResetStartsFreshLog(t *testing.T) {
	cfg := Config{Dir: t.TempDir()}
	runTestCommand(t, cfg, "append", "agent.registered", `{"id":"agent-1","task":"t"}`)
	runTestCommand(t, cfg, "reset")

	out := runTestCommand(t, cfg, "append", "agent.registered", `{"id":"agent-1","task":"t"}`)
	var appended struct {
		Seq uint64 `json:"seq"`
	}
	if err := json.Unmarshal([]byte(out), &appended); err != nil {
		t.Fatalf("decode append output: %v", err)
	}
	if appended.Seq != 0 {
		t.Fatalf("expected fresh log at seq 0, got %d", appended.Seq)
	}
}

func TestRepairCommandOnCleanLog(t *testing.T) {
	cfg := Config{Dir: t.TempDir()}
	runTestCommand(t, cfg, "append", "agent.registered", `{"id":"agent-1","task":"t"}`)

	var repaired struct {
		DiscardedBytes int64 `json:"discarded_bytes"`
	}
	if err := json.Unmarshal([]byte(runTestCommand(t, cfg, "repair")), &repaired); err != nil {
		t.Fatalf("decode repair output: %v", err)
	}
	if repaired.DiscardedBytes != 0 {
		t.Fatalf("clean log must discard nothing, got %d", repaired.DiscardedBytes)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	cfg := Config{Dir: t.TempDir()}
	var out bytes.Buffer
	if err := run(context.Background(), cfg, nil, &out); err == nil {
		t.Fatal("expected error for missing subcommand")
	}
	if err := run(context.Background(), cfg, []string{"unknown"}, &out); err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if err := run(context.Background(), cfg, []string{"append"}, &out); err == nil {
		t.Fatal("expected error for append without type")
	}
}
