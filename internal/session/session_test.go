package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/louisbranch/swarmlog/internal/event"
	"github.com/louisbranch/swarmlog/internal/store"
)

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(EnvDir, "")
	if got := Resolve(""); got != DefaultDirName {
		t.Fatalf("expected default dir, got %q", got)
	}

	t.Setenv(EnvDir, "/tmp/env-session")
	if got := Resolve(""); got != "/tmp/env-session" {
		t.Fatalf("expected env dir, got %q", got)
	}
	if got := Resolve("/tmp/override"); got != "/tmp/override" {
		t.Fatalf("override must win over env, got %q", got)
	}
}

func TestResetRemovesSessionFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := store.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	payload, err := event.MarshalPayload(event.AgentRegisteredPayload{ID: "agent-1", Task: "t"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if _, err := s.Append(context.Background(), event.TypeAgentRegistered, payload); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := Reset(dir); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, store.JournalFileName)); !os.IsNotExist(err) {
		t.Fatalf("journal must be removed, stat err: %v", err)
	}

	// Fresh log restarts at sequence zero.
	seq, err := s.Append(context.Background(), event.TypeAgentRegistered, payload)
	if err != nil {
		t.Fatalf("append after reset: %v", err)
	}
	if seq != 0 {
		t.Fatalf("expected seq 0 after reset, got %d", seq)
	}
}

func TestResetMissingSessionIsNoError(t *testing.T) {
	if err := Reset(t.TempDir()); err != nil {
		t.Fatalf("reset of empty session: %v", err)
	}
	if err := Reset("  "); err == nil {
		t.Fatal("expected error for blank directory")
	}
}
