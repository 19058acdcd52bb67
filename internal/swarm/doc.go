// Package swarm is the coordination facade the CLI and MCP surfaces share.
//
// A Coordinator binds one session directory's journal, checkpoint sidecar and
// projector into the two verbs the log exposes: append an event, read the
// projected state. Checkpoint cadence lives here so the surfaces never have
// to reason about snapshot freshness themselves.
package swarm
