// Package mcp exposes the coordination log to assistant tooling over the
// Model Context Protocol on standard streams.
//
// Tools cover the write path (agent_register, finding_add, event_append) and
// resources cover the read path (swarm://state, swarm://stats). The server is
// a short-lived subprocess: it holds no state of its own and every answer is
// derived from the journal at call time.
package mcp
