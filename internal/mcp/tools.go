package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/swarmlog/internal/event"
	"github.com/louisbranch/swarmlog/internal/swarm"
)

// AgentRegisterInput represents the MCP tool input for registering an agent.
type AgentRegisterInput struct {
	ID        string   `json:"id" jsonschema:"unique agent identifier"`
	Task      string   `json:"task" jsonschema:"what the agent is working on"`
	Interests []string `json:"interests,omitempty" jsonschema:"topics the agent wants surfaced"`
}

// AgentRegisterResult represents the MCP tool output for registering an agent.
type AgentRegisterResult struct {
	Seq uint64 `json:"seq" jsonschema:"sequence number of the durable registration event"`
}

// FindingAddInput represents the MCP tool input for reporting a finding.
type FindingAddInput struct {
	AgentID string   `json:"agent_id" jsonschema:"identifier of the reporting agent"`
	Type    string   `json:"type" jsonschema:"finding category, e.g. discovery or blocker"`
	Content string   `json:"content" jsonschema:"the finding itself"`
	Tags    []string `json:"tags,omitempty" jsonschema:"free-form labels"`
}

// FindingAddResult represents the MCP tool output for reporting a finding.
type FindingAddResult struct {
	Seq uint64 `json:"seq" jsonschema:"sequence number of the durable finding event"`
}

// EventAppendInput represents the MCP tool input for appending a raw event.
type EventAppendInput struct {
	Type    string          `json:"type" jsonschema:"event type, e.g. domain.action"`
	Payload json.RawMessage `json:"payload,omitempty" jsonschema:"JSON object payload; defaults to empty object"`
}

// EventAppendResult represents the MCP tool output for appending a raw event.
type EventAppendResult struct {
	Seq uint64 `json:"seq" jsonschema:"sequence number of the durable event"`
}

// AgentRegisterTool defines the MCP tool schema for agent registration.
func AgentRegisterTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "agent_register",
		Description: "Register an agent in the shared coordination log, announcing its task and interests",
	}
}

// FindingAddTool defines the MCP tool schema for reporting findings.
func FindingAddTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "finding_add",
		Description: "Report a finding into the shared coordination log for other agents to pick up",
	}
}

// EventAppendTool defines the MCP tool schema for appending arbitrary events.
func EventAppendTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "event_append",
		Description: "Append a custom event to the coordination log; unknown types are preserved verbatim",
	}
}

// AgentRegisterHandler executes an agent registration request.
func AgentRegisterHandler(coord *swarm.Coordinator) mcp.ToolHandlerFor[AgentRegisterInput, AgentRegisterResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AgentRegisterInput) (*mcp.CallToolResult, AgentRegisterResult, error) {
		if coord == nil {
			return nil, AgentRegisterResult{}, fmt.Errorf("coordinator is not configured")
		}
		if strings.TrimSpace(input.ID) == "" {
			return nil, AgentRegisterResult{}, fmt.Errorf("agent id is required")
		}
		seq, err := coord.RegisterAgent(ctx, event.AgentRegisteredPayload{
			ID:        input.ID,
			Task:      input.Task,
			Interests: input.Interests,
		})
		if err != nil {
			return nil, AgentRegisterResult{}, fmt.Errorf("register agent: %w", err)
		}
		return nil, AgentRegisterResult{Seq: seq}, nil
	}
}

// FindingAddHandler executes a finding report request.
func FindingAddHandler(coord *swarm.Coordinator) mcp.ToolHandlerFor[FindingAddInput, FindingAddResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FindingAddInput) (*mcp.CallToolResult, FindingAddResult, error) {
		if coord == nil {
			return nil, FindingAddResult{}, fmt.Errorf("coordinator is not configured")
		}
		if strings.TrimSpace(input.AgentID) == "" {
			return nil, FindingAddResult{}, fmt.Errorf("agent id is required")
		}
		if strings.TrimSpace(input.Content) == "" {
			return nil, FindingAddResult{}, fmt.Errorf("finding content is required")
		}
		seq, err := coord.AddFinding(ctx, event.FindingAddedPayload{
			AgentID:     input.AgentID,
			FindingType: input.Type,
			Content:     input.Content,
			Tags:        input.Tags,
		})
		if err != nil {
			return nil, FindingAddResult{}, fmt.Errorf("add finding: %w", err)
		}
		return nil, FindingAddResult{Seq: seq}, nil
	}
}

// EventAppendHandler executes a raw event append request.
func EventAppendHandler(coord *swarm.Coordinator) mcp.ToolHandlerFor[EventAppendInput, EventAppendResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventAppendInput) (*mcp.CallToolResult, EventAppendResult, error) {
		if coord == nil {
			return nil, EventAppendResult{}, fmt.Errorf("coordinator is not configured")
		}
		seq, err := coord.Append(ctx, event.Type(input.Type), input.Payload)
		if err != nil {
			return nil, EventAppendResult{}, fmt.Errorf("append event: %w", err)
		}
		return nil, EventAppendResult{Seq: seq}, nil
	}
}
