package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/swarmlog/internal/swarm"
)

// Resource URIs served by the coordination log.
const (
	StateResourceURI = "swarm://state"
	StatsResourceURI = "swarm://stats"
)

// StateResource describes the projected-state resource.
func StateResource() *mcp.Resource {
	return &mcp.Resource{
		URI:         StateResourceURI,
		Name:        "swarm-state",
		Description: "Current projected coordination state: agents, findings and unrecognized events",
		MIMEType:    "application/json",
	}
}

// StatsResource describes the stream-statistics resource.
func StatsResource() *mcp.Resource {
	return &mcp.Resource{
		URI:         StatsResourceURI,
		Name:        "swarm-stats",
		Description: "Event stream statistics: totals, per-type counts, gaps and corruption counters",
		MIMEType:    "application/json",
	}
}

// StateResourceHandler serves the projected state as JSON.
func StateResourceHandler(coord *swarm.Coordinator) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if coord == nil {
			return nil, fmt.Errorf("coordinator is not configured")
		}
		result, err := coord.Project(ctx)
		if err != nil {
			return nil, fmt.Errorf("project state: %w", err)
		}
		return jsonResource(StateResourceURI, result.State)
	}
}

// StatsResourceHandler serves the stream statistics as JSON.
func StatsResourceHandler(coord *swarm.Coordinator) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if coord == nil {
			return nil, fmt.Errorf("coordinator is not configured")
		}
		result, err := coord.Project(ctx)
		if err != nil {
			return nil, fmt.Errorf("project stats: %w", err)
		}
		return jsonResource(StatsResourceURI, result.Stats)
	}
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
