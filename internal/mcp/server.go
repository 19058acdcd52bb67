package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/swarmlog/internal/swarm"
)

const (
	serverName = "swarmlog"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Server wraps an MCP server over one coordination session.
type Server struct {
	coord     *swarm.Coordinator
	mcpServer *mcp.Server
}

// NewServer builds an MCP server exposing the coordination log's tools and
// resources.
func NewServer(coord *swarm.Coordinator) (*Server, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(mcpServer, AgentRegisterTool(), AgentRegisterHandler(coord))
	mcp.AddTool(mcpServer, FindingAddTool(), FindingAddHandler(coord))
	mcp.AddTool(mcpServer, EventAppendTool(), EventAppendHandler(coord))

	mcpServer.AddResource(StateResource(), StateResourceHandler(coord))
	mcpServer.AddResource(StatsResource(), StatsResourceHandler(coord))

	return &Server{coord: coord, mcpServer: mcpServer}, nil
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends. Context cancellation is the normal shutdown path, not an
// error.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.coord.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close coordinator: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close coordinator: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
