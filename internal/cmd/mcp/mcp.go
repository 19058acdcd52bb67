// Package mcp parses MCP command flags and serves the log over stdio.
package mcp

import (
	"context"
	"flag"

	mcpserver "github.com/louisbranch/swarmlog/internal/mcp"
	platformcmd "github.com/louisbranch/swarmlog/internal/platform/cmd"
	"github.com/louisbranch/swarmlog/internal/session"
	"github.com/louisbranch/swarmlog/internal/swarm"
)

// Config holds MCP command configuration.
type Config struct {
	Dir             string `env:"SWARMLOG_DIR"`
	SessionID       string `env:"SWARMLOG_SESSION"          envDefault:"default"`
	CheckpointEvery int    `env:"SWARMLOG_CHECKPOINT_EVERY" envDefault:"100"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "session directory (default $SWARMLOG_DIR or .swarmlog)")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP stdio server and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
		coord, err := swarm.Open(session.Resolve(cfg.Dir),
			swarm.WithSessionID(cfg.SessionID),
			swarm.WithCheckpointEvery(cfg.CheckpointEvery),
		)
		if err != nil {
			return err
		}
		server, err := mcpserver.NewServer(coord)
		if err != nil {
			_ = coord.Close()
			return err
		}
		return server.Serve(ctx)
	})
}
