package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/louisbranch/swarmlog/internal/cmd/mcp"
)

// main starts the MCP server on stdio.
func main() {
	log.SetPrefix("[MCP] ")

	fs := flag.NewFlagSet("swarmlog-mcp", flag.ExitOnError)
	cfg, err := mcpcmd.ParseConfig(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
