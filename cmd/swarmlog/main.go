package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	logcmd "github.com/louisbranch/swarmlog/internal/cmd/log"
)

// main runs one coordination log subcommand.
func main() {
	log.SetPrefix("[SWARMLOG] ")

	fs := flag.NewFlagSet("swarmlog", flag.ExitOnError)
	cfg, err := logcmd.ParseConfig(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logcmd.Run(ctx, cfg, fs.Args()); err != nil {
		log.Fatalf("%v", err)
	}
}
