// Package log parses CLI flags and runs the coordination log subcommands.
package log

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/louisbranch/swarmlog/internal/event"
	platformcmd "github.com/louisbranch/swarmlog/internal/platform/cmd"
	"github.com/louisbranch/swarmlog/internal/session"
	"github.com/louisbranch/swarmlog/internal/swarm"
)

// Config holds CLI configuration.
type Config struct {
	Dir             string `env:"SWARMLOG_DIR"`
	SessionID       string `env:"SWARMLOG_SESSION"          envDefault:"default"`
	FromSeq         uint64 `env:"SWARMLOG_FROM_SEQ"         envDefault:"0"`
	CheckpointEvery int    `env:"SWARMLOG_CHECKPOINT_EVERY" envDefault:"100"`
}

// ParseConfig parses environment and flags into a Config. Remaining
// positional arguments select the subcommand.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Session id and checkpoint cadence stay env-only; the command line is
	// just the directory override and the read cursor.
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "session directory (default $SWARMLOG_DIR or .swarmlog)")
	fs.Uint64Var(&cfg.FromSeq, "from-seq", cfg.FromSeq, "first sequence to read")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one subcommand, writing its JSON result to stdout.
func Run(ctx context.Context, cfg Config, args []string) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceLog, func(ctx context.Context) error {
		return run(ctx, cfg, args, os.Stdout)
	})
}

func run(ctx context.Context, cfg Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("a subcommand is required: append, read, state, stats, repair or reset")
	}
	dir := session.Resolve(cfg.Dir)
	command, rest := args[0], args[1:]

	switch command {
	case "reset":
		// Reset never opens the log; a corrupt session must still be resettable.
		if err := session.Reset(dir); err != nil {
			return err
		}
		return writeJSON(stdout, map[string]string{"reset": dir})
	case "append", "read", "state", "stats", "repair":
	default:
		return fmt.Errorf("unknown subcommand %q", command)
	}

	coord, err := swarm.Open(dir,
		swarm.WithSessionID(cfg.SessionID),
		swarm.WithCheckpointEvery(cfg.CheckpointEvery),
	)
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	switch command {
	case "append":
		return runAppend(ctx, coord, rest, stdout)
	case "read":
		events, err := coord.Events(ctx, cfg.FromSeq)
		if err != nil {
			return err
		}
		if events == nil {
			events = []event.Event{}
		}
		return writeJSON(stdout, events)
	case "state":
		result, err := coord.Project(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, result.State)
	case "stats":
		result, err := coord.Project(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, result.Stats)
	case "repair":
		discarded, err := coord.Store().RepairTail(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]int64{"discarded_bytes": discarded})
	}
	return nil
}

func runAppend(ctx context.Context, coord *swarm.Coordinator, args []string, stdout io.Writer) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("append requires an event type")
	}
	var payload json.RawMessage
	if len(args) > 1 {
		payload = json.RawMessage(args[1])
	}
	seq, err := coord.Append(ctx, event.Type(args[0]), payload)
	if err != nil {
		return err
	}
	return writeJSON(stdout, map[string]uint64{"seq": seq})
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
