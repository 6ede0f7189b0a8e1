// Command taskgate runs the task-based access control gateway for agent
// tool calls, and its offline maintenance commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Strob0t/taskgate/internal/config"
	"github.com/Strob0t/taskgate/internal/logger"
)

const version = "0.1.0"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return runServe(ctx, cfg)
	case "demo":
		return runDemo(ctx, cfg, os.Stdout)
	case "promote":
		return runPromote(ctx, cfg, args)
	case "embed":
		return runEmbed(ctx, cfg, args)
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: taskgate <command> [options]

Commands:
  serve              Run the HTTP, WebSocket and MCP server (default)
  demo               Replay the demo scenarios against the built-in policy
  promote [--dry-run]
                     Copy verified prompts into the labeled corpus
  embed [--out PATH] Build the semantic matcher embeddings asset
  help               Show this help message

Configuration is read from taskgate.yaml (or $TASKGATE_CONFIG) and
TASKGATE_* environment variables.
`)
}
