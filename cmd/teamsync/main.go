// Package main is the entry point of teamsync, a terminal client that shares
// which file each teammate is working on.
//
// main stays minimal:
//  1. Parse flags and load configuration (flags > env > .env > file > defaults)
//  2. Create the logger
//  3. Build the app and run it until the user quits or a signal arrives
//
// Logs go to stderr so they never interleave with the tree and notices on
// stdout. Redirect stderr (2>teamsync.log) for a clean terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/sakif/teamsync/internal/app"
	"github.com/sakif/teamsync/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "teamsync:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// === 1. CONFIGURATION ===
	fs := config.Flags()
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// === 2. LOGGING ===
	// slog.Level understands "debug", "info", "warn" and "error".
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// === 3. BUILD AND RUN ===
	a, err := app.New(cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		return fmt.Errorf("starting teamsync: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
		}
	}()

	logger.Info("teamsync started",
		slog.String("workspace", cfg.Workspace),
		slog.String("database", cfg.Database.Path),
		slog.Bool("redis", cfg.Redis.Enabled()),
		slog.Int("panelPort", cfg.Panel.Port),
	)
	fmt.Println("teamsync: type help for commands")

	// Run blocks until quit, end of input, Ctrl+C or SIGTERM.
	return a.Run(context.Background())
}
