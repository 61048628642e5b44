package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/places-text/internal/cache"
	"github.com/usestring/places-text/internal/config"
	"github.com/usestring/places-text/internal/logging"
	"github.com/usestring/places-text/internal/mcp"
	"github.com/usestring/places-text/internal/mcp/tools"
	"github.com/usestring/places-text/internal/output"
)

// serve runs the MCP server on stdio until interrupted. Stdout carries the
// protocol, so everything else goes to stderr or the log file.
func serve(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("places-text serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("out-dir", "", "Directory for files saved by the search tool (default: $OUTPUT_DIR or data)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitConfig
	}
	if *outDir == "" {
		*outDir = cfg.OutputDir
	}

	logCleanup, err := logging.Setup(logConfig(cfg, *logLevel))
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to setup logging: %v\n", err)
		return exitConfig
	}
	defer logCleanup()

	server, err := newServer(cfg, *outDir)
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		return exitAllFailed
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting places-text MCP server on stdio")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		return exitAllFailed
	}

	slog.Info("server stopped")
	return exitOK
}

func newServer(cfg *config.Config, outDir string) (*mcp.Server, error) {
	results, err := cache.NewResultCache(cfg.ResultCacheMaxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	deps := &tools.Deps{
		Searcher: newClient(cfg),
		Cache:    results,
		Config:   cfg,
		Writer:   output.NewWriter(outDir),
	}
	return mcp.NewServer(deps, mcp.WithBuiltinTools())
}
