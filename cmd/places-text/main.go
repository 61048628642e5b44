package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/usestring/places-text/internal/config"
	"github.com/usestring/places-text/internal/logging"
	"github.com/usestring/places-text/internal/output"
	"github.com/usestring/places-text/internal/query"
	"github.com/usestring/places-text/internal/runner"
	"github.com/usestring/places-text/pkg/client"
	"github.com/usestring/places-text/pkg/fieldmask"
)

// Exit codes
const (
	exitOK        = 0
	exitAllFailed = 1
	exitConfig    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	loadDotEnv()

	if len(args) > 0 && args[0] == "serve" {
		return serve(args[1:], stderr)
	}

	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitConfig
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitConfig
	}

	var transform *query.Transform
	if opts.jq != "" {
		transform, err = query.Compile(opts.jq)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", argError("jq", "%v", err))
			return exitConfig
		}
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	logCleanup, err := logging.Setup(logConfig(cfg, opts.logLevel))
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to setup logging: %v\n", err)
		return exitConfig
	}
	defer logCleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Debug("starting run",
		slog.Int("queries", len(opts.queries)),
		slog.String("format", string(opts.format)),
		slog.Int("max_pages", opts.maxPages),
		slog.String("out_dir", outDir),
		slog.String("api_key_source", cfg.APIKeySource),
	)

	r := runner.New(newClient(cfg), output.NewWriter(outDir), runner.WithStdout(stdout))
	summary := r.Run(ctx, runner.Options{
		Queries:   opts.queries,
		Format:    opts.format,
		MaxPages:  opts.maxPages,
		Mask:      fieldmask.Parse(opts.fields),
		Request:   opts.request(),
		Dedupe:    opts.dedupe,
		Transform: transform,
		Flatten:   opts.flattenOptions(),
	})

	if summary.AllFailed() {
		return exitAllFailed
	}
	return exitOK
}

// loadDotEnv seeds the environment from ./.env when present.
// Variables already set take precedence.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}
}

func logConfig(cfg *config.Config, levelOverride string) logging.Config {
	lc := logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
		RunID:      logging.NewRunID(),
	}
	if levelOverride != "" {
		lc.Level = levelOverride
	}
	return lc
}

func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.APIKey,
		client.WithBaseURL(cfg.BaseURL),
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPClientTimeout}),
		client.WithPageDelay(cfg.PageDelay),
	)
}
