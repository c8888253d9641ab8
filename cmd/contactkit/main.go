// Command contactkit verifies scraped contact records from a JSON file or
// serves the verification HTTP API.
//
//	contactkit verify -in projects.json -out verified.json -level standard
//	contactkit serve
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/optimode/contactkit"
	"github.com/optimode/contactkit/internal/config"
)

const usage = `usage: contactkit <command> [flags]

commands:
  verify   verify records from a JSON file
  serve    run the HTTP API
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "contactkit:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load(".env.local", ".env")
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg.LogLevel)

	switch args[0] {
	case "verify":
		return runVerify(ctx, cfg, logger, args[1:], stdout)
	case "serve":
		return runServe(ctx, cfg, logger)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	fmt.Fprint(stderr, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

// newLogger returns a slog logger backed by charmbracelet/log.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "contactkit",
	})
	return slog.New(handler)
}

// verifierOptions adds the logger and, when configured, the shared Redis
// URL cache to the options derived from cfg. The returned cleanup closes
// the Redis client.
func verifierOptions(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]contactkit.Option, func(), error) {
	opts := append(cfg.Options(), contactkit.WithLogger(logger))
	if cfg.RedisURL == "" {
		return opts, func() {}, nil
	}

	ropts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse CONTACTKIT_REDIS_URL: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.InfoContext(ctx, "using redis URL cache", "addr", ropts.Addr)
	opts = append(opts, contactkit.WithURLCache(contactkit.NewRedisURLCache(client, cfg.URLCacheTTL, logger)))
	return opts, func() { _ = client.Close() }, nil
}
