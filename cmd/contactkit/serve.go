package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/optimode/contactkit"
	"github.com/optimode/contactkit/internal/config"
	"github.com/optimode/contactkit/internal/httpapi"
	"github.com/optimode/contactkit/internal/store"
)

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts, cleanup, err := verifierOptions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	v, err := contactkit.New(cfg.Verification(), append(opts, contactkit.WithMetrics(reg))...)
	if err != nil {
		return err
	}
	defer func() { _ = v.Close() }()

	var runs httpapi.RunStore
	if cfg.DatabaseURL != "" {
		s, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer s.Close()
		runs = s
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(httpapi.New(v, runs, logger), reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "listening", "addr", cfg.HTTPAddr, "level", cfg.Level)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
