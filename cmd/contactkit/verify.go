package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/optimode/contactkit"
	"github.com/optimode/contactkit/internal/config"
	"github.com/optimode/contactkit/internal/store"
)

func runVerify(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	in := fs.String("in", "", "input JSON file (array or {\"projects\": [...]}); - for stdin")
	out := fs.String("out", "", "output file; default stdout")
	level := fs.String("level", string(cfg.Level), "verification level: quick, standard or full")
	concurrency := fs.Int("concurrency", cfg.Concurrency, "records verified at once")
	filter := fs.Bool("filter", cfg.FilterInvalid, "include the records that pass the filter policy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("verify: -in is required")
	}

	lvl, err := contactkit.ParseLevel(*level)
	if err != nil {
		return err
	}
	cfg.Level, cfg.Concurrency, cfg.FilterInvalid = lvl, *concurrency, *filter
	if err := cfg.Validate(); err != nil {
		return err
	}

	recs, err := readRecords(*in)
	if err != nil {
		return err
	}

	opts, cleanup, err := verifierOptions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	vc := cfg.Verification()
	v, err := contactkit.New(vc, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = v.Close() }()

	start := time.Now()
	step := max(len(recs)/10, 1)
	results := v.VerifyBatch(ctx, recs, contactkit.WithProgress(func(done, total int) {
		if done%step == 0 || done == total {
			logger.InfoContext(ctx, "progress", "done", done, "total", total)
		}
	}))

	report := contactkit.NewReport(vc.Level, results, time.Now())
	if vc.FilterInvalid {
		kept, _ := contactkit.Partition(recs, results, vc.FilterPolicy())
		report.Kept = kept
	}

	if cfg.DatabaseURL != "" {
		s, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.SaveRun(ctx, store.Run{Level: string(vc.Level), StartedAt: start, FinishedAt: report.VerifiedAt}, results)
		if err != nil {
			return err
		}
		report.RunID = id.String()
	}

	if err := writeReport(*out, stdout, report); err != nil {
		return err
	}
	logger.InfoContext(ctx, "verification complete",
		"total", report.Total,
		"valid", report.Valid,
		"partial", report.Partial,
		"invalid", report.Invalid,
		"unknown", report.Unknown,
		"kept", len(report.Kept),
	)
	return nil
}

func readRecords(path string) ([]contactkit.Record, error) {
	if path == "-" {
		return contactkit.DecodeRecords(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return contactkit.DecodeRecords(f)
}

func writeReport(path string, stdout io.Writer, report contactkit.Report) error {
	if path == "" {
		return encodeReport(stdout, report)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeReport(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeReport(w io.Writer, report contactkit.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
