package contactkit

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after each record completes with the number of
// completed records and the batch size. Calls are serialized and done
// increases by one each time.
type ProgressFunc func(done, total int)

type batchSettings struct {
	concurrency int
	progress    ProgressFunc
}

// BatchOption configures VerifyBatch.
type BatchOption func(*batchSettings)

// WithConcurrency bounds the records verified at once. Values below 1
// keep the configured MaxConcurrent.
func WithConcurrency(n int) BatchOption {
	return func(s *batchSettings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) BatchOption {
	return func(s *batchSettings) { s.progress = fn }
}

// VerifyBatch verifies records concurrently and returns one result per
// record in input order. A record that fails unexpectedly yields an
// Unknown result and never aborts the batch.
//
// Records are dispatched grouped by email domain so that MX answers and
// SMTP connections are reused while they are warm.
func (v *Verifier) VerifyBatch(ctx context.Context, records []Record, opts ...BatchOption) []ProjectResult {
	s := batchSettings{concurrency: v.cfg.maxConcurrent()}
	for _, opt := range opts {
		opt(&s)
	}

	results := make([]ProjectResult, len(records))
	if len(records) == 0 {
		return results
	}

	start := time.Now()
	v.logger.InfoContext(ctx, "batch started", "records", len(records), "concurrency", s.concurrency)

	var (
		mu   sync.Mutex
		done int
	)
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, i := range dispatchOrder(records) {
		g.Go(func() error {
			results[i] = v.safeRecord(ctx, records[i], strconv.Itoa(i))
			if s.progress != nil {
				mu.Lock()
				done++
				s.progress(done, len(records))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summarize(results)
	v.logger.InfoContext(ctx, "batch finished",
		"records", sum.Total,
		"valid", sum.Valid,
		"partial", sum.Partial,
		"invalid", sum.Invalid,
		"unknown", sum.Unknown,
		"duration", time.Since(start),
	)
	return results
}

// dispatchOrder returns record indexes sorted by email domain. Records
// without an email keep their relative order at the end.
func dispatchOrder(records []Record) []int {
	order := make([]int, len(records))
	domains := make([]string, len(records))
	for i, r := range records {
		order[i] = i
		if email, ok := r.text(EmailField); ok {
			if at := strings.LastIndexByte(email, '@'); at >= 0 {
				domains[i] = strings.ToLower(email[at+1:])
			}
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := domains[order[a]], domains[order[b]]
		if (da == "") != (db == "") {
			return db == ""
		}
		return da < db
	})
	return order
}
