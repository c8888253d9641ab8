// Package retry runs an operation under an explicit exponential backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how often and how fast an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first. Default: 1
	MaxAttempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// Multiplier grows the delay between consecutive attempts. Default: 2
	Multiplier float64
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

// Default returns the mail handshake policy: 3 attempts, 2s then 4s apart.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait before attempt n (n >= 2). It is deterministic;
// no jitter is applied.
func (p Policy) Delay(n int) time.Duration {
	if n < 2 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 2; i < n; i++ {
		d *= p.multiplier()
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) multiplier() float64 {
	if p.Multiplier < 1 {
		return 2
	}
	return p.Multiplier
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = p.multiplier()
	eb.RandomizationFactor = 0
	eb.MaxInterval = p.MaxDelay
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = time.Duration(1<<63 - 1)
	}
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = eb
	if p.BaseDelay <= 0 {
		b = &backoff.ZeroBackOff{}
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.attempts()-1)), ctx)
}

// Permanent wraps err so that Do stops immediately and returns err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a Permanent error, the policy is
// exhausted or ctx is done. attempt starts at 1. The last value and error
// are returned.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	attempt := 0
	var last T
	v, err := backoff.RetryWithData(func() (T, error) {
		attempt++
		v, err := op(ctx, attempt)
		last = v
		return v, err
	}, p.backOff(ctx))
	if err != nil {
		return last, err
	}
	return v, nil
}
