package contactkit

import (
	"context"
	"strconv"
	"time"

	"github.com/optimode/contactkit/check"
	"github.com/optimode/contactkit/internal/metrics"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/types"
)

// emailVerifier runs the email tiers in order and stops at the first
// Invalid outcome.
type emailVerifier struct {
	checkers []check.EmailChecker
	metrics  *metrics.Metrics
}

func (v *emailVerifier) verify(ctx context.Context, raw string) types.EmailResult {
	parsed := parse.NewEmail(raw)
	res := types.EmailResult{
		Email:   parsed.Address,
		Type:    types.EmailUnknown,
		Details: types.Details{},
	}

	var mx, disposable, handshake *check.EmailOutcome
	for _, c := range v.checkers {
		start := time.Now()
		out := c.Check(ctx, parsed)
		v.metrics.ObserveTier("email", strconv.Itoa(c.Tier()), time.Since(start))

		res.Tier = c.Tier()
		for k, val := range out.Details {
			res.Details[k] = val
		}
		if out.Type != "" {
			res.Type = out.Type
		}
		if out.Status == types.StatusInvalid {
			res.Status = types.StatusInvalid
			res.Message = out.Message
			return res
		}

		switch c.Tier() {
		case check.TierMX:
			mx = &out
		case check.TierDisposable:
			disposable = &out
		case check.TierHandshake:
			handshake = &out
		}
	}

	res.Status, res.Message = types.StatusValid, "email verified"
	switch {
	case handshake != nil && handshake.Status == types.StatusUnknown:
		res.Status, res.Message = handshake.Status, handshake.Message
	case disposable != nil && disposable.Status == types.StatusRisky:
		res.Status, res.Message = disposable.Status, disposable.Message
	case handshake != nil:
		res.Status, res.Message = handshake.Status, handshake.Message
	case mx != nil && mx.Status == types.StatusUnknown:
		res.Status, res.Message = mx.Status, mx.Message
	}
	return res
}
