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

// urlVerifier runs format, platform and, when enabled, reachability
// checks. Reachability outcomes are cached by URL.
type urlVerifier struct {
	format   *check.URLFormatChecker
	platform *check.PlatformChecker
	reach    *check.ReachabilityChecker // nil when probing is off
	cache    URLCache
	metrics  *metrics.Metrics
}

func (v *urlVerifier) run(ctx context.Context, c check.URLChecker, u parse.URL) check.URLOutcome {
	start := time.Now()
	out := c.Check(ctx, u)
	v.metrics.ObserveTier("url", strconv.Itoa(c.Tier()), time.Since(start))
	return out
}

func (v *urlVerifier) verify(ctx context.Context, raw, field string) types.URLResult {
	u := parse.NewURL(raw)
	res := types.URLResult{URL: u.Input, Field: field, Type: types.URLOther, Details: types.Details{}}

	apply := func(tier int, out check.URLOutcome) {
		res.Tier = tier
		res.Status, res.Message = out.Status, out.Message
		if out.Type != "" {
			res.Type = out.Type
		}
		for k, val := range out.Details {
			res.Details[k] = val
		}
	}

	out := v.run(ctx, v.format, u)
	apply(check.TierURLFormat, out)
	if out.Status == types.StatusInvalid {
		return res
	}
	formatMsg := out.Message

	out = v.run(ctx, v.platform, u)
	apply(check.TierPlatform, out)
	if out.Status == types.StatusInvalid {
		return res
	}
	if out.Status == types.StatusValid && res.Type == types.URLWebsite {
		res.Message = formatMsg
	}

	if v.reach == nil {
		return res
	}

	if cached, ok := v.cache.Get(ctx, u.Input); ok {
		v.metrics.IncrementCacheLookup(true)
		cached.Field = field
		if cached.Details == nil {
			cached.Details = types.Details{}
		}
		cached.Details[types.DetailCached] = true
		return cached
	}
	v.metrics.IncrementCacheLookup(false)

	out = v.run(ctx, v.reach, u)
	apply(check.TierReachability, out)
	res.HTTPCode, res.FinalURL = out.HTTPCode, out.FinalURL
	// A probe cut short by the caller says nothing about the URL.
	if ctx.Err() == nil {
		v.cache.Set(ctx, u.Input, res)
	}
	return res
}
