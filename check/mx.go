package check

import (
	"context"
	"fmt"

	"github.com/optimode/contactkit/internal/dnscache"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/types"
)

// maxReportedHosts is how many MX hosts are listed in the details.
const maxReportedHosts = 3

// MXConfig is the MX checker configuration.
type MXConfig struct {
	// TimeoutIsInvalid reports a resolver timeout as Invalid instead of
	// Unknown.
	TimeoutIsInvalid bool
}

// MXChecker verifies that the domain publishes mail-exchange records.
// Lookups go through the shared DNS cache.
type MXChecker struct {
	cfg   MXConfig
	cache *dnscache.Cache
}

func NewMXChecker(cfg MXConfig, cache *dnscache.Cache) *MXChecker {
	return &MXChecker{cfg: cfg, cache: cache}
}

func (c *MXChecker) Tier() int { return TierMX }

func (c *MXChecker) Check(ctx context.Context, email parse.Email) EmailOutcome {
	if c.cache == nil {
		return EmailOutcome{
			Status:  types.StatusUnknown,
			Message: "DNS resolution unavailable, MX check skipped",
			Details: types.Details{types.DetailErrorKind: string(types.KindUnavailable)},
		}
	}

	res, err := c.cache.Lookup(ctx, email.Domain)
	if err != nil {
		return lookupFailure(email.Domain, err, c.cfg.TimeoutIsInvalid)
	}
	if res.NotFound {
		return EmailOutcome{
			Status:  types.StatusInvalid,
			Message: fmt.Sprintf("domain %s has no MX records", email.Domain),
			Details: types.Details{
				types.DetailDomain:    email.Domain,
				types.DetailErrorKind: string(types.KindResolution),
				types.DetailCached:    res.Cached,
			},
		}
	}

	hosts := res.Hosts
	if len(hosts) > maxReportedHosts {
		hosts = hosts[:maxReportedHosts]
	}
	return EmailOutcome{
		Status:  types.StatusValid,
		Message: fmt.Sprintf("domain %s has %d MX records", email.Domain, len(res.Hosts)),
		Details: types.Details{
			types.DetailDomain:  email.Domain,
			types.DetailMXHosts: hosts,
			types.DetailCached:  res.Cached,
		},
	}
}

// lookupFailure converts an inconclusive MX lookup into an outcome.
// Tier 2 and tier 4 share it so both apply the same timeout policy.
func lookupFailure(domain string, err error, timeoutIsInvalid bool) EmailOutcome {
	if dnscache.IsTimeout(err) {
		status := types.StatusUnknown
		if timeoutIsInvalid {
			status = types.StatusInvalid
		}
		return EmailOutcome{
			Status:  status,
			Message: "DNS lookup timed out",
			Details: types.Details{
				types.DetailDomain:    domain,
				types.DetailErrorKind: string(types.KindTimeout),
			},
		}
	}
	return EmailOutcome{
		Status:  types.StatusUnknown,
		Message: "MX lookup failed: " + truncate(err.Error(), 50),
		Details: types.Details{
			types.DetailDomain:    domain,
			types.DetailErrorKind: string(types.KindResolution),
			types.DetailError:     truncate(err.Error(), 100),
		},
	}
}
