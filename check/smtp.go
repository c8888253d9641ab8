package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/optimode/contactkit/internal/dnscache"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/internal/retry"
	"github.com/optimode/contactkit/internal/smtppool"
	"github.com/optimode/contactkit/types"
)

// SMTPConfig is the handshake checker configuration.
type SMTPConfig struct {
	// MaxMXHosts is how many MX hosts are tried, in preference order. Default: 3
	MaxMXHosts int
	// Retry is applied per MX host.
	Retry retry.Policy
	// TimeoutIsInvalid applies the MX timeout policy to the host lookup.
	TimeoutIsInvalid bool
	Logger           *slog.Logger
}

// SMTPChecker asks the domain's mail servers whether they accept mail for
// the address (RCPT TO). It shares the DNS cache with the MX checker and
// reuses connections through the SMTP pool.
type SMTPChecker struct {
	cfg   SMTPConfig
	cache *dnscache.Cache
	pool  *smtppool.Pool
}

// errTemporary marks a 4xx RCPT reply that is worth retrying.
var errTemporary = errors.New("temporary failure")

func NewSMTPChecker(cfg SMTPConfig, cache *dnscache.Cache, pool *smtppool.Pool) *SMTPChecker {
	if cfg.MaxMXHosts <= 0 {
		cfg.MaxMXHosts = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &SMTPChecker{cfg: cfg, cache: cache, pool: pool}
}

func (c *SMTPChecker) Tier() int { return TierHandshake }

func (c *SMTPChecker) Check(ctx context.Context, email parse.Email) EmailOutcome {
	if c.cache == nil || c.pool == nil {
		return EmailOutcome{
			Status:  types.StatusUnknown,
			Message: "mail server probe unavailable",
			Details: types.Details{types.DetailErrorKind: string(types.KindUnavailable)},
		}
	}

	mx, err := c.cache.Lookup(ctx, email.Domain)
	if err != nil {
		out := lookupFailure(email.Domain, err, c.cfg.TimeoutIsInvalid)
		out.Message = "cannot resolve mail servers: " + out.Message
		return out
	}
	if mx.NotFound || len(mx.Hosts) == 0 {
		return EmailOutcome{
			Status:  types.StatusInvalid,
			Message: fmt.Sprintf("domain %s has no MX records", email.Domain),
			Details: types.Details{
				types.DetailDomain:    email.Domain,
				types.DetailErrorKind: string(types.KindResolution),
			},
		}
	}

	hosts := mx.Hosts
	if len(hosts) > c.cfg.MaxMXHosts {
		hosts = hosts[:c.cfg.MaxMXHosts]
	}

	var lastErr error
	for _, host := range hosts {
		reply, err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context, attempt int) (smtppool.Reply, error) {
			r, err := c.pool.CheckRCPT(ctx, host, email.Address)
			if err != nil {
				c.cfg.Logger.DebugContext(ctx, "smtp probe attempt failed",
					"host", host, "attempt", attempt, "error", err)
				return r, classifyAttempt(ctx, err)
			}
			if r.Code >= 450 && r.Code <= 452 {
				return r, fmt.Errorf("%w (code=%d)", errTemporary, r.Code)
			}
			return r, nil
		})
		if err == nil {
			return interpret(host, reply)
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no usable mail server reply")
	}
	kind := types.KindTransport
	if isTimeout(lastErr) {
		kind = types.KindTimeout
	}
	return EmailOutcome{
		Status:  types.StatusUnknown,
		Message: "mail server probe failed: " + truncate(lastErr.Error(), 50),
		Details: types.Details{
			types.DetailLastError: truncate(lastErr.Error(), 100),
			types.DetailErrorKind: string(kind),
		},
	}
}

// interpret maps a final RCPT reply.
func interpret(host string, r smtppool.Reply) EmailOutcome {
	details := types.Details{types.DetailSMTPCode: r.Code, types.DetailMXHost: host}
	switch {
	case r.Code == 250 || r.Code == 251:
		return EmailOutcome{Status: types.StatusValid, Message: "mailbox exists", Details: details}
	case r.Code >= 550 && r.Code <= 553:
		return EmailOutcome{Status: types.StatusInvalid, Message: "mailbox does not exist", Details: details}
	}
	return EmailOutcome{
		Status:  types.StatusUnknown,
		Message: fmt.Sprintf("inconclusive mail server reply (code=%d)", r.Code),
		Details: details,
	}
}

// classifyAttempt decides whether a failed attempt is retried on the same
// host. Sender rejections, permanent greeting failures and cancellation
// move on immediately.
func classifyAttempt(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, smtppool.ErrPoolClosed) || errors.Is(err, smtppool.ErrSenderRejected) {
		return retry.Permanent(err)
	}
	var re *smtppool.ReplyError
	if errors.As(err, &re) && !re.Temporary() {
		return retry.Permanent(err)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
