package contactkit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/optimode/contactkit/check"
	"github.com/optimode/contactkit/internal/disposable"
	"github.com/optimode/contactkit/internal/dnscache"
	"github.com/optimode/contactkit/internal/httpprobe"
	"github.com/optimode/contactkit/internal/metrics"
	"github.com/optimode/contactkit/internal/resultcache"
	"github.com/optimode/contactkit/internal/retry"
	"github.com/optimode/contactkit/internal/smtppool"
	"github.com/optimode/contactkit/internal/urlpattern"
	"github.com/optimode/contactkit/types"
)

// Verifier verifies records, emails and URLs according to a
// VerificationConfig. It owns its caches and connection pool and is safe
// for concurrent use. Call Close when done.
type Verifier struct {
	cfg      VerificationConfig
	email    *emailVerifier
	url      *urlVerifier
	dnsCache *dnscache.Cache
	smtpPool *smtppool.Pool
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	closed   atomic.Bool

	// recordHook runs before each record is verified (tests only).
	recordHook func(Record)
}

// New validates cfg and builds a Verifier. Configuration mistakes are the
// only errors it returns; verification itself never fails.
func New(cfg VerificationConfig, opts ...Option) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.err != nil {
		return nil, s.err
	}

	m, err := metrics.New(s.registerer)
	if err != nil {
		return nil, fmt.Errorf("contactkit: %w", err)
	}
	v := &Verifier{
		cfg:     cfg,
		logger:  s.logger,
		metrics: m,
		now:     time.Now,
	}

	if err := v.buildEmail(s); err != nil {
		return nil, err
	}
	v.buildURL(s)
	return v, nil
}

func (v *Verifier) buildEmail(s settings) error {
	v.email = &emailVerifier{metrics: v.metrics}
	if !v.cfg.EmailCheckFormat {
		return nil
	}
	v.email.checkers = append(v.email.checkers, check.NewSyntaxChecker())

	if v.cfg.EmailCheckMX || v.cfg.EmailCheckHandshake {
		v.dnsCache = s.dnsCache
		if v.dnsCache == nil {
			v.dnsCache = NewDNSCache(s.dns, s.resolver)
		}
	}
	if v.cfg.EmailCheckMX {
		v.email.checkers = append(v.email.checkers,
			check.NewMXChecker(check.MXConfig{TimeoutIsInvalid: s.dns.TimeoutIsInvalid}, v.dnsCache))
	}
	if v.cfg.EmailCheckDisposable {
		list, err := disposable.Load(s.disposable.ListPath, s.disposable.ExtraDomains...)
		if err != nil {
			return fmt.Errorf("contactkit: disposable list: %w", err)
		}
		v.email.checkers = append(v.email.checkers, check.NewDisposableChecker(list))
	}
	if v.cfg.EmailCheckHandshake {
		o := s.smtp
		v.smtpPool = smtppool.New(smtppool.Config{
			HeloDomain:      o.HeloDomain,
			MailFrom:        o.MailFrom,
			ConnectTimeout:  o.ConnectTimeout,
			CommandTimeout:  o.CommandTimeout,
			Port:            o.Port,
			MaxConnsPerHost: o.MaxConnsPerHost,
			DialContext:     s.dialer,
		})
		v.email.checkers = append(v.email.checkers, check.NewSMTPChecker(check.SMTPConfig{
			MaxMXHosts: o.MaxMXHosts,
			Retry: retry.Policy{
				MaxAttempts: o.MaxRetries + 1,
				BaseDelay:   o.RetryBaseDelay,
				Multiplier:  o.RetryMultiplier,
				MaxDelay:    30 * time.Second,
			},
			TimeoutIsInvalid: s.dns.TimeoutIsInvalid,
			Logger:           v.logger,
		}, v.dnsCache, v.smtpPool))
	}
	return nil
}

func (v *Verifier) buildURL(s settings) {
	table := urlpattern.Default()
	v.url = &urlVerifier{
		format:   check.NewURLFormatChecker(table),
		platform: check.NewPlatformChecker(table),
		metrics:  v.metrics,
	}
	if !v.cfg.URLCheckReachability {
		return
	}

	o := s.http
	prober := httpprobe.New(httpprobe.Config{
		Timeout:            v.cfg.URLTimeout,
		UserAgent:          o.UserAgent,
		MaxRedirects:       o.MaxRedirects,
		RequestsPerSecond:  o.RequestsPerSecond,
		Burst:              o.Burst,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}, s.httpClient)
	v.url.reach = check.NewReachabilityChecker(prober)
	v.url.cache = s.urlCache
	if v.url.cache == nil {
		v.url.cache = resultcache.NewMemory(o.CacheTTL, o.MaxEntries)
	}
}

// Config returns the configuration the Verifier was built with.
func (v *Verifier) Config() VerificationConfig {
	return v.cfg
}

// Close releases pooled SMTP connections. Later calls return
// ErrVerifierClosed. Handshake checks made after Close report Unknown.
func (v *Verifier) Close() error {
	if !v.closed.CompareAndSwap(false, true) {
		return ErrVerifierClosed
	}
	if v.smtpPool != nil {
		return v.smtpPool.Close()
	}
	return nil
}

// VerifyEmail runs the enabled email tiers on one address.
func (v *Verifier) VerifyEmail(ctx context.Context, email string) (res types.EmailResult) {
	if !v.cfg.EmailCheckFormat {
		return types.EmailResult{
			Email:   email,
			Status:  types.StatusUnknown,
			Message: "email checks are disabled",
			Type:    types.EmailUnknown,
		}
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.ErrorContext(ctx, "email verification panicked", "email", email, "panic", r)
			res = types.EmailResult{
				Email:   email,
				Status:  types.StatusUnknown,
				Message: errorNote(r),
				Type:    types.EmailUnknown,
			}
		}
	}()
	res = v.email.verify(ctx, email)
	v.metrics.IncrementVerification("email", string(res.Status))
	return res
}

// VerifyURL runs the enabled URL tiers on one URL. field names the record
// key the URL came from and is copied into the result.
func (v *Verifier) VerifyURL(ctx context.Context, url, field string) (res types.URLResult) {
	if !v.cfg.URLCheckFormat {
		return types.URLResult{
			URL:     url,
			Field:   field,
			Status:  types.StatusUnknown,
			Message: "URL checks are disabled",
			Type:    types.URLOther,
		}
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.ErrorContext(ctx, "url verification panicked", "url", url, "field", field, "panic", r)
			res = types.URLResult{
				URL:     url,
				Field:   field,
				Status:  types.StatusUnknown,
				Message: errorNote(r),
				Type:    types.URLOther,
			}
		}
	}()
	res = v.url.verify(ctx, url, field)
	v.metrics.IncrementVerification("url", string(res.Status))
	return res
}

// VerifyRecord verifies every present field of rec concurrently and
// aggregates the results. One failing field never affects the others.
func (v *Verifier) VerifyRecord(ctx context.Context, rec Record) ProjectResult {
	return v.safeRecord(ctx, rec, rec.ID())
}

// safeRecord converts a panic into an Unknown result identified by
// rec["id"] or fallbackID.
func (v *Verifier) safeRecord(ctx context.Context, rec Record, fallbackID string) (res ProjectResult) {
	v.metrics.RecordStarted()
	defer v.metrics.RecordFinished()
	defer func() {
		if r := recover(); r != nil {
			id := fallbackID
			if s, ok := rec.text("id"); ok {
				id = s
			}
			v.logger.ErrorContext(ctx, "record verification panicked", "record", id, "panic", r)
			res = ProjectResult{
				ID:         id,
				Status:     types.OverallUnknown,
				URLs:       map[string]types.URLResult{},
				Notes:      []string{errorNote(r)},
				VerifiedAt: v.now(),
			}
			v.metrics.IncrementRecordOutcome(string(res.Status))
		}
	}()
	return v.verifyRecord(ctx, rec)
}

func (v *Verifier) verifyRecord(ctx context.Context, rec Record) ProjectResult {
	if v.recordHook != nil {
		v.recordHook(rec)
	}

	res := ProjectResult{ID: rec.ID(), URLs: map[string]types.URLResult{}}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	email, emailIsString, hasEmail := rec.field(EmailField)
	if hasEmail && v.cfg.EmailCheckFormat {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := nonStringEmail(email)
			if emailIsString {
				r = v.VerifyEmail(ctx, email)
			}
			mu.Lock()
			res.Email = &r
			mu.Unlock()
		}()
	}

	fields := v.cfg.urlFields()
	if v.cfg.URLCheckFormat {
		for _, f := range fields {
			raw, isString, ok := rec.field(f)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				r := nonStringURL(raw, f)
				if isString {
					r = v.VerifyURL(ctx, raw, f)
				}
				mu.Lock()
				res.URLs[f] = r
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	if !hasEmail && v.cfg.RequireEmail {
		res.Notes = append(res.Notes, "email missing")
	}
	if res.Email != nil && res.Email.Status != types.StatusValid {
		res.Notes = append(res.Notes, EmailField+": "+res.Email.Message)
	}
	for _, f := range fields {
		if r, ok := res.URLs[f]; ok && r.Status != types.StatusValid {
			res.Notes = append(res.Notes, f+": "+r.Message)
		}
	}

	res.Status = Aggregate(res.Email, res.URLs)
	res.VerifiedAt = v.now()
	v.metrics.IncrementRecordOutcome(string(res.Status))
	v.logger.DebugContext(ctx, "record verified", "record", res.ID, "status", res.Status, "fields", len(res.URLs)+boolToInt(res.Email != nil))
	return res
}

// nonStringEmail and nonStringURL fail tier 1 for values that were not
// strings in the record.
func nonStringEmail(v string) types.EmailResult {
	return types.EmailResult{
		Email:   v,
		Status:  types.StatusInvalid,
		Message: "value is not a string",
		Type:    types.EmailUnknown,
		Tier:    check.TierSyntax,
		Details: types.Details{types.DetailErrorKind: string(types.KindFormat)},
	}
}

func nonStringURL(v, field string) types.URLResult {
	return types.URLResult{
		URL:     v,
		Field:   field,
		Status:  types.StatusInvalid,
		Message: "value is not a string",
		Type:    types.URLOther,
		Tier:    check.TierURLFormat,
		Details: types.Details{types.DetailErrorKind: string(types.KindFormat)},
	}
}

// errorNote formats a recovered panic for notes and messages.
func errorNote(r any) string {
	msg := []rune(fmt.Sprint(r))
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return "verification error: " + string(msg)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// QuickVerify verifies rec with the Quick preset.
func QuickVerify(ctx context.Context, rec Record, opts ...Option) (ProjectResult, error) {
	return verifyOnce(ctx, Quick(), rec, opts...)
}

// StandardVerify verifies rec with the Standard preset.
func StandardVerify(ctx context.Context, rec Record, opts ...Option) (ProjectResult, error) {
	return verifyOnce(ctx, Standard(), rec, opts...)
}

func verifyOnce(ctx context.Context, cfg VerificationConfig, rec Record, opts ...Option) (ProjectResult, error) {
	v, err := New(cfg, opts...)
	if err != nil {
		return ProjectResult{}, err
	}
	defer func() { _ = v.Close() }()
	return v.VerifyRecord(ctx, rec), nil
}
