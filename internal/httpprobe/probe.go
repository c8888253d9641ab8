// Package httpprobe checks whether a URL answers, using a HEAD request and
// falling back to GET when the server refuses HEAD.
package httpprobe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Config configures the prober.
type Config struct {
	// Timeout bounds one probe, including the GET fallback and redirects.
	Timeout   time.Duration
	UserAgent string
	// MaxRedirects is how many redirects are followed. Default: 10
	MaxRedirects int
	// RequestsPerSecond limits outgoing probes. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
	// InsecureSkipVerify disables TLS certificate checks.
	InsecureSkipVerify bool
}

// Result describes the final response of a probe.
type Result struct {
	StatusCode int
	FinalURL   *url.URL
	// Method is the request method that produced the final response.
	Method string
}

// Prober issues reachability probes. It is safe for concurrent use.
type Prober struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a prober. A nil client gets a dedicated transport; a supplied
// client is copied and its redirect policy replaced.
func New(cfg Config, client *http.Client) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; contactkit/1.0)"
	}

	var c http.Client
	if client != nil {
		c = *client
	} else {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxIdleConnsPerHost = 4
		if cfg.InsecureSkipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
		}
		c.Transport = tr
	}
	maxRedirects := cfg.MaxRedirects
	c.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	p := &Prober{cfg: cfg, client: &c}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return p
}

// Timeout returns the per-probe timeout.
func (p *Prober) Timeout() time.Duration {
	return p.cfg.Timeout
}

// Probe sends HEAD to target and retries with GET on 405 or 501.
func (p *Prober) Probe(ctx context.Context, target string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	res, err := p.do(ctx, http.MethodHead, target)
	if err != nil {
		return Result{}, err
	}
	if res.StatusCode == http.StatusMethodNotAllowed || res.StatusCode == http.StatusNotImplemented {
		return p.do(ctx, http.MethodGet, target)
	}
	return res, nil
}

func (p *Prober) do(ctx context.Context, method, target string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if method == http.MethodGet {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return Result{StatusCode: resp.StatusCode, FinalURL: final, Method: method}, nil
}

// IsTimeout reports whether a Probe error was caused by a timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SameSite reports whether two hosts share a registrable domain
// (eTLD+1), e.g. acme.com and www.acme.com.
func SameSite(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return true
	}
	ra, errA := publicsuffix.EffectiveTLDPlusOne(a)
	rb, errB := publicsuffix.EffectiveTLDPlusOne(b)
	return errA == nil && errB == nil && ra == rb
}
