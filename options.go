package contactkit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/optimode/contactkit/internal/dnscache"
	"github.com/optimode/contactkit/internal/resultcache"
)

// DNSOptions configures MX resolution.
type DNSOptions struct {
	// Timeout is the maximum time for one MX lookup. Default: 5s
	Timeout time.Duration
	// TimeoutIsInvalid reports a lookup timeout as Invalid instead of
	// Unknown. Default: false
	TimeoutIsInvalid bool
	// CacheTTL is how long MX answers are reused. Default: 24h
	CacheTTL time.Duration
	// MaxEntries bounds the number of cached domains. Default: 10000
	MaxEntries int
}

func defaultDNSOptions() DNSOptions {
	return DNSOptions{
		Timeout:    5 * time.Second,
		CacheTTL:   24 * time.Hour,
		MaxEntries: 10000,
	}
}

func (o DNSOptions) withDefaults() DNSOptions {
	def := defaultDNSOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = def.CacheTTL
	}
	if o.MaxEntries == 0 {
		o.MaxEntries = def.MaxEntries
	}
	return o
}

// SMTPOptions configures the mail-server handshake probe.
type SMTPOptions struct {
	// HeloDomain is the domain sent in the EHLO command, e.g. "myapp.com"
	HeloDomain string
	// MailFrom is the address sent in the MAIL FROM command, e.g. "verify@myapp.com"
	MailFrom string
	// ConnectTimeout is the maximum time for the TCP connection. Default: 10s
	ConnectTimeout time.Duration
	// CommandTimeout is the maximum response time for SMTP commands. Default: 10s
	CommandTimeout time.Duration
	// MaxMXHosts is how many MX hosts are tried in order. Default: 3
	MaxMXHosts int
	// Port is the SMTP port. Default: 25
	Port string
	// MaxConnsPerHost is the max pooled SMTP connections per MX host. Default: 3
	MaxConnsPerHost int
	// MaxRetries is the number of extra attempts per host after temporary
	// failures. Default: 2; negative disables retries.
	MaxRetries int
	// RetryBaseDelay is the wait before the first retry. Default: 2s
	RetryBaseDelay time.Duration
	// RetryMultiplier grows the wait between retries. Default: 2
	RetryMultiplier float64
}

func defaultSMTPOptions() SMTPOptions {
	return SMTPOptions{
		HeloDomain:      "localhost",
		MailFrom:        "verify@example.com",
		ConnectTimeout:  10 * time.Second,
		CommandTimeout:  10 * time.Second,
		MaxMXHosts:      3,
		Port:            "25",
		MaxConnsPerHost: 3,
		MaxRetries:      2,
		RetryBaseDelay:  2 * time.Second,
		RetryMultiplier: 2,
	}
}

func (o SMTPOptions) withDefaults() SMTPOptions {
	def := defaultSMTPOptions()
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.CommandTimeout == 0 {
		o.CommandTimeout = def.CommandTimeout
	}
	if o.MaxMXHosts == 0 {
		o.MaxMXHosts = def.MaxMXHosts
	}
	if o.Port == "" {
		o.Port = def.Port
	}
	if o.MaxConnsPerHost == 0 {
		o.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBaseDelay == 0 {
		o.RetryBaseDelay = def.RetryBaseDelay
	}
	if o.RetryMultiplier == 0 {
		o.RetryMultiplier = def.RetryMultiplier
	}
	return o
}

// HTTPOptions configures the reachability probe and the URL result cache.
type HTTPOptions struct {
	// UserAgent is sent with every probe.
	UserAgent string
	// MaxRedirects is how many redirects are followed. Default: 10
	MaxRedirects int
	// RequestsPerSecond limits outgoing probes. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
	// InsecureSkipVerify disables TLS certificate verification. A site with
	// a broken certificate still exists as a contact point.
	InsecureSkipVerify bool
	// CacheTTL is how long URL outcomes are reused. Default: 1h
	CacheTTL time.Duration
	// MaxEntries bounds the in-memory URL cache. Default: 10000
	MaxEntries int
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 10
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.MaxEntries == 0 {
		o.MaxEntries = 10000
	}
	return o
}

// DisposableOptions configures the disposable-domain list.
type DisposableOptions struct {
	// ListPath is an optional line-oriented domain list merged with the
	// built-in one. A missing file is ignored.
	ListPath string
	// ExtraDomains are added to the list.
	ExtraDomains []string
}

// Resolver looks up MX records. *net.Resolver satisfies it.
type Resolver = dnscache.Resolver

// DNSCache is a shareable MX cache; see NewDNSCache.
type DNSCache = dnscache.Cache

// URLCache stores URL outcomes; see WithURLCache.
type URLCache = resultcache.Store

// NewDNSCache creates an MX cache that several Verifiers can share via
// WithDNSCache. A nil r uses the system resolver.
func NewDNSCache(opts DNSOptions, r Resolver) *DNSCache {
	opts = opts.withDefaults()
	if r == nil {
		return dnscache.New(opts.Timeout, opts.CacheTTL, opts.MaxEntries)
	}
	return dnscache.NewWithResolver(opts.Timeout, opts.CacheTTL, opts.MaxEntries, r)
}

// NewRedisURLCache returns a URL cache shared through Redis. Entries expire
// after ttl; Redis failures count as cache misses.
func NewRedisURLCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) URLCache {
	return resultcache.NewRedis(client, ttl, "contactkit:url:", logger)
}

type settings struct {
	logger     *slog.Logger
	registerer prometheus.Registerer

	dns        DNSOptions
	smtp       SMTPOptions
	http       HTTPOptions
	disposable DisposableOptions

	resolver   Resolver
	dialer     func(ctx context.Context, network, address string) (net.Conn, error)
	httpClient *http.Client
	urlCache   URLCache
	dnsCache   *DNSCache

	err error
}

func defaultSettings() settings {
	return settings{
		logger: slog.New(slog.DiscardHandler),
		dns:    defaultDNSOptions(),
		smtp:   defaultSMTPOptions(),
		http:   HTTPOptions{}.withDefaults(),
	}
}

// Option configures a Verifier.
type Option func(*settings)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics registers Prometheus metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registerer = reg }
}

// WithDNSOptions overrides the default DNSOptions. Zero fields keep their
// defaults.
func WithDNSOptions(o DNSOptions) Option {
	return func(s *settings) { s.dns = o.withDefaults() }
}

// WithSMTPOptions overrides the default SMTPOptions. HeloDomain and
// MailFrom are required.
func WithSMTPOptions(o SMTPOptions) Option {
	return func(s *settings) {
		if o.HeloDomain == "" || o.MailFrom == "" {
			s.err = ErrInvalidSMTPOptions
			return
		}
		s.smtp = o.withDefaults()
	}
}

// WithHTTPOptions overrides the default HTTPOptions.
func WithHTTPOptions(o HTTPOptions) Option {
	return func(s *settings) { s.http = o.withDefaults() }
}

// WithDisposableOptions sets the disposable-domain sources.
func WithDisposableOptions(o DisposableOptions) Option {
	return func(s *settings) { s.disposable = o }
}

// WithResolver replaces the system MX resolver. Ignored with WithDNSCache.
func WithResolver(r Resolver) Option {
	return func(s *settings) { s.resolver = r }
}

// WithSMTPDialer replaces the TCP dialer used for SMTP connections.
func WithSMTPDialer(dial func(ctx context.Context, network, address string) (net.Conn, error)) Option {
	return func(s *settings) { s.dialer = dial }
}

// WithHTTPClient sets the client used for reachability probes. Its
// redirect policy is replaced.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithURLCache replaces the in-memory URL result cache.
func WithURLCache(c URLCache) Option {
	return func(s *settings) { s.urlCache = c }
}

// WithDNSCache shares an MX cache between Verifiers.
func WithDNSCache(c *DNSCache) Option {
	return func(s *settings) { s.dnsCache = c }
}
