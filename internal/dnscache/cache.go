// Package dnscache provides a thread-safe, TTL-based cache for DNS MX lookups
// with singleflight deduplication for concurrent requests to the same domain.
package dnscache

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/optimode/contactkit/internal/ttlcache"
)

// Resolver is the subset of *net.Resolver used by the cache.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Lookup is the outcome of an MX lookup.
type Lookup struct {
	// Hosts are the MX hosts ordered by preference, without trailing dots.
	Hosts []string
	// NotFound is set when the domain does not exist or has no MX records.
	NotFound bool
	// Cached is set when the answer was served from the cache.
	Cached bool
}

type entry struct {
	hosts    []string
	notFound bool
}

// Cache is a thread-safe DNS MX lookup cache.
// Definitive answers (hosts found, NXDOMAIN, no records) are cached for the
// configured TTL. Transient resolver failures and timeouts are never cached.
type Cache struct {
	entries       *ttlcache.Cache[string, entry]
	group         singleflight.Group
	lookupTimeout time.Duration
	resolver      Resolver
}

// New creates a DNS cache with the given lookup timeout, cache TTL and
// maximum number of cached domains (0 for unbounded).
func New(lookupTimeout, cacheTTL time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:       ttlcache.New[string, entry](cacheTTL, maxEntries),
		lookupTimeout: lookupTimeout,
		resolver:      &net.Resolver{},
	}
}

// NewWithResolver creates a DNS cache with a custom resolver (for testing).
func NewWithResolver(lookupTimeout, cacheTTL time.Duration, maxEntries int, r Resolver) *Cache {
	c := New(lookupTimeout, cacheTTL, maxEntries)
	c.resolver = r
	return c
}

// WithClock replaces the cache time source (for testing).
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.entries.WithClock(now)
	return c
}

// Lookup returns the MX hosts for domain, using the cache when possible.
// Concurrent lookups for the same domain are deduplicated via singleflight.
// A non-nil error means the lookup was inconclusive; use IsTimeout to tell a
// timeout apart from other transient failures.
func (c *Cache) Lookup(ctx context.Context, domain string) (Lookup, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	if e, ok := c.entries.Get(domain); ok {
		return Lookup{Hosts: copyHosts(e.hosts), NotFound: e.notFound, Cached: true}, nil
	}

	ch := c.group.DoChan(domain, func() (any, error) {
		// The shared lookup must not die with the first caller's context.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		records, err := c.resolver.LookupMX(lctx, domain)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				e := entry{notFound: true}
				c.entries.Set(domain, e)
				return e, nil
			}
			if lctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
				err = errors.Join(err, context.DeadlineExceeded)
			}
			return nil, err
		}

		e := entry{hosts: sortedHosts(records)}
		e.notFound = len(e.hosts) == 0
		c.entries.Set(domain, e)
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Lookup{}, res.Err
		}
		e := res.Val.(entry)
		return Lookup{Hosts: copyHosts(e.hosts), NotFound: e.notFound}, nil
	case <-ctx.Done():
		return Lookup{}, ctx.Err()
	}
}

// Len returns the number of entries in the cache (for diagnostics).
func (c *Cache) Len() int {
	return c.entries.Len()
}

// IsTimeout reports whether err from Lookup is a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sortedHosts orders records by preference and strips trailing dots.
// A null MX record (RFC 7505) yields no hosts.
func sortedHosts(records []*net.MX) []string {
	sorted := make([]*net.MX, 0, len(records))
	for _, r := range records {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Pref < sorted[j].Pref
	})

	hosts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		h := strings.TrimSuffix(r.Host, ".")
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// copyHosts returns a copy to prevent callers from mutating cached data.
func copyHosts(hosts []string) []string {
	if hosts == nil {
		return nil
	}
	return append([]string(nil), hosts...)
}
