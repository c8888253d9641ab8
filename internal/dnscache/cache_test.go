package dnscache_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/contactkit/internal/dnscache"
)

// mockResolver tracks how many times LookupMX was called.
type mockResolver struct {
	records []*net.MX
	err     error
	delay   time.Duration
	calls   atomic.Int64
}

func (m *mockResolver) LookupMX(ctx context.Context, _ string) ([]*net.MX, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.records, m.err
}

func TestCache_BasicCaching(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.example.com.", Pref: 10}},
	}
	c := dnscache.NewWithResolver(2*time.Second, time.Minute, 0, r)
	ctx := context.Background()

	// First call: actual lookup
	res, err := c.Lookup(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"mx.example.com"}, res.Hosts)
	assert.False(t, res.Cached)
	assert.Equal(t, int64(1), r.calls.Load())

	// Second call: cached
	res, err = c.Lookup(ctx, "Example.com.")
	require.NoError(t, err)
	assert.Equal(t, []string{"mx.example.com"}, res.Hosts)
	assert.True(t, res.Cached)
	assert.Equal(t, int64(1), r.calls.Load()) // still 1, no new lookup
}

func TestCache_SortsByPreference(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{
			{Host: "mx3.example.com.", Pref: 30},
			{Host: "mx1.example.com.", Pref: 10},
			{Host: "mx2.example.com.", Pref: 20},
		},
	}
	c := dnscache.NewWithResolver(time.Second, time.Minute, 0, r)

	res, err := c.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"mx1.example.com", "mx2.example.com", "mx3.example.com"}, res.Hosts)
}

func TestCache_DifferentDomains(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.test.", Pref: 10}},
	}
	c := dnscache.NewWithResolver(2*time.Second, time.Minute, 0, r)

	_, _ = c.Lookup(context.Background(), "a.com")
	_, _ = c.Lookup(context.Background(), "b.com")
	assert.Equal(t, int64(2), r.calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestCache_TTLExpiry(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.test.", Pref: 10}},
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := dnscache.NewWithResolver(2*time.Second, 24*time.Hour, 0, r).
		WithClock(func() time.Time { return now })

	_, _ = c.Lookup(context.Background(), "example.com")
	assert.Equal(t, int64(1), r.calls.Load())

	now = now.Add(24*time.Hour - time.Second)
	_, _ = c.Lookup(context.Background(), "example.com")
	assert.Equal(t, int64(1), r.calls.Load())

	now = now.Add(2 * time.Second) // past the TTL
	_, _ = c.Lookup(context.Background(), "example.com")
	assert.Equal(t, int64(2), r.calls.Load()) // refreshed
}

func TestCache_NotFoundIsCached(t *testing.T) {
	r := &mockResolver{
		err: &net.DNSError{Err: "no such host", Name: "nope.test", IsNotFound: true},
	}
	c := dnscache.NewWithResolver(time.Second, time.Minute, 0, r)

	res, err := c.Lookup(context.Background(), "nope.test")
	require.NoError(t, err)
	assert.True(t, res.NotFound)

	res, err = c.Lookup(context.Background(), "nope.test")
	require.NoError(t, err)
	assert.True(t, res.NotFound)
	assert.True(t, res.Cached)
	assert.Equal(t, int64(1), r.calls.Load())
}

func TestCache_EmptyAnswerIsNotFound(t *testing.T) {
	r := &mockResolver{records: []*net.MX{{Host: ".", Pref: 0}}}
	c := dnscache.NewWithResolver(time.Second, time.Minute, 0, r)

	res, err := c.Lookup(context.Background(), "nullmx.test")
	require.NoError(t, err)
	assert.True(t, res.NotFound)
	assert.Empty(t, res.Hosts)
}

func TestCache_TransientErrorsAreNotCached(t *testing.T) {
	r := &mockResolver{
		err: &net.DNSError{Err: "server misbehaving", Name: "flaky.test", IsTemporary: true},
	}
	c := dnscache.NewWithResolver(time.Second, time.Minute, 0, r)

	_, err := c.Lookup(context.Background(), "flaky.test")
	assert.Error(t, err)
	assert.False(t, dnscache.IsTimeout(err))

	_, err = c.Lookup(context.Background(), "flaky.test")
	assert.Error(t, err)
	assert.Equal(t, int64(2), r.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_TimeoutIsReported(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.slow.test.", Pref: 10}},
		delay:   time.Second,
	}
	c := dnscache.NewWithResolver(20*time.Millisecond, time.Minute, 0, r)

	_, err := c.Lookup(context.Background(), "slow.test")
	require.Error(t, err)
	assert.True(t, dnscache.IsTimeout(err))
	assert.Equal(t, 0, c.Len())
}

func TestCache_DNSErrorTimeout(t *testing.T) {
	err := &net.DNSError{Err: "i/o timeout", IsTimeout: true}
	assert.True(t, dnscache.IsTimeout(err))
	assert.False(t, dnscache.IsTimeout(errors.New("boom")))
	assert.False(t, dnscache.IsTimeout(nil))
}

func TestCache_ConcurrentDeduplication(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.test.", Pref: 10}},
		delay:   50 * time.Millisecond,
	}
	c := dnscache.NewWithResolver(2*time.Second, time.Minute, 0, r)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Lookup(context.Background(), "example.com")
			assert.NoError(t, err)
			assert.Len(t, res.Hosts, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), r.calls.Load())
}

func TestCache_ReturnsCopies(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.test.", Pref: 10}},
	}
	c := dnscache.NewWithResolver(time.Second, time.Minute, 0, r)

	res, _ := c.Lookup(context.Background(), "example.com")
	res.Hosts[0] = "mutated"

	res, _ = c.Lookup(context.Background(), "example.com")
	assert.Equal(t, "mx.test", res.Hosts[0])
}

func TestCache_MaxEntries(t *testing.T) {
	r := &mockResolver{
		records: []*net.MX{{Host: "mx.test.", Pref: 10}},
	}
	c := dnscache.NewWithResolver(time.Second, time.Minute, 2, r)

	for _, d := range []string{"a.com", "b.com", "c.com"} {
		_, _ = c.Lookup(context.Background(), d)
	}
	assert.Equal(t, 2, c.Len())
}
