// Package resultcache stores URL verification outcomes keyed by URL.
package resultcache

import (
	"context"
	"time"

	"github.com/optimode/contactkit/internal/ttlcache"
	"github.com/optimode/contactkit/types"
)

// Store is a time-bounded cache of URL results. Implementations must be
// safe for concurrent use and must never hand out shared mutable state.
type Store interface {
	Get(ctx context.Context, key string) (types.URLResult, bool)
	Set(ctx context.Context, key string, r types.URLResult)
}

// Memory is an in-process Store.
type Memory struct {
	c *ttlcache.Cache[string, types.URLResult]
}

// NewMemory creates an in-process store. maxEntries <= 0 means unbounded.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{c: ttlcache.New[string, types.URLResult](ttl, maxEntries)}
}

// WithClock replaces the time source (for testing).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.c.WithClock(now)
	return m
}

// Get returns a copy of the stored result.
func (m *Memory) Get(_ context.Context, key string) (types.URLResult, bool) {
	r, ok := m.c.Get(key)
	if !ok {
		return types.URLResult{}, false
	}
	return r.Clone(), true
}

// Set stores a copy of r.
func (m *Memory) Set(_ context.Context, key string, r types.URLResult) {
	m.c.Set(key, r.Clone())
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	return m.c.Len()
}
