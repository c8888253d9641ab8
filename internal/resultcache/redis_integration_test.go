//go:build integration

package resultcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/optimode/contactkit/internal/resultcache"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedis_RoundTrip(t *testing.T) {
	client := newRedisClient(t)
	store := resultcache.NewRedis(client, time.Hour, "contactkit:url:", nil)
	ctx := context.Background()

	_, ok := store.Get(ctx, "https://acme.com")
	assert.False(t, ok)

	store.Set(ctx, "https://acme.com", sample())
	got, ok := store.Get(ctx, "https://acme.com")
	require.True(t, ok)
	assert.Equal(t, sample().Status, got.Status)
	assert.Equal(t, sample().HTTPCode, got.HTTPCode)
	assert.Equal(t, "acme.com", got.Details["domain"])

	ttl, err := client.TTL(ctx, "contactkit:url:https://acme.com").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestRedis_Expiry(t *testing.T) {
	client := newRedisClient(t)
	store := resultcache.NewRedis(client, time.Second, "t:", nil)
	ctx := context.Background()

	store.Set(ctx, "k", sample())
	_, ok := store.Get(ctx, "k")
	require.True(t, ok)

	time.Sleep(1500 * time.Millisecond)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
}
