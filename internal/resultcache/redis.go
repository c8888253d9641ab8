package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/optimode/contactkit/types"
)

// Redis is a Store shared between processes. Entries expire through the
// Redis key TTL. Redis failures degrade to cache misses.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedis creates a Redis-backed store. Keys are prefix + URL.
func NewRedis(client redis.Cmdable, ttl time.Duration, prefix string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Redis{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (types.URLResult, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.URLResult{}, false
	}
	if err != nil {
		r.logger.WarnContext(ctx, "url cache read failed", "key", key, "error", err)
		return types.URLResult{}, false
	}

	var res types.URLResult
	if err := json.Unmarshal(raw, &res); err != nil {
		r.logger.WarnContext(ctx, "url cache entry corrupt", "key", key, "error", err)
		return types.URLResult{}, false
	}
	return res, true
}

func (r *Redis) Set(ctx context.Context, key string, res types.URLResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		r.logger.WarnContext(ctx, "url cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "url cache write failed", "key", key, "error", err)
	}
}
