package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/models"
)

// RedisCache shares baselines between processes
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCache creates the shared tier. Redis failures are logged and
// treated as misses so detection never depends on Redis being up.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "baseline_redis").Logger(),
	}
}

// Get loads a baseline stored as JSON.
func (r *RedisCache) Get(ctx context.Context, key string) (models.Baseline, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn().Err(err).Str("key", key).Msg("Failed to read baseline from redis")
		}
		return models.Baseline{}, false
	}

	var b models.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Corrupt baseline in redis")
		return models.Baseline{}, false
	}
	return b, true
}

// Set stores a baseline with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, key string, b models.Baseline) {
	data, err := json.Marshal(b)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to marshal baseline")
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to write baseline to redis")
	}
}
