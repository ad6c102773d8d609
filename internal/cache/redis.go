package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Armour007/wellness-backend/internal/logging"
)

const redisNamespace = "wellness:cache:"

// RedisCache shares entries across API instances.
type RedisCache struct {
	rc *redis.Client
}

func NewRedis(rc *redis.Client) *RedisCache { return &RedisCache{rc: rc} }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rc.Get(ctx, redisNamespace+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.L().Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rc.Set(ctx, redisNamespace+key, val, ttl).Err(); err != nil {
		logging.L().Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePrefix scans matching keys in batches and deletes them.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		keys, next, err := r.rc.Scan(ctx, cursor, redisNamespace+prefix+"*", 200).Result()
		if err != nil {
			logging.L().Warn("cache scan failed", zap.String("prefix", prefix), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := r.rc.Del(ctx, keys...).Err(); err != nil {
				logging.L().Warn("cache delete failed", zap.String("prefix", prefix), zap.Error(err))
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
