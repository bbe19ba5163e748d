package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "imgclass:url:"

// RedisCache shares fetched images between replicas. A zero TTL keeps
// entries until Redis evicts them.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCache(redisClient *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		redis: redisClient,
		ttl:   ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, url string) (*Image, bool, error) {
	fields, err := r.redis.HGetAll(ctx, redisKeyPrefix+url).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	data, ok := fields["data"]
	if !ok {
		return nil, false, nil
	}
	return &Image{
		Data:        []byte(data),
		Source:      url,
		ContentType: fields["content_type"],
	}, true, nil
}

func (r *RedisCache) Set(ctx context.Context, url string, img *Image) error {
	key := redisKeyPrefix + url

	pipe := r.redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "data", img.Data, "content_type", img.ContentType)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
