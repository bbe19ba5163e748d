package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Brownie44l1/imgclass-api/internal/config"
	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// ProvideURLCache picks the memo table for fetched URLs. The Redis backend
// lets replicas share it.
func ProvideURLCache(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) fetch.Cache {
	if cfg.CacheBackend != config.CacheBackendRedis {
		logger.Info("using in-memory url cache", "max_entries", cfg.CacheMaxEntries)
		return fetch.NewMemoryCache(cfg.CacheMaxEntries)
	}

	client := ProvideRedisClient(cfg)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
			}
			logger.Info("using redis url cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return fetch.NewRedisCache(client, cfg.CacheTTL)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideURLCache,
	),
)
