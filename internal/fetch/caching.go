package fetch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// CachingFetcher memoizes successful fetches by URL. Concurrent misses for
// the same URL share one download. Failures are not cached.
type CachingFetcher struct {
	next   Fetcher
	cache  Cache
	group  singleflight.Group
	logger *slog.Logger
}

func NewCachingFetcher(next Fetcher, cache Cache, logger *slog.Logger) *CachingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingFetcher{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

func (c *CachingFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	url, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if img, ok := c.lookup(ctx, url); ok {
		return img, nil
	}

	// Joined callers share the download, so it outlives the first caller's
	// context. The client timeout bounds it.
	detached := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(url, func() (any, error) {
		if img, ok := c.lookup(detached, url); ok {
			return img, nil
		}
		img, err := c.next.Fetch(detached, url)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(detached, url, img); err != nil {
			c.logger.Warn("failed to cache image", "url", url, "error", err)
		}
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("joined in-flight fetch", "url", url)
	}
	return v.(*Image), nil
}

func (c *CachingFetcher) lookup(ctx context.Context, url string) (*Image, bool) {
	img, ok, err := c.cache.Get(ctx, url)
	if err != nil {
		c.logger.Warn("image cache lookup failed", "url", url, "error", err)
		return nil, false
	}
	if ok {
		c.logger.Debug("image cache hit", "url", url)
	}
	return img, ok
}
