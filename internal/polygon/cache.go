package polygon

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheTTL matches the one-minute freshness window quotes are served with.
const CacheTTL = 60 * time.Second

// ResponseCache stores raw API response bodies keyed by request path so that
// repeated refreshes within the TTL do not burn through the provider's rate
// limit.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache creates a cache backed by the given redis client.
func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{
		client: client,
		ttl:    CacheTTL,
	}
}

// Get returns the cached body for key, or (nil, false) on a miss. Redis
// errors are treated as misses so a cache outage never blocks a refresh.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Degrade to a miss; the caller fetches from the API instead.
			return nil, false
		}
		return nil, false
	}
	return body, true
}

// Set stores body under key for the cache TTL. Errors are swallowed for the
// same reason Get treats them as misses.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	_ = c.client.Set(ctx, cacheKey(key), body, c.ttl).Err()
}

func cacheKey(requestKey string) string {
	return "polygon:" + requestKey
}
