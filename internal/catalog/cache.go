package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
)

// Cache is a read-through cache of entry values keyed by list type and key.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(listType, key string) string {
	return fmt.Sprintf("catalog:%s:%s", strings.ToLower(listType), strings.ToLower(strings.TrimSpace(key)))
}

// Get returns the cached value. Redis failures are treated as misses.
func (c *Cache) Get(ctx context.Context, listType, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, cacheKey(listType, key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.CatalogCacheResults.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("list_type", listType).Msg("catalog cache read failed")
		} else {
			observability.CatalogCacheResults.WithLabelValues("miss").Inc()
		}
		return "", false
	}
	observability.CatalogCacheResults.WithLabelValues("hit").Inc()
	return val, true
}

func (c *Cache) Set(ctx context.Context, listType, key, value string) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(listType, key), value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("list_type", listType).Msg("catalog cache write failed")
	}
}

// Invalidate drops a single cached entry.
func (c *Cache) Invalidate(ctx context.Context, listType, key string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(listType, key)).Err(); err != nil {
		log.Warn().Err(err).Str("list_type", listType).Msg("catalog cache invalidation failed")
	}
}
