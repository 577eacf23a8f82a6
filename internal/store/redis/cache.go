package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a TTL byte cache on Redis used for upstream quote payloads.
type Cache struct {
	client *redis.Client
}

// NewCache creates a cache on client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns a cached value. A miss is reported as ok=false with no error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, QuoteKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to get cached quote: %w", err)
	}
	return data, true, nil
}

// Set stores a value for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, QuoteKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quote: %w", err)
	}
	return nil
}

// Flush removes all cached quotes
func (c *Cache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefixQuote+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}
