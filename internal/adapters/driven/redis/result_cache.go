package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultCache = (*ResultCache)(nil)

// DefaultKeyPrefix namespaces every key the cache writes
const DefaultKeyPrefix = "sercha:search:"

// ResultCache implements driven.ResultCache using Redis. Responses are
// stored as JSON with a TTL. Entry keys embed a generation counter, so
// bumping the counter invalidates every entry at once and the old ones
// simply expire.
type ResultCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewResultCache creates a new Redis-backed ResultCache
func NewResultCache(client *redis.Client, prefix string, ttl time.Duration) *ResultCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &ResultCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ResultCache) generationKey() string {
	return c.prefix + "gen"
}

func (c *ResultCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cache generation: %w", err)
	}
	return gen, nil
}

func (c *ResultCache) entryKey(gen int64, key string) string {
	return c.prefix + "g" + strconv.FormatInt(gen, 10) + ":" + key
}

// Get retrieves a cached response. A missing or expired entry is a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, err
	}

	data, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached response: %w", err)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached response: %w", err)
	}
	return &resp, true, nil
}

// Set stores resp under key for the cache TTL
func (c *ResultCache) Set(ctx context.Context, key string, resp *domain.SearchResponse) error {
	if resp == nil || c.ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.entryKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache response: %w", err)
	}
	return nil
}

// Invalidate bumps the generation counter
func (c *ResultCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// TTL returns the entry lifetime
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}

// Ping verifies Redis is reachable
func (c *ResultCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
