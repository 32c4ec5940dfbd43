// Package cache keeps resolved YouTube handles in Redis so repeated attempts
// with the same handle skip the page scrape.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const handleKeyPrefix = "serialgate:handle:"

// kv is the part of the go-redis client the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// HandleCache maps a handle (as typed, case-insensitive) to a channel ID.
type HandleCache struct {
	client kv
	ttl    time.Duration
}

func NewHandleCache(client kv, ttl time.Duration) *HandleCache {
	return &HandleCache{client: client, ttl: ttl}
}

// Connect builds a client from a redis:// URL or a bare host:port and pings
// it. An empty url means no cache and returns nil, nil.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	var opts *redis.Options
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		o, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		opts = o
	} else {
		opts = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Get returns the cached channel ID. A miss is ("", false, nil).
func (c *HandleCache) Get(ctx context.Context, handle string) (string, bool, error) {
	v, err := c.client.Get(ctx, key(handle)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *HandleCache) Put(ctx context.Context, handle, channelID string) error {
	return c.client.Set(ctx, key(handle), channelID, c.ttl).Err()
}

func key(handle string) string {
	return handleKeyPrefix + strings.ToLower(handle)
}
