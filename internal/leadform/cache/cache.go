// Package cache keeps the effective lead form configuration in Redis so the
// public form endpoints do not hit Postgres on every request.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const effectiveConfigKey = "leadform:config:effective"

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// ConfigCache stores the serialized effective configuration.
type ConfigCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New creates a cache backed by client.
func New(client redis.Cmdable, ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConfigCache{client: client, ttl: ttl}
}

// Get returns the cached document. A miss is reported as ok=false, not an error.
func (c *ConfigCache) Get(ctx context.Context) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, effectiveConfigKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read lead form cache: %w", err)
	}
	return raw, true, nil
}

// Set stores raw for the configured TTL.
func (c *ConfigCache) Set(ctx context.Context, raw []byte) error {
	if err := c.client.Set(ctx, effectiveConfigKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write lead form cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached document.
func (c *ConfigCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, effectiveConfigKey).Err(); err != nil {
		return fmt.Errorf("invalidate lead form cache: %w", err)
	}
	return nil
}
