// Package cache stores computed results keyed by dataset version.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stwalsh4118/housing/internal/config"
)

// KeyPrefix starts every key written by this package.
const KeyPrefix = "housing"

// Cache stores JSON-encoded values.
type Cache interface {
	// Get decodes the value stored at key into dest. found is false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	// Set stores value at key.
	Set(ctx context.Context, key string, value interface{}) error
	Close() error
}

// Key builds a cache key from the dataset version, the operation and every
// effective parameter, e.g. housing:<version>:owners:acres:10.
func Key(version, operation string, params ...interface{}) string {
	parts := make([]string, 0, len(params)+3)
	parts = append(parts, KeyPrefix, version, operation)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ":")
}

// RedisCache wraps redis.Client.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisCacheWithClient(client, cfg.TTL), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	if err := r.client.Set(ctx, key, jsonBytes, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Noop is a Cache that never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

// Set discards the value.
func (Noop) Set(context.Context, string, interface{}) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

// Observed reports every lookup outcome to observe before returning it.
type Observed struct {
	Cache
	observe func(hit bool)
}

// WithObserver wraps c so that observe is called with the outcome of each Get.
// Errors count as misses.
func WithObserver(c Cache, observe func(hit bool)) *Observed {
	return &Observed{Cache: c, observe: observe}
}

// Get implements Cache.
func (o *Observed) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	found, err := o.Cache.Get(ctx, key, dest)
	o.observe(found && err == nil)
	return found, err
}
