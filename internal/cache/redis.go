// Package cache stores synthesized clips in redis so a re-run of a script
// only synthesizes the jobs that did not succeed before.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadzzz/scriptvoice/internal/audio"
	"github.com/nadzzz/scriptvoice/internal/audio/wav"
	"github.com/nadzzz/scriptvoice/internal/config"
)

const keyPrefix = "scriptvoice:clip:"

// ClipCache is a redis-backed clip store keyed by job fingerprint.
type ClipCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient opens a redis client from config.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New wraps an existing client. A zero ttl keeps clips forever.
func New(client *redis.Client, ttl time.Duration) *ClipCache {
	return &ClipCache{client: client, ttl: ttl}
}

// Get returns the cached clip for key, if any.
func (c *ClipCache) Get(ctx context.Context, key string) (*audio.Buffer, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	buf, err := wav.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return buf, true, nil
}

// Put stores a clip.
func (c *ClipCache) Put(ctx context.Context, key string, buf *audio.Buffer) error {
	data, err := wav.EncodeBytes(buf)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// Ping checks the redis connection.
func (c *ClipCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
