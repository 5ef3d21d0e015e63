package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a read-through accelerator over Redis. It is never authoritative:
// every error on get is treated as a miss and every error on set/delete as a
// no-op, so a cache outage degrades to database-only reads instead of
// failing requests.
type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func New(addr, password string, db int, l *zap.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{rdb: rdb, logger: l}
}

// Get returns the raw value and whether the key was present. Connection
// errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache get failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("Cache set failed, skipping",
			zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Cache delete failed, skipping",
			zap.Strings("keys", keys), zap.Error(err))
	}
}

// DeletePattern removes every key matching the glob pattern. SCAN is used
// instead of KEYS so the server is never blocked on a large keyspace.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 500 {
			c.Delete(ctx, keys...)
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Cache pattern scan failed, skipping",
			zap.String("pattern", pattern), zap.Error(err))
		return
	}
	c.Delete(ctx, keys...)
}

// GetJSON unmarshals a cached value into dest, reporting a hit only when the
// key was present and decodable.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("Cache entry is not valid JSON, evicting",
			zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		return false
	}
	return true
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to marshal value for cache, skipping",
			zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(ctx, key, raw, ttl)
}

// InvalidateEntity removes the single-entity key plus every list key that
// could include the entity, including customer-scoped lists.
func (c *Cache) InvalidateEntity(ctx context.Context, entityType, id string) {
	c.Delete(ctx, EntityKey(entityType, id))
	c.DeletePattern(ctx, ListPattern(entityType))
}

func (c *Cache) Healthy(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
