// Package cache implements a redis-based page cache for rendered
// documentation pages.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Zachacious/go-apidoc/internal/derrors"
)

// Cache is a Redis-based cache. All keys are stored under a common
// namespace so that Clear only removes pages written by this process.
type Cache struct {
	client    *redis.Client
	namespace string
}

// New creates a new Cache using the given Redis client. Keys are stored
// with the "apidoc:" prefix.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, namespace: "apidoc:"}
}

func (c *Cache) key(k string) string { return c.namespace + k }

// Get returns the value for key, or nil if the key does not exist.
func (c *Cache) Get(ctx context.Context, key string) (value []byte, err error) {
	defer derrors.Wrap(&err, "cache.Get(%q)", key)
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Put inserts the key with the given data and time-to-live. A zero ttl
// means the entry never expires.
func (c *Cache) Put(ctx context.Context, key string, data []byte, ttl time.Duration) (err error) {
	defer derrors.Wrap(&err, "cache.Put(%q, data, %s)", key, ttl)
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete deletes the given keys. It does not return an error if a key does
// not exist.
func (c *Cache) Delete(ctx context.Context, keys ...string) (err error) {
	defer derrors.Wrap(&err, "cache.Delete(%q)", keys)
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.deleteRaw(ctx, full)
}

func (c *Cache) deleteRaw(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, keys...).Err()
}

// DeletePrefix deletes all keys beginning with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (err error) {
	defer derrors.Wrap(&err, "cache.DeletePrefix(%q)", prefix)
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", int64(scanCount)).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= scanCount {
			if err := c.deleteRaw(ctx, keys); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.deleteRaw(ctx, keys)
}

// Clear deletes every entry of the cache.
func (c *Cache) Clear(ctx context.Context) (err error) {
	defer derrors.Wrap(&err, "cache.Clear()")
	return c.DeletePrefix(ctx, "")
}

// The "count" argument to the Redis SCAN command, also used as the batch
// size for deletions. var for testing.
var scanCount = 100
