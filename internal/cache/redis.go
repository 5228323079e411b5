package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

const keyPrefix = "voxguard:cache:"

// RedisCache stores entries as plain keys with TTL and tracks them in a
// per-subject set. Members whose key has expired are pruned on read.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func entryKey(subject domain.SubjectHash, key string) string {
	return keyPrefix + subject.String() + ":" + key
}

func indexKey(subject domain.SubjectHash) string {
	return keyPrefix + subject.String() + ":_keys"
}

func (c *RedisCache) Set(ctx context.Context, subject domain.SubjectHash, key string, value []byte, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, entryKey(subject, key), value, ttl)
	pipe.SAdd(ctx, indexKey(subject), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, subject domain.SubjectHash, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, entryKey(subject, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return value, nil
}

func (c *RedisCache) Entries(ctx context.Context, subject domain.SubjectHash) (map[string][]byte, error) {
	keys, err := c.client.SMembers(ctx, indexKey(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = entryKey(subject, k)
	}
	values, err := c.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		out[keys[i]] = []byte(s)
	}
	if len(stale) > 0 {
		c.client.SRem(ctx, indexKey(subject), stale...)
	}
	return out, nil
}

func (c *RedisCache) DeleteSubject(ctx context.Context, subject domain.SubjectHash) (int, error) {
	keys, err := c.client.SMembers(ctx, indexKey(subject)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache erase: %w", err)
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, entryKey(subject, k))
	}
	n := int64(0)
	if len(full) > 0 {
		n, err = c.client.Del(ctx, full...).Result()
		if err != nil {
			return 0, fmt.Errorf("cache erase: %w", err)
		}
	}
	if err := c.client.Del(ctx, indexKey(subject)).Err(); err != nil {
		return int(n), fmt.Errorf("cache erase index: %w", err)
	}
	return int(n), nil
}
