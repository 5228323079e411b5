//go:build integration

package containers

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"voxguard/internal/platform/config"
	platformredis "voxguard/internal/platform/redis"
)

// KeyPrefix namespaces every key voxguard writes: the subject cache under
// voxguard:cache: and consumed download tokens under voxguard:dl:jti:.
const KeyPrefix = "voxguard:"

// RedisContainer is a Redis instance reached through the same client
// constructor the service uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
}

// NewRedisContainer starts Redis and connects with pool settings close to
// the production defaults.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	client, err := platformredis.New(ctx, config.RedisConfig{
		URL:          url,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to redis: %v", err)
	}

	// Shared across suites like the Postgres container.
	return &RedisContainer{
		Container: container,
		URL:       url,
		Client:    client.Client,
	}
}

// Keys returns the sorted keys matching pattern.
func (r *RedisContainer) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// FlushVoxguard unlinks every key under KeyPrefix. Use in SetupTest for
// isolation.
func (r *RedisContainer) FlushVoxguard(ctx context.Context) error {
	keys, err := r.Keys(ctx, KeyPrefix+"*")
	if err != nil || len(keys) == 0 {
		return err
	}
	return r.Client.Unlink(ctx, keys...).Err()
}
