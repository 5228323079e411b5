package store

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"voxguard/pkg/platform/sentinel"
)

var consumeDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "voxguard_download_token_consume_duration_ms",
	Help:    "Latency of single-use download token checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for consumed download token ids
const usedTokenKeyPrefix = "voxguard:dl:jti:"

// RedisTokenStore records consumed download-handle ids so a handle works
// exactly once across instances.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// Consume marks jti as used. Uses SET NX so concurrent downloads with the
// same handle race on one key; the loser gets ErrAlreadyUsed. The marker
// lives as long as the handle could still verify.
func (t *RedisTokenStore) Consume(ctx context.Context, jti string, ttl time.Duration) error {
	start := time.Now()
	defer func() {
		consumeDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	ok, err := t.client.SetNX(ctx, usedTokenKeyPrefix+jti, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// InMemoryTokenStore is the single-process variant.
type InMemoryTokenStore struct {
	mu    sync.Mutex
	used  map[string]time.Time
	clock func() time.Time
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{used: make(map[string]time.Time), clock: time.Now}
}

func (t *InMemoryTokenStore) Consume(_ context.Context, jti string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	for id, exp := range t.used {
		if !now.Before(exp) {
			delete(t.used, id)
		}
	}
	if _, ok := t.used[jti]; ok {
		return sentinel.ErrAlreadyUsed
	}
	t.used[jti] = now.Add(ttl)
	return nil
}
