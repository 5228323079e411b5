// Package cache keeps short-lived, subject-scoped working data such as the
// latest sanitized streaming chunk of a session. Every entry is indexed by
// subject so erasure can remove all of it without scanning the keyspace.
package cache

import (
	"context"
	"sync"
	"time"

	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// InMemoryCache is a process-local cache with lazy expiry.
type InMemoryCache struct {
	mu      sync.Mutex
	entries map[domain.SubjectHash]map[string]entry
	clock   func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[domain.SubjectHash]map[string]entry),
		clock:   time.Now,
	}
}

func (c *InMemoryCache) Set(_ context.Context, subject domain.SubjectHash, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.entries[subject]
	if !ok {
		bucket = make(map[string]entry)
		c.entries[subject] = bucket
	}
	bucket[key] = entry{value: append([]byte(nil), value...), expiresAt: c.clock().Add(ttl)}
	return nil
}

func (c *InMemoryCache) Get(_ context.Context, subject domain.SubjectHash, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[subject][key]
	if !ok || !c.clock().Before(e.expiresAt) {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Entries returns the live entries of subject.
func (c *InMemoryCache) Entries(_ context.Context, subject domain.SubjectHash) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	out := make(map[string][]byte)
	for key, e := range c.entries[subject] {
		if now.Before(e.expiresAt) {
			out[key] = append([]byte(nil), e.value...)
		}
	}
	return out, nil
}

// DeleteSubject drops every entry of subject and returns how many were live.
func (c *InMemoryCache) DeleteSubject(_ context.Context, subject domain.SubjectHash) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	n := 0
	for _, e := range c.entries[subject] {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	delete(c.entries, subject)
	return n, nil
}
