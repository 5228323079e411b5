package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache()
	c.clock = func() time.Time { return now }
	alice := domain.SubjectHash("alice")
	bob := domain.SubjectHash("bob")

	require.NoError(t, c.Set(ctx, alice, "stream:1", []byte("hej"), time.Minute))
	require.NoError(t, c.Set(ctx, alice, "stream:2", []byte("då"), time.Second))
	require.NoError(t, c.Set(ctx, bob, "stream:3", []byte("x"), time.Minute))

	t.Run("expired entries are invisible", func(t *testing.T) {
		now = now.Add(2 * time.Second)
		_, err := c.Get(ctx, alice, "stream:2")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		entries, err := c.Entries(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"stream:1": []byte("hej")}, entries)
	})

	t.Run("delete subject is scoped", func(t *testing.T) {
		n, err := c.DeleteSubject(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		entries, err := c.Entries(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, entries)
		v, err := c.Get(ctx, bob, "stream:3")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), v)
	})
}
