//go:build integration

package cache_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"voxguard/internal/cache"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
	"voxguard/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	cache   *cache.RedisCache
	subject domain.SubjectHash
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = cache.NewRedisCache(s.redis.Client)
	subject, err := domain.ParseSubjectHash(strings.Repeat("f", 64))
	s.Require().NoError(err)
	s.subject = subject
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushVoxguard(context.Background()))
}

func (s *RedisCacheSuite) TestSetGetAndErase() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, s.subject, "chunk:1", []byte("one"), time.Minute))
	s.Require().NoError(s.cache.Set(ctx, s.subject, "chunk:2", []byte("two"), time.Minute))

	got, err := s.cache.Get(ctx, s.subject, "chunk:1")
	s.Require().NoError(err)
	s.Equal([]byte("one"), got)

	entries, err := s.cache.Entries(ctx, s.subject)
	s.Require().NoError(err)
	s.Len(entries, 2)

	n, err := s.cache.DeleteSubject(ctx, s.subject)
	s.Require().NoError(err)
	s.Equal(2, n)

	_, err = s.cache.Get(ctx, s.subject, "chunk:1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	left, err := s.redis.Keys(ctx, containers.KeyPrefix+"cache:"+s.subject.String()+"*")
	s.Require().NoError(err)
	s.Empty(left)
}

// TestExpiredMembersArePruned drops an entry key behind the index's back, as
// TTL expiry would, and checks Entries no longer reports it.
func (s *RedisCacheSuite) TestExpiredMembersArePruned() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, s.subject, "live", []byte("x"), time.Minute))
	s.Require().NoError(s.cache.Set(ctx, s.subject, "gone", []byte("y"), time.Minute))
	s.Require().NoError(s.redis.Client.Del(ctx, "voxguard:cache:"+s.subject.String()+":gone").Err())

	entries, err := s.cache.Entries(ctx, s.subject)
	s.Require().NoError(err)
	s.Equal(map[string][]byte{"live": []byte("x")}, entries)

	members, err := s.redis.Client.SMembers(ctx, "voxguard:cache:"+s.subject.String()+":_keys").Result()
	s.Require().NoError(err)
	s.Equal([]string{"live"}, members)
}
