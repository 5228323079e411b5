//go:build integration

package store_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"voxguard/internal/feedback/models"
	"voxguard/internal/feedback/store"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
	"voxguard/pkg/testutil/containers"
)

type PostgresSessionStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	sessions *store.PostgresSessionStore
}

func TestPostgresSessionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSessionStoreSuite))
}

func (s *PostgresSessionStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.sessions = store.NewPostgresSessionStore(s.postgres.DB)
}

func (s *PostgresSessionStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "feedback_sessions"))
}

func (s *PostgresSessionStoreSuite) newSession() *models.Session {
	session := &models.Session{
		ID:          domain.NewSessionID(),
		SubjectHash: domain.SubjectHash(strings.Repeat("c", 64)),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.sessions.Create(context.Background(), session))
	return session
}

func (s *PostgresSessionStoreSuite) TestCompareAndSwap() {
	ctx := context.Background()

	s.Run("version advances on each write", func() {
		session := s.newSession()
		next := session.Clone()
		next.Transcript = "Tack [NAME_REDACTED]"
		next.PIITypes = []string{"name"}
		s.Require().NoError(s.sessions.CompareAndSwap(ctx, next, 0))
		s.Equal(int64(1), next.Version)

		got, err := s.sessions.Get(ctx, session.ID)
		s.Require().NoError(err)
		s.Equal(int64(1), got.Version)
		s.Equal([]string{"name"}, got.PIITypes)
		s.Equal("Tack [NAME_REDACTED]", got.Transcript)
	})

	s.Run("stale version conflicts and unknown id is not found", func() {
		session := s.newSession()
		first := session.Clone()
		first.VoiceDataDeleted = true
		s.Require().NoError(s.sessions.CompareAndSwap(ctx, first, 0))

		stale := session.Clone()
		stale.Transcript = "late"
		s.ErrorIs(s.sessions.CompareAndSwap(ctx, stale, 0), sentinel.ErrConflict)

		unknown := session.Clone()
		unknown.ID = domain.NewSessionID()
		s.ErrorIs(s.sessions.CompareAndSwap(ctx, unknown, 0), sentinel.ErrNotFound)
	})

	s.Run("single winner per version", func() {
		session := s.newSession()
		const writers = 10
		var (
			wg       sync.WaitGroup
			won      atomic.Int32
			conflict atomic.Int32
		)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := session.Clone()
				next.Confidence = i
				err := s.sessions.CompareAndSwap(ctx, next, 0)
				switch {
				case err == nil:
					won.Add(1)
				case errors.Is(err, sentinel.ErrConflict):
					conflict.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), won.Load())
		s.Equal(int32(writers-1), conflict.Load())
	})
}
