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

	"voxguard/internal/voice/models"
	"voxguard/internal/voice/store"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
	"voxguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "voice_artifacts"))
}

func testSubject(c byte) domain.SubjectHash {
	h, err := domain.ParseSubjectHash(strings.Repeat(string(c), 64))
	if err != nil {
		panic(err)
	}
	return h
}

func newArtifact(subject domain.SubjectHash) *models.Artifact {
	return &models.Artifact{
		ID:             domain.NewArtifactID(),
		SessionID:      domain.NewSessionID(),
		SubjectHash:    subject,
		StorageLocator: "sessions/abc.wav",
		SizeBytes:      2048,
		Status:         models.StatusTracked,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	a := newArtifact(testSubject('a'))
	s.Require().NoError(s.store.Create(ctx, a))

	got, err := s.store.Get(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.SubjectHash, got.SubjectHash)
	s.Equal(models.StatusTracked, got.Status)
	s.WithinDuration(a.CreatedAt, got.CreatedAt, time.Millisecond)
	s.Nil(got.DeletedAt)

	s.ErrorIs(s.store.Create(ctx, a), sentinel.ErrConflict)

	_, err = s.store.Get(ctx, domain.NewArtifactID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentTransitionSingleWinner checks that racing writers on the same
// version produce exactly one successful transition.
func (s *PostgresStoreSuite) TestConcurrentTransitionSingleWinner() {
	ctx := context.Background()
	a := newArtifact(testSubject('b'))
	s.Require().NoError(s.store.Create(ctx, a))

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := a.Clone()
			now := time.Now().UTC()
			next.Status = models.StatusScheduledDeletion
			next.DeletionScheduledAt = &now
			switch err := s.store.CompareAndSwap(ctx, next, a.Version); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	got, err := s.store.Get(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.Version+1, got.Version)
	s.Equal(models.StatusScheduledDeletion, got.Status)
}

func (s *PostgresStoreSuite) TestCompareAndSwapMissing() {
	a := newArtifact(testSubject('c'))
	s.ErrorIs(s.store.CompareAndSwap(context.Background(), a, 0), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListingAndPurge() {
	ctx := context.Background()
	subject := testSubject('d')

	live := newArtifact(subject)
	gone := newArtifact(subject)
	other := newArtifact(testSubject('e'))
	for _, a := range []*models.Artifact{live, gone, other} {
		s.Require().NoError(s.store.Create(ctx, a))
	}

	deletedAt := time.Now().UTC().Add(-48 * time.Hour)
	next := gone.Clone()
	next.Status = models.StatusDeleted
	next.DeletedAt = &deletedAt
	next.StorageLocator = ""
	s.Require().NoError(s.store.CompareAndSwap(ctx, next, gone.Version))

	s.Run("by subject", func() {
		list, err := s.store.ListBySubject(ctx, subject)
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("by status", func() {
		list, err := s.store.ListByStatus(ctx, models.OutstandingStatuses...)
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("counts", func() {
		counts, err := s.store.CountByStatus(ctx)
		s.Require().NoError(err)
		s.Equal(2, counts[models.StatusTracked])
		s.Equal(1, counts[models.StatusDeleted])
	})

	s.Run("purge removes only old deleted rows", func() {
		n, err := s.store.PurgeDeletedBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
		s.Require().NoError(err)
		s.Equal(1, n)

		_, err = s.store.Get(ctx, gone.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.Get(ctx, live.ID)
		s.NoError(err)
	})
}
