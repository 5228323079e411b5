package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"voxguard/pkg/domain"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/audit/store/memory"
	"voxguard/pkg/requestcontext"
)

// flakyStore fails every Append while failing is set.
type flakyStore struct {
	*memory.InMemoryStore
	mu      sync.Mutex
	failing bool
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *flakyStore) Append(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New("audit db unavailable")
	}
	return s.InMemoryStore.Append(ctx, e)
}

type PublisherSuite struct {
	suite.Suite
	store     *flakyStore
	publisher *Publisher
	subject   domain.SubjectHash
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = &flakyStore{InMemoryStore: memory.NewInMemoryStore()}
	s.publisher = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
		WithEscalationCapacity(2),
	)
	s.subject = domain.SubjectHash(strings.Repeat("a", 64))
}

func (s *PublisherSuite) TestEmit() {
	s.Run("fills metadata from context", func() {
		fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), fixed)
		ctx = requestcontext.WithRequestID(ctx, "req-9")
		ctx = requestcontext.WithActorID(ctx, "admin@ops")

		err := s.publisher.Emit(ctx, audit.Entry{
			SubjectHash: s.subject,
			Action:      audit.ActionConsentRecorded,
			LegalBasis:  audit.LegalBasisConsent,
		})
		s.Require().NoError(err)

		entries, err := s.store.ListBySubject(context.Background(), s.subject)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(fixed, entries[0].Timestamp)
		s.Equal("req-9", entries[0].RequestID)
		s.Equal("admin@ops", entries[0].ActorID)
		s.Equal(audit.CategoryCompliance, entries[0].Category)
		s.NotEmpty(entries[0].ID)
	})

	s.Run("rejects entries without action", func() {
		err := s.publisher.Emit(context.Background(), audit.Entry{SubjectHash: s.subject})
		s.ErrorIs(err, ErrMissingAction)
	})
}

func (s *PublisherSuite) TestEscalation() {
	s.Run("failed writes are escalated, not returned", func() {
		s.store.setFailing(true)
		err := s.publisher.Emit(context.Background(), audit.Entry{
			SubjectHash: s.subject,
			Action:      audit.ActionVoiceDeleted,
		})
		s.Require().NoError(err)

		status := s.publisher.Status()
		s.Equal(1, status.Pending)
		s.Equal(int64(1), status.TotalFailures)
		s.Contains(status.LastError, "unavailable")
	})

	s.Run("flush persists parked entries once the store recovers", func() {
		s.store.setFailing(false)
		persisted, remaining := s.publisher.Flush(context.Background())
		s.Equal(1, persisted)
		s.Equal(0, remaining)

		entries, err := s.store.ListBySubject(context.Background(), s.subject)
		s.Require().NoError(err)
		s.Len(entries, 1)
	})

	s.Run("overflow drops oldest and is counted", func() {
		s.store.setFailing(true)
		for i := 0; i < 3; i++ {
			s.Require().NoError(s.publisher.Emit(context.Background(), audit.Entry{Action: audit.ActionVoiceSweepCompleted}))
		}
		status := s.publisher.Status()
		s.Equal(2, status.Pending)
		s.Equal(int64(1), status.Dropped)
	})
}
