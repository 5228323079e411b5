package voice

//go:generate mockgen -source=manager.go -destination=mocks/mocks.go -package=mocks ArtifactRemover,SessionMarker,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"voxguard/internal/voice/mocks"
	"voxguard/internal/voice/models"
	"voxguard/internal/voice/store"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/audit/publishers/compliance"
	auditmemory "voxguard/pkg/platform/audit/store/memory"
)

const (
	testWindow         = 30 * time.Second
	testProofRetention = 24 * time.Hour
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type pendingTimer struct {
	delay time.Duration
	fn    func()
}

// fakeTimers records AfterFunc calls so tests decide when deadlines fire.
type fakeTimers struct {
	mu      sync.Mutex
	pending []pendingTimer
}

func (t *fakeTimers) AfterFunc(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, pendingTimer{delay: d, fn: fn})
}

func (t *fakeTimers) FireAll() []pendingTimer {
	t.mu.Lock()
	fired := t.pending
	t.pending = nil
	t.mu.Unlock()
	for _, p := range fired {
		p.fn()
	}
	return fired
}

func (t *fakeTimers) Pending() []pendingTimer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]pendingTimer(nil), t.pending...)
}

// =============================================================================
// Voice Lifecycle Manager Test Suite
// =============================================================================
// Justification for unit tests: a missed deletion is a compliance violation.
// Tests drive the deadline timer, sweep, and emergency paths explicitly,
// including races between them, against the in-memory store.

type ManagerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	remover    *mocks.MockArtifactRemover
	marker     *mocks.MockSessionMarker
	store      *store.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	clock      *fakeClock
	timers     *fakeTimers
	manager    *Manager
	session    domain.SessionID
	subject    domain.SubjectHash
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.remover = mocks.NewMockArtifactRemover(s.ctrl)
	s.marker = mocks.NewMockSessionMarker(s.ctrl)
	s.store = store.NewInMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.clock = &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s.timers = &fakeTimers{}
	s.session = domain.NewSessionID()
	s.subject = domain.SubjectHash(strings.Repeat("d", 64))

	var err error
	s.manager, err = New(s.store, s.remover,
		Config{DeletionWindow: testWindow, DeletionTimeout: 5 * time.Second, ProofRetention: testProofRetention},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(compliance.New(s.auditStore)),
		WithSessionMarker(s.marker),
		WithClock(s.clock.Now),
		WithTimerFunc(s.timers.AfterFunc),
	)
	s.Require().NoError(err)
}

func (s *ManagerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ManagerSuite) countActions(action audit.Action) int {
	entries, err := s.auditStore.ListRecent(context.Background(), 10_000)
	s.Require().NoError(err)
	n := 0
	for _, e := range entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (s *ManagerSuite) processed(locator string) *models.Artifact {
	ctx := context.Background()
	a, err := s.manager.Track(ctx, s.session, s.subject, locator, 2048)
	s.Require().NoError(err)
	a, err = s.manager.MarkProcessed(ctx, a.ID)
	s.Require().NoError(err)
	return a
}

func (s *ManagerSuite) status(id domain.ArtifactID) models.Status {
	a, err := s.manager.Get(context.Background(), id)
	s.Require().NoError(err)
	return a.Status
}

func (s *ManagerSuite) TestNew() {
	s.Run("window must be positive", func() {
		_, err := New(s.store, s.remover, Config{DeletionTimeout: time.Second})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("remover is required", func() {
		_, err := New(s.store, nil, Config{DeletionWindow: time.Second, DeletionTimeout: time.Second})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ManagerSuite) TestTrack() {
	s.Run("creates tracked record and audit entry", func() {
		a, err := s.manager.Track(context.Background(), s.session, s.subject, "s1.webm", 1024)
		s.Require().NoError(err)
		s.Equal(models.StatusTracked, a.Status)
		s.Equal(s.clock.Now(), a.CreatedAt)
		s.Equal(1, s.countActions(audit.ActionVoiceTracked))
	})

	s.Run("session is required", func() {
		_, err := s.manager.Track(context.Background(), domain.SessionID{}, s.subject, "s1.webm", 1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ManagerSuite) TestMarkProcessed() {
	s.Run("schedules deletion at the window", func() {
		a := s.processed("s1.webm")

		s.Equal(models.StatusScheduledDeletion, a.Status)
		s.Require().NotNil(a.DeletionScheduledAt)
		s.Equal(s.clock.Now().Add(testWindow), *a.DeletionScheduledAt)
		pending := s.timers.Pending()
		s.Require().Len(pending, 1)
		s.Equal(testWindow, pending[0].delay)
		s.Equal(1, s.countActions(audit.ActionVoiceProcessed))
	})

	s.Run("cannot process twice", func() {
		a := s.processed("s2.webm")
		_, err := s.manager.MarkProcessed(context.Background(), a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown artifact", func() {
		_, err := s.manager.MarkProcessed(context.Background(), domain.NewArtifactID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ManagerSuite) TestDeadlineTimerDeletes() {
	a := s.processed("s1.webm")
	s.clock.Advance(testWindow)

	s.remover.EXPECT().Remove(gomock.Any(), "s1.webm").Return(true, nil).Times(1)
	s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), s.session, s.clock.Now()).Return(nil).Times(1)

	fired := s.timers.FireAll()
	s.Require().Len(fired, 1)

	got, err := s.manager.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDeleted, got.Status)
	s.Require().NotNil(got.DeletedAt)
	s.LessOrEqual(got.DeletedAt.Sub(*got.ProcessingCompletedAt), testWindow)
	s.Equal(1, s.countActions(audit.ActionVoiceDeleted))

	s.Run("duplicate firing is a no-op", func() {
		fired[0].fn()
		s.Equal(models.StatusDeleted, s.status(a.ID))
		s.Equal(1, s.countActions(audit.ActionVoiceDeleted))
	})
}

func (s *ManagerSuite) TestMissingFileIsNotAnError() {
	a := s.processed("gone.webm")
	s.clock.Advance(testWindow)

	s.remover.EXPECT().Remove(gomock.Any(), "gone.webm").Return(false, nil)
	s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), s.session, gomock.Any()).Return(nil)

	s.timers.FireAll()
	s.Equal(models.StatusDeleted, s.status(a.ID))
}

func (s *ManagerSuite) TestFailedDeletionIsRetriedBySweep() {
	ctx := context.Background()
	a := s.processed("locked.webm")
	s.clock.Advance(testWindow)

	s.remover.EXPECT().Remove(gomock.Any(), "locked.webm").Return(true, errors.New("permission denied")).Times(1)
	s.timers.FireAll()

	failed, err := s.manager.Get(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusError, failed.Status)
	s.Contains(failed.ErrorMessage, "permission denied")
	s.Equal(1, s.countActions(audit.ActionVoiceDeletionFailed))

	report, err := s.manager.Verify(ctx)
	s.Require().NoError(err)
	s.False(report.Compliant)
	s.Len(report.Violations, 1)

	s.remover.EXPECT().Remove(gomock.Any(), "locked.webm").Return(true, nil).Times(1)
	s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), s.session, gomock.Any()).Return(nil)

	result, err := s.manager.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(models.SweepResult{Scanned: 1, Deleted: 1, Retried: 1}, result)
	s.Equal(models.StatusDeleted, s.status(a.ID))
	s.Equal(1, s.countActions(audit.ActionVoiceSweepCompleted))

	report, err = s.manager.Verify(ctx)
	s.Require().NoError(err)
	s.True(report.Compliant)
}

func (s *ManagerSuite) TestSweepLeavesArtifactsInsideWindow() {
	a := s.processed("fresh.webm")

	result, err := s.manager.Sweep(context.Background())
	s.Require().NoError(err)
	s.Equal(1, result.Skipped)
	s.Zero(result.Deleted)
	s.Equal(models.StatusScheduledDeletion, s.status(a.ID))
}

func (s *ManagerSuite) TestTimerSweepAndEmergencyRace() {
	s.remover.EXPECT().Remove(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	const n = 20
	ids := make([]domain.ArtifactID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, s.processed(fmt.Sprintf("race-%d.webm", i)).ID)
	}
	s.clock.Advance(testWindow)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.timers.FireAll()
	}()
	go func() {
		defer wg.Done()
		_, _ = s.manager.Sweep(context.Background())
	}()
	go func() {
		defer wg.Done()
		_, _ = s.manager.EmergencyCleanup(context.Background(), "ops@voxguard", "race test")
	}()
	wg.Wait()

	for _, id := range ids {
		s.Equal(models.StatusDeleted, s.status(id))
	}
	s.Equal(n, s.countActions(audit.ActionVoiceDeleted), "first writer wins; losers emit nothing")
}

func (s *ManagerSuite) TestVerify() {
	ctx := context.Background()
	a, err := s.manager.Track(ctx, s.session, s.subject, "s1.webm", 10)
	s.Require().NoError(err)

	report, err := s.manager.Verify(ctx)
	s.Require().NoError(err)
	s.True(report.Compliant)
	s.Empty(report.Violations)

	s.clock.Advance(testWindow + time.Second)

	report, err = s.manager.Verify(ctx)
	s.Require().NoError(err)
	s.False(report.Compliant)
	s.Require().Len(report.Violations, 1)
	s.Equal(a.ID, report.Violations[0].ArtifactID)
	s.Equal(s.session, report.Violations[0].SessionID)
	s.Equal(time.Second, report.Violations[0].Overdue)
	s.NotEmpty(report.Recommendations)
}

func (s *ManagerSuite) TestEmergencyCleanup() {
	ctx := context.Background()

	s.Run("initiator is required", func() {
		_, err := s.manager.EmergencyCleanup(ctx, "", "no reason")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("deletes everything regardless of deadline", func() {
		tracked, err := s.manager.Track(ctx, s.session, s.subject, "live.webm", 10)
		s.Require().NoError(err)
		scheduled := s.processed("scheduled.webm")

		s.remover.EXPECT().Remove(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
		s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), s.session, gomock.Any()).Return(nil).Times(2)

		result, err := s.manager.EmergencyCleanup(ctx, "ops@voxguard", "storage breach")
		s.Require().NoError(err)
		s.Equal(2, result.Scanned)
		s.Equal(2, result.Deleted)
		s.Equal(models.StatusDeleted, s.status(tracked.ID))
		s.Equal(models.StatusDeleted, s.status(scheduled.ID))

		entries, err := s.auditStore.ListRecent(ctx, 1)
		s.Require().NoError(err)
		s.Equal(audit.ActionVoiceEmergencyCleanup, entries[0].Action)
		s.Equal("ops@voxguard", entries[0].ActorID)
	})
}

func (s *ManagerSuite) TestDeleteForSubject() {
	ctx := context.Background()
	mine := s.processed("mine.webm")
	other, err := s.manager.Track(ctx, domain.NewSessionID(), domain.SubjectHash(strings.Repeat("e", 64)), "other.webm", 10)
	s.Require().NoError(err)

	s.remover.EXPECT().Remove(gomock.Any(), "mine.webm").Return(true, nil).Times(1)
	s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), s.session, gomock.Any()).Return(nil)

	result, err := s.manager.DeleteForSubject(ctx, s.subject)
	s.Require().NoError(err)
	s.Equal(1, result.Deleted)
	s.Equal(models.StatusDeleted, s.status(mine.ID))
	s.Equal(models.StatusTracked, s.status(other.ID))
}

func (s *ManagerSuite) TestPurgeExpired() {
	ctx := context.Background()
	a, err := s.manager.Track(ctx, s.session, s.subject, "stale.webm", 10)
	s.Require().NoError(err)
	s.clock.Advance(testWindow + time.Second)

	s.remover.EXPECT().Remove(gomock.Any(), "stale.webm").Return(true, nil)
	s.marker.EXPECT().MarkVoiceDeleted(gomock.Any(), s.session, gomock.Any()).Return(nil)

	result, purged, err := s.manager.PurgeExpired(ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Equal(1, result.Deleted)
	s.Zero(purged)
	s.Equal(models.StatusDeleted, s.status(a.ID))

	s.Run("deletion proof outlives the audio policy", func() {
		_, purged, err := s.manager.PurgeExpired(ctx, s.clock.Now().Add(time.Hour))
		s.Require().NoError(err)
		s.Zero(purged)
		s.Equal(models.StatusDeleted, s.status(a.ID))

		records, err := s.manager.ListBySubject(ctx, s.subject)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.NotNil(records[0].DeletedAt)
	})

	s.Run("proof is dropped after its retention", func() {
		s.clock.Advance(testProofRetention + time.Second)
		_, purged, err := s.manager.PurgeExpired(ctx, s.clock.Now())
		s.Require().NoError(err)
		s.Equal(1, purged)
	})
}

func (s *ManagerSuite) TestCloseStopsTimers() {
	a := s.processed("late.webm")
	s.clock.Advance(testWindow)
	s.manager.Close()

	s.timers.FireAll()
	s.Equal(models.StatusScheduledDeletion, s.status(a.ID))
}
