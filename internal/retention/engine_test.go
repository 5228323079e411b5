package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"voxguard/internal/feedback"
	feedbackstore "voxguard/internal/feedback/store"
	"voxguard/internal/pii"
	voicemodels "voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/audit/publishers/compliance"
	auditmemory "voxguard/pkg/platform/audit/store/memory"
	"voxguard/pkg/requestcontext"
)

// =============================================================================
// Retention Engine Test Suite
// =============================================================================
// Justification for unit tests: category isolation, anonymize-in-place, and
// the one-audit-entry-per-category contract are not observable through the
// scheduler.

type fakeVoice struct {
	result  voicemodels.SweepResult
	purged  int
	err     error
	cutoffs []time.Time
}

func (f *fakeVoice) PurgeExpired(_ context.Context, cutoff time.Time) (voicemodels.SweepResult, int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.result, f.purged, f.err
}

type RetentionEngineSuite struct {
	suite.Suite
	now        time.Time
	feedback   *feedback.Service
	voice      *fakeVoice
	consentCut []time.Time
	auditStore *auditmemory.InMemoryStore
	publisher  *compliance.Publisher
	subject    domain.SubjectHash
}

func TestRetentionEngineSuite(t *testing.T) {
	suite.Run(t, new(RetentionEngineSuite))
}

func (s *RetentionEngineSuite) SetupTest() {
	s.now = time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	fb, err := feedback.New(feedbackstore.NewInMemorySessionStore(), feedbackstore.NewInMemoryEventStore())
	s.Require().NoError(err)
	s.feedback = fb
	s.voice = &fakeVoice{result: voicemodels.SweepResult{Scanned: 2, Deleted: 2}, purged: 3}
	s.consentCut = nil
	s.auditStore = auditmemory.NewInMemoryStore()
	s.publisher = compliance.New(s.auditStore)
	s.subject = domain.SubjectHash("c3ab8ff13720e8ad9047dd39466b3c8974e592c2fa383d4a3960714caef0c4f2")
}

func (s *RetentionEngineSuite) policies() []Policy {
	return []Policy{
		{Category: CategoryVoiceAudio, RetentionPeriodDays: 0, AutomaticDeletion: true},
		{Category: CategoryTranscript, RetentionPeriodDays: 30, AnonymizationRules: []AnonymizationRule{
			{Field: "transcript", Method: MethodRedactPII},
			{Field: "created_at", Method: MethodGeneralizeDate},
		}},
		{Category: CategoryFeedbackSession, RetentionPeriodDays: 365, AutomaticDeletion: true},
		{Category: CategoryConsentRecord, RetentionPeriodDays: 1825, AutomaticDeletion: true},
	}
}

func (s *RetentionEngineSuite) handlers() map[Category]Purger {
	redactor := pii.NewEngine()
	return map[Category]Purger{
		CategoryVoiceAudio:      VoiceHandler(s.voice),
		CategoryTranscript:      NewTranscriptHandler(s.feedback, redactor),
		CategoryFeedbackSession: NewSessionHandler(s.feedback, redactor),
		CategoryAnalytics:       NewAnalyticsHandler(s.feedback, redactor),
		CategoryConsentRecord: PurgerFunc(func(_ context.Context, cutoff time.Time) (int, error) {
			s.consentCut = append(s.consentCut, cutoff)
			return 0, nil
		}),
	}
}

func (s *RetentionEngineSuite) newEngine(policies []Policy, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return s.now }), WithAuditPublisher(s.publisher)}, opts...)
	e, err := New(policies, s.handlers(), opts...)
	s.Require().NoError(err)
	return e
}

func (s *RetentionEngineSuite) seedSession(age time.Duration, transcript string) domain.SessionID {
	ctx := requestcontext.WithTime(context.Background(), s.now.Add(-age))
	session, err := s.feedback.CreateSession(ctx, s.subject)
	s.Require().NoError(err)
	s.Require().NoError(s.feedback.SaveTranscript(ctx, session.ID, transcript, nil, 90))
	return session.ID
}

func (s *RetentionEngineSuite) auditActions(action audit.Action) []audit.Entry {
	all, err := s.auditStore.ListAll(context.Background())
	s.Require().NoError(err)
	var out []audit.Entry
	for _, e := range all {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (s *RetentionEngineSuite) TestNewValidation() {
	s.Run("missing handler", func() {
		_, err := New([]Policy{{Category: CategoryAuditLog, RetentionPeriodDays: 365, AutomaticDeletion: true}}, s.handlers())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("anonymization needs an anonymizer", func() {
		_, err := New([]Policy{{Category: CategoryConsentRecord, RetentionPeriodDays: 1, AnonymizationRules: []AnonymizationRule{
			{Field: "origin_ip", Method: MethodRemove},
		}}}, s.handlers())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("unsupported rule", func() {
		_, err := New([]Policy{{Category: CategoryTranscript, RetentionPeriodDays: 1, AnonymizationRules: []AnonymizationRule{
			{Field: "transcript", Method: MethodGeneralizeDate},
		}}}, s.handlers())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("voice audio must delete", func() {
		_, err := New([]Policy{{Category: CategoryVoiceAudio}}, s.handlers())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("duplicate category", func() {
		p := Policy{Category: CategoryFeedbackSession, RetentionPeriodDays: 1, AutomaticDeletion: true}
		_, err := New([]Policy{p, p}, s.handlers())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *RetentionEngineSuite) TestEnforce() {
	old := s.seedSession(45*24*time.Hour, "Ring mig på 070-1234567")
	recent := s.seedSession(time.Hour, "Ring mig på 070-1234567")
	engine := s.newEngine(s.policies())

	run, err := engine.Enforce(context.Background())
	s.Require().NoError(err)
	s.True(run.OK())
	s.Require().Len(run.Results, 4)
	s.Equal(CategoryVoiceAudio, run.Results[0].Category)

	s.Run("voice safety net runs with a zero window", func() {
		s.Equal(5, run.Results[0].Processed)
		s.Equal([]time.Time{s.now}, s.voice.cutoffs)
	})

	s.Run("old transcript is anonymized in place", func() {
		got, err := s.feedback.Get(context.Background(), old)
		s.Require().NoError(err)
		s.Equal("Ring mig på [PHONE_REDACTED]", got.Transcript)
		s.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got.CreatedAt)
		s.NotNil(got.AnonymizedAt)
		s.Equal(1, run.Results[1].Processed)
	})

	s.Run("recent transcript is untouched", func() {
		got, err := s.feedback.Get(context.Background(), recent)
		s.Require().NoError(err)
		s.Equal("Ring mig på 070-1234567", got.Transcript)
		s.Nil(got.AnonymizedAt)
	})

	s.Run("consent cutoff follows the policy window", func() {
		s.Equal([]time.Time{s.now.AddDate(0, 0, -1825)}, s.consentCut)
	})

	s.Run("one audit entry per category", func() {
		entries := s.auditActions(audit.ActionRetentionEnforced)
		s.Len(entries, 4)
		for _, e := range entries {
			s.Equal(audit.LegalBasisLegalObligation, e.LegalBasis)
		}
	})

	s.Run("second run is a no-op for anonymization", func() {
		again, err := engine.Enforce(context.Background())
		s.Require().NoError(err)
		s.Equal(0, again.Results[1].Processed)
	})

	last, ok := engine.LastRun()
	s.Require().True(ok)
	s.Equal(TriggerEnforce, last.Trigger)
}

func (s *RetentionEngineSuite) TestFailingCategoryDoesNotStopOthers() {
	s.voice.err = errors.New("storage offline")
	engine := s.newEngine(s.policies())

	run, err := engine.Enforce(context.Background())
	s.Require().NoError(err)
	s.Equal(1, run.Failed())
	s.False(run.OK())
	s.Equal("storage offline", run.Results[0].Error)
	s.Len(s.consentCut, 1)
}

func (s *RetentionEngineSuite) TestEmergencyCleanup() {
	old := s.seedSession(45*24*time.Hour, "Mejla anna@example.se")
	engine := s.newEngine(s.policies())

	s.Run("requires an initiator", func() {
		_, err := engine.EmergencyCleanup(context.Background(), CategoryTranscript, "", "leak")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown category", func() {
		_, err := engine.EmergencyCleanup(context.Background(), CategoryAuditLog, "ops@voxguard", "leak")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("forces deletion instead of anonymization", func() {
		result, err := engine.EmergencyCleanup(context.Background(), CategoryTranscript, "ops@voxguard", "leak")
		s.Require().NoError(err)
		s.Equal(ModeDelete, result.Mode)
		s.Equal(1, result.Processed)
		got, err := s.feedback.Get(context.Background(), old)
		s.Require().NoError(err)
		s.Empty(got.Transcript)

		entries := s.auditActions(audit.ActionRetentionEmergencyCleanup)
		s.Require().Len(entries, 1)
		s.Equal("ops@voxguard", entries[0].ActorID)
		s.Equal("leak", entries[0].Details["reason"])
	})

	_, ok := engine.LastRun()
	s.False(ok)
}

func (s *RetentionEngineSuite) TestHistoryIsBounded() {
	engine := s.newEngine(s.policies(), WithHistoryLimit(2))
	var ids []string
	for range 3 {
		run, err := engine.Enforce(context.Background())
		s.Require().NoError(err)
		ids = append(ids, run.ID.String())
	}
	runs := engine.LastRuns()
	s.Require().Len(runs, 2)
	s.Equal(ids[2], runs[0].ID.String())
	s.Equal(ids[1], runs[1].ID.String())
}
