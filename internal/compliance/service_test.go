package compliance

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"voxguard/internal/cache"
	consentmodels "voxguard/internal/consent/models"
	consentservice "voxguard/internal/consent/service"
	consentstore "voxguard/internal/consent/store"
	"voxguard/internal/feedback"
	feedbackstore "voxguard/internal/feedback/store"
	"voxguard/internal/pii"
	"voxguard/internal/retention"
	"voxguard/internal/rights"
	rightsmodels "voxguard/internal/rights/models"
	rightsstore "voxguard/internal/rights/store"
	"voxguard/internal/sanitizer"
	"voxguard/internal/voice"
	voicemocks "voxguard/internal/voice/mocks"
	voicemodels "voxguard/internal/voice/models"
	voicestore "voxguard/internal/voice/store"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	auditcompliance "voxguard/pkg/platform/audit/publishers/compliance"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRetention struct {
	run retention.RunSummary
	ok  bool
}

func (f fakeRetention) LastRun() (retention.RunSummary, bool) { return f.run, f.ok }

type fakeAudit struct{ status auditcompliance.EscalationStatus }

func (f fakeAudit) Status() auditcompliance.EscalationStatus { return f.status }

// =============================================================================
// Compliance Orchestrator Test Suite
// =============================================================================
// Justification for unit tests: consent gating and health aggregation are
// facade rules; every collaborator is real except physical audio removal.

type ComplianceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	clock    *fixedClock
	consent  *consentservice.Service
	voice    *voice.Manager
	feedback *feedback.Service
	cache    *cache.InMemoryCache
	rights   *rights.Service
	service  *Service
	subject  domain.SubjectHash
}

func TestComplianceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceSuite))
}

func (s *ComplianceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.clock = &fixedClock{now: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)}
	s.subject = domain.SubjectHash(strings.Repeat("f", 64))

	cs, err := consentservice.New(consentstore.NewInMemoryStore(), map[domain.ConsentPurpose]bool{
		domain.ConsentPurposeVoiceProcessing: true,
		domain.ConsentPurposeFunctional:      true,
		domain.ConsentPurposeAnalytics:       false,
		domain.ConsentPurposeMarketing:       false,
		domain.ConsentPurposeAITraining:      false,
		domain.ConsentPurposePersonalization: false,
	}, consentservice.WithLegalRetention(365*24*time.Hour))
	s.Require().NoError(err)
	s.consent = cs

	fb, err := feedback.New(feedbackstore.NewInMemorySessionStore(), feedbackstore.NewInMemoryEventStore())
	s.Require().NoError(err)
	s.feedback = fb

	remover := voicemocks.NewMockArtifactRemover(s.ctrl)
	vm, err := voice.New(voicestore.NewInMemoryStore(), remover,
		voice.Config{DeletionWindow: 30 * time.Second, DeletionTimeout: 5 * time.Second},
		voice.WithClock(s.clock.Now),
		voice.WithTimerFunc(func(time.Duration, func()) {}),
		voice.WithSessionMarker(fb),
	)
	s.Require().NoError(err)
	s.voice = vm

	s.cache = cache.NewInMemoryCache()
	exports := rightsstore.NewInMemoryExportStore()
	rs, err := rights.New(rightsstore.NewInMemoryStore(), exports, rightsstore.NewInMemoryTokenStore(),
		[]rights.DataSource{rights.FeedbackSource(fb), rights.ConsentSource(cs), rights.CacheSource(s.cache)},
		rights.Config{
			ExportTokenTTL:   time.Hour,
			ResponseDeadline: 30 * 24 * time.Hour,
			StaleAfter:       time.Hour,
			SigningKey:       []byte(strings.Repeat("k", 32)),
			SealingKey:       []byte(strings.Repeat("s", 32)),
		})
	s.Require().NoError(err)
	s.rights = rs

	s.service = s.newService()
}

func (s *ComplianceSuite) TearDownTest() {
	s.voice.Close()
	s.ctrl.Finish()
}

func (s *ComplianceSuite) newService(opts ...Option) *Service {
	cfg := Config{ChunkTTL: time.Minute, RetentionStaleAfter: 48 * time.Hour}
	opts = append([]Option{WithChunkCache(s.cache)}, opts...)
	svc, err := New(s.consent, s.voice, mustSanitizer(s), s.feedback, s.rights, cfg, opts...)
	s.Require().NoError(err)
	return svc
}

func mustSanitizer(s *ComplianceSuite) *sanitizer.Sanitizer {
	san, err := sanitizer.New(pii.NewEngine(), sanitizer.Config{
		SimilarityThreshold: 0.9,
		SimilarityPenalty:   10,
		DensityPenalty:      100,
		ResidualPenalty:     25,
		MaxValidationPasses: 3,
	})
	s.Require().NoError(err)
	return san
}

func (s *ComplianceSuite) TestNew() {
	s.Run("collaborators are required", func() {
		_, err := New(nil, s.voice, mustSanitizer(s), s.feedback, s.rights, Config{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cache needs a ttl", func() {
		_, err := New(s.consent, s.voice, mustSanitizer(s), s.feedback, s.rights, Config{}, WithChunkCache(s.cache))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ComplianceSuite) TestLatestConsentWins() {
	ctx := context.Background()
	session := domain.NewSessionID()

	_, err := s.service.RecordConsent(ctx, session, s.subject, domain.ConsentPurposeAnalytics, false, consentmodels.Metadata{})
	s.Require().NoError(err)
	ok, err := s.service.HasValidConsent(ctx, s.subject, domain.ConsentPurposeAnalytics)
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.service.RecordConsent(ctx, session, s.subject, domain.ConsentPurposeAnalytics, true, consentmodels.Metadata{})
	s.Require().NoError(err)
	ok, err = s.service.HasValidConsent(ctx, s.subject, domain.ConsentPurposeAnalytics)
	s.Require().NoError(err)
	s.True(ok)

	s.Run("subject cannot refuse a necessary purpose", func() {
		_, err := s.service.RecordConsent(ctx, session, s.subject, domain.ConsentPurposeFunctional, false, consentmodels.Metadata{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ComplianceSuite) TestVoicePipeline() {
	ctx := context.Background()
	session, err := s.service.StartSession(ctx, s.subject)
	s.Require().NoError(err)

	artifact, err := s.service.TrackVoice(ctx, session.ID, s.subject, "/var/voice/a.wav", 4096)
	s.Require().NoError(err)
	s.Equal(voicemodels.StatusTracked, artifact.Status)

	partial, err := s.service.SanitizeStreaming(ctx, session.ID, s.subject, "Call me at 070-1234567")
	s.Require().NoError(err)
	s.True(partial.PIIDetected)
	s.Contains(partial.SanitizedText, "[PHONE_REDACTED]")

	cached, err := s.cache.Get(ctx, s.subject, "partial:"+session.ID.String())
	s.Require().NoError(err)
	s.Equal(partial.SanitizedText, string(cached))

	final, err := s.service.SanitizeFinal(ctx, session.ID, s.subject, "Call me at 070-1234567 or email anna@example.se")
	s.Require().NoError(err)
	s.Contains(final.SanitizedTranscript, "[EMAIL_REDACTED]")
	s.NotContains(final.SanitizedTranscript, "1234567")

	stored, err := s.feedback.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(final.SanitizedTranscript, stored.Transcript)
	s.NotEmpty(stored.PIITypes)

	processed, err := s.service.MarkVoiceProcessed(ctx, artifact.ID)
	s.Require().NoError(err)
	s.Equal(voicemodels.StatusScheduledDeletion, processed.Status)
}

func (s *ComplianceSuite) TestConsentGates() {
	ctx := context.Background()
	started, err := s.service.StartSession(ctx, s.subject)
	s.Require().NoError(err)
	session := started.ID

	s.Run("analytics events need analytics consent", func() {
		_, err := s.service.RecordEvent(ctx, s.subject, session, "rating_given", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingConsent))

		_, err = s.consent.Record(ctx, session, s.subject, domain.ConsentPurposeAnalytics, true, consentmodels.Metadata{})
		s.Require().NoError(err)
		event, err := s.service.RecordEvent(ctx, s.subject, session, "rating_given", map[string]string{"rating": "4"})
		s.Require().NoError(err)
		s.Equal("rating_given", event.Name)
	})

	s.Run("capture stops after a system revocation", func() {
		_, err := s.consent.SystemRevoke(ctx, s.subject, domain.ConsentPurposeVoiceProcessing, "ops@example.com", "legal hold")
		s.Require().NoError(err)
		_, err = s.service.TrackVoice(ctx, session, s.subject, "/var/voice/b.wav", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingConsent))
	})
}

func (s *ComplianceSuite) TestSessionsBelongToTheirSubject() {
	ctx := context.Background()
	session, err := s.service.StartSession(ctx, s.subject)
	s.Require().NoError(err)
	s.Require().NoError(s.feedback.SaveTranscript(ctx, session.ID, "Tack för hjälpen", nil, 100))
	intruder := domain.SubjectHash(strings.Repeat("e", 64))

	s.Run("final transcript of another subject's session is not written", func() {
		_, err := s.service.SanitizeFinal(ctx, session.ID, intruder, "Ring 070-1234567")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		stored, err := s.feedback.Get(ctx, session.ID)
		s.Require().NoError(err)
		s.Equal("Tack för hjälpen", stored.Transcript)
	})

	s.Run("voice cannot be tracked against another subject's session", func() {
		_, err := s.service.TrackVoice(ctx, session.ID, intruder, "/var/voice/x.wav", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		tracked, err := s.voice.ListBySubject(ctx, intruder)
		s.Require().NoError(err)
		s.Empty(tracked)
	})

	s.Run("events cannot reference another subject's session", func() {
		_, err := s.consent.Record(ctx, session.ID, intruder, domain.ConsentPurposeAnalytics, true, consentmodels.Metadata{})
		s.Require().NoError(err)
		_, err = s.service.RecordEvent(ctx, intruder, session.ID, "rating_given", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown session", func() {
		_, err := s.service.SanitizeFinal(ctx, domain.NewSessionID(), s.subject, "hej")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ComplianceSuite) TestRightsRequestsStayPendingWithoutQueue() {
	ctx := context.Background()
	r, err := s.service.RequestDataDeletion(ctx, s.subject)
	s.Require().NoError(err)
	s.Equal(rightsmodels.StatusPending, r.Status)

	n, err := s.rights.ProcessPending(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.rights.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(rightsmodels.StatusCompleted, got.Status)
}

func (s *ComplianceSuite) TestComplianceCheck() {
	ctx := context.Background()
	lastRun := fakeRetention{ok: true, run: retention.RunSummary{
		StartedAt:  s.clock.Now().Add(-time.Hour),
		FinishedAt: s.clock.Now().Add(-time.Hour),
	}}

	s.Run("healthy", func() {
		svc := s.newService(WithRetentionStatus(lastRun), WithAuditStatus(fakeAudit{}))
		check, err := svc.PerformComplianceCheck(ctx)
		s.Require().NoError(err)
		s.True(check.Compliant)
		s.Equal(StatusHealthy, check.Status)
		s.Empty(check.Violations)
	})

	s.Run("retention never ran", func() {
		svc := s.newService(WithRetentionStatus(fakeRetention{}))
		check, err := svc.PerformComplianceCheck(ctx)
		s.Require().NoError(err)
		s.True(check.Compliant)
		s.Equal(StatusDegraded, check.Status)
		s.NotEmpty(check.Recommendations)
	})

	s.Run("escalated audit writes are violations", func() {
		svc := s.newService(WithRetentionStatus(lastRun),
			WithAuditStatus(fakeAudit{status: auditcompliance.EscalationStatus{Pending: 2, LastError: "connection refused"}}))
		check, err := svc.PerformComplianceCheck(ctx)
		s.Require().NoError(err)
		s.False(check.Compliant)
		s.Equal(StatusViolation, check.Status)
		s.Require().Len(check.Violations, 1)
		s.Equal("audit", check.Violations[0].Source)
	})

	s.Run("undeleted audio past its deadline", func() {
		svc := s.newService(WithRetentionStatus(lastRun))
		session, err := svc.StartSession(ctx, s.subject)
		s.Require().NoError(err)
		_, err = svc.TrackVoice(ctx, session.ID, s.subject, "/var/voice/c.wav", 10)
		s.Require().NoError(err)

		check, err := svc.PerformComplianceCheck(ctx)
		s.Require().NoError(err)
		s.True(check.Compliant, "within deadline")

		s.clock.Advance(5 * time.Minute)
		check, err = svc.PerformComplianceCheck(ctx)
		s.Require().NoError(err)
		s.False(check.Compliant)
		s.Require().Len(check.Violations, 1)
		s.Equal("voice", check.Violations[0].Source)
	})
}
