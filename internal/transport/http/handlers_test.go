package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"voxguard/internal/compliance"
	consentmodels "voxguard/internal/consent/models"
	feedbackmodels "voxguard/internal/feedback/models"
	"voxguard/internal/pii"
	"voxguard/internal/retention"
	rightsmodels "voxguard/internal/rights/models"
	"voxguard/internal/sanitizer"
	"voxguard/internal/transport/http/mocks"
	voicemodels "voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	"voxguard/pkg/platform/middleware/admin"
	"voxguard/pkg/requestcontext"
	"voxguard/pkg/subjecthash"
	"voxguard/pkg/testutil"
)

// =============================================================================
// HTTP API Test Suite
// =============================================================================
// Justification for unit tests: handlers own input validation, subject
// hashing, admin gating and the mapping of coded errors to status codes.
// Services are mocked; their behavior is covered in their own packages.

const testAdminToken = "admin-secret"

type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	compliance *mocks.MockComplianceService
	consent    *mocks.MockConsentService
	rights     *mocks.MockRightsService
	voice      *mocks.MockVoiceAdmin
	retention  *mocks.MockRetentionAdmin
	hasher     *subjecthash.Hasher
	router     http.Handler
	reg        *prometheus.Registry
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.compliance = mocks.NewMockComplianceService(s.ctrl)
	s.consent = mocks.NewMockConsentService(s.ctrl)
	s.rights = mocks.NewMockRightsService(s.ctrl)
	s.voice = mocks.NewMockVoiceAdmin(s.ctrl)
	s.retention = mocks.NewMockRetentionAdmin(s.ctrl)

	hasher, err := subjecthash.New(bytes.Repeat([]byte{7}, 32))
	s.Require().NoError(err)
	s.hasher = hasher

	s.reg = prometheus.NewRegistry()
	h := New(s.compliance, s.consent, s.rights, s.voice, s.retention, s.hasher, nil, NewMetrics(s.reg))
	s.router = NewRouter(h, RouterConfig{AdminToken: testAdminToken})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			s.Require().NoError(json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func pendingRequest(subject domain.SubjectHash, kind rightsmodels.Kind) *rightsmodels.Request {
	return &rightsmodels.Request{
		ID:          domain.NewRequestID(),
		SubjectHash: subject,
		Kind:        kind,
		Status:      rightsmodels.StatusPending,
		RequestedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *HandlerSuite) TestRecordConsent() {
	subject := s.hasher.Hash("caller-42@example.com")

	s.Run("hashes the subject and passes client metadata through the context", func() {
		sessionID := domain.NewSessionID()
		s.compliance.EXPECT().
			RecordConsent(gomock.Any(), sessionID, subject, domain.ConsentPurpose("analytics"), true, consentmodels.Metadata{SourceVersion: "ios-4.2"}).
			DoAndReturn(func(ctx context.Context, _ domain.SessionID, sub domain.SubjectHash, p domain.ConsentPurpose, granted bool, _ consentmodels.Metadata) (*consentmodels.Record, error) {
				s.Equal("203.0.113.5", requestcontext.ClientIP(ctx))
				s.NotEmpty(requestcontext.RequestID(ctx))
				return &consentmodels.Record{ID: uuid.New(), SubjectHash: sub, Purpose: p, Granted: granted}, nil
			})

		rec := s.do(http.MethodPost, "/v1/consent", map[string]any{
			"subject_id":     "  Caller-42@example.com ",
			"purpose":        "analytics",
			"granted":        true,
			"session_id":     sessionID.String(),
			"source_version": "ios-4.2",
		}, "X-Forwarded-For", "203.0.113.5")

		s.Equal(http.StatusCreated, rec.Code)
		var resp ConsentResponse
		s.decode(rec, &resp)
		s.Equal(subject.String(), resp.SubjectHash)
		s.True(resp.Granted)
	})

	s.Run("granted is required", func() {
		rec := s.do(http.MethodPost, "/v1/consent", map[string]any{"subject_id": "a", "purpose": "analytics"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown purpose", func() {
		rec := s.do(http.MethodPost, "/v1/consent", map[string]any{"subject_id": "a", "purpose": "telepathy", "granted": true})
		s.Equal(http.StatusBadRequest, rec.Code)
		body := testutil.UnmarshalResponse[testutil.ErrorBody](s.T(), rec)
		s.NotEmpty(body.ErrorDescription)
	})

	s.Run("withdrawing a necessary purpose is a validation error", func() {
		s.compliance.EXPECT().
			RecordConsent(gomock.Any(), gomock.Any(), gomock.Any(), domain.ConsentPurpose("voice_processing"), false, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "consent for a necessary purpose cannot be withdrawn"))

		rec := s.do(http.MethodPost, "/v1/consent", map[string]any{"subject_id": "a", "purpose": "voice_processing", "granted": false})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "cannot be withdrawn")
	})
}

func (s *HandlerSuite) TestRevokeConsent() {
	subject := s.hasher.Hash("caller-42@example.com")

	s.Run("appends a withdrawal record", func() {
		s.consent.EXPECT().
			Revoke(gomock.Any(), domain.SessionID{}, subject, domain.ConsentPurpose("marketing"), consentmodels.Metadata{}).
			Return(&consentmodels.Record{ID: uuid.New(), SubjectHash: subject, Purpose: "marketing", Granted: false}, nil)

		rec := s.do(http.MethodPost, "/v1/consent/revoke", map[string]any{"subject_id": "caller-42@example.com", "purpose": "marketing"})
		s.Equal(http.StatusCreated, rec.Code)
		var resp ConsentResponse
		s.decode(rec, &resp)
		s.False(resp.Granted)
	})

	s.Run("necessary purposes cannot be revoked", func() {
		s.consent.EXPECT().
			Revoke(gomock.Any(), gomock.Any(), subject, domain.ConsentPurpose("voice_processing"), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "consent for a necessary purpose cannot be withdrawn"))

		rec := s.do(http.MethodPost, "/v1/consent/revoke", map[string]any{"subject_id": "caller-42@example.com", "purpose": "voice_processing"})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown fields are rejected", func() {
		rec := s.do(http.MethodPost, "/v1/consent/revoke", map[string]any{"subject_id": "a", "purpose": "marketing", "granted": true})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestGetConsent() {
	subject := s.hasher.Hash("caller-42@example.com")

	s.Run("authorized", func() {
		s.compliance.EXPECT().HasValidConsent(gomock.Any(), subject, domain.ConsentPurpose("marketing")).Return(true, nil)

		rec := s.do(http.MethodGet, "/v1/consent/"+subject.String()+"/marketing", nil)
		s.Equal(http.StatusOK, rec.Code)
		var resp ConsentStatusResponse
		s.decode(rec, &resp)
		s.True(resp.Authorized)
	})

	s.Run("raw identifiers are rejected in the path", func() {
		rec := s.do(http.MethodGet, "/v1/consent/caller-42/marketing", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRightsRequests() {
	subject := s.hasher.Hash("caller-42@example.com")

	s.Run("export is accepted with a location", func() {
		created := pendingRequest(subject, rightsmodels.KindExport)
		s.compliance.EXPECT().RequestDataExport(gomock.Any(), subject).Return(created, nil)

		rec := s.do(http.MethodPost, "/v1/rights/export", map[string]string{"subject_id": "caller-42@example.com"})
		s.Equal(http.StatusAccepted, rec.Code)
		s.Equal("/v1/rights/"+created.ID.String(), rec.Header().Get("Location"))
		var resp RightsRequestResponse
		s.decode(rec, &resp)
		s.Equal("pending", resp.Status)
		s.Equal("export", resp.Kind)
	})

	s.Run("deletion", func() {
		s.compliance.EXPECT().RequestDataDeletion(gomock.Any(), subject).Return(pendingRequest(subject, rightsmodels.KindDeletion), nil)

		rec := s.do(http.MethodPost, "/v1/rights/deletion", map[string]string{"subject_id": "caller-42@example.com"})
		s.Equal(http.StatusAccepted, rec.Code)
	})

	s.Run("missing subject", func() {
		rec := s.do(http.MethodPost, "/v1/rights/deletion", map[string]string{"subject_id": "  "})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rectification is submitted after creation", func() {
		sessionID := domain.NewSessionID()
		created := pendingRequest(subject, rightsmodels.KindRectification)
		gomock.InOrder(
			s.rights.EXPECT().CreateRectificationRequest(gomock.Any(), subject, sessionID, "my name is [NAME]").Return(created, nil),
			s.rights.EXPECT().Submit(gomock.Any(), created.ID).Return(dErrors.New(dErrors.CodeConflict, "job queue is full")),
		)

		rec := s.do(http.MethodPost, "/v1/rights/rectification", map[string]string{
			"subject_id": "caller-42@example.com",
			"session_id": sessionID.String(),
			"correction": "my name is [NAME]",
		})
		s.Equal(http.StatusAccepted, rec.Code)
	})

	s.Run("poll completed export", func() {
		done := pendingRequest(subject, rightsmodels.KindExport)
		done.Status = rightsmodels.StatusCompleted
		done.ResultHandle = "signed.handle.value"
		s.rights.EXPECT().Get(gomock.Any(), done.ID).Return(done, nil)

		rec := s.do(http.MethodGet, "/v1/rights/"+done.ID.String(), nil)
		s.Equal(http.StatusOK, rec.Code)
		var resp RightsRequestResponse
		s.decode(rec, &resp)
		s.Equal("signed.handle.value", resp.DownloadToken)
	})

	s.Run("unknown request", func() {
		id := domain.NewRequestID()
		s.rights.EXPECT().Get(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeNotFound, "rights request not found"))

		rec := s.do(http.MethodGet, "/v1/rights/"+id.String(), nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
	})

	s.Run("malformed request id", func() {
		rec := s.do(http.MethodGet, "/v1/rights/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestDownload() {
	s.Run("bundle is served as an attachment", func() {
		s.rights.EXPECT().Download(gomock.Any(), "tok").Return([]byte(`{"subject_hash":"x"}`), nil)

		rec := s.do(http.MethodGet, "/v1/rights/download/tok", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Header().Get("Content-Disposition"), "attachment")
		s.Equal("no-store", rec.Header().Get("Cache-Control"))
		s.JSONEq(`{"subject_hash":"x"}`, rec.Body.String())
	})

	s.Run("reused token is forbidden", func() {
		s.rights.EXPECT().Download(gomock.Any(), "tok").Return(nil, dErrors.New(dErrors.CodeForbidden, "download handle has already been used"))

		rec := s.do(http.MethodGet, "/v1/rights/download/tok", nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("expired bundle is gone", func() {
		s.rights.EXPECT().Download(gomock.Any(), "tok").Return(nil, dErrors.New(dErrors.CodeExpired, "export bundle has expired"))

		rec := s.do(http.MethodGet, "/v1/rights/download/tok", nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusGone, "expired")
	})
}

func (s *HandlerSuite) TestComplianceCheck() {
	s.Run("violations are reported in the body", func() {
		s.compliance.EXPECT().PerformComplianceCheck(gomock.Any()).Return(compliance.HealthCheck{
			Compliant:  false,
			Status:     compliance.StatusViolation,
			Violations: []compliance.Violation{{Source: "voice", Reason: "voice data past its deletion deadline"}},
		}, nil)

		rec := s.do(http.MethodGet, "/v1/compliance/check", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"violation"`)
	})

	s.Run("uncoded failure is an opaque internal error", func() {
		s.compliance.EXPECT().PerformComplianceCheck(gomock.Any()).
			Return(compliance.HealthCheck{}, errors.New("pq: connection refused"))

		rec := s.do(http.MethodGet, "/v1/compliance/check", nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusInternalServerError, "internal_error")
		testutil.AssertNoDescription(s.T(), rec)
		s.NotContains(rec.Body.String(), "pq:")
	})
}

func (s *HandlerSuite) TestAdminEndpoints() {
	s.Run("token is required", func() {
		rec := s.do(http.MethodPost, "/v1/admin/voice/emergency-cleanup", map[string]string{"reason": "breach"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("voice emergency cleanup records the actor", func() {
		s.voice.EXPECT().EmergencyCleanup(gomock.Any(), "ops@incident-42", "suspected breach").
			Return(voicemodels.SweepResult{Scanned: 3, Deleted: 3}, nil)

		rec := s.do(http.MethodPost, "/v1/admin/voice/emergency-cleanup", map[string]string{"reason": "suspected breach"},
			admin.HeaderToken, testAdminToken, admin.HeaderActor, "ops@incident-42")
		s.Equal(http.StatusOK, rec.Code)
		var resp SweepResponse
		s.decode(rec, &resp)
		s.Equal(3, resp.Deleted)
	})

	s.Run("reason is required", func() {
		rec := s.do(http.MethodPost, "/v1/admin/voice/emergency-cleanup", `{}`, admin.HeaderToken, testAdminToken)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("retention cleanup by category", func() {
		s.retention.EXPECT().EmergencyCleanup(gomock.Any(), retention.Category("transcript"), "admin", "court order").
			Return(retention.CategoryResult{Category: "transcript", Mode: retention.ModeDelete, Processed: 12}, nil)

		rec := s.do(http.MethodPost, "/v1/admin/retention/transcript/cleanup", map[string]string{"reason": "court order"},
			admin.HeaderToken, testAdminToken)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"processed":12`)
	})

	s.Run("unknown category", func() {
		rec := s.do(http.MethodPost, "/v1/admin/retention/photos/cleanup", map[string]string{"reason": "x"},
			admin.HeaderToken, testAdminToken)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestConsentOverview() {
	subject := s.hasher.Hash("caller-42@example.com")
	updated := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	s.Run("every purpose is listed", func() {
		s.consent.EXPECT().CurrentAll(gomock.Any(), subject).Return([]consentmodels.PurposeState{
			{Purpose: domain.ConsentPurposeVoiceProcessing, Granted: true, Defaulted: true},
			{Purpose: domain.ConsentPurposeAnalytics, Granted: false, UpdatedAt: updated},
		}, nil)

		rec := s.do(http.MethodGet, "/v1/consent/"+subject.String(), nil)
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[ConsentOverviewResponse](s.T(), rec)
		s.Require().Len(resp.Purposes, 2)
		s.True(resp.Purposes[0].Defaulted)
		s.Nil(resp.Purposes[0].UpdatedAt)
		s.Require().NotNil(resp.Purposes[1].UpdatedAt)
		s.True(updated.Equal(*resp.Purposes[1].UpdatedAt))
	})

	s.Run("raw identifiers are rejected in the path", func() {
		rec := s.do(http.MethodGet, "/v1/consent/caller-42@example.com", nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlerSuite) TestSessionPipeline() {
	subject := s.hasher.Hash("caller-7")
	sessionID := domain.NewSessionID()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Run("start session hashes the subject", func() {
		s.compliance.EXPECT().StartSession(gomock.Any(), subject).
			Return(&feedbackmodels.Session{ID: sessionID, SubjectHash: subject, CreatedAt: created}, nil)

		rec := s.do(http.MethodPost, "/v1/sessions", map[string]string{"subject_id": "caller-7"})
		s.Equal(http.StatusCreated, rec.Code)
		resp := testutil.UnmarshalResponse[SessionResponse](s.T(), rec)
		s.Equal(sessionID.String(), resp.SessionID)
		s.Equal(subject.String(), resp.SubjectHash)
	})

	s.Run("track voice returns the artifact without its locator", func() {
		artifactID := domain.NewArtifactID()
		s.compliance.EXPECT().TrackVoice(gomock.Any(), sessionID, subject, "calls/7.wav", int64(4096)).
			Return(&voicemodels.Artifact{
				ID: artifactID, SessionID: sessionID, SubjectHash: subject,
				StorageLocator: "calls/7.wav", Status: voicemodels.StatusTracked, CreatedAt: created,
			}, nil)

		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/voice",
			map[string]any{"subject_id": "caller-7", "storage_locator": "calls/7.wav", "size_bytes": 4096})
		s.Equal(http.StatusCreated, rec.Code)
		s.NotContains(rec.Body.String(), "calls/7.wav")
		resp := testutil.UnmarshalResponse[ArtifactResponse](s.T(), rec)
		s.Equal(artifactID.String(), resp.ArtifactID)
		s.Equal("tracked", resp.Status)
	})

	s.Run("revoked voice consent is forbidden", func() {
		s.compliance.EXPECT().TrackVoice(gomock.Any(), sessionID, subject, "", int64(0)).
			Return(nil, dErrors.New(dErrors.CodeMissingConsent, "consent for voice_processing has not been granted"))

		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/voice", map[string]any{"subject_id": "caller-7"})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "missing_consent")
	})

	s.Run("negative size is rejected", func() {
		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/voice",
			map[string]any{"subject_id": "caller-7", "size_bytes": -1})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed session id", func() {
		rec := s.do(http.MethodPost, "/v1/sessions/nope/voice", map[string]any{"subject_id": "caller-7"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("mark processed schedules deletion", func() {
		artifactID := domain.NewArtifactID()
		deadline := created.Add(30 * time.Second)
		s.compliance.EXPECT().MarkVoiceProcessed(gomock.Any(), artifactID).
			Return(&voicemodels.Artifact{
				ID: artifactID, SessionID: sessionID, Status: voicemodels.StatusScheduledDeletion,
				CreatedAt: created, DeletionScheduledAt: &deadline,
			}, nil)

		rec := s.do(http.MethodPost, "/v1/voice/"+artifactID.String()+"/processed", nil)
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[ArtifactResponse](s.T(), rec)
		s.Equal("scheduled_deletion", resp.Status)
		s.Require().NotNil(resp.DeletionScheduledAt)
	})

	s.Run("streaming chunk keeps edge whitespace", func() {
		s.compliance.EXPECT().SanitizeStreaming(gomock.Any(), sessionID, subject, " mail me at a@b.io ").
			Return(sanitizer.StreamingResult{SanitizedText: " mail me at [EMAIL] ", PIIDetected: true, Confidence: 0.9}, nil)

		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/transcript/chunks",
			map[string]string{"subject_id": "caller-7", "chunk": " mail me at a@b.io "})
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[ChunkResponse](s.T(), rec)
		s.True(resp.PIIDetected)
		s.Equal(" mail me at [EMAIL] ", resp.SanitizedText)
	})

	s.Run("final transcript returns the detection report", func() {
		s.compliance.EXPECT().SanitizeFinal(gomock.Any(), sessionID, subject, "call me on 555 0100").
			Return(sanitizer.FinalResult{
				SanitizedTranscript: "call me on [PHONE]",
				Report: sanitizer.DetectionReport{
					DetectedTypes: []pii.Type{pii.TypeEmail}, InstanceCount: 1,
					ConfidenceScore: 88, AnonymizationApplied: true,
				},
			}, nil)

		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/transcript",
			map[string]string{"subject_id": "caller-7", "transcript": "call me on 555 0100"})
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[TranscriptResponse](s.T(), rec)
		s.Equal([]string{"email"}, resp.DetectedTypes)
		s.Equal(88, resp.ConfidenceScore)
	})

	s.Run("blank transcript is rejected", func() {
		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/transcript",
			map[string]string{"subject_id": "caller-7", "transcript": "   "})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("event without analytics consent is forbidden", func() {
		s.compliance.EXPECT().RecordEvent(gomock.Any(), subject, sessionID, "rating_submitted", map[string]string{"stars": "4"}).
			Return(nil, dErrors.New(dErrors.CodeMissingConsent, "consent for analytics has not been granted"))

		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/events",
			map[string]any{"subject_id": "caller-7", "name": "rating_submitted", "properties": map[string]string{"stars": "4"}})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("event is recorded", func() {
		eventID := uuid.New()
		s.compliance.EXPECT().RecordEvent(gomock.Any(), subject, sessionID, "rating_submitted", gomock.Nil()).
			Return(&feedbackmodels.Event{ID: eventID, Name: "rating_submitted", OccurredAt: created}, nil)

		rec := s.do(http.MethodPost, "/v1/sessions/"+sessionID.String()+"/events",
			map[string]any{"subject_id": "caller-7", "name": "rating_submitted"})
		s.Equal(http.StatusCreated, rec.Code)
		resp := testutil.UnmarshalResponse[EventResponse](s.T(), rec)
		s.Equal(eventID.String(), resp.EventID)
	})
}

func (s *HandlerSuite) TestOperatorEndpoints() {
	auth := []string{admin.HeaderToken, testAdminToken, admin.HeaderActor, "dpo@example.com"}
	subject := s.hasher.Hash("caller-9")

	s.Run("voice retry and stats", func() {
		s.voice.EXPECT().RetryErrored(gomock.Any()).Return(2, nil)
		rec := s.do(http.MethodPost, "/v1/admin/voice/retry", nil, auth...)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"retried":2}`, rec.Body.String())

		s.voice.EXPECT().Stats(gomock.Any()).Return(map[voicemodels.Status]int{voicemodels.StatusDeleted: 7}, nil)
		rec = s.do(http.MethodGet, "/v1/admin/voice/stats", nil, auth...)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"deleted":7}`, rec.Body.String())
	})

	s.Run("retention run history", func() {
		s.retention.EXPECT().LastRuns().Return([]retention.RunSummary{{Trigger: "scheduled"}})
		rec := s.do(http.MethodGet, "/v1/admin/retention/runs", nil, auth...)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"trigger":"scheduled"`)
	})

	s.Run("system revoke passes the actor as initiator", func() {
		s.consent.EXPECT().SystemRevoke(gomock.Any(), subject, domain.ConsentPurposeVoiceProcessing, "dpo@example.com", "account closed").
			Return(&consentmodels.Record{ID: uuid.New(), SubjectHash: subject, Purpose: domain.ConsentPurposeVoiceProcessing}, nil)

		rec := s.do(http.MethodPost, "/v1/admin/consent/revoke", map[string]string{
			"subject_hash": subject.String(), "purpose": "voice_processing", "reason": "account closed",
		}, auth...)
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[ConsentResponse](s.T(), rec)
		s.False(resp.Granted)
	})

	s.Run("single subject is an emergency erasure", func() {
		s.rights.EXPECT().EmergencyErase(gomock.Any(), subject, "dpo@example.com", "court order").
			Return(rightsmodels.ErasureReport{SubjectHash: subject, Verification: rightsmodels.VerifyResult{Complete: true}}, nil)

		rec := s.do(http.MethodPost, "/v1/admin/rights/erasure", map[string]any{
			"subject_hashes": []string{subject.String()}, "reason": "court order",
		}, auth...)
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[ErasureResponse](s.T(), rec)
		s.True(resp.Complete)
		s.Len(resp.Reports, 1)
	})

	s.Run("incomplete bulk erasure still reports per subject", func() {
		other := s.hasher.Hash("caller-10")
		hashes := []string{subject.String(), other.String()}
		s.rights.EXPECT().BulkErase(gomock.Any(), hashes, "dpo@example.com", "breach").
			Return([]rightsmodels.ErasureReport{{SubjectHash: subject}, {SubjectHash: other}},
				dErrors.Wrap(errors.New("voice: remover offline"), dErrors.CodeDeletionFailed, "bulk erasure incomplete"))

		rec := s.do(http.MethodPost, "/v1/admin/rights/erasure", map[string]any{"subject_hashes": hashes, "reason": "breach"}, auth...)
		s.Equal(http.StatusOK, rec.Code)
		resp := testutil.UnmarshalResponse[ErasureResponse](s.T(), rec)
		s.False(resp.Complete)
		s.Equal("bulk erasure incomplete", resp.Error)
		s.Len(resp.Reports, 2)
	})

	s.Run("invalid hash in a batch is a validation error", func() {
		s.rights.EXPECT().BulkErase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidInput, "invalid subject hash"))

		rec := s.do(http.MethodPost, "/v1/admin/rights/erasure", map[string]any{
			"subject_hashes": []string{subject.String(), "nope"}, "reason": "breach",
		}, auth...)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("empty batch", func() {
		rec := s.do(http.MethodPost, "/v1/admin/rights/erasure", map[string]any{"reason": "breach"}, auth...)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestMetricsUseRoutePatterns() {
	s.rights.EXPECT().Download(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeForbidden, "invalid download handle"))
	s.do(http.MethodGet, "/v1/rights/download/secret-token-value", nil)

	families, err := s.reg.Gather()
	s.Require().NoError(err)
	var routes []string
	for _, f := range families {
		if f.GetName() != "voxguard_http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" {
					routes = append(routes, l.GetValue())
				}
			}
		}
	}
	s.Contains(routes, "/v1/rights/download/{token}")
	for _, r := range routes {
		s.False(strings.Contains(r, "secret-token-value"))
	}
}
