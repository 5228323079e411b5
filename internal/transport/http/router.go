// Package httptransport exposes the compliance core over HTTP. Handlers parse
// and validate input, call one service method, and render the result.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"voxguard/internal/compliance"
	consentmodels "voxguard/internal/consent/models"
	feedbackmodels "voxguard/internal/feedback/models"
	"voxguard/internal/retention"
	rightsmodels "voxguard/internal/rights/models"
	"voxguard/internal/sanitizer"
	voicemodels "voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/httputil"
	"voxguard/pkg/platform/middleware/admin"
	"voxguard/pkg/platform/middleware/metadata"
	"voxguard/pkg/platform/middleware/request"
	"voxguard/pkg/platform/middleware/requesttime"
)

// ComplianceService is the orchestrator surface the API calls.
type ComplianceService interface {
	RecordConsent(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, purpose domain.ConsentPurpose, granted bool, meta consentmodels.Metadata) (*consentmodels.Record, error)
	HasValidConsent(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (bool, error)
	RequestDataExport(ctx context.Context, subject domain.SubjectHash) (*rightsmodels.Request, error)
	RequestDataDeletion(ctx context.Context, subject domain.SubjectHash) (*rightsmodels.Request, error)
	PerformComplianceCheck(ctx context.Context) (compliance.HealthCheck, error)

	StartSession(ctx context.Context, subject domain.SubjectHash) (*feedbackmodels.Session, error)
	TrackVoice(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, locator string, sizeBytes int64) (*voicemodels.Artifact, error)
	MarkVoiceProcessed(ctx context.Context, id domain.ArtifactID) (*voicemodels.Artifact, error)
	SanitizeStreaming(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, chunk string) (sanitizer.StreamingResult, error)
	SanitizeFinal(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, transcript string) (sanitizer.FinalResult, error)
	RecordEvent(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, name string, props map[string]string) (*feedbackmodels.Event, error)
}

// ConsentService serves withdrawal, the per-subject overview and operator
// revocation.
type ConsentService interface {
	Revoke(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, purpose domain.ConsentPurpose, meta consentmodels.Metadata) (*consentmodels.Record, error)
	CurrentAll(ctx context.Context, subject domain.SubjectHash) ([]consentmodels.PurposeState, error)
	SystemRevoke(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose, initiator, reason string) (*consentmodels.Record, error)
}

// RightsService serves request polling, downloads and rectification.
type RightsService interface {
	Get(ctx context.Context, id domain.RequestID) (*rightsmodels.Request, error)
	Download(ctx context.Context, handle string) ([]byte, error)
	CreateRectificationRequest(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, correction string) (*rightsmodels.Request, error)
	Submit(ctx context.Context, id domain.RequestID) error
	EmergencyErase(ctx context.Context, subject domain.SubjectHash, initiator, reason string) (rightsmodels.ErasureReport, error)
	BulkErase(ctx context.Context, subjects []string, initiator, reason string) ([]rightsmodels.ErasureReport, error)
}

type VoiceAdmin interface {
	EmergencyCleanup(ctx context.Context, initiator, reason string) (voicemodels.SweepResult, error)
	RetryErrored(ctx context.Context) (int, error)
	Stats(ctx context.Context) (map[voicemodels.Status]int, error)
}

type RetentionAdmin interface {
	EmergencyCleanup(ctx context.Context, category retention.Category, initiator, reason string) (retention.CategoryResult, error)
	LastRuns() []retention.RunSummary
}

// SubjectHasher turns a raw subject identifier into its keyed hash.
type SubjectHasher interface {
	Hash(raw string) domain.SubjectHash
}

// Handler serves every /v1 endpoint.
type Handler struct {
	compliance ComplianceService
	consent    ConsentService
	rights     RightsService
	voice      VoiceAdmin
	retention  RetentionAdmin
	hasher     SubjectHasher
	logger     *slog.Logger
	metrics    *Metrics
}

// New constructs the API handler.
func New(
	compliance ComplianceService,
	consent ConsentService,
	rights RightsService,
	voice VoiceAdmin,
	retention RetentionAdmin,
	hasher SubjectHasher,
	logger *slog.Logger,
	metrics *Metrics,
) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		compliance: compliance,
		consent:    consent,
		rights:     rights,
		voice:      voice,
		retention:  retention,
		hasher:     hasher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RouterConfig holds the values the router needs beyond the handler.
type RouterConfig struct {
	AdminToken     string
	RequestTimeout time.Duration
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter assembles the middleware chain and mounts all routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(h.logger))
	r.Use(request.Logger(h.logger))
	r.Use(h.metrics.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(withTimeout(timeout))
		h.Register(v1)
		v1.Group(func(adm chi.Router) {
			adm.Use(admin.RequireAdminToken(cfg.AdminToken, h.logger))
			h.RegisterAdmin(adm)
		})
	})
	return r
}

// Register mounts the caller-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.HandleRecordConsent)
	r.Post("/consent/revoke", h.HandleRevokeConsent)
	r.Get("/consent/{subject}", h.HandleListConsent)
	r.Get("/consent/{subject}/{purpose}", h.HandleGetConsent)

	r.Post("/sessions", h.HandleStartSession)
	r.Post("/sessions/{session}/voice", h.HandleTrackVoice)
	r.Post("/sessions/{session}/transcript/chunks", h.HandleSanitizeChunk)
	r.Post("/sessions/{session}/transcript", h.HandleSanitizeFinal)
	r.Post("/sessions/{session}/events", h.HandleRecordEvent)
	r.Post("/voice/{artifact}/processed", h.HandleMarkProcessed)

	r.Post("/rights/export", h.HandleRequestExport)
	r.Post("/rights/deletion", h.HandleRequestDeletion)
	r.Post("/rights/rectification", h.HandleRequestRectification)
	r.Get("/rights/download/{token}", h.HandleDownload)
	r.Get("/rights/{id}", h.HandleGetRequest)

	r.Get("/compliance/check", h.HandleComplianceCheck)
}

// RegisterAdmin mounts operator routes. Callers must guard them.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/voice/emergency-cleanup", h.HandleVoiceEmergencyCleanup)
	r.Post("/admin/voice/retry", h.HandleVoiceRetry)
	r.Get("/admin/voice/stats", h.HandleVoiceStats)
	r.Post("/admin/retention/{category}/cleanup", h.HandleRetentionCleanup)
	r.Get("/admin/retention/runs", h.HandleRetentionRuns)
	r.Post("/admin/consent/revoke", h.HandleSystemRevoke)
	r.Post("/admin/rights/erasure", h.HandleAdminErasure)
}

func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
