// Package compliance is the facade the rest of the system calls. It gates
// processing on consent, threads transcripts through the sanitizer into the
// feedback store, drives the voice lifecycle, opens subject rights requests,
// and aggregates the compliance health check.
package compliance

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	consentmodels "voxguard/internal/consent/models"
	feedbackmodels "voxguard/internal/feedback/models"
	"voxguard/internal/retention"
	"voxguard/internal/rights"
	rightsmodels "voxguard/internal/rights/models"
	"voxguard/internal/sanitizer"
	voicemodels "voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	auditcompliance "voxguard/pkg/platform/audit/publishers/compliance"
)

const tracerName = "voxguard/internal/compliance"

type ConsentLedger interface {
	Record(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, purpose domain.ConsentPurpose, granted bool, meta consentmodels.Metadata) (*consentmodels.Record, error)
	IsAuthorized(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (bool, error)
	VerifyAll(ctx context.Context, subject domain.SubjectHash, purposes []domain.ConsentPurpose) (consentmodels.VerifyResult, error)
}

type VoiceLifecycle interface {
	Track(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, locator string, sizeBytes int64) (*voicemodels.Artifact, error)
	MarkProcessed(ctx context.Context, id domain.ArtifactID) (*voicemodels.Artifact, error)
	Verify(ctx context.Context) (voicemodels.VerifyReport, error)
}

type TranscriptSanitizer interface {
	SanitizeStreamingChunk(ctx context.Context, chunk string, sessionID domain.SessionID, subject domain.SubjectHash) sanitizer.StreamingResult
	SanitizeFinal(ctx context.Context, transcript string, sessionID domain.SessionID, subject domain.SubjectHash) sanitizer.FinalResult
}

type FeedbackStore interface {
	CreateSession(ctx context.Context, subject domain.SubjectHash) (*feedbackmodels.Session, error)
	Get(ctx context.Context, id domain.SessionID) (*feedbackmodels.Session, error)
	SaveTranscript(ctx context.Context, id domain.SessionID, transcript string, piiTypes []string, confidence int) error
	RecordEvent(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, name string, props map[string]string) (*feedbackmodels.Event, error)
}

type SubjectRights interface {
	CreateExportRequest(ctx context.Context, subject domain.SubjectHash) (*rightsmodels.Request, error)
	CreateDeletionRequest(ctx context.Context, subject domain.SubjectHash) (*rightsmodels.Request, error)
	Submit(ctx context.Context, id domain.RequestID) error
	Backlog(ctx context.Context) (rights.Backlog, error)
	ResponseDeadline() time.Duration
}

// ChunkCache keeps the latest sanitized partial transcript per session.
type ChunkCache interface {
	Set(ctx context.Context, subject domain.SubjectHash, key string, value []byte, ttl time.Duration) error
}

type RetentionStatus interface {
	LastRun() (retention.RunSummary, bool)
}

type AuditStatus interface {
	Status() auditcompliance.EscalationStatus
}

type Config struct {
	// ChunkTTL is how long a sanitized partial transcript stays cached.
	ChunkTTL time.Duration
	// RetentionStaleAfter marks the check degraded when the last retention
	// run finished longer ago than this. Zero disables the check.
	RetentionStaleAfter time.Duration
}

type Service struct {
	consent   ConsentLedger
	voice     VoiceLifecycle
	sanitizer TranscriptSanitizer
	feedback  FeedbackStore
	rights    SubjectRights
	cache     ChunkCache
	retention RetentionStatus
	audit     AuditStatus
	cfg       Config

	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(tracerName)
	}
}

func WithChunkCache(c ChunkCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithRetentionStatus(r RetentionStatus) Option {
	return func(s *Service) {
		s.retention = r
	}
}

func WithAuditStatus(a AuditStatus) Option {
	return func(s *Service) {
		s.audit = a
	}
}

func New(consent ConsentLedger, voice VoiceLifecycle, san TranscriptSanitizer, feedback FeedbackStore, rts SubjectRights, cfg Config, opts ...Option) (*Service, error) {
	if consent == nil || voice == nil || san == nil || feedback == nil || rts == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "consent, voice, sanitizer, feedback and rights collaborators are required")
	}
	s := &Service{
		consent:   consent,
		voice:     voice,
		sanitizer: san,
		feedback:  feedback,
		rights:    rts,
		cfg:       cfg,
		tracer:    otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil && cfg.ChunkTTL <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "chunk ttl must be positive when a chunk cache is configured")
	}
	return s, nil
}

func (s *Service) RecordConsent(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, purpose domain.ConsentPurpose, granted bool, meta consentmodels.Metadata) (*consentmodels.Record, error) {
	ctx, span := s.start(ctx, "compliance.RecordConsent", subject,
		attribute.String("consent.purpose", purpose.String()), attribute.Bool("consent.granted", granted))
	defer span.End()
	record, err := s.consent.Record(ctx, sessionID, subject, purpose, granted, meta)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return record, nil
}

func (s *Service) HasValidConsent(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (bool, error) {
	ctx, span := s.start(ctx, "compliance.HasValidConsent", subject, attribute.String("consent.purpose", purpose.String()))
	defer span.End()
	ok, err := s.consent.IsAuthorized(ctx, subject, purpose)
	if err != nil {
		return false, s.fail(span, err)
	}
	span.SetAttributes(attribute.Bool("consent.authorized", ok))
	return ok, nil
}

// StartSession opens a feedback session for the subject.
func (s *Service) StartSession(ctx context.Context, subject domain.SubjectHash) (*feedbackmodels.Session, error) {
	ctx, span := s.start(ctx, "compliance.StartSession", subject)
	defer span.End()
	session, err := s.feedback.CreateSession(ctx, subject)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return session, nil
}

// TrackVoice starts tracking a captured artifact. Capture requires the
// voice_processing purpose, which only a system revocation can withdraw.
func (s *Service) TrackVoice(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, locator string, sizeBytes int64) (*voicemodels.Artifact, error) {
	ctx, span := s.start(ctx, "compliance.TrackVoice", subject, attribute.String("session.id", sessionID.String()))
	defer span.End()
	if err := s.ownSession(ctx, sessionID, subject); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.require(ctx, subject, domain.ConsentPurposeVoiceProcessing); err != nil {
		return nil, s.fail(span, err)
	}
	a, err := s.voice.Track(ctx, sessionID, subject, locator, sizeBytes)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("artifact.id", a.ID.String()))
	return a, nil
}

// SanitizeStreaming redacts one partial chunk and caches the result as the
// session's latest partial transcript.
func (s *Service) SanitizeStreaming(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, chunk string) (sanitizer.StreamingResult, error) {
	ctx, span := s.start(ctx, "compliance.SanitizeStreaming", subject, attribute.String("session.id", sessionID.String()))
	defer span.End()
	res := s.sanitizer.SanitizeStreamingChunk(ctx, chunk, sessionID, subject)
	span.SetAttributes(attribute.Bool("pii.detected", res.PIIDetected), attribute.Float64("pii.confidence", res.Confidence))
	if s.cache != nil {
		if err := s.cache.Set(ctx, subject, "partial:"+sessionID.String(), []byte(res.SanitizedText), s.cfg.ChunkTTL); err != nil {
			// The partial is a convenience copy; the redaction result stands.
			s.warn(ctx, "failed to cache sanitized chunk", "session_id", sessionID.String(), "error", err)
		}
	}
	return res, nil
}

// SanitizeFinal runs the thorough pass and persists only its output.
func (s *Service) SanitizeFinal(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, transcript string) (sanitizer.FinalResult, error) {
	ctx, span := s.start(ctx, "compliance.SanitizeFinal", subject, attribute.String("session.id", sessionID.String()))
	defer span.End()
	if err := s.ownSession(ctx, sessionID, subject); err != nil {
		return sanitizer.FinalResult{}, s.fail(span, err)
	}
	res := s.sanitizer.SanitizeFinal(ctx, transcript, sessionID, subject)
	types := make([]string, 0, len(res.Report.DetectedTypes))
	for _, t := range res.Report.DetectedTypes {
		types = append(types, string(t))
	}
	span.SetAttributes(
		attribute.Int("pii.instances", res.Report.InstanceCount),
		attribute.Int("pii.confidence", res.Report.ConfidenceScore),
	)
	if err := s.feedback.SaveTranscript(ctx, sessionID, res.SanitizedTranscript, types, res.Report.ConfidenceScore); err != nil {
		return sanitizer.FinalResult{}, s.fail(span, err)
	}
	return res, nil
}

// MarkVoiceProcessed starts the deletion countdown.
func (s *Service) MarkVoiceProcessed(ctx context.Context, id domain.ArtifactID) (*voicemodels.Artifact, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.MarkVoiceProcessed",
		trace.WithAttributes(attribute.String("artifact.id", id.String())))
	defer span.End()
	a, err := s.voice.MarkProcessed(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return a, nil
}

// RecordEvent stores an analytics event when the subject granted analytics.
func (s *Service) RecordEvent(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, name string, props map[string]string) (*feedbackmodels.Event, error) {
	ctx, span := s.start(ctx, "compliance.RecordEvent", subject, attribute.String("event.name", name))
	defer span.End()
	if !sessionID.IsNil() {
		if err := s.ownSession(ctx, sessionID, subject); err != nil {
			return nil, s.fail(span, err)
		}
	}
	if err := s.require(ctx, subject, domain.ConsentPurposeAnalytics); err != nil {
		return nil, s.fail(span, err)
	}
	e, err := s.feedback.RecordEvent(ctx, subject, sessionID, name, props)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return e, nil
}

func (s *Service) RequestDataExport(ctx context.Context, subject domain.SubjectHash) (*rightsmodels.Request, error) {
	ctx, span := s.start(ctx, "compliance.RequestDataExport", subject)
	defer span.End()
	r, err := s.rights.CreateExportRequest(ctx, subject)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.submit(ctx, span, r)
	return r, nil
}

func (s *Service) RequestDataDeletion(ctx context.Context, subject domain.SubjectHash) (*rightsmodels.Request, error) {
	ctx, span := s.start(ctx, "compliance.RequestDataDeletion", subject)
	defer span.End()
	r, err := s.rights.CreateDeletionRequest(ctx, subject)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.submit(ctx, span, r)
	return r, nil
}

// submit queues processing. A rejected submission leaves the request
// pending for the scheduler's drain task.
func (s *Service) submit(ctx context.Context, span trace.Span, r *rightsmodels.Request) {
	span.SetAttributes(attribute.String("rights.request_id", r.ID.String()))
	if err := s.rights.Submit(ctx, r.ID); err != nil {
		span.AddEvent("submit deferred", trace.WithAttributes(attribute.String("error", err.Error())))
		s.warn(ctx, "rights request left pending", "request_id", r.ID.String(), "error", err)
	}
}

// ownSession reports another subject's session as not found so callers
// cannot probe for session ids.
func (s *Service) ownSession(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash) error {
	session, err := s.feedback.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.SubjectHash != subject {
		return dErrors.New(dErrors.CodeNotFound, "feedback session not found")
	}
	return nil
}

func (s *Service) require(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) error {
	res, err := s.consent.VerifyAll(ctx, subject, []domain.ConsentPurpose{purpose})
	if err != nil {
		return err
	}
	if !res.Valid {
		s.metrics.incRejected(purpose.String())
		return dErrors.New(dErrors.CodeMissingConsent, "consent for "+purpose.String()+" has not been granted")
	}
	return nil
}

func (s *Service) start(ctx context.Context, name string, subject domain.SubjectHash, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("subject.hash", subject.Short()))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func (s *Service) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
