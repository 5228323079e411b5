// Package sanitizer strips PII from transcripts before they are persisted or
// handed to downstream scoring. It has two entry points: a low-latency pass
// for partial streaming chunks and a thorough final pass whose output is the
// one stored.
package sanitizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"voxguard/internal/pii"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
)

const (
	modeStreaming = "streaming"
	modeFinal     = "final"
)

// AuditPublisher records detection events.
type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Config tunes the confidence score. All values come from configuration.
type Config struct {
	// SimilarityThreshold is the output/input similarity (0-1) above which
	// the output is suspected of missing PII.
	SimilarityThreshold float64
	// SimilarityPenalty is the maximum number of points subtracted when the
	// output is identical to the input.
	SimilarityPenalty float64
	// DensityPenalty is subtracted per unit of PII density (matches per word).
	DensityPenalty float64
	// ResidualPenalty is subtracted per match the validator still finds.
	ResidualPenalty float64
	// MaxValidationPasses bounds how many times the final pass re-redacts
	// residual matches.
	MaxValidationPasses int
}

func (c Config) validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("similarity threshold must be in (0,1), got %v", c.SimilarityThreshold)
	}
	if c.SimilarityPenalty < 0 || c.DensityPenalty < 0 || c.ResidualPenalty < 0 {
		return fmt.Errorf("penalties must not be negative")
	}
	if c.MaxValidationPasses < 1 {
		return fmt.Errorf("max validation passes must be at least 1")
	}
	return nil
}

// StreamingResult is the outcome of sanitizing one partial chunk.
type StreamingResult struct {
	SanitizedText string
	PIIDetected   bool
	Confidence    float64
}

// DetectionReport summarizes what the final pass found. It is returned with
// the sanitized transcript and only persisted inside audit details.
type DetectionReport struct {
	DetectedTypes        []pii.Type
	InstanceCount        int
	ConfidenceScore      int
	AnonymizationApplied bool
}

// FinalResult is the outcome of the final pass.
type FinalResult struct {
	SanitizedTranscript string
	Report              DetectionReport
}

// Sanitizer holds no per-call state and is safe for concurrent use.
type Sanitizer struct {
	engine  *pii.Engine
	cfg     Config
	auditor AuditPublisher
	metrics *Metrics
	logger  *slog.Logger
}

type Option func(*Sanitizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sanitizer) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Sanitizer) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Sanitizer) {
		s.auditor = p
	}
}

func New(engine *pii.Engine, cfg Config, opts ...Option) (*Sanitizer, error) {
	if engine == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "pii engine is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid sanitizer config")
	}
	s := &Sanitizer{engine: engine, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SanitizeStreamingChunk redacts a partial chunk with the high-precision
// pattern subset. Chunks may end mid-word; anything the subset cannot
// classify with confidence is left for the final pass.
func (s *Sanitizer) SanitizeStreamingChunk(ctx context.Context, chunk string, sessionID domain.SessionID, subject domain.SubjectHash) StreamingResult {
	res := s.engine.RedactPrecise(chunk)
	total := res.Total()
	confidence := s.confidence(chunk, res.Text, res.Edits, total)

	s.metrics.observe(modeStreaming, countsByName(res.Counts), confidence)
	if total > 0 {
		s.emitDetection(ctx, audit.ActionPIIDetectedStreaming, sessionID, subject, res, confidence)
	}

	return StreamingResult{
		SanitizedText: res.Text,
		PIIDetected:   total > 0,
		Confidence:    confidence,
	}
}

// SanitizeFinal applies the full pattern set, then re-scans the output.
// Residual matches lower the confidence score and are redacted again, up to
// MaxValidationPasses times.
func (s *Sanitizer) SanitizeFinal(ctx context.Context, transcript string, sessionID domain.SessionID, subject domain.SubjectHash) FinalResult {
	res := s.engine.Redact(transcript)
	detected := res.Total()
	edits := res.Edits

	residual := s.engine.Redact(res.Text)
	residualCount := residual.Total()
	s.metrics.incResidual(residualCount)
	for pass := 1; residual.Total() > 0 && pass < s.cfg.MaxValidationPasses; pass++ {
		mergeCounts(res.Counts, residual.Counts)
		res.Text = residual.Text
		edits += residual.Edits
		residual = s.engine.Redact(res.Text)
	}
	if residual.Total() > 0 {
		// The engine is idempotent over its own placeholders, so this only
		// happens when a registered pattern matches text produced by another.
		mergeCounts(res.Counts, residual.Counts)
		res.Text = residual.Text
		edits += residual.Edits
		s.warn(ctx, "residual PII after final validation passes", "session_id", sessionID.String(), "residual", residual.Total())
	}

	total := res.Total()
	confidence := s.confidence(transcript, res.Text, edits, detected) - float64(residualCount)*s.cfg.ResidualPenalty
	confidence = clamp(confidence)

	report := DetectionReport{
		DetectedTypes:        res.Types().Sorted(),
		InstanceCount:        total,
		ConfidenceScore:      int(confidence + 0.5),
		AnonymizationApplied: total > 0,
	}

	s.metrics.observe(modeFinal, countsByName(res.Counts), confidence)
	if total > 0 {
		s.emitDetection(ctx, audit.ActionPIIDetectedFinal, sessionID, subject, res, confidence)
	}

	return FinalResult{SanitizedTranscript: res.Text, Report: report}
}

// Detect reports which categories occur in text without redacting.
func (s *Sanitizer) Detect(text string) pii.TypeSet {
	return s.engine.Detect(text)
}

// confidence starts at 100 and is lowered by PII density and by output that
// is suspiciously close to the input.
func (s *Sanitizer) confidence(input, output string, edits, instances int) float64 {
	words := len(strings.Fields(input))
	if words == 0 {
		return 100
	}
	score := 100.0
	score -= float64(instances) / float64(words) * s.cfg.DensityPenalty

	sim := similarity(input, output, edits)
	if sim > s.cfg.SimilarityThreshold {
		score -= s.cfg.SimilarityPenalty * (sim - s.cfg.SimilarityThreshold) / (1 - s.cfg.SimilarityThreshold)
	}
	return clamp(score)
}

func (s *Sanitizer) emitDetection(ctx context.Context, action audit.Action, sessionID domain.SessionID, subject domain.SubjectHash, res pii.Result, confidence float64) {
	if s.auditor == nil {
		return
	}
	types := make([]string, 0, len(res.Counts))
	for _, t := range res.Types().Sorted() {
		types = append(types, t.String())
	}
	err := s.auditor.Emit(ctx, audit.Entry{
		SubjectHash: subject,
		Action:      action,
		LegalBasis:  audit.LegalBasisLegalObligation,
		Details: map[string]any{
			"session_id":     sessionID.String(),
			"detected_types": types,
			"instance_count": res.Total(),
			"confidence":     confidence,
		},
	})
	if err != nil {
		s.warn(ctx, "failed to emit pii detection audit entry", "error", err)
	}
}

func (s *Sanitizer) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func mergeCounts(dst, src map[pii.Type]int) {
	for t, n := range src {
		dst[t] += n
	}
}

func countsByName(counts map[pii.Type]int) map[string]int {
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[t.String()] = n
	}
	return out
}

func clamp(v float64) float64 {
	return max(0, min(100, v))
}
