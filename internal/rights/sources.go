package rights

import (
	"context"
	"fmt"
	"time"

	consentmodels "voxguard/internal/consent/models"
	feedbackmodels "voxguard/internal/feedback/models"
	"voxguard/internal/rights/models"
	"voxguard/internal/sanitizer"
	voicemodels "voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
)

// DataSource is one category of subject data that export and erasure reach.
type DataSource interface {
	Name() string
	// Export returns the subject's data in a JSON-encodable form, or nil
	// when the category contributes nothing to an export.
	Export(ctx context.Context, subject domain.SubjectHash) (any, error)
	Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error)
	// Inspect counts what is left: remaining must be zero after a complete
	// erasure, retained is kept under a legal carve-out.
	Inspect(ctx context.Context, subject domain.SubjectHash) (remaining, retained int, err error)
}

type FeedbackSessions interface {
	Sessions(ctx context.Context, subject domain.SubjectHash) ([]*feedbackmodels.Session, error)
	EraseSessions(ctx context.Context, subject domain.SubjectHash) (int, error)
}

type feedbackSource struct{ data FeedbackSessions }

// FeedbackSource covers feedback sessions and their sanitized transcripts.
func FeedbackSource(data FeedbackSessions) DataSource { return feedbackSource{data: data} }

func (feedbackSource) Name() string { return "feedback" }

func (s feedbackSource) Export(ctx context.Context, subject domain.SubjectHash) (any, error) {
	return s.data.Sessions(ctx, subject)
}

func (s feedbackSource) Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error) {
	n, err := s.data.EraseSessions(ctx, subject)
	return models.CategoryErasure{Category: s.Name(), Deleted: n}, err
}

func (s feedbackSource) Inspect(ctx context.Context, subject domain.SubjectHash) (int, int, error) {
	sessions, err := s.data.Sessions(ctx, subject)
	return len(sessions), 0, err
}

type AnalyticsEvents interface {
	Events(ctx context.Context, subject domain.SubjectHash) ([]*feedbackmodels.Event, error)
	EraseEvents(ctx context.Context, subject domain.SubjectHash) (int, error)
}

type analyticsSource struct{ data AnalyticsEvents }

func AnalyticsSource(data AnalyticsEvents) DataSource { return analyticsSource{data: data} }

func (analyticsSource) Name() string { return "analytics" }

func (s analyticsSource) Export(ctx context.Context, subject domain.SubjectHash) (any, error) {
	return s.data.Events(ctx, subject)
}

func (s analyticsSource) Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error) {
	n, err := s.data.EraseEvents(ctx, subject)
	return models.CategoryErasure{Category: s.Name(), Deleted: n}, err
}

func (s analyticsSource) Inspect(ctx context.Context, subject domain.SubjectHash) (int, int, error) {
	events, err := s.data.Events(ctx, subject)
	return len(events), 0, err
}

type ConsentLedger interface {
	History(ctx context.Context, subject domain.SubjectHash) ([]*consentmodels.Record, error)
	EraseSubject(ctx context.Context, subject domain.SubjectHash) (consentmodels.EraseResult, error)
	Inventory(ctx context.Context, subject domain.SubjectHash) (consentmodels.Inventory, error)
}

type consentSource struct{ ledger ConsentLedger }

// ConsentSource erases consent history subject to the legal-retention
// carve-out applied by the ledger itself.
func ConsentSource(ledger ConsentLedger) DataSource { return consentSource{ledger: ledger} }

func (consentSource) Name() string { return "consent" }

func (s consentSource) Export(ctx context.Context, subject domain.SubjectHash) (any, error) {
	return s.ledger.History(ctx, subject)
}

func (s consentSource) Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error) {
	res, err := s.ledger.EraseSubject(ctx, subject)
	return models.CategoryErasure{Category: s.Name(), Deleted: res.Deleted, Retained: res.Retained}, err
}

func (s consentSource) Inspect(ctx context.Context, subject domain.SubjectHash) (int, int, error) {
	inv, err := s.ledger.Inventory(ctx, subject)
	return inv.Remaining, inv.Retained, err
}

type SubjectCache interface {
	Entries(ctx context.Context, subject domain.SubjectHash) (map[string][]byte, error)
	DeleteSubject(ctx context.Context, subject domain.SubjectHash) (int, error)
}

type cacheSource struct{ cache SubjectCache }

func CacheSource(cache SubjectCache) DataSource { return cacheSource{cache: cache} }

func (cacheSource) Name() string { return "cache" }

func (s cacheSource) Export(ctx context.Context, subject domain.SubjectHash) (any, error) {
	entries, err := s.cache.Entries(ctx, subject)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for k, v := range entries {
		out[k] = string(v)
	}
	return out, nil
}

func (s cacheSource) Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error) {
	n, err := s.cache.DeleteSubject(ctx, subject)
	return models.CategoryErasure{Category: s.Name(), Deleted: n}, err
}

func (s cacheSource) Inspect(ctx context.Context, subject domain.SubjectHash) (int, int, error) {
	entries, err := s.cache.Entries(ctx, subject)
	return len(entries), 0, err
}

type VoiceArtifacts interface {
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*voicemodels.Artifact, error)
	DeleteForSubject(ctx context.Context, subject domain.SubjectHash) (voicemodels.SweepResult, error)
}

type voiceSource struct{ voice VoiceArtifacts }

// VoiceSource deletes outstanding audio immediately. Tracking records of
// already deleted audio are retained as deletion proof.
func VoiceSource(voice VoiceArtifacts) DataSource { return voiceSource{voice: voice} }

func (voiceSource) Name() string { return "voice" }

type artifactSummary struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (s voiceSource) Export(ctx context.Context, subject domain.SubjectHash) (any, error) {
	artifacts, err := s.voice.ListBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	out := make([]artifactSummary, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, artifactSummary{
			ID:        a.ID.String(),
			SessionID: a.SessionID.String(),
			Status:    a.Status.String(),
			CreatedAt: a.CreatedAt,
			DeletedAt: a.DeletedAt,
		})
	}
	return out, nil
}

func (s voiceSource) Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error) {
	res, err := s.voice.DeleteForSubject(ctx, subject)
	out := models.CategoryErasure{Category: s.Name(), Deleted: res.Deleted}
	if err == nil && res.Failed > 0 {
		err = dErrors.New(dErrors.CodeDeletionFailed, fmt.Sprintf("%d voice artifact(s) failed deletion", res.Failed))
	}
	return out, err
}

func (s voiceSource) Inspect(ctx context.Context, subject domain.SubjectHash) (int, int, error) {
	artifacts, err := s.voice.ListBySubject(ctx, subject)
	if err != nil {
		return 0, 0, err
	}
	var remaining, retained int
	for _, a := range artifacts {
		if a.Status == voicemodels.StatusDeleted {
			retained++
		} else {
			remaining++
		}
	}
	return remaining, retained, nil
}

type ExportBundles interface {
	DeleteBySubject(ctx context.Context, subject domain.SubjectHash) (int, error)
	CountBySubject(ctx context.Context, subject domain.SubjectHash) (int, error)
}

type exportSource struct{ bundles ExportBundles }

// ExportSource removes previously generated export bundles.
func ExportSource(bundles ExportBundles) DataSource { return exportSource{bundles: bundles} }

func (exportSource) Name() string { return "exports" }

func (exportSource) Export(context.Context, domain.SubjectHash) (any, error) { return nil, nil }

func (s exportSource) Erase(ctx context.Context, subject domain.SubjectHash) (models.CategoryErasure, error) {
	n, err := s.bundles.DeleteBySubject(ctx, subject)
	return models.CategoryErasure{Category: s.Name(), Deleted: n}, err
}

func (s exportSource) Inspect(ctx context.Context, subject domain.SubjectHash) (int, int, error) {
	n, err := s.bundles.CountBySubject(ctx, subject)
	return n, 0, err
}

type FinalSanitizer interface {
	SanitizeFinal(ctx context.Context, transcript string, sessionID domain.SessionID, subject domain.SubjectHash) sanitizer.FinalResult
}

type TranscriptStore interface {
	Rectify(ctx context.Context, subject domain.SubjectHash, id domain.SessionID, transcript string, piiTypes []string, confidence int) error
}

// Rectifier applies a subject-supplied correction.
type Rectifier interface {
	Rectify(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, correction string) error
}

type transcriptRectifier struct {
	sanitizer FinalSanitizer
	store     TranscriptStore
}

// TranscriptRectifier runs the correction through the final sanitizer
// before it replaces the stored transcript.
func TranscriptRectifier(s FinalSanitizer, store TranscriptStore) Rectifier {
	return transcriptRectifier{sanitizer: s, store: store}
}

func (r transcriptRectifier) Rectify(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, correction string) error {
	res := r.sanitizer.SanitizeFinal(ctx, correction, sessionID, subject)
	types := make([]string, 0, len(res.Report.DetectedTypes))
	for _, t := range res.Report.DetectedTypes {
		types = append(types, string(t))
	}
	return r.store.Rectify(ctx, subject, sessionID, res.SanitizedTranscript, types, res.Report.ConfidenceScore)
}
