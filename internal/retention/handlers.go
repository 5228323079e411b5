package retention

import (
	"context"
	"fmt"
	"maps"
	"time"

	feedbackmodels "voxguard/internal/feedback/models"
	"voxguard/internal/pii"
	voicemodels "voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	"voxguard/pkg/requestcontext"
)

// Purger deletes a category's records older than cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

// Anonymizer rewrites a category's records older than cutoff in place.
type Anonymizer interface {
	Supports(rule AnonymizationRule) bool
	Anonymize(ctx context.Context, cutoff time.Time, rules []AnonymizationRule) (int, error)
}

// PurgerFunc adapts a store's purge method.
type PurgerFunc func(ctx context.Context, cutoff time.Time) (int, error)

func (f PurgerFunc) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return f(ctx, cutoff)
}

type VoicePurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (voicemodels.SweepResult, int, error)
}

// VoiceHandler forces deletion of overdue artifacts and drops old tracking
// records. It reports artifacts deleted plus records purged.
func VoiceHandler(v VoicePurger) Purger {
	return PurgerFunc(func(ctx context.Context, cutoff time.Time) (int, error) {
		result, purged, err := v.PurgeExpired(ctx, cutoff)
		n := result.Deleted + purged
		if err != nil {
			return n, err
		}
		if result.Failed > 0 {
			return n, dErrors.New(dErrors.CodeDeletionFailed, fmt.Sprintf("%d voice artifact(s) failed deletion", result.Failed))
		}
		return n, nil
	})
}

type FeedbackData interface {
	PurgeSessions(ctx context.Context, cutoff time.Time) (int, error)
	AnonymizeSessions(ctx context.Context, cutoff time.Time, fn func(*feedbackmodels.Session) bool) (int, error)
	PurgeEvents(ctx context.Context, cutoff time.Time) (int, error)
	AnonymizeEvents(ctx context.Context, cutoff time.Time, fn func(*feedbackmodels.Event) bool) (int, error)
}

type Redactor interface {
	Redact(text string) pii.Result
}

// SessionHandler deletes whole feedback sessions.
type SessionHandler struct {
	data     FeedbackData
	redactor Redactor
}

func NewSessionHandler(data FeedbackData, redactor Redactor) *SessionHandler {
	return &SessionHandler{data: data, redactor: redactor}
}

func (h *SessionHandler) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return h.data.PurgeSessions(ctx, cutoff)
}

func (h *SessionHandler) Supports(rule AnonymizationRule) bool {
	return supportsSessionRule(rule)
}

func (h *SessionHandler) Anonymize(ctx context.Context, cutoff time.Time, rules []AnonymizationRule) (int, error) {
	return anonymizeSessions(ctx, h.data, h.redactor, cutoff, rules)
}

// TranscriptHandler removes or rewrites only the transcript text, keeping
// the session row for aggregate reporting.
type TranscriptHandler struct {
	data     FeedbackData
	redactor Redactor
}

func NewTranscriptHandler(data FeedbackData, redactor Redactor) *TranscriptHandler {
	return &TranscriptHandler{data: data, redactor: redactor}
}

func (h *TranscriptHandler) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return anonymizeSessions(ctx, h.data, h.redactor, cutoff, []AnonymizationRule{
		{Field: "transcript", Method: MethodRemove},
		{Field: "pii_types", Method: MethodRemove},
	})
}

func (h *TranscriptHandler) Supports(rule AnonymizationRule) bool {
	return supportsSessionRule(rule)
}

func (h *TranscriptHandler) Anonymize(ctx context.Context, cutoff time.Time, rules []AnonymizationRule) (int, error) {
	return anonymizeSessions(ctx, h.data, h.redactor, cutoff, rules)
}

func supportsSessionRule(rule AnonymizationRule) bool {
	switch rule.Field {
	case "transcript":
		return rule.Method == MethodRedactPII || rule.Method == MethodRemove
	case "pii_types", "subject_hash":
		return rule.Method == MethodRemove
	case "created_at", "transcript_at":
		return rule.Method == MethodGeneralizeDate
	}
	return false
}

func anonymizeSessions(ctx context.Context, data FeedbackData, redactor Redactor, cutoff time.Time, rules []AnonymizationRule) (int, error) {
	now := requestcontext.Now(ctx)
	return data.AnonymizeSessions(ctx, cutoff, func(s *feedbackmodels.Session) bool {
		before := s.Clone()
		for _, r := range rules {
			switch r.Field {
			case "transcript":
				if r.Method == MethodRemove {
					s.Transcript = ""
				} else if redactor != nil {
					s.Transcript = redactor.Redact(s.Transcript).Text
				}
			case "pii_types":
				s.PIITypes = nil
			case "subject_hash":
				s.SubjectHash = domain.SubjectHash("")
			case "created_at":
				s.CreatedAt = generalize(s.CreatedAt)
			case "transcript_at":
				if s.TranscriptAt != nil {
					t := generalize(*s.TranscriptAt)
					s.TranscriptAt = &t
				}
			}
		}
		if sessionUnchanged(before, s) {
			return false
		}
		s.AnonymizedAt = &now
		return true
	})
}

func sessionUnchanged(a, b *feedbackmodels.Session) bool {
	sameTranscriptAt := (a.TranscriptAt == nil) == (b.TranscriptAt == nil) &&
		(a.TranscriptAt == nil || a.TranscriptAt.Equal(*b.TranscriptAt))
	return a.Transcript == b.Transcript &&
		len(a.PIITypes) == len(b.PIITypes) &&
		a.SubjectHash == b.SubjectHash &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		sameTranscriptAt
}

// AnalyticsHandler deletes or strips analytics events.
type AnalyticsHandler struct {
	data     FeedbackData
	redactor Redactor
}

func NewAnalyticsHandler(data FeedbackData, redactor Redactor) *AnalyticsHandler {
	return &AnalyticsHandler{data: data, redactor: redactor}
}

func (h *AnalyticsHandler) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	return h.data.PurgeEvents(ctx, cutoff)
}

func (h *AnalyticsHandler) Supports(rule AnonymizationRule) bool {
	switch rule.Field {
	case "subject_hash", "session_id":
		return rule.Method == MethodRemove
	case "properties":
		return rule.Method == MethodRemove || rule.Method == MethodRedactPII
	case "occurred_at":
		return rule.Method == MethodGeneralizeDate
	}
	return false
}

func (h *AnalyticsHandler) Anonymize(ctx context.Context, cutoff time.Time, rules []AnonymizationRule) (int, error) {
	now := requestcontext.Now(ctx)
	return h.data.AnonymizeEvents(ctx, cutoff, func(e *feedbackmodels.Event) bool {
		before := e.Clone()
		for _, r := range rules {
			switch r.Field {
			case "subject_hash":
				e.SubjectHash = domain.SubjectHash("")
			case "session_id":
				e.SessionID = domain.SessionID{}
			case "properties":
				if r.Method == MethodRemove {
					e.Properties = nil
				} else if h.redactor != nil {
					for k, v := range e.Properties {
						e.Properties[k] = h.redactor.Redact(v).Text
					}
				}
			case "occurred_at":
				e.OccurredAt = generalize(e.OccurredAt)
			}
		}
		if before.SubjectHash == e.SubjectHash && before.SessionID == e.SessionID &&
			before.OccurredAt.Equal(e.OccurredAt) && maps.Equal(before.Properties, e.Properties) {
			return false
		}
		e.AnonymizedAt = &now
		return true
	})
}

// generalize truncates t to the first day of its month.
func generalize(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
