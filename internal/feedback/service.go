// Package feedback holds the collaborator data produced by feedback
// sessions: the sanitized transcript per session and consented analytics
// events. Retention and subject-rights processing reach this data only
// through Service.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxguard/internal/feedback/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	"voxguard/pkg/platform/sentinel"
	"voxguard/pkg/requestcontext"
)

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id domain.SessionID) (*models.Session, error)
	CompareAndSwap(ctx context.Context, next *models.Session, expectedVersion int64) error
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Session, error)
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Session, error)
	DeleteBySubject(ctx context.Context, subject domain.SubjectHash) (int, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type EventStore interface {
	Append(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Event, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]*models.Event, error)
	DeleteBySubject(ctx context.Context, subject domain.SubjectHash) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// maxUpdateAttempts bounds compare-and-set retries on one session.
const maxUpdateAttempts = 5

type Service struct {
	sessions SessionStore
	events   EventStore
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(sessions SessionStore, events EventStore, opts ...Option) (*Service, error) {
	if sessions == nil || events == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "session and event stores are required")
	}
	s := &Service{sessions: sessions, events: events}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateSession opens a feedback session for subject.
func (s *Service) CreateSession(ctx context.Context, subject domain.SubjectHash) (*models.Session, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	session := &models.Session{
		ID:          domain.NewSessionID(),
		SubjectHash: subject,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create feedback session")
	}
	return session, nil
}

func (s *Service) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "feedback session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load feedback session")
	}
	return session, nil
}

// SaveTranscript stores the sanitized final transcript on the session.
func (s *Service) SaveTranscript(ctx context.Context, id domain.SessionID, transcript string, piiTypes []string, confidence int) error {
	now := requestcontext.Now(ctx)
	return s.modify(ctx, id, func(session *models.Session) (bool, error) {
		session.Transcript = transcript
		session.PIITypes = slices.Clone(piiTypes)
		session.Confidence = confidence
		session.TranscriptAt = &now
		return true, nil
	})
}

// Rectify replaces the transcript of a session owned by subject. The caller
// passes text that has already been through the final sanitizer.
func (s *Service) Rectify(ctx context.Context, subject domain.SubjectHash, id domain.SessionID, transcript string, piiTypes []string, confidence int) error {
	now := requestcontext.Now(ctx)
	return s.modify(ctx, id, func(session *models.Session) (bool, error) {
		if session.SubjectHash != subject {
			return false, dErrors.New(dErrors.CodeNotFound, "feedback session not found")
		}
		session.Transcript = transcript
		session.PIITypes = slices.Clone(piiTypes)
		session.Confidence = confidence
		session.TranscriptAt = &now
		return true, nil
	})
}

// MarkVoiceDeleted flags the session once its raw audio is gone.
func (s *Service) MarkVoiceDeleted(ctx context.Context, id domain.SessionID, at time.Time) error {
	return s.modify(ctx, id, func(session *models.Session) (bool, error) {
		if session.VoiceDataDeleted {
			return false, nil
		}
		session.VoiceDataDeleted = true
		session.VoiceDeletedAt = &at
		return true, nil
	})
}

// RecordEvent appends an analytics event. Consent is checked by the caller.
func (s *Service) RecordEvent(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, name string, props map[string]string) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if subject.IsNil() || name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject hash and event name are required")
	}
	event := &models.Event{
		ID:          uuid.New(),
		SubjectHash: subject,
		SessionID:   sessionID,
		Name:        name,
		Properties:  props,
		OccurredAt:  requestcontext.Now(ctx),
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record analytics event")
	}
	return event, nil
}

// Sessions returns the subject's sessions.
func (s *Service) Sessions(ctx context.Context, subject domain.SubjectHash) ([]*models.Session, error) {
	sessions, err := s.sessions.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list feedback sessions")
	}
	return sessions, nil
}

// Events returns the subject's analytics events.
func (s *Service) Events(ctx context.Context, subject domain.SubjectHash) ([]*models.Event, error) {
	events, err := s.events.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list analytics events")
	}
	return events, nil
}

// EraseSessions deletes every session of subject.
func (s *Service) EraseSessions(ctx context.Context, subject domain.SubjectHash) (int, error) {
	n, err := s.sessions.DeleteBySubject(ctx, subject)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to erase feedback sessions")
	}
	s.logInfo(ctx, "feedback sessions erased", "subject", subject.Short(), "count", n)
	return n, nil
}

// EraseEvents deletes every analytics event of subject.
func (s *Service) EraseEvents(ctx context.Context, subject domain.SubjectHash) (int, error) {
	n, err := s.events.DeleteBySubject(ctx, subject)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to erase analytics events")
	}
	s.logInfo(ctx, "analytics events erased", "subject", subject.Short(), "count", n)
	return n, nil
}

// PurgeSessions deletes sessions created before cutoff.
func (s *Service) PurgeSessions(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.sessions.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge feedback sessions")
	}
	return n, nil
}

// AnonymizeSessions applies fn to every session created before cutoff and
// persists the ones fn reports as changed.
func (s *Service) AnonymizeSessions(ctx context.Context, cutoff time.Time, fn func(*models.Session) bool) (int, error) {
	sessions, err := s.sessions.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list feedback sessions")
	}
	n := 0
	for _, listed := range sessions {
		changed := false
		err := s.modify(ctx, listed.ID, func(session *models.Session) (bool, error) {
			changed = fn(session)
			return changed, nil
		})
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return n, err
		}
		if changed {
			n++
		}
	}
	return n, nil
}

// PurgeEvents deletes analytics events that occurred before cutoff.
func (s *Service) PurgeEvents(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge analytics events")
	}
	return n, nil
}

// AnonymizeEvents applies fn to every event older than cutoff and persists
// the changed ones.
func (s *Service) AnonymizeEvents(ctx context.Context, cutoff time.Time, fn func(*models.Event) bool) (int, error) {
	events, err := s.events.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list analytics events")
	}
	n := 0
	for _, e := range events {
		if !fn(e) {
			continue
		}
		if err := s.events.Update(ctx, e); err != nil {
			return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to anonymize analytics event")
		}
		n++
	}
	return n, nil
}

// modify applies mutate to a fresh copy of the session and writes it back
// with a version check, reloading when another writer got there first.
// mutate returns false to leave the session untouched.
func (s *Service) modify(ctx context.Context, id domain.SessionID, mutate func(*models.Session) (bool, error)) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		updated := current.Clone()
		changed, err := mutate(updated)
		if err != nil || !changed {
			return err
		}
		err = s.sessions.CompareAndSwap(ctx, updated, current.Version)
		if err == nil {
			return nil
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "feedback session not found")
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update feedback session")
		}
	}
	return dErrors.New(dErrors.CodeConflict, "feedback session is under heavy contention")
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
