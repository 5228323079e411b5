package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxguard/internal/feedback/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// InMemorySessionStore is a thread-safe session store for tests and
// single-process deployments.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*models.Session
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[domain.SessionID]*models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemorySessionStore) Get(_ context.Context, id domain.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return session.Clone(), nil
}

// CompareAndSwap stores next when the stored version still equals
// expectedVersion. On success next.Version is advanced.
func (s *InMemorySessionStore) CompareAndSwap(_ context.Context, next *models.Session, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[next.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	next.Version = expectedVersion + 1
	s.sessions[next.ID] = next.Clone()
	return nil
}

func (s *InMemorySessionStore) ListBySubject(_ context.Context, subject domain.SubjectHash) ([]*models.Session, error) {
	return s.filter(func(session *models.Session) bool {
		return session.SubjectHash == subject
	}), nil
}

func (s *InMemorySessionStore) ListCreatedBefore(_ context.Context, cutoff time.Time) ([]*models.Session, error) {
	return s.filter(func(session *models.Session) bool {
		return session.CreatedAt.Before(cutoff)
	}), nil
}

func (s *InMemorySessionStore) DeleteBySubject(_ context.Context, subject domain.SubjectHash) (int, error) {
	return s.delete(func(session *models.Session) bool {
		return session.SubjectHash == subject
	}), nil
}

func (s *InMemorySessionStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	return s.delete(func(session *models.Session) bool {
		return session.CreatedAt.Before(cutoff)
	}), nil
}

func (s *InMemorySessionStore) filter(keep func(*models.Session) bool) []*models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Session
	for _, session := range s.sessions {
		if keep(session) {
			out = append(out, session.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *InMemorySessionStore) delete(match func(*models.Session) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, session := range s.sessions {
		if match(session) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// InMemoryEventStore holds analytics events.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*models.Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[uuid.UUID]*models.Event)}
}

func (s *InMemoryEventStore) Append(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemoryEventStore) Update(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemoryEventStore) ListBySubject(_ context.Context, subject domain.SubjectHash) ([]*models.Event, error) {
	return s.filter(func(e *models.Event) bool {
		return e.SubjectHash == subject
	}), nil
}

func (s *InMemoryEventStore) ListBefore(_ context.Context, cutoff time.Time) ([]*models.Event, error) {
	return s.filter(func(e *models.Event) bool {
		return e.OccurredAt.Before(cutoff)
	}), nil
}

func (s *InMemoryEventStore) DeleteBySubject(_ context.Context, subject domain.SubjectHash) (int, error) {
	return s.delete(func(e *models.Event) bool {
		return e.SubjectHash == subject
	}), nil
}

func (s *InMemoryEventStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	return s.delete(func(e *models.Event) bool {
		return e.OccurredAt.Before(cutoff)
	}), nil
}

func (s *InMemoryEventStore) filter(keep func(*models.Event) bool) []*models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out
}

func (s *InMemoryEventStore) delete(match func(*models.Event) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.events {
		if match(e) {
			delete(s.events, id)
			n++
		}
	}
	return n
}
