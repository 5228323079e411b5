package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// InMemoryStore holds tracking records. Writes go through CompareAndSwap so
// concurrent deletion paths resolve per record, not under a global lock held
// across I/O.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[domain.ArtifactID]*models.Artifact
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[domain.ArtifactID]*models.Artifact)}
}

func (s *InMemoryStore) Create(_ context.Context, a *models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artifacts[a.ID]; exists {
		return sentinel.ErrConflict
	}
	s.artifacts[a.ID] = a.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.ArtifactID) (*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// CompareAndSwap replaces the stored record when its version still equals
// expectedVersion. On success next.Version is advanced.
func (s *InMemoryStore) CompareAndSwap(_ context.Context, next *models.Artifact, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.artifacts[next.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	next.Version = expectedVersion + 1
	s.artifacts[next.ID] = next.Clone()
	return nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses ...models.Status) ([]*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[models.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*models.Artifact
	for _, a := range s.artifacts {
		if want[a.Status] {
			out = append(out, a.Clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject domain.SubjectHash) ([]*models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Artifact
	for _, a := range s.artifacts {
		if a.SubjectHash == subject {
			out = append(out, a.Clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, a := range s.artifacts {
		counts[a.Status]++
	}
	return counts, nil
}

// PurgeDeletedBefore drops tracking records deleted before cutoff.
func (s *InMemoryStore) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.artifacts {
		if a.Status == models.StatusDeleted && a.DeletedAt != nil && a.DeletedAt.Before(cutoff) {
			delete(s.artifacts, id)
			n++
		}
	}
	return n, nil
}

func sortByCreated(as []*models.Artifact) {
	sort.Slice(as, func(i, j int) bool {
		return as[i].CreatedAt.Before(as[j].CreatedAt)
	})
}
