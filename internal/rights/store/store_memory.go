package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"voxguard/internal/rights/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// InMemoryStore holds rights requests. Status changes go through
// CompareAndSwap.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]*models.Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[domain.RequestID]*models.Request)}
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) CompareAndSwap(_ context.Context, next *models.Request, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[next.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	next.Version = expectedVersion + 1
	s.requests[next.ID] = next.Clone()
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject domain.SubjectHash) ([]*models.Request, error) {
	return s.filter(func(r *models.Request) bool { return r.SubjectHash == subject }), nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses ...models.Status) ([]*models.Request, error) {
	return s.filter(func(r *models.Request) bool { return slices.Contains(statuses, r.Status) }), nil
}

func (s *InMemoryStore) filter(keep func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.Before(out[j].RequestedAt)
	})
	return out
}

// InMemoryExportStore holds sealed export bundles.
type InMemoryExportStore struct {
	mu      sync.Mutex
	bundles map[domain.RequestID]exportRow
}

type exportRow struct {
	subject   domain.SubjectHash
	sealed    []byte
	expiresAt time.Time
}

func NewInMemoryExportStore() *InMemoryExportStore {
	return &InMemoryExportStore{bundles: make(map[domain.RequestID]exportRow)}
}

func (s *InMemoryExportStore) Put(_ context.Context, id domain.RequestID, subject domain.SubjectHash, sealed []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[id] = exportRow{subject: subject, sealed: slices.Clone(sealed), expiresAt: expiresAt}
	return nil
}

func (s *InMemoryExportStore) Get(_ context.Context, id domain.RequestID, now time.Time) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.bundles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !now.Before(row.expiresAt) {
		return nil, sentinel.ErrExpired
	}
	return slices.Clone(row.sealed), nil
}

func (s *InMemoryExportStore) DeleteBySubject(_ context.Context, subject domain.SubjectHash) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, row := range s.bundles {
		if row.subject == subject {
			delete(s.bundles, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryExportStore) CountBySubject(_ context.Context, subject domain.SubjectHash) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.bundles {
		if row.subject == subject {
			n++
		}
	}
	return n, nil
}

// PurgeExpired drops bundles that expired before cutoff.
func (s *InMemoryExportStore) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, row := range s.bundles {
		if row.expiresAt.Before(cutoff) {
			delete(s.bundles, id)
			n++
		}
	}
	return n, nil
}
