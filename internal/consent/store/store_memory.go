package store

import (
	"context"
	"sync"
	"time"

	"voxguard/internal/consent/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// InMemoryStore keeps consent records per subject in write order.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[domain.SubjectHash][]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{consents: make(map[domain.SubjectHash][]*models.Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.consents[record.SubjectHash] = append(s.consents[record.SubjectHash], &copied)
	return nil
}

// Latest returns the most recently written record for the purpose.
func (s *InMemoryStore) Latest(_ context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.consents[subject]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Purpose == purpose {
			copied := *records[i]
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject domain.SubjectHash) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.consents[subject]
	out := make([]*models.Record, 0, len(records))
	for _, r := range records {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

// DeleteBySubject removes the subject's records written before cutoff. The
// newest record of a purpose survives when it is a withdrawal.
func (s *InMemoryStore) DeleteBySubject(_ context.Context, subject domain.SubjectHash, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(subject, cutoff, func(r *models.Record) bool { return !r.Granted }), nil
}

// deleteLocked drops records before cutoff. keepLatest decides whether the
// newest record of each purpose is exempt.
func (s *InMemoryStore) deleteLocked(subject domain.SubjectHash, cutoff time.Time, keepLatest func(*models.Record) bool) int {
	records := s.consents[subject]
	latest := make(map[domain.ConsentPurpose]*models.Record)
	for _, r := range records {
		latest[r.Purpose] = r
	}
	kept := records[:0]
	deleted := 0
	for _, r := range records {
		if r.Timestamp.Before(cutoff) && !(latest[r.Purpose] == r && keepLatest(r)) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		delete(s.consents, subject)
	} else {
		s.consents[subject] = kept
	}
	return deleted
}

// StripClientMetadata clears origin IP and user agent on the subject's
// remaining records.
func (s *InMemoryStore) StripClientMetadata(_ context.Context, subject domain.SubjectHash) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stripped := 0
	for _, r := range s.consents[subject] {
		if r.HasClientMetadata() {
			r.OriginIP = ""
			r.UserAgent = ""
			stripped++
		}
	}
	return stripped, nil
}

// PurgeOlderThan removes records written before cutoff, always keeping the
// newest record per (subject, purpose).
func (s *InMemoryStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for subject := range s.consents {
		total += s.deleteLocked(subject, cutoff, func(*models.Record) bool { return true })
	}
	return total, nil
}
