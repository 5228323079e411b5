package models

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"voxguard/pkg/domain"
)

// Session is one feedback interaction. The transcript stored here is always
// the output of the final sanitizer pass.
type Session struct {
	ID               domain.SessionID
	SubjectHash      domain.SubjectHash
	Transcript       string
	PIITypes         []string
	Confidence       int
	CreatedAt        time.Time
	TranscriptAt     *time.Time
	VoiceDataDeleted bool
	VoiceDeletedAt   *time.Time
	AnonymizedAt     *time.Time
	// Version is bumped by the store on every successful write.
	Version int64
}

func (s *Session) Clone() *Session {
	c := *s
	c.PIITypes = slices.Clone(s.PIITypes)
	c.TranscriptAt = cloneTime(s.TranscriptAt)
	c.VoiceDeletedAt = cloneTime(s.VoiceDeletedAt)
	c.AnonymizedAt = cloneTime(s.AnonymizedAt)
	return &c
}

// IsAnonymized reports whether retention has already stripped the session.
func (s *Session) IsAnonymized() bool {
	return s.AnonymizedAt != nil
}

// Event is an analytics event. Events are only written for subjects that
// granted the analytics purpose.
type Event struct {
	ID           uuid.UUID
	SubjectHash  domain.SubjectHash
	SessionID    domain.SessionID
	Name         string
	Properties   map[string]string
	OccurredAt   time.Time
	AnonymizedAt *time.Time
}

func (e *Event) Clone() *Event {
	c := *e
	c.Properties = maps.Clone(e.Properties)
	c.AnonymizedAt = cloneTime(e.AnonymizedAt)
	return &c
}

// SubjectData is everything the feedback domain holds about one subject.
type SubjectData struct {
	Sessions []*Session `json:"sessions"`
	Events   []*Event   `json:"events"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
