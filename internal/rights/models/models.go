package models

import (
	"time"

	"voxguard/pkg/domain"
)

type Kind string

const (
	KindExport        Kind = "export"
	KindDeletion      Kind = "deletion"
	KindRectification Kind = "rectification"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindExport, KindDeletion, KindRectification:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Status of a request. Pending is the only initial state; completed and
// failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Request is one subject-rights request.
type Request struct {
	ID            domain.RequestID
	SubjectHash   domain.SubjectHash
	Kind          Kind
	Status        Status
	RequestedAt   time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	ResultHandle  string
	ExpiresAt     *time.Time
	FailureReason string
	// SessionID and Correction carry a rectification. Correction is cleared
	// once the request reaches a terminal state.
	SessionID  domain.SessionID
	Correction string
	Version    int64
}

func (r *Request) Clone() *Request {
	c := *r
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.ExpiresAt = cloneTime(r.ExpiresAt)
	return &c
}

// Age is how long the request has been open at now.
func (r *Request) Age(now time.Time) time.Duration {
	return now.Sub(r.RequestedAt)
}

// CategoryErasure is what one data source removed and kept.
type CategoryErasure struct {
	Category string `json:"category"`
	Deleted  int    `json:"deleted"`
	Retained int    `json:"retained"`
	Error    string `json:"error,omitempty"`
}

// ErasureReport is the outcome of erasing one subject.
type ErasureReport struct {
	SubjectHash  domain.SubjectHash `json:"subject_hash"`
	Categories   []CategoryErasure  `json:"categories"`
	Verification VerifyResult       `json:"verification"`
}

// Deleted returns the total number of records removed.
func (r ErasureReport) Deleted() int {
	n := 0
	for _, c := range r.Categories {
		n += c.Deleted
	}
	return n
}

// VerifyResult lets a caller check an erasure claim. Retained lists
// categories kept under a legal-retention carve-out and is not a violation.
type VerifyResult struct {
	Complete      bool      `json:"complete"`
	RemainingData []string  `json:"remaining_data"`
	Retained      []string  `json:"retained"`
	Violations    []string  `json:"violations"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Bundle is the export payload before sealing.
type Bundle struct {
	RequestID   string             `json:"request_id"`
	SubjectHash domain.SubjectHash `json:"subject_hash"`
	GeneratedAt time.Time          `json:"generated_at"`
	Data        map[string]any     `json:"data"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
