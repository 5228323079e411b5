package models

import (
	"time"

	"voxguard/pkg/domain"
)

// Status is the lifecycle state of a voice artifact.
type Status string

const (
	StatusTracked           Status = "tracked"
	StatusProcessed         Status = "processed"
	StatusScheduledDeletion Status = "scheduled_deletion"
	StatusDeleted           Status = "deleted"
	StatusError             Status = "error"
)

// OutstandingStatuses are every status other than deleted.
var OutstandingStatuses = []Status{StatusTracked, StatusProcessed, StatusScheduledDeletion, StatusError}

// transitions lists the allowed forward moves. error is reachable from any
// non-terminal state and only leaves back into scheduled_deletion.
var transitions = map[Status][]Status{
	StatusTracked:           {StatusProcessed, StatusScheduledDeletion, StatusError},
	StatusProcessed:         {StatusScheduledDeletion, StatusError},
	StatusScheduledDeletion: {StatusDeleted, StatusError},
	StatusError:             {StatusScheduledDeletion, StatusError},
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsValid() bool {
	switch s {
	case StatusTracked, StatusProcessed, StatusScheduledDeletion, StatusDeleted, StatusError:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Artifact tracks one physical audio artifact. Version increments on every
// write and is the compare-and-set token for transitions.
type Artifact struct {
	ID                    domain.ArtifactID
	SessionID             domain.SessionID
	SubjectHash           domain.SubjectHash
	StorageLocator        string
	SizeBytes             int64
	Status                Status
	Version               int64
	CreatedAt             time.Time
	ProcessingCompletedAt *time.Time
	DeletionScheduledAt   *time.Time
	DeletedAt             *time.Time
	ErrorMessage          string
	Attempts              int
}

// Clone returns a deep copy.
func (a *Artifact) Clone() *Artifact {
	c := *a
	c.ProcessingCompletedAt = cloneTime(a.ProcessingCompletedAt)
	c.DeletionScheduledAt = cloneTime(a.DeletionScheduledAt)
	c.DeletedAt = cloneTime(a.DeletedAt)
	return &c
}

// Deadline is the instant by which the artifact must be deleted. Artifacts
// still being processed are measured from creation.
func (a *Artifact) Deadline(window time.Duration) time.Time {
	switch {
	case a.DeletionScheduledAt != nil:
		return *a.DeletionScheduledAt
	case a.ProcessingCompletedAt != nil:
		return a.ProcessingCompletedAt.Add(window)
	default:
		return a.CreatedAt.Add(window)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SweepResult aggregates one sweep or cleanup run.
type SweepResult struct {
	Scanned int
	Deleted int
	Failed  int
	Retried int
	Skipped int
}

// Violation is a record that breaches the deletion guarantee.
type Violation struct {
	ArtifactID domain.ArtifactID
	SessionID  domain.SessionID
	Status     Status
	Overdue    time.Duration
	Reason     string
}

// VerifyReport is the outcome of a compliance verification pass.
type VerifyReport struct {
	Compliant       bool
	Violations      []Violation
	Recommendations []string
	CheckedAt       time.Time
}
