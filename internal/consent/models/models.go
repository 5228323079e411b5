package models

import (
	"time"

	"github.com/google/uuid"

	"voxguard/pkg/domain"
)

// Record is one consent decision. Records are immutable once written; the
// current state for a (subject, purpose) pair is the most recent record.
type Record struct {
	ID            uuid.UUID
	SubjectHash   domain.SubjectHash
	Purpose       domain.ConsentPurpose
	Granted       bool
	Timestamp     time.Time
	SourceVersion string
	OriginIP      string
	// UserAgent holds a minimized "<browser> <major>/<os>" summary, never the
	// raw header.
	UserAgent string
	SessionID domain.SessionID
	// Initiator is set on system revocations.
	Initiator string
}

// HasClientMetadata reports whether the record still carries origin IP or
// user agent.
func (r *Record) HasClientMetadata() bool {
	return r.OriginIP != "" || r.UserAgent != ""
}

// Metadata is the request context captured alongside a decision.
type Metadata struct {
	SourceVersion string
	OriginIP      string
	UserAgent     string
}

// PurposeState is the effective consent for one purpose.
type PurposeState struct {
	Purpose   domain.ConsentPurpose
	Granted   bool
	Defaulted bool
	UpdatedAt time.Time
}

// VerifyResult is the outcome of checking a set of purposes.
type VerifyResult struct {
	Valid   bool
	Missing []domain.ConsentPurpose
}

// EraseResult reports what an erasure removed and what the legal-retention
// carve-out kept.
type EraseResult struct {
	Deleted  int
	Retained int
}

// Inventory classifies a subject's remaining records after erasure.
// Retained records are inside the legal window and already minimized.
type Inventory struct {
	Remaining int
	Retained  int
}
