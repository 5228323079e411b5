package domain

import (
	"encoding/hex"

	"github.com/google/uuid"

	dErrors "voxguard/pkg/domain-errors"
)

// SubjectHash is the opaque, non-reversible identifier of a data subject.
// Every persisted record is keyed by it; raw identifiers never cross the core.
type SubjectHash string

// subjectHashLen is the hex length of a 256-bit keyed digest.
const subjectHashLen = 64

// ParseSubjectHash validates a subject hash received from a collaborator.
func ParseSubjectHash(s string) (SubjectHash, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject hash cannot be empty")
	}
	if len(s) != subjectHashLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject hash must be a 256-bit hex digest")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject hash must be hex encoded")
	}
	return SubjectHash(s), nil
}

func (h SubjectHash) String() string { return string(h) }

// IsNil reports whether the hash is empty.
func (h SubjectHash) IsNil() bool { return h == "" }

// Short returns a log-friendly prefix of the hash.
func (h SubjectHash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Typed IDs prevent mixing artifact, session, and request identifiers.
type (
	ArtifactID uuid.UUID
	SessionID  uuid.UUID
	RequestID  uuid.UUID
)

func NewArtifactID() ArtifactID { return ArtifactID(uuid.New()) }
func NewRequestID() RequestID   { return RequestID(uuid.New()) }
func NewSessionID() SessionID   { return SessionID(uuid.New()) }

func (id ArtifactID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id RequestID) String() string  { return uuid.UUID(id).String() }

func (id ArtifactID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func ParseArtifactID(s string) (ArtifactID, error) {
	u, err := parseUUID(s)
	return ArtifactID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	return SessionID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s)
	return RequestID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid id format")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be nil")
	}
	return u, nil
}
