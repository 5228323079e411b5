package httptransport

import (
	"strings"

	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
)

const (
	maxSubjectLen    = 256
	maxReasonLen     = 512
	maxCorrectionLen = 64 << 10
	maxChunkLen      = 16 << 10
	maxTranscriptLen = 512 << 10
	maxLocatorLen    = 1024
	maxEventNameLen  = 128
	maxEventProps    = 32
	maxErasureBatch  = 100
)

// RecordConsentRequest is the body for POST /v1/consent.
type RecordConsentRequest struct {
	SubjectID     string `json:"subject_id"`
	Purpose       string `json:"purpose"`
	Granted       *bool  `json:"granted"`
	SessionID     string `json:"session_id,omitempty"`
	SourceVersion string `json:"source_version,omitempty"`

	parsedPurpose   domain.ConsentPurpose
	parsedSessionID domain.SessionID
}

// Validate validates and parses the request.
func (r *RecordConsentRequest) Validate() error {
	if err := validateSubjectID(&r.SubjectID); err != nil {
		return err
	}
	r.Purpose = strings.TrimSpace(r.Purpose)
	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	purpose, err := domain.ParseConsentPurpose(r.Purpose)
	if err != nil {
		return err
	}
	r.parsedPurpose = purpose

	if r.Granted == nil {
		return dErrors.New(dErrors.CodeValidation, "granted is required")
	}
	if s := strings.TrimSpace(r.SessionID); s != "" {
		id, err := domain.ParseSessionID(s)
		if err != nil {
			return err
		}
		r.parsedSessionID = id
	}
	r.SourceVersion = strings.TrimSpace(r.SourceVersion)
	return nil
}

// RevokeConsentRequest is the body for POST /v1/consent/revoke.
type RevokeConsentRequest struct {
	SubjectID     string `json:"subject_id"`
	Purpose       string `json:"purpose"`
	SessionID     string `json:"session_id,omitempty"`
	SourceVersion string `json:"source_version,omitempty"`

	parsedPurpose   domain.ConsentPurpose
	parsedSessionID domain.SessionID
}

func (r *RevokeConsentRequest) Validate() error {
	granted := false
	full := RecordConsentRequest{
		SubjectID:     r.SubjectID,
		Purpose:       r.Purpose,
		Granted:       &granted,
		SessionID:     r.SessionID,
		SourceVersion: r.SourceVersion,
	}
	if err := full.Validate(); err != nil {
		return err
	}
	r.SubjectID, r.SourceVersion = full.SubjectID, full.SourceVersion
	r.parsedPurpose, r.parsedSessionID = full.parsedPurpose, full.parsedSessionID
	return nil
}

// SubjectRequest is the body for export and deletion requests.
type SubjectRequest struct {
	SubjectID string `json:"subject_id"`
}

func (r *SubjectRequest) Validate() error {
	return validateSubjectID(&r.SubjectID)
}

// RectificationRequest is the body for POST /v1/rights/rectification.
type RectificationRequest struct {
	SubjectID  string `json:"subject_id"`
	SessionID  string `json:"session_id"`
	Correction string `json:"correction"`

	parsedSessionID domain.SessionID
}

func (r *RectificationRequest) Validate() error {
	if err := validateSubjectID(&r.SubjectID); err != nil {
		return err
	}
	id, err := domain.ParseSessionID(strings.TrimSpace(r.SessionID))
	if err != nil {
		return err
	}
	r.parsedSessionID = id
	if strings.TrimSpace(r.Correction) == "" {
		return dErrors.New(dErrors.CodeValidation, "correction is required")
	}
	if len(r.Correction) > maxCorrectionLen {
		return dErrors.New(dErrors.CodeValidation, "correction is too long")
	}
	return nil
}

// CleanupRequest is the body for admin cleanup endpoints.
type CleanupRequest struct {
	Reason string `json:"reason"`
}

func (r *CleanupRequest) Validate() error {
	return validateReason(&r.Reason)
}

// TrackVoiceRequest is the body for POST /v1/sessions/{session}/voice.
type TrackVoiceRequest struct {
	SubjectID      string `json:"subject_id"`
	StorageLocator string `json:"storage_locator,omitempty"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
}

func (r *TrackVoiceRequest) Validate() error {
	if err := validateSubjectID(&r.SubjectID); err != nil {
		return err
	}
	r.StorageLocator = strings.TrimSpace(r.StorageLocator)
	if len(r.StorageLocator) > maxLocatorLen {
		return dErrors.New(dErrors.CodeValidation, "storage_locator is too long")
	}
	if r.SizeBytes < 0 {
		return dErrors.New(dErrors.CodeValidation, "size_bytes cannot be negative")
	}
	return nil
}

// ChunkRequest is the body for POST /v1/sessions/{session}/transcript/chunks.
// The chunk is not trimmed; partial words at the edges are meaningful.
type ChunkRequest struct {
	SubjectID string `json:"subject_id"`
	Chunk     string `json:"chunk"`
}

func (r *ChunkRequest) Validate() error {
	if err := validateSubjectID(&r.SubjectID); err != nil {
		return err
	}
	if r.Chunk == "" {
		return dErrors.New(dErrors.CodeValidation, "chunk is required")
	}
	if len(r.Chunk) > maxChunkLen {
		return dErrors.New(dErrors.CodeValidation, "chunk is too long")
	}
	return nil
}

// TranscriptRequest is the body for POST /v1/sessions/{session}/transcript.
type TranscriptRequest struct {
	SubjectID  string `json:"subject_id"`
	Transcript string `json:"transcript"`
}

func (r *TranscriptRequest) Validate() error {
	if err := validateSubjectID(&r.SubjectID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Transcript) == "" {
		return dErrors.New(dErrors.CodeValidation, "transcript is required")
	}
	if len(r.Transcript) > maxTranscriptLen {
		return dErrors.New(dErrors.CodeValidation, "transcript is too long")
	}
	return nil
}

// EventRequest is the body for POST /v1/sessions/{session}/events.
type EventRequest struct {
	SubjectID  string            `json:"subject_id"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

func (r *EventRequest) Validate() error {
	if err := validateSubjectID(&r.SubjectID); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > maxEventNameLen {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	if len(r.Properties) > maxEventProps {
		return dErrors.New(dErrors.CodeValidation, "too many properties")
	}
	return nil
}

// SystemRevokeRequest is the body for POST /v1/admin/consent/revoke. It
// addresses the subject by hash.
type SystemRevokeRequest struct {
	SubjectHash string `json:"subject_hash"`
	Purpose     string `json:"purpose"`
	Reason      string `json:"reason"`

	parsedSubject domain.SubjectHash
	parsedPurpose domain.ConsentPurpose
}

func (r *SystemRevokeRequest) Validate() error {
	subject, err := domain.ParseSubjectHash(strings.TrimSpace(r.SubjectHash))
	if err != nil {
		return err
	}
	r.parsedSubject = subject
	purpose, err := domain.ParseConsentPurpose(strings.TrimSpace(r.Purpose))
	if err != nil {
		return err
	}
	r.parsedPurpose = purpose
	return validateReason(&r.Reason)
}

// ErasureRequest is the body for POST /v1/admin/rights/erasure.
type ErasureRequest struct {
	SubjectHashes []string `json:"subject_hashes"`
	Reason        string   `json:"reason"`
}

func (r *ErasureRequest) Validate() error {
	if len(r.SubjectHashes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "subject_hashes is required")
	}
	if len(r.SubjectHashes) > maxErasureBatch {
		return dErrors.New(dErrors.CodeValidation, "too many subjects in one batch")
	}
	return validateReason(&r.Reason)
}

func validateReason(s *string) error {
	*s = strings.TrimSpace(*s)
	if *s == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(*s) > maxReasonLen {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

func validateSubjectID(s *string) error {
	*s = strings.TrimSpace(*s)
	if *s == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id is required")
	}
	if len(*s) > maxSubjectLen {
		return dErrors.New(dErrors.CodeValidation, "subject_id is too long")
	}
	return nil
}
