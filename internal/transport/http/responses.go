package httptransport

import (
	"time"

	consentmodels "voxguard/internal/consent/models"
	feedbackmodels "voxguard/internal/feedback/models"
	rightsmodels "voxguard/internal/rights/models"
	"voxguard/internal/sanitizer"
	voicemodels "voxguard/internal/voice/models"
)

type ConsentResponse struct {
	ID          string    `json:"id"`
	SubjectHash string    `json:"subject_hash"`
	Purpose     string    `json:"purpose"`
	Granted     bool      `json:"granted"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func fromConsentRecord(r *consentmodels.Record) ConsentResponse {
	return ConsentResponse{
		ID:          r.ID.String(),
		SubjectHash: r.SubjectHash.String(),
		Purpose:     r.Purpose.String(),
		Granted:     r.Granted,
		RecordedAt:  r.Timestamp,
	}
}

type ConsentStatusResponse struct {
	SubjectHash string `json:"subject_hash"`
	Purpose     string `json:"purpose"`
	Authorized  bool   `json:"authorized"`
}

type PurposeStateResponse struct {
	Purpose   string     `json:"purpose"`
	Granted   bool       `json:"granted"`
	Defaulted bool       `json:"defaulted"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ConsentOverviewResponse struct {
	SubjectHash string                 `json:"subject_hash"`
	Purposes    []PurposeStateResponse `json:"purposes"`
}

func fromPurposeStates(subject string, states []consentmodels.PurposeState) ConsentOverviewResponse {
	out := ConsentOverviewResponse{SubjectHash: subject, Purposes: make([]PurposeStateResponse, 0, len(states))}
	for _, st := range states {
		p := PurposeStateResponse{
			Purpose:   st.Purpose.String(),
			Granted:   st.Granted,
			Defaulted: st.Defaulted,
		}
		if !st.UpdatedAt.IsZero() {
			at := st.UpdatedAt
			p.UpdatedAt = &at
		}
		out.Purposes = append(out.Purposes, p)
	}
	return out
}

type SessionResponse struct {
	SessionID   string    `json:"session_id"`
	SubjectHash string    `json:"subject_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

func fromSession(s *feedbackmodels.Session) SessionResponse {
	return SessionResponse{
		SessionID:   s.ID.String(),
		SubjectHash: s.SubjectHash.String(),
		CreatedAt:   s.CreatedAt,
	}
}

// ArtifactResponse leaves out the storage locator.
type ArtifactResponse struct {
	ArtifactID          string     `json:"artifact_id"`
	SessionID           string     `json:"session_id"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	DeletionScheduledAt *time.Time `json:"deletion_scheduled_at,omitempty"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`
}

func fromArtifact(a *voicemodels.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ArtifactID:          a.ID.String(),
		SessionID:           a.SessionID.String(),
		Status:              a.Status.String(),
		CreatedAt:           a.CreatedAt,
		DeletionScheduledAt: a.DeletionScheduledAt,
		DeletedAt:           a.DeletedAt,
	}
}

type ChunkResponse struct {
	SanitizedText string  `json:"sanitized_text"`
	PIIDetected   bool    `json:"pii_detected"`
	Confidence    float64 `json:"confidence"`
}

type TranscriptResponse struct {
	SanitizedTranscript  string   `json:"sanitized_transcript"`
	DetectedTypes        []string `json:"detected_types"`
	InstanceCount        int      `json:"instance_count"`
	ConfidenceScore      int      `json:"confidence_score"`
	AnonymizationApplied bool     `json:"anonymization_applied"`
}

func fromFinalResult(r sanitizer.FinalResult) TranscriptResponse {
	types := make([]string, 0, len(r.Report.DetectedTypes))
	for _, t := range r.Report.DetectedTypes {
		types = append(types, string(t))
	}
	return TranscriptResponse{
		SanitizedTranscript:  r.SanitizedTranscript,
		DetectedTypes:        types,
		InstanceCount:        r.Report.InstanceCount,
		ConfidenceScore:      r.Report.ConfidenceScore,
		AnonymizationApplied: r.Report.AnonymizationApplied,
	}
}

type EventResponse struct {
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ErasureResponse reports per-subject results. Complete is false when any
// subject still has data after erasure.
type ErasureResponse struct {
	Complete bool                         `json:"complete"`
	Error    string                       `json:"error,omitempty"`
	Reports  []rightsmodels.ErasureReport `json:"reports"`
}

// RightsRequestResponse omits the rectification payload.
type RightsRequestResponse struct {
	ID            string     `json:"request_id"`
	SubjectHash   string     `json:"subject_hash"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	RequestedAt   time.Time  `json:"requested_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DownloadToken string     `json:"download_token,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

func fromRightsRequest(r *rightsmodels.Request) RightsRequestResponse {
	return RightsRequestResponse{
		ID:            r.ID.String(),
		SubjectHash:   r.SubjectHash.String(),
		Kind:          r.Kind.String(),
		Status:        r.Status.String(),
		RequestedAt:   r.RequestedAt,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
		DownloadToken: r.ResultHandle,
		ExpiresAt:     r.ExpiresAt,
		FailureReason: r.FailureReason,
	}
}

type SweepResponse struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
	Skipped int `json:"skipped"`
}

func fromSweepResult(r voicemodels.SweepResult) SweepResponse {
	return SweepResponse(r)
}
