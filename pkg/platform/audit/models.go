package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"voxguard/pkg/domain"
)

// EventCategory classifies audit entries by their primary purpose.
// This drives retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers entries with legal/regulatory significance:
	// consent changes, PII detections, voice deletions, data subject rights.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers incident-response activity (emergency cleanup,
	// administrative erasure) and audit persistence failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine scheduler runs.
	CategoryOperations EventCategory = "operations"
)

// LegalBasis is the regulatory justification recorded against a processing action.
type LegalBasis string

const (
	LegalBasisConsent            LegalBasis = "consent"
	LegalBasisContract           LegalBasis = "contract"
	LegalBasisLegalObligation    LegalBasis = "legal_obligation"
	LegalBasisLegitimateInterest LegalBasis = "legitimate_interest"
)

// Action names a state-changing operation.
type Action string

const (
	// Consent ledger
	ActionConsentRecorded      Action = "consent_recorded"
	ActionConsentSystemRevoked Action = "consent_system_revoked"

	// Sanitizer
	ActionPIIDetectedStreaming Action = "pii_detected_streaming"
	ActionPIIDetectedFinal     Action = "pii_detected_final"

	// Voice lifecycle
	ActionVoiceTracked          Action = "voice_tracked"
	ActionVoiceProcessed        Action = "voice_processed"
	ActionVoiceDeleted          Action = "voice_deleted"
	ActionVoiceDeletionFailed   Action = "voice_deletion_failed"
	ActionVoiceSweepCompleted   Action = "voice_sweep_completed"
	ActionVoiceEmergencyCleanup Action = "voice_emergency_cleanup"

	// Retention
	ActionRetentionEnforced         Action = "retention_enforced"
	ActionRetentionEmergencyCleanup Action = "retention_emergency_cleanup"

	// Subject rights
	ActionRightsRequestCreated   Action = "rights_request_created"
	ActionRightsRequestStarted   Action = "rights_request_started"
	ActionRightsRequestCompleted Action = "rights_request_completed"
	ActionRightsRequestFailed    Action = "rights_request_failed"
	ActionRightsExportDownloaded Action = "rights_export_downloaded"
	ActionEmergencyErasure       Action = "emergency_erasure"
	ActionBulkErasure            Action = "bulk_erasure"
)

// actionCategories maps each action to its category.
var actionCategories = map[Action]EventCategory{
	ActionConsentRecorded:        CategoryCompliance,
	ActionConsentSystemRevoked:   CategoryCompliance,
	ActionPIIDetectedStreaming:   CategoryCompliance,
	ActionPIIDetectedFinal:       CategoryCompliance,
	ActionVoiceTracked:           CategoryCompliance,
	ActionVoiceProcessed:         CategoryCompliance,
	ActionVoiceDeleted:           CategoryCompliance,
	ActionVoiceDeletionFailed:    CategoryCompliance,
	ActionRightsRequestCreated:   CategoryCompliance,
	ActionRightsRequestStarted:   CategoryCompliance,
	ActionRightsRequestCompleted: CategoryCompliance,
	ActionRightsRequestFailed:    CategoryCompliance,
	ActionRightsExportDownloaded: CategoryCompliance,
	ActionRetentionEnforced:      CategoryCompliance,

	ActionVoiceEmergencyCleanup:     CategorySecurity,
	ActionRetentionEmergencyCleanup: CategorySecurity,
	ActionEmergencyErasure:          CategorySecurity,
	ActionBulkErasure:               CategorySecurity,

	ActionVoiceSweepCompleted: CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Entry is one append-only audit record. Entries are never mutated and are
// only removed by retention once their own window has elapsed.
type Entry struct {
	ID          uuid.UUID
	SubjectHash domain.SubjectHash
	Action      Action
	Category    EventCategory
	Details     map[string]any
	IPAddress   string
	UserAgent   string
	LegalBasis  LegalBasis
	ActorID     string
	RequestID   string
	Timestamp   time.Time
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
