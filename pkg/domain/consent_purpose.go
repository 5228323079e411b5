package domain

import dErrors "voxguard/pkg/domain-errors"

// ConsentPurpose is a domain value that identifies why data is processed.
// Invariant: the value must be one of the supported consent purposes.
//
// Usage: construct via ParseConsentPurpose at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentPurpose string

// Supported consent purposes.
const (
	ConsentPurposeVoiceProcessing ConsentPurpose = "voice_processing"
	ConsentPurposeFunctional      ConsentPurpose = "functional"
	ConsentPurposeAnalytics       ConsentPurpose = "analytics"
	ConsentPurposeMarketing       ConsentPurpose = "marketing"
	ConsentPurposeAITraining      ConsentPurpose = "ai_training"
	ConsentPurposePersonalization ConsentPurpose = "personalization"
)

// validConsentPurposes is the single source of truth for valid consent purposes.
// The value marks purposes that are necessary for the service contract: they
// default to granted and the subject-facing flow cannot withdraw them.
var validConsentPurposes = map[ConsentPurpose]bool{
	ConsentPurposeVoiceProcessing: true,
	ConsentPurposeFunctional:      true,
	ConsentPurposeAnalytics:       false,
	ConsentPurposeMarketing:       false,
	ConsentPurposeAITraining:      false,
	ConsentPurposePersonalization: false,
}

// ParseConsentPurpose constructs a ConsentPurpose from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseConsentPurpose(s string) (ConsentPurpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := ConsentPurpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the consent purpose is one of the supported enum values.
func (p ConsentPurpose) IsValid() bool {
	_, ok := validConsentPurposes[p]
	return ok
}

// IsNecessary reports whether the purpose is exempt from consent gating
// because the service cannot be delivered without it.
func (p ConsentPurpose) IsNecessary() bool {
	return validConsentPurposes[p]
}

// String returns the string representation of the purpose.
func (p ConsentPurpose) String() string {
	return string(p)
}

// AllConsentPurposes returns every supported purpose in a stable order.
func AllConsentPurposes() []ConsentPurpose {
	return []ConsentPurpose{
		ConsentPurposeVoiceProcessing,
		ConsentPurposeFunctional,
		ConsentPurposeAnalytics,
		ConsentPurposeMarketing,
		ConsentPurposeAITraining,
		ConsentPurposePersonalization,
	}
}
