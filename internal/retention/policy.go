package retention

import (
	"fmt"
	"time"

	dErrors "voxguard/pkg/domain-errors"
)

// Category is a class of personal data with its own retention rule.
type Category string

const (
	CategoryVoiceAudio      Category = "voice_audio"
	CategoryTranscript      Category = "transcript"
	CategoryFeedbackSession Category = "feedback_session"
	CategoryAnalytics       Category = "analytics"
	CategoryConsentRecord   Category = "consent_record"
	CategoryAuditLog        Category = "audit_log"
	CategoryExportFile      Category = "export_file"
)

// AllCategories lists categories in enforcement order.
func AllCategories() []Category {
	return []Category{
		CategoryVoiceAudio,
		CategoryTranscript,
		CategoryFeedbackSession,
		CategoryAnalytics,
		CategoryExportFile,
		CategoryConsentRecord,
		CategoryAuditLog,
	}
}

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory validates a category name from config or a caller.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown data category: "+s)
	}
	return c, nil
}

// Method is how an anonymization rule rewrites a field.
type Method string

const (
	MethodRedactPII      Method = "redact_pii"
	MethodRemove         Method = "remove"
	MethodGeneralizeDate Method = "generalize_date"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodRedactPII, MethodRemove, MethodGeneralizeDate:
		return true
	}
	return false
}

type AnonymizationRule struct {
	Field  string `json:"field" koanf:"field"`
	Method Method `json:"method" koanf:"method"`
}

// Policy is the retention rule for one category. A policy either deletes
// expired records or anonymizes them in place; with neither it only retains.
type Policy struct {
	Category            Category            `json:"data_category" koanf:"category"`
	RetentionPeriodDays int                 `json:"retention_period_days" koanf:"retention_days"`
	AutomaticDeletion   bool                `json:"automatic_deletion" koanf:"automatic_deletion"`
	AnonymizationRules  []AnonymizationRule `json:"anonymization_rules,omitempty" koanf:"anonymization_rules"`
}

// Mode is what a policy does with expired records.
type Mode string

const (
	ModeDelete    Mode = "delete"
	ModeAnonymize Mode = "anonymize"
	ModeRetain    Mode = "retain"
)

func (p Policy) Mode() Mode {
	switch {
	case p.AutomaticDeletion:
		return ModeDelete
	case len(p.AnonymizationRules) > 0:
		return ModeAnonymize
	default:
		return ModeRetain
	}
}

// Cutoff returns the instant before which records are expired.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionPeriodDays)
}

func (p Policy) Validate() error {
	if !p.Category.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown data category: "+p.Category.String())
	}
	if p.RetentionPeriodDays < 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s: retention period must not be negative", p.Category))
	}
	if p.AutomaticDeletion && len(p.AnonymizationRules) > 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s: a policy either deletes or anonymizes, not both", p.Category))
	}
	if p.Category == CategoryVoiceAudio && !p.AutomaticDeletion {
		return dErrors.New(dErrors.CodeValidation, "voice_audio must be deleted automatically")
	}
	for _, r := range p.AnonymizationRules {
		if r.Field == "" || !r.Method.IsValid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s: invalid anonymization rule %q/%q", p.Category, r.Field, r.Method))
		}
	}
	return nil
}
