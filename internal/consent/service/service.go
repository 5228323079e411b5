// Package service implements the consent ledger: an append-only record of
// grant and withdrawal decisions per subject and purpose.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voxguard/internal/consent/models"
	"voxguard/pkg/attrs"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/sentinel"
	"voxguard/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, record *models.Record) error
	Latest(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (*models.Record, error)
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Record, error)
	DeleteBySubject(ctx context.Context, subject domain.SubjectHash, cutoff time.Time) (int, error)
	StripClientMetadata(ctx context.Context, subject domain.SubjectHash) (int, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Service answers "is this purpose currently authorized" and records the
// decisions behind the answer.
type Service struct {
	store          Store
	tx             ConsentStoreTx
	defaults       map[domain.ConsentPurpose]bool
	legalRetention time.Duration
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func WithTx(tx ConsentStoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithLegalRetention sets how long consent records must be kept as proof
// even when the subject requests erasure.
func WithLegalRetention(d time.Duration) Option {
	return func(s *Service) {
		s.legalRetention = d
	}
}

// New builds the ledger. defaults supplies the answer for purposes that have
// no record yet and must mark every necessary purpose as granted.
func New(store Store, defaults map[domain.ConsentPurpose]bool, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "consent store is required")
	}
	for purpose, granted := range defaults {
		if !purpose.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown consent purpose in defaults: "+purpose.String())
		}
		if purpose.IsNecessary() && !granted {
			return nil, dErrors.New(dErrors.CodeValidation, "necessary purpose must default to granted: "+purpose.String())
		}
	}
	for _, purpose := range domain.AllConsentPurposes() {
		if _, ok := defaults[purpose]; !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "missing consent default for purpose: "+purpose.String())
		}
	}

	s := &Service{store: store, defaults: defaults}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store, 0)
	}
	return s, nil
}

// Record appends a subject-facing decision. Necessary purposes cannot be
// withdrawn here; only SystemRevoke may do that.
func (s *Service) Record(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, purpose domain.ConsentPurpose, granted bool, meta models.Metadata) (*models.Record, error) {
	if err := validateSubjectPurpose(subject, purpose); err != nil {
		return nil, err
	}
	if purpose.IsNecessary() && !granted {
		return nil, dErrors.New(dErrors.CodeValidation, "consent for a necessary purpose cannot be withdrawn: "+purpose.String())
	}

	if meta.OriginIP == "" {
		meta.OriginIP = requestcontext.ClientIP(ctx)
	}
	if meta.UserAgent == "" {
		meta.UserAgent = requestcontext.UserAgent(ctx)
	}
	record := &models.Record{
		ID:            uuid.New(),
		SubjectHash:   subject,
		Purpose:       purpose,
		Granted:       granted,
		Timestamp:     requestcontext.Now(ctx),
		SourceVersion: meta.SourceVersion,
		OriginIP:      meta.OriginIP,
		UserAgent:     models.SummarizeUserAgent(meta.UserAgent),
		SessionID:     sessionID,
	}
	if err := s.appendRecord(ctx, record); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.Entry{
		SubjectHash: subject,
		Action:      audit.ActionConsentRecorded,
		LegalBasis:  audit.LegalBasisConsent,
		IPAddress:   record.OriginIP,
		UserAgent:   record.UserAgent,
		Details: map[string]any{
			"purpose":        purpose.String(),
			"granted":        granted,
			"session_id":     sessionID.String(),
			"source_version": meta.SourceVersion,
		},
	}, "purpose", purpose.String(), "granted", granted)
	return record, nil
}

// Revoke withdraws consent by appending a granted=false record. History is
// kept; necessary purposes are rejected as in Record.
func (s *Service) Revoke(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, purpose domain.ConsentPurpose, meta models.Metadata) (*models.Record, error) {
	return s.Record(ctx, sessionID, subject, purpose, false, meta)
}

// SystemRevoke withdraws consent on behalf of the operator, including for
// necessary purposes. initiator is recorded on the record and audit entry.
func (s *Service) SystemRevoke(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose, initiator, reason string) (*models.Record, error) {
	if err := validateSubjectPurpose(subject, purpose); err != nil {
		return nil, err
	}
	if initiator == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "initiator is required for system revocation")
	}

	record := &models.Record{
		ID:            uuid.New(),
		SubjectHash:   subject,
		Purpose:       purpose,
		Granted:       false,
		Timestamp:     requestcontext.Now(ctx),
		SourceVersion: "system",
		Initiator:     initiator,
	}
	if err := s.appendRecord(ctx, record); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.Entry{
		SubjectHash: subject,
		Action:      audit.ActionConsentSystemRevoked,
		LegalBasis:  audit.LegalBasisLegalObligation,
		ActorID:     initiator,
		Details: map[string]any{
			"purpose": purpose.String(),
			"reason":  reason,
		},
	}, "purpose", purpose.String(), "initiator", initiator)
	return record, nil
}

func (s *Service) appendRecord(ctx context.Context, record *models.Record) error {
	err := s.tx.RunInTx(ctx, record.SubjectHash, func(ctx context.Context, store Store) error {
		return store.Append(ctx, record)
	})
	if err != nil {
		if dErrors.CodeOf(err) != "" {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record consent")
	}
	return nil
}

// Current returns the most recent record for (subject, purpose).
func (s *Service) Current(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (*models.Record, error) {
	if err := validateSubjectPurpose(subject, purpose); err != nil {
		return nil, err
	}
	record, err := s.store.Latest(ctx, subject, purpose)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no consent recorded for purpose")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return record, nil
}

// IsAuthorized returns the latest decision, or the configured default when
// none has been recorded.
func (s *Service) IsAuthorized(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (bool, error) {
	state, err := s.state(ctx, subject, purpose)
	if err != nil {
		return false, err
	}
	return state.Granted, nil
}

func (s *Service) state(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (models.PurposeState, error) {
	record, err := s.Current(ctx, subject, purpose)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.PurposeState{Purpose: purpose, Granted: s.defaults[purpose], Defaulted: true}, nil
		}
		return models.PurposeState{}, err
	}
	return models.PurposeState{Purpose: purpose, Granted: record.Granted, UpdatedAt: record.Timestamp}, nil
}

// VerifyAll checks every purpose a processing step depends on. Necessary
// purposes are exempt because they are part of the service contract.
func (s *Service) VerifyAll(ctx context.Context, subject domain.SubjectHash, purposes []domain.ConsentPurpose) (models.VerifyResult, error) {
	result := models.VerifyResult{Valid: true}
	for _, purpose := range purposes {
		if !purpose.IsValid() {
			return models.VerifyResult{}, dErrors.New(dErrors.CodeValidation, "unknown consent purpose: "+purpose.String())
		}
		if purpose.IsNecessary() {
			continue
		}
		granted, err := s.IsAuthorized(ctx, subject, purpose)
		if err != nil {
			return models.VerifyResult{}, err
		}
		if !granted {
			result.Valid = false
			result.Missing = append(result.Missing, purpose)
		}
	}
	return result, nil
}

// History returns every record for subject in write order.
func (s *Service) History(ctx context.Context, subject domain.SubjectHash) ([]*models.Record, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	records, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consent history")
	}
	return records, nil
}

// CurrentAll returns the effective state of every known purpose.
func (s *Service) CurrentAll(ctx context.Context, subject domain.SubjectHash) ([]models.PurposeState, error) {
	purposes := domain.AllConsentPurposes()
	states := make([]models.PurposeState, 0, len(purposes))
	for _, purpose := range purposes {
		state, err := s.state(ctx, subject, purpose)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// EraseSubject deletes the subject's consent records older than the legal
// retention window. Younger records and the newest withdrawal per purpose are
// kept as proof but lose their origin IP and user agent.
func (s *Service) EraseSubject(ctx context.Context, subject domain.SubjectHash) (models.EraseResult, error) {
	if subject.IsNil() {
		return models.EraseResult{}, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	cutoff := requestcontext.Now(ctx).Add(-s.legalRetention)

	var result models.EraseResult
	err := s.tx.RunInTx(ctx, subject, func(ctx context.Context, store Store) error {
		deleted, err := store.DeleteBySubject(ctx, subject, cutoff)
		if err != nil {
			return err
		}
		if _, err := store.StripClientMetadata(ctx, subject); err != nil {
			return err
		}
		remaining, err := store.ListBySubject(ctx, subject)
		if err != nil {
			return err
		}
		result = models.EraseResult{Deleted: deleted, Retained: len(remaining)}
		return nil
	})
	if err != nil {
		return models.EraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to erase consent records")
	}
	return result, nil
}

// Inventory reports which of the subject's records an erasure would still
// have to remove and which are covered by the legal-retention carve-out.
func (s *Service) Inventory(ctx context.Context, subject domain.SubjectHash) (models.Inventory, error) {
	records, err := s.History(ctx, subject)
	if err != nil {
		return models.Inventory{}, err
	}
	cutoff := requestcontext.Now(ctx).Add(-s.legalRetention)
	latest := make(map[domain.ConsentPurpose]*models.Record)
	for _, r := range records {
		latest[r.Purpose] = r
	}
	var inv models.Inventory
	for _, r := range records {
		expired := r.Timestamp.Before(cutoff) && !(latest[r.Purpose] == r && !r.Granted)
		if expired || r.HasClientMetadata() {
			inv.Remaining++
			continue
		}
		inv.Retained++
	}
	return inv, nil
}

// PurgeOlderThan removes records past the consent_record retention window.
// The newest record per purpose is kept so the current decision survives.
func (s *Service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge consent records")
	}
	return n, nil
}

func validateSubjectPurpose(subject domain.SubjectHash, purpose domain.ConsentPurpose) error {
	if subject.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	if !purpose.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown consent purpose: "+purpose.String())
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, entry audit.Entry, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(entry.Action), "subject", entry.SubjectHash.Short(), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(entry.Action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if entry.ActorID == "" {
		entry.ActorID = attrs.String(attributes, "initiator")
	}
	if err := s.auditPublisher.Emit(ctx, entry); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit consent audit entry", "error", err)
	}
}
