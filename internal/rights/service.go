// Package rights processes subject access, export, erasure and rectification
// requests through an explicit state machine:
//
//	pending -> processing -> completed | failed
//
// Terminal requests are never reprocessed; a new request must be created.
package rights

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/sync/errgroup"

	"voxguard/internal/rights/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/sentinel"
	pstrings "voxguard/pkg/platform/strings"
	"voxguard/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.Request) error
	Get(ctx context.Context, id domain.RequestID) (*models.Request, error)
	CompareAndSwap(ctx context.Context, next *models.Request, expectedVersion int64) error
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Request, error)
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Request, error)
}

type ExportStore interface {
	Put(ctx context.Context, id domain.RequestID, subject domain.SubjectHash, sealed []byte, expiresAt time.Time) error
	Get(ctx context.Context, id domain.RequestID, now time.Time) ([]byte, error)
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// TokenStore remembers consumed download-handle ids.
type TokenStore interface {
	Consume(ctx context.Context, jti string, ttl time.Duration) error
}

// JobQueue runs request processing in the background.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, job func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

type Config struct {
	// ExportTokenTTL bounds how long a download handle stays valid.
	ExportTokenTTL time.Duration
	// ResponseDeadline is the statutory time to answer a request.
	ResponseDeadline time.Duration
	// StaleAfter is how long a request may stay in processing before the
	// drain fails it.
	StaleAfter time.Duration
	SigningKey       []byte
	SealingKey       []byte
}

const (
	maxTransitionAttempts = 5
	finalizeTimeout       = 10 * time.Second
)

type Service struct {
	store     Store
	exports   ExportStore
	tokens    TokenStore
	sources   []DataSource
	rectifier Rectifier
	queue     JobQueue
	auditor   AuditPublisher
	logger    *slog.Logger
	metrics   *Metrics

	handles    handles
	sealer     sealer
	deadline   time.Duration
	staleAfter time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithJobQueue(q JobQueue) Option {
	return func(s *Service) {
		s.queue = q
	}
}

func WithRectifier(r Rectifier) Option {
	return func(s *Service) {
		s.rectifier = r
	}
}

func New(store Store, exports ExportStore, tokens TokenStore, sources []DataSource, cfg Config, opts ...Option) (*Service, error) {
	if store == nil || exports == nil || tokens == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "request, export and token stores are required")
	}
	if len(sources) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one data source is required")
	}
	if cfg.ExportTokenTTL <= 0 || cfg.ResponseDeadline <= 0 || cfg.StaleAfter <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "export token ttl, response deadline and stale timeout must be positive")
	}
	if len(cfg.SigningKey) < 32 {
		return nil, dErrors.New(dErrors.CodeValidation, "download handle signing key must be at least 32 bytes")
	}
	seal, err := newSealer(cfg.SealingKey)
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:    store,
		exports:  exports,
		tokens:   tokens,
		sources:  sources,
		handles:    handles{signingKey: cfg.SigningKey, ttl: cfg.ExportTokenTTL},
		sealer:     seal,
		deadline:   cfg.ResponseDeadline,
		staleAfter: cfg.StaleAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ResponseDeadline returns the configured time to answer a request.
func (s *Service) ResponseDeadline() time.Duration {
	return s.deadline
}

func (s *Service) CreateExportRequest(ctx context.Context, subject domain.SubjectHash) (*models.Request, error) {
	return s.create(ctx, &models.Request{SubjectHash: subject, Kind: models.KindExport})
}

func (s *Service) CreateDeletionRequest(ctx context.Context, subject domain.SubjectHash) (*models.Request, error) {
	return s.create(ctx, &models.Request{SubjectHash: subject, Kind: models.KindDeletion})
}

// CreateRectificationRequest records a corrected transcript for one of the
// subject's sessions.
func (s *Service) CreateRectificationRequest(ctx context.Context, subject domain.SubjectHash, sessionID domain.SessionID, correction string) (*models.Request, error) {
	if sessionID.IsNil() || strings.TrimSpace(correction) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "session id and corrected transcript are required")
	}
	if s.rectifier == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "rectification is not enabled")
	}
	return s.create(ctx, &models.Request{
		SubjectHash: subject,
		Kind:        models.KindRectification,
		SessionID:   sessionID,
		Correction:  correction,
	})
}

func (s *Service) create(ctx context.Context, r *models.Request) (*models.Request, error) {
	if r.SubjectHash.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	r.ID = domain.NewRequestID()
	r.Status = models.StatusPending
	r.RequestedAt = requestcontext.Now(ctx)
	if err := s.store.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create rights request")
	}
	s.emit(ctx, r, audit.ActionRightsRequestCreated, nil)
	return r, nil
}

func (s *Service) Get(ctx context.Context, id domain.RequestID) (*models.Request, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "rights request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rights request")
	}
	return r, nil
}

func (s *Service) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Request, error) {
	rs, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rights requests")
	}
	return rs, nil
}

// Submit queues a pending request for background processing. Callers poll
// Get for the outcome.
func (s *Service) Submit(ctx context.Context, id domain.RequestID) error {
	if s.queue == nil {
		return dErrors.New(dErrors.CodeInternal, "no job queue configured")
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != models.StatusPending {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("rights request is %s, expected %s", r.Status, models.StatusPending))
	}
	return s.queue.Enqueue(ctx, "rights:"+r.Kind.String(), func(ctx context.Context) error {
		_, err := s.Process(ctx, id)
		return err
	})
}

// Process runs a pending request to a terminal state. A request that is not
// pending yields CodeConflict. Failures of the work itself are recorded on
// the request, which is returned with status failed and a nil error.
func (s *Service) Process(ctx context.Context, id domain.RequestID) (*models.Request, error) {
	started := requestcontext.Now(ctx)
	r, ok, err := s.transition(ctx, id, models.StatusProcessing, func(r *models.Request) {
		r.StartedAt = &started
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("rights request is %s; terminal requests cannot be reprocessed", r.Status))
	}
	s.emit(ctx, r, audit.ActionRightsRequestStarted, nil)

	var (
		handle    string
		expiresAt *time.Time
		details   = map[string]any{}
		workErr   error
	)
	switch r.Kind {
	case models.KindExport:
		var exp time.Time
		handle, exp, workErr = s.export(ctx, r)
		if workErr == nil {
			expiresAt = &exp
			details["expires_at"] = exp.UTC().Format(time.RFC3339)
		}
	case models.KindDeletion:
		var report models.ErasureReport
		report, workErr = s.erase(ctx, r.SubjectHash)
		details["deleted"] = report.Deleted()
		details["categories"] = len(report.Categories)
		if workErr == nil && !report.Verification.Complete {
			workErr = fmt.Errorf("erasure incomplete: data remains in %s", strings.Join(report.Verification.RemainingData, ", "))
		}
	case models.KindRectification:
		if s.rectifier == nil {
			workErr = errors.New("rectification is not enabled")
		} else {
			workErr = s.rectifier.Rectify(ctx, r.SubjectHash, r.SessionID, r.Correction)
		}
	default:
		workErr = fmt.Errorf("unknown request kind %q", r.Kind)
	}

	// The terminal write outlives a cancelled ctx.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	finished := requestcontext.Now(ctx)
	next, action, outcome := models.StatusCompleted, audit.ActionRightsRequestCompleted, "completed"
	if workErr != nil {
		next, action, outcome = models.StatusFailed, audit.ActionRightsRequestFailed, "failed"
		details["error"] = workErr.Error()
	}
	final, ok, err := s.transition(ctx, id, next, func(r *models.Request) {
		r.CompletedAt = &finished
		r.Correction = ""
		if workErr != nil {
			r.FailureReason = workErr.Error()
			return
		}
		r.ResultHandle = handle
		r.ExpiresAt = expiresAt
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeConflict, "rights request changed state while processing")
	}

	s.metrics.observe(final.Kind.String(), outcome, finished.Sub(started).Seconds())
	if workErr != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "rights request failed",
			"request_id", id.String(), "kind", final.Kind.String(), "error", workErr)
	}
	s.emit(ctx, final, action, details)
	return final, nil
}

// ProcessPending processes every pending request, oldest first. It picks up
// requests whose queued job was lost or rejected. Requests claimed by
// another worker in the meantime are skipped. Stale processing requests are
// failed first.
func (s *Service) ProcessPending(ctx context.Context) (int, error) {
	if _, err := s.FailStale(ctx); err != nil {
		return 0, err
	}
	pending, err := s.store.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending rights requests")
	}
	n := 0
	for _, r := range pending {
		if err := ctx.Err(); err != nil {
			return n, dErrors.Wrap(err, dErrors.CodeTimeout, "pending rights processing interrupted")
		}
		if _, err := s.Process(ctx, r.ID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// FailStale moves requests that have been processing for longer than the
// stale timeout to failed. Their worker is gone; the subject has to file a
// new request.
func (s *Service) FailStale(ctx context.Context) (int, error) {
	processing, err := s.store.ListByStatus(ctx, models.StatusProcessing)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list processing rights requests")
	}
	now := requestcontext.Now(ctx)
	reason := fmt.Sprintf("processing interrupted: no outcome after %s", s.staleAfter)
	n := 0
	for _, r := range processing {
		started := r.RequestedAt
		if r.StartedAt != nil {
			started = *r.StartedAt
		}
		if now.Sub(started) < s.staleAfter {
			continue
		}
		final, ok, err := s.transition(ctx, r.ID, models.StatusFailed, func(r *models.Request) {
			r.CompletedAt = &now
			r.Correction = ""
			r.FailureReason = reason
		})
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		s.metrics.observe(final.Kind.String(), "failed", now.Sub(started).Seconds())
		if s.logger != nil {
			s.logger.WarnContext(ctx, "stale rights request failed",
				"request_id", final.ID.String(), "kind", final.Kind.String(), "started_at", started)
		}
		s.emit(ctx, final, audit.ActionRightsRequestFailed, map[string]any{"error": reason})
		n++
	}
	return n, nil
}

// export collects every category, seals the bundle and mints a handle.
func (s *Service) export(ctx context.Context, r *models.Request) (string, time.Time, error) {
	data := make([]any, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			v, err := src.Export(gctx, r.SubjectHash)
			if err != nil {
				return fmt.Errorf("collect %s: %w", src.Name(), err)
			}
			data[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", time.Time{}, err
	}

	now := requestcontext.Now(ctx)
	bundle := models.Bundle{
		RequestID:   r.ID.String(),
		SubjectHash: r.SubjectHash,
		GeneratedAt: now,
		Data:        make(map[string]any, len(s.sources)),
	}
	for i, src := range s.sources {
		if data[i] != nil {
			bundle.Data[src.Name()] = data[i]
		}
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode export bundle: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}, fmt.Errorf("generate nonce: %w", err)
	}
	sealed, err := s.sealer.seal(payload, r.ID, nonce)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("seal export bundle: %w", err)
	}

	handle, expiresAt, err := s.handles.issue(r.ID, now)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.exports.Put(ctx, r.ID, r.SubjectHash, sealed, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("store export bundle: %w", err)
	}
	return handle, expiresAt, nil
}

// Download verifies a handle and returns the decrypted bundle. A handle
// works once.
func (s *Service) Download(ctx context.Context, handle string) ([]byte, error) {
	now := requestcontext.Now(ctx)
	claims, err := s.handles.verify(handle, now)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseRequestID(claims.RequestID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid download handle")
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Kind != models.KindExport || r.Status != models.StatusCompleted {
		return nil, dErrors.New(dErrors.CodeConflict, "request has no export to download")
	}

	sealed, err := s.exports.Get(ctx, id, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "export bundle not found")
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeExpired, "export bundle has expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load export bundle")
	}
	payload, err := s.sealer.open(sealed, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open export bundle")
	}

	// The handle is spent only once the bundle is in hand.
	ttl := max(claims.ExpiresAt.Sub(now), time.Second)
	if err := s.tokens.Consume(ctx, claims.ID, ttl); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeForbidden, "download handle has already been used")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume download handle")
	}
	s.emit(ctx, r, audit.ActionRightsExportDownloaded, nil)
	return payload, nil
}

// Verify checks an erasure claim by inspecting every data source.
func (s *Service) Verify(ctx context.Context, subject domain.SubjectHash) (models.VerifyResult, error) {
	if subject.IsNil() {
		return models.VerifyResult{}, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	type counts struct{ remaining, retained int }
	found := make([]counts, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			remaining, retained, err := src.Inspect(gctx, subject)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", src.Name(), err)
			}
			found[i] = counts{remaining, retained}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify erasure")
	}

	now := requestcontext.Now(ctx)
	result := models.VerifyResult{CheckedAt: now}
	for i, src := range s.sources {
		if found[i].remaining > 0 {
			result.RemainingData = append(result.RemainingData, src.Name())
		}
		if found[i].retained > 0 {
			result.Retained = append(result.Retained, src.Name())
		}
	}

	requests, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return models.VerifyResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rights requests")
	}
	for _, r := range requests {
		switch {
		case r.Kind == models.KindDeletion && r.Status == models.StatusCompleted && len(result.RemainingData) > 0:
			result.Violations = append(result.Violations,
				fmt.Sprintf("deletion request %s completed but data remains in %s", r.ID, strings.Join(result.RemainingData, ", ")))
		case !r.Status.IsTerminal() && r.Age(now) > s.deadline:
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s request %s unanswered for %s", r.Kind, r.ID, r.Age(now).Round(time.Hour)))
		}
	}
	result.Complete = len(result.RemainingData) == 0
	return result, nil
}

// erase fans out to every source. One failing category does not stop the
// others; every failure is reported.
func (s *Service) erase(ctx context.Context, subject domain.SubjectHash) (models.ErasureReport, error) {
	results := make([]models.CategoryErasure, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			res, err := src.Erase(ctx, subject)
			res.Category = src.Name()
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := models.ErasureReport{SubjectHash: subject, Categories: results}
	var failed []string
	for _, c := range results {
		if c.Error != "" {
			failed = append(failed, c.Category+": "+c.Error)
		}
	}
	verification, err := s.Verify(ctx, subject)
	if err != nil {
		return report, err
	}
	report.Verification = verification
	if len(failed) > 0 {
		return report, errors.New("erasure failed for " + strings.Join(failed, "; "))
	}
	return report, nil
}

// EmergencyErase erases a subject immediately, without a pending request.
func (s *Service) EmergencyErase(ctx context.Context, subject domain.SubjectHash, initiator, reason string) (models.ErasureReport, error) {
	if initiator == "" {
		return models.ErasureReport{}, dErrors.New(dErrors.CodeValidation, "initiator is required for emergency erasure")
	}
	if subject.IsNil() {
		return models.ErasureReport{}, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	return s.adminErase(ctx, subject, audit.ActionEmergencyErasure, initiator, reason)
}

// BulkErase erases several subjects. Duplicates and blanks are dropped;
// an invalid hash rejects the whole batch before anything is erased.
func (s *Service) BulkErase(ctx context.Context, subjects []string, initiator, reason string) ([]models.ErasureReport, error) {
	if initiator == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "initiator is required for bulk erasure")
	}
	unique := pstrings.NormalizeIdentifiers(subjects)
	if len(unique) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no subjects to erase")
	}
	hashes := make([]domain.SubjectHash, 0, len(unique))
	for _, raw := range unique {
		h, err := domain.ParseSubjectHash(raw)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}

	reports := make([]models.ErasureReport, 0, len(hashes))
	var errs []error
	for _, h := range hashes {
		report, err := s.adminErase(ctx, h, audit.ActionBulkErasure, initiator, reason)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Short(), err))
		}
	}
	if len(errs) > 0 {
		return reports, dErrors.Wrap(errors.Join(errs...), dErrors.CodeDeletionFailed, "bulk erasure incomplete")
	}
	return reports, nil
}

func (s *Service) adminErase(ctx context.Context, subject domain.SubjectHash, action audit.Action, initiator, reason string) (models.ErasureReport, error) {
	report, err := s.erase(ctx, subject)
	details := map[string]any{
		"reason":    reason,
		"deleted":   report.Deleted(),
		"complete":  report.Verification.Complete,
		"remaining": report.Verification.RemainingData,
	}
	if err != nil {
		details["error"] = err.Error()
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "administrative erasure executed",
			"action", string(action), "subject", subject.Short(), "initiator", initiator,
			"reason", reason, "deleted", report.Deleted(), "error", err)
	}
	s.publish(ctx, audit.Entry{
		SubjectHash: subject,
		Action:      action,
		LegalBasis:  audit.LegalBasisLegalObligation,
		ActorID:     initiator,
		Details:     details,
	})
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeDeletionFailed, "erasure incomplete")
	}
	return report, nil
}

// Backlog reports open requests and failures for the health check.
type Backlog struct {
	Pending    int
	Processing int
	Failed     int
	Overdue    []*models.Request
}

func (s *Service) Backlog(ctx context.Context) (Backlog, error) {
	rs, err := s.store.ListByStatus(ctx, models.StatusPending, models.StatusProcessing, models.StatusFailed)
	if err != nil {
		return Backlog{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rights requests")
	}
	now := requestcontext.Now(ctx)
	var b Backlog
	for _, r := range rs {
		switch r.Status {
		case models.StatusPending:
			b.Pending++
		case models.StatusProcessing:
			b.Processing++
		case models.StatusFailed:
			b.Failed++
			continue
		}
		if r.Age(now) > s.deadline {
			b.Overdue = append(b.Overdue, r)
		}
	}
	return b, nil
}

// PurgeExpiredExports drops sealed bundles that expired before cutoff.
func (s *Service) PurgeExpiredExports(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.exports.PurgeExpired(ctx, cutoff)
	if err != nil {
		return n, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge export bundles")
	}
	return n, nil
}

func (s *Service) transition(ctx context.Context, id domain.RequestID, next models.Status, mutate func(*models.Request)) (*models.Request, bool, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if !current.Status.CanTransitionTo(next) {
			return current, false, nil
		}
		updated := current.Clone()
		updated.Status = next
		mutate(updated)
		err = s.store.CompareAndSwap(ctx, updated, current.Version)
		if err == nil {
			return updated, true, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update rights request")
		}
	}
	return nil, false, dErrors.New(dErrors.CodeConflict, "rights request is under heavy contention")
}

func (s *Service) emit(ctx context.Context, r *models.Request, action audit.Action, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["request_id"] = r.ID.String()
	details["kind"] = r.Kind.String()
	details["status"] = r.Status.String()
	s.publish(ctx, audit.Entry{
		SubjectHash: r.SubjectHash,
		Action:      action,
		LegalBasis:  audit.LegalBasisLegalObligation,
		IPAddress:   requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		Details:     details,
	})
}

func (s *Service) publish(ctx context.Context, entry audit.Entry) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(entry.Action),
			"event", string(entry.Action), "subject", entry.SubjectHash.Short(), "log_type", "audit")
	}
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, entry); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit rights audit entry", "action", string(entry.Action), "error", err)
	}
}
