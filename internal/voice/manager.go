// Package voice owns the lifecycle of raw voice artifacts from capture to
// guaranteed deletion.
//
// Every transition is a compare-and-set on the record's version. The
// per-artifact deadline timer, the periodic sweep, and emergency cleanup may
// all race to delete the same artifact: physical removal is idempotent, and
// the first writer to move the record to deleted wins while the others
// observe the new state and do nothing.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, a *models.Artifact) error
	Get(ctx context.Context, id domain.ArtifactID) (*models.Artifact, error)
	CompareAndSwap(ctx context.Context, next *models.Artifact, expectedVersion int64) error
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Artifact, error)
	ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Artifact, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ArtifactRemover physically deletes an artifact. A missing artifact is
// reported with existed=false and no error.
type ArtifactRemover interface {
	Remove(ctx context.Context, locator string) (existed bool, err error)
}

// SessionMarker flags the owning feedback session once its audio is gone.
type SessionMarker interface {
	MarkVoiceDeleted(ctx context.Context, sessionID domain.SessionID, at time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Config holds the timing knobs.
type Config struct {
	// DeletionWindow is the delay between processing completion and the
	// deletion deadline.
	DeletionWindow time.Duration
	// DeletionTimeout bounds one timer-triggered deletion.
	DeletionTimeout time.Duration
	// ProofRetention is how long tracking records of deleted audio are
	// kept as deletion proof.
	ProofRetention time.Duration
}

type outcome string

const (
	outcomeDeleted        outcome = "deleted"
	outcomeAlreadyDeleted outcome = "already_deleted"
	outcomeFailed         outcome = "failed"
	outcomeSkipped        outcome = "skipped"
)

// maxTransitionAttempts bounds compare-and-set retries on one record.
const maxTransitionAttempts = 5

// Manager is the only writer of tracking records.
type Manager struct {
	store    Store
	remover  ArtifactRemover
	sessions SessionMarker
	auditor  AuditPublisher
	logger   *slog.Logger
	metrics  *Metrics

	window    time.Duration
	timeout   time.Duration
	proof     time.Duration
	clock     func() time.Time
	afterFunc func(time.Duration, func())

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(m *Manager) {
		m.auditor = p
	}
}

func WithSessionMarker(sm SessionMarker) Option {
	return func(m *Manager) {
		m.sessions = sm
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithTimerFunc replaces time.AfterFunc for deadline timers.
func WithTimerFunc(fn func(time.Duration, func())) Option {
	return func(m *Manager) {
		if fn != nil {
			m.afterFunc = fn
		}
	}
}

func New(store Store, remover ArtifactRemover, cfg Config, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "voice store is required")
	}
	if remover == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "artifact remover is required")
	}
	if cfg.DeletionWindow <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "deletion window must be positive")
	}
	if cfg.DeletionTimeout <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "deletion timeout must be positive")
	}
	if cfg.ProofRetention < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "proof retention must not be negative")
	}
	m := &Manager{
		store:   store,
		remover: remover,
		window:  cfg.DeletionWindow,
		timeout: cfg.DeletionTimeout,
		proof:   cfg.ProofRetention,
		clock:   time.Now,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close stops pending timers from starting new deletions and waits for
// running ones. Artifacts whose timers never fire are picked up by the sweep.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.inflight.Wait()
}

// DeletionWindow returns the configured window.
func (m *Manager) DeletionWindow() time.Duration {
	return m.window
}

// Track registers a newly captured artifact.
func (m *Manager) Track(ctx context.Context, sessionID domain.SessionID, subject domain.SubjectHash, locator string, sizeBytes int64) (*models.Artifact, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "session id is required")
	}
	if sizeBytes < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "size must not be negative")
	}
	a := &models.Artifact{
		ID:             domain.NewArtifactID(),
		SessionID:      sessionID,
		SubjectHash:    subject,
		StorageLocator: locator,
		SizeBytes:      sizeBytes,
		Status:         models.StatusTracked,
		CreatedAt:      m.clock(),
	}
	if err := m.store.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to track voice artifact")
	}
	m.emit(ctx, a, audit.ActionVoiceTracked, map[string]any{
		"size_bytes": sizeBytes,
	})
	return a, nil
}

// MarkProcessed records processing completion and schedules deletion at
// now + DeletionWindow.
func (m *Manager) MarkProcessed(ctx context.Context, id domain.ArtifactID) (*models.Artifact, error) {
	now := m.clock()
	a, ok, err := m.transition(ctx, id, models.StatusProcessed, func(a *models.Artifact) {
		a.ProcessingCompletedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("artifact is %s, expected %s", a.Status, models.StatusTracked))
	}

	deadline := now.Add(m.window)
	a, ok, err = m.transition(ctx, id, models.StatusScheduledDeletion, func(a *models.Artifact) {
		a.DeletionScheduledAt = &deadline
	})
	if err != nil {
		return nil, err
	}
	if ok {
		m.schedule(a.ID, deadline)
	}

	m.emit(ctx, a, audit.ActionVoiceProcessed, map[string]any{
		"deletion_deadline": deadline.UTC().Format(time.RFC3339),
	})
	return a, nil
}

// Get returns the tracking record.
func (m *Manager) Get(ctx context.Context, id domain.ArtifactID) (*models.Artifact, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voice artifact not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voice artifact")
	}
	return a, nil
}

// ListBySubject returns every tracking record for subject.
func (m *Manager) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Artifact, error) {
	as, err := m.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voice artifacts")
	}
	return as, nil
}

// Stats returns record counts per status.
func (m *Manager) Stats(ctx context.Context) (map[models.Status]int, error) {
	counts, err := m.store.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voice artifacts")
	}
	m.metrics.setCounts(counts)
	return counts, nil
}

func (m *Manager) schedule(id domain.ArtifactID, deadline time.Time) {
	delay := max(deadline.Sub(m.clock()), 0)
	m.afterFunc(delay, func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.inflight.Add(1)
		m.mu.Unlock()
		defer m.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if _, err := m.executeDeletion(ctx, id, false); err != nil {
			m.logWarn(ctx, "scheduled voice deletion did not complete; sweep will retry",
				"artifact_id", id.String(), "error", err)
		}
	})
}

// executeDeletion removes the artifact and moves the record to deleted.
// force ignores the deadline. Records not in scheduled_deletion are left to
// the caller to prepare.
func (m *Manager) executeDeletion(ctx context.Context, id domain.ArtifactID, force bool) (outcome, error) {
	a, err := m.store.Get(ctx, id)
	if err != nil {
		return outcomeSkipped, err
	}
	switch a.Status {
	case models.StatusDeleted:
		return outcomeAlreadyDeleted, nil
	case models.StatusScheduledDeletion:
	default:
		return outcomeSkipped, nil
	}
	now := m.clock()
	if !force && a.DeletionScheduledAt != nil && now.Before(*a.DeletionScheduledAt) {
		return outcomeSkipped, nil
	}

	existed, rmErr := m.remover.Remove(ctx, a.StorageLocator)
	if rmErr != nil {
		return m.recordFailure(ctx, a.ID, rmErr)
	}
	if !existed && a.StorageLocator != "" {
		m.logWarn(ctx, "voice artifact already absent at deletion", "artifact_id", a.ID.String())
	}

	deleted, ok, err := m.transition(ctx, a.ID, models.StatusDeleted, func(a *models.Artifact) {
		a.DeletedAt = &now
		a.ErrorMessage = ""
		a.Attempts++
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if !ok {
		if deleted.Status == models.StatusDeleted {
			return outcomeAlreadyDeleted, nil
		}
		return outcomeSkipped, nil
	}

	m.metrics.incDeletion(string(outcomeDeleted))
	details := map[string]any{"file_existed": existed}
	if deleted.ProcessingCompletedAt != nil {
		latency := now.Sub(*deleted.ProcessingCompletedAt)
		m.metrics.observeLatency(latency.Seconds())
		details["latency_ms"] = latency.Milliseconds()
	}
	if m.sessions != nil {
		if err := m.sessions.MarkVoiceDeleted(ctx, deleted.SessionID, now); err != nil {
			m.logWarn(ctx, "failed to mark session voice data deleted",
				"session_id", deleted.SessionID.String(), "error", err)
		}
	}
	m.emit(ctx, deleted, audit.ActionVoiceDeleted, details)
	return outcomeDeleted, nil
}

func (m *Manager) recordFailure(ctx context.Context, id domain.ArtifactID, cause error) (outcome, error) {
	failed, ok, err := m.transition(ctx, id, models.StatusError, func(a *models.Artifact) {
		a.ErrorMessage = cause.Error()
		a.Attempts++
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if !ok {
		if failed.Status == models.StatusDeleted {
			return outcomeAlreadyDeleted, nil
		}
		return outcomeSkipped, nil
	}
	m.metrics.incDeletion(string(outcomeFailed))
	if m.logger != nil {
		m.logger.ErrorContext(ctx, "voice artifact deletion failed",
			"artifact_id", id.String(), "attempts", failed.Attempts, "error", cause)
	}
	m.emit(ctx, failed, audit.ActionVoiceDeletionFailed, map[string]any{
		"error":    cause.Error(),
		"attempts": failed.Attempts,
	})
	return outcomeFailed, dErrors.Wrap(cause, dErrors.CodeDeletionFailed, "voice artifact deletion failed")
}

// transition moves id to next with compare-and-set, reloading and retrying
// on conflict. ok is false when the current status does not allow next; the
// returned artifact is then the current record.
func (m *Manager) transition(ctx context.Context, id domain.ArtifactID, next models.Status, mutate func(*models.Artifact)) (*models.Artifact, bool, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := m.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, false, dErrors.New(dErrors.CodeNotFound, "voice artifact not found")
			}
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voice artifact")
		}
		if !current.Status.CanTransitionTo(next) {
			return current, false, nil
		}
		updated := current.Clone()
		updated.Status = next
		mutate(updated)
		err = m.store.CompareAndSwap(ctx, updated, current.Version)
		if err == nil {
			return updated, true, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update voice artifact")
		}
	}
	return nil, false, dErrors.New(dErrors.CodeConflict, "voice artifact is under heavy contention")
}

func (m *Manager) emit(ctx context.Context, a *models.Artifact, action audit.Action, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["artifact_id"] = a.ID.String()
	details["session_id"] = a.SessionID.String()
	details["status"] = a.Status.String()
	m.publish(ctx, audit.Entry{
		SubjectHash: a.SubjectHash,
		Action:      action,
		LegalBasis:  audit.LegalBasisLegalObligation,
		Details:     details,
	})
}

func (m *Manager) publish(ctx context.Context, entry audit.Entry) {
	if m.logger != nil {
		m.logger.InfoContext(ctx, string(entry.Action), "event", string(entry.Action), "log_type", "audit")
	}
	if m.auditor == nil {
		return
	}
	if err := m.auditor.Emit(ctx, entry); err != nil {
		m.logWarn(ctx, "failed to emit voice audit entry", "action", string(entry.Action), "error", err)
	}
}

func (m *Manager) logWarn(ctx context.Context, msg string, args ...any) {
	if m.logger != nil {
		m.logger.WarnContext(ctx, msg, args...)
	}
}
