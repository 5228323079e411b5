package voice

import (
	"context"
	"fmt"
	"time"

	"voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
)

// Sweep is the safety net behind the deadline timers. It re-enters error
// records into scheduled_deletion, reschedules records stranded in
// processed, and deletes everything whose deadline has passed.
func (m *Manager) Sweep(ctx context.Context) (models.SweepResult, error) {
	outstanding, err := m.store.ListByStatus(ctx,
		models.StatusProcessed, models.StatusScheduledDeletion, models.StatusError)
	if err != nil {
		return models.SweepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list outstanding voice artifacts")
	}

	var result models.SweepResult
	for _, a := range outstanding {
		if err := ctx.Err(); err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeTimeout, "voice sweep interrupted")
		}
		result.Scanned++
		switch a.Status {
		case models.StatusError:
			if m.reschedule(ctx, a, m.clock()) {
				result.Retried++
			}
		case models.StatusProcessed:
			m.reschedule(ctx, a, a.Deadline(m.window))
		}
		m.tally(ctx, &result, a.ID, false)
	}

	m.metrics.incSweep("scheduled")
	m.publish(ctx, audit.Entry{
		Action:     audit.ActionVoiceSweepCompleted,
		LegalBasis: audit.LegalBasisLegalObligation,
		Details:    sweepDetails(result),
	})
	return result, nil
}

// RetryErrored moves every error record back to scheduled_deletion with an
// immediate deadline. It returns the number of records re-entered.
func (m *Manager) RetryErrored(ctx context.Context) (int, error) {
	failed, err := m.store.ListByStatus(ctx, models.StatusError)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list errored voice artifacts")
	}
	n := 0
	for _, a := range failed {
		if m.reschedule(ctx, a, m.clock()) {
			n++
		}
	}
	return n, nil
}

// EmergencyCleanup deletes every outstanding artifact immediately,
// including ones still being processed.
func (m *Manager) EmergencyCleanup(ctx context.Context, initiator, reason string) (models.SweepResult, error) {
	if initiator == "" {
		return models.SweepResult{}, dErrors.New(dErrors.CodeValidation, "initiator is required for emergency cleanup")
	}
	outstanding, err := m.store.ListByStatus(ctx, models.OutstandingStatuses...)
	if err != nil {
		return models.SweepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list outstanding voice artifacts")
	}
	result := m.forceAll(ctx, outstanding)

	m.metrics.incSweep("emergency")
	if m.logger != nil {
		m.logger.WarnContext(ctx, "voice emergency cleanup executed",
			"initiator", initiator, "reason", reason,
			"scanned", result.Scanned, "deleted", result.Deleted, "failed", result.Failed)
	}
	details := sweepDetails(result)
	details["reason"] = reason
	m.publish(ctx, audit.Entry{
		Action:     audit.ActionVoiceEmergencyCleanup,
		LegalBasis: audit.LegalBasisLegalObligation,
		ActorID:    initiator,
		Details:    details,
	})
	return result, nil
}

// DeleteForSubject immediately deletes the subject's outstanding artifacts.
func (m *Manager) DeleteForSubject(ctx context.Context, subject domain.SubjectHash) (models.SweepResult, error) {
	if subject.IsNil() {
		return models.SweepResult{}, dErrors.New(dErrors.CodeValidation, "subject hash is required")
	}
	all, err := m.store.ListBySubject(ctx, subject)
	if err != nil {
		return models.SweepResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list subject voice artifacts")
	}
	outstanding := all[:0]
	for _, a := range all {
		if a.Status != models.StatusDeleted {
			outstanding = append(outstanding, a)
		}
	}
	return m.forceAll(ctx, outstanding), nil
}

// PurgeExpired forces deletion of outstanding artifacts created before
// cutoff whose deadline has also passed. Tracking records of deleted audio
// are dropped only once they are older than both cutoff and the proof
// retention. Artifacts still inside their window are left to the timer.
func (m *Manager) PurgeExpired(ctx context.Context, cutoff time.Time) (models.SweepResult, int, error) {
	outstanding, err := m.store.ListByStatus(ctx, models.OutstandingStatuses...)
	if err != nil {
		return models.SweepResult{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list outstanding voice artifacts")
	}
	now := m.clock()
	var due []*models.Artifact
	for _, a := range outstanding {
		if a.CreatedAt.Before(cutoff) && !now.Before(a.Deadline(m.window)) {
			due = append(due, a)
		}
	}
	result := m.forceAll(ctx, due)

	proofCutoff := now.Add(-m.proof)
	if cutoff.Before(proofCutoff) {
		proofCutoff = cutoff
	}
	purged, err := m.store.PurgeDeletedBefore(ctx, proofCutoff)
	if err != nil {
		return result, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge deleted voice records")
	}
	return result, purged, nil
}

func (m *Manager) forceAll(ctx context.Context, artifacts []*models.Artifact) models.SweepResult {
	var result models.SweepResult
	now := m.clock()
	for _, a := range artifacts {
		result.Scanned++
		if a.Status != models.StatusScheduledDeletion {
			if a.Status == models.StatusError {
				result.Retried++
			}
			m.reschedule(ctx, a, now)
		}
		m.tally(ctx, &result, a.ID, true)
	}
	return result
}

// reschedule moves a record into scheduled_deletion with the given
// deadline. It reports whether this call made the transition.
func (m *Manager) reschedule(ctx context.Context, a *models.Artifact, deadline time.Time) bool {
	_, ok, err := m.transition(ctx, a.ID, models.StatusScheduledDeletion, func(next *models.Artifact) {
		next.DeletionScheduledAt = &deadline
	})
	if err != nil {
		m.logWarn(ctx, "failed to reschedule voice artifact", "artifact_id", a.ID.String(), "error", err)
		return false
	}
	return ok
}

func (m *Manager) tally(ctx context.Context, result *models.SweepResult, id domain.ArtifactID, force bool) {
	out, err := m.executeDeletion(ctx, id, force)
	switch out {
	case outcomeDeleted:
		result.Deleted++
	case outcomeFailed:
		result.Failed++
	default:
		result.Skipped++
		if err != nil {
			m.logWarn(ctx, "voice deletion skipped", "artifact_id", id.String(), "error", err)
		}
	}
}

// Verify flags every record still undeleted past its deadline and every
// record stuck in error.
func (m *Manager) Verify(ctx context.Context) (models.VerifyReport, error) {
	outstanding, err := m.store.ListByStatus(ctx, models.OutstandingStatuses...)
	if err != nil {
		return models.VerifyReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list outstanding voice artifacts")
	}
	now := m.clock()
	report := models.VerifyReport{CheckedAt: now}

	var overdue, errored int
	for _, a := range outstanding {
		deadline := a.Deadline(m.window)
		switch {
		case a.Status == models.StatusError:
			errored++
			report.Violations = append(report.Violations, models.Violation{
				ArtifactID: a.ID,
				SessionID:  a.SessionID,
				Status:     a.Status,
				Overdue:    max(now.Sub(deadline), 0),
				Reason:     "deletion failed: " + a.ErrorMessage,
			})
		case now.After(deadline):
			overdue++
			report.Violations = append(report.Violations, models.Violation{
				ArtifactID: a.ID,
				SessionID:  a.SessionID,
				Status:     a.Status,
				Overdue:    now.Sub(deadline),
				Reason:     fmt.Sprintf("undeleted %s past deletion deadline", now.Sub(deadline).Round(time.Second)),
			})
		}
	}

	if overdue > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d artifact(s) are past their deletion deadline: confirm the deletion sweep is running or run an emergency cleanup", overdue))
	}
	if errored > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d artifact(s) failed deletion: check voice storage permissions and availability", errored))
	}
	report.Compliant = len(report.Violations) == 0
	return report, nil
}

func sweepDetails(r models.SweepResult) map[string]any {
	return map[string]any{
		"scanned": r.Scanned,
		"deleted": r.Deleted,
		"failed":  r.Failed,
		"retried": r.Retried,
		"skipped": r.Skipped,
	}
}
