package compliance

import (
	"context"
	"fmt"
	"time"

	"voxguard/pkg/requestcontext"
)

// Status summarizes a health check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusViolation Status = "violation"
)

// Violation is a detected breach of a timing or coverage guarantee. It is
// reported, never returned as an error.
type Violation struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type HealthCheck struct {
	Compliant       bool        `json:"compliant"`
	Status          Status      `json:"status"`
	Violations      []Violation `json:"violations"`
	Recommendations []string    `json:"recommendations"`
	CheckedAt       time.Time   `json:"checked_at"`
}

type checkBuilder struct {
	result   HealthCheck
	degraded bool
}

func (b *checkBuilder) violation(source, reason string) {
	b.result.Violations = append(b.result.Violations, Violation{Source: source, Reason: reason})
}

func (b *checkBuilder) recommend(format string, args ...any) {
	b.result.Recommendations = append(b.result.Recommendations, fmt.Sprintf(format, args...))
}

func (b *checkBuilder) build() HealthCheck {
	r := b.result
	r.Compliant = len(r.Violations) == 0
	switch {
	case !r.Compliant:
		r.Status = StatusViolation
	case b.degraded:
		r.Status = StatusDegraded
	default:
		r.Status = StatusHealthy
	}
	if r.Violations == nil {
		r.Violations = []Violation{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	return r
}

// PerformComplianceCheck aggregates voice deletion verification, the rights
// response deadline, audit escalations and the last retention run.
func (s *Service) PerformComplianceCheck(ctx context.Context) (HealthCheck, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.PerformComplianceCheck")
	defer span.End()

	now := requestcontext.Now(ctx)
	b := &checkBuilder{result: HealthCheck{CheckedAt: now}}

	report, err := s.voice.Verify(ctx)
	if err != nil {
		return HealthCheck{}, s.fail(span, err)
	}
	for _, v := range report.Violations {
		b.violation("voice", fmt.Sprintf("artifact %s (%s): %s", v.ArtifactID, v.Status, v.Reason))
	}
	b.result.Recommendations = append(b.result.Recommendations, report.Recommendations...)

	backlog, err := s.rights.Backlog(ctx)
	if err != nil {
		return HealthCheck{}, s.fail(span, err)
	}
	for _, r := range backlog.Overdue {
		b.violation("rights", fmt.Sprintf("%s request %s is %s and past the %s response deadline",
			r.Kind, r.ID, r.Status, s.rights.ResponseDeadline()))
	}
	if len(backlog.Overdue) > 0 {
		b.recommend("%d subject request(s) are overdue: process them now", len(backlog.Overdue))
	}
	if backlog.Failed > 0 {
		b.degraded = true
		b.recommend("%d subject request(s) failed: review the failure reasons and create new requests", backlog.Failed)
	}

	if s.audit != nil {
		st := s.audit.Status()
		if st.Pending > 0 {
			b.violation("audit", fmt.Sprintf("%d audit entries are waiting in the escalation buffer: %s", st.Pending, st.LastError))
			b.recommend("restore the audit store; buffered entries are retried automatically")
		}
		if st.Dropped > 0 {
			b.violation("audit", fmt.Sprintf("%d audit entries were dropped after the escalation buffer filled", st.Dropped))
		}
	}

	if s.retention != nil {
		run, ok := s.retention.LastRun()
		switch {
		case !ok:
			b.degraded = true
			b.recommend("retention enforcement has not run since startup")
		case !run.OK():
			b.degraded = true
			for _, c := range run.Results {
				if c.Error != "" {
					b.recommend("retention for %s failed on %s: %s", c.Category, run.StartedAt.Format(time.RFC3339), c.Error)
				}
			}
		case s.cfg.RetentionStaleAfter > 0 && now.Sub(run.FinishedAt) > s.cfg.RetentionStaleAfter:
			b.degraded = true
			b.recommend("retention enforcement last ran %s ago: check the scheduler", now.Sub(run.FinishedAt).Round(time.Minute))
		}
	}

	result := b.build()
	s.metrics.setStatus(result.Status)
	if !result.Compliant && s.logger != nil {
		s.logger.WarnContext(ctx, "compliance check found violations",
			"violations", len(result.Violations), "status", string(result.Status))
	}
	return result, nil
}
