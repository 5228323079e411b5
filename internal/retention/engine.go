// Package retention enforces per-category retention windows. For voice audio
// it is the safety net behind the lifecycle manager's own deadlines.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "voxguard/pkg/domain-errors"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

const (
	TriggerEnforce   = "enforce"
	TriggerEmergency = "emergency"
)

const defaultHistoryLimit = 30

// CategoryResult is the outcome of applying one policy.
type CategoryResult struct {
	Category  Category  `json:"category"`
	Mode      Mode      `json:"mode"`
	Cutoff    time.Time `json:"cutoff"`
	Processed int       `json:"processed"`
	Error     string    `json:"error,omitempty"`
}

// RunSummary describes one enforcement run.
type RunSummary struct {
	ID         uuid.UUID        `json:"id"`
	Trigger    string           `json:"trigger"`
	Initiator  string           `json:"initiator,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Results    []CategoryResult `json:"results"`
}

// Failed returns the number of categories that did not complete.
func (r RunSummary) Failed() int {
	n := 0
	for _, c := range r.Results {
		if c.Error != "" {
			n++
		}
	}
	return n
}

func (r RunSummary) OK() bool { return r.Failed() == 0 }

type Engine struct {
	policies []Policy
	handlers map[Category]Purger
	auditor  AuditPublisher
	logger   *slog.Logger
	metrics  *Metrics
	clock    func() time.Time

	runMu        sync.Mutex
	mu           sync.RWMutex
	history      []RunSummary
	historyLimit int
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(e *Engine) {
		e.auditor = p
	}
}

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithHistoryLimit bounds how many run summaries are kept.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// New validates the policy set against the registered handlers. Every
// policy needs a handler, and anonymizing policies need a handler that
// supports each of their rules.
func New(policies []Policy, handlers map[Category]Purger, opts ...Option) (*Engine, error) {
	seen := make(map[Category]bool, len(policies))
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.Category] {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate retention policy for "+p.Category.String())
		}
		seen[p.Category] = true
		h, ok := handlers[p.Category]
		if !ok || h == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "no retention handler for "+p.Category.String())
		}
		if p.Mode() != ModeAnonymize {
			continue
		}
		anon, ok := h.(Anonymizer)
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, p.Category.String()+" does not support anonymization")
		}
		for _, r := range p.AnonymizationRules {
			if !anon.Supports(r) {
				return nil, dErrors.New(dErrors.CodeValidation,
					fmt.Sprintf("%s: unsupported anonymization rule %s/%s", p.Category, r.Field, r.Method))
			}
		}
	}

	ordered := slices.Clone(policies)
	order := AllCategories()
	slices.SortStableFunc(ordered, func(a, b Policy) int {
		return slices.Index(order, a.Category) - slices.Index(order, b.Category)
	})
	e := &Engine{
		policies:     ordered,
		handlers:     handlers,
		clock:        time.Now,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policies returns the active policies in enforcement order.
func (e *Engine) Policies() []Policy {
	return slices.Clone(e.policies)
}

func (e *Engine) Policy(c Category) (Policy, bool) {
	for _, p := range e.policies {
		if p.Category == c {
			return p, true
		}
	}
	return Policy{}, false
}

// Enforce applies every policy once. A failing category does not stop the
// others; failures are reported in the summary. Runs do not overlap.
func (e *Engine) Enforce(ctx context.Context) (RunSummary, error) {
	if !e.runMu.TryLock() {
		return RunSummary{}, dErrors.New(dErrors.CodeConflict, "retention enforcement already running")
	}
	defer e.runMu.Unlock()

	run := e.startRun(TriggerEnforce, "")
	for _, p := range e.policies {
		if err := ctx.Err(); err != nil {
			e.finishRun(&run)
			return run, dErrors.Wrap(err, dErrors.CodeTimeout, "retention enforcement interrupted")
		}
		result := e.apply(ctx, p, p.Mode(), run.StartedAt)
		run.Results = append(run.Results, result)
		e.emit(ctx, audit.ActionRetentionEnforced, run, result, "")
	}
	e.finishRun(&run)
	return run, nil
}

// EmergencyCleanup applies one category's policy immediately, out of
// schedule. Expired records are deleted even when the policy would normally
// anonymize or retain them; the retention window itself is still honored.
func (e *Engine) EmergencyCleanup(ctx context.Context, category Category, initiator, reason string) (CategoryResult, error) {
	if initiator == "" {
		return CategoryResult{}, dErrors.New(dErrors.CodeValidation, "initiator is required for emergency cleanup")
	}
	p, ok := e.Policy(category)
	if !ok {
		return CategoryResult{}, dErrors.New(dErrors.CodeNotFound, "no retention policy for "+category.String())
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	run := e.startRun(TriggerEmergency, initiator)
	result := e.apply(ctx, p, ModeDelete, run.StartedAt)
	run.Results = append(run.Results, result)
	e.finishRun(&run)

	if e.logger != nil {
		e.logger.WarnContext(ctx, "retention emergency cleanup executed",
			"category", category.String(), "initiator", initiator, "reason", reason,
			"processed", result.Processed, "error", result.Error)
	}
	e.emit(ctx, audit.ActionRetentionEmergencyCleanup, run, result, reason)
	if result.Error != "" {
		return result, dErrors.New(dErrors.CodeInternal, "emergency cleanup failed: "+result.Error)
	}
	return result, nil
}

// LastRuns returns the kept run summaries, newest first.
func (e *Engine) LastRuns() []RunSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := slices.Clone(e.history)
	slices.Reverse(out)
	return out
}

// LastRun returns the most recent scheduled run.
func (e *Engine) LastRun() (RunSummary, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].Trigger == TriggerEnforce {
			return e.history[i], true
		}
	}
	return RunSummary{}, false
}

func (e *Engine) apply(ctx context.Context, p Policy, mode Mode, now time.Time) CategoryResult {
	result := CategoryResult{Category: p.Category, Mode: mode, Cutoff: p.Cutoff(now)}
	ctx = requestcontext.WithTime(ctx, now)

	var (
		n   int
		err error
	)
	switch mode {
	case ModeDelete:
		n, err = e.handlers[p.Category].Purge(ctx, result.Cutoff)
	case ModeAnonymize:
		n, err = e.handlers[p.Category].(Anonymizer).Anonymize(ctx, result.Cutoff, p.AnonymizationRules)
	case ModeRetain:
	}
	result.Processed = n
	if err != nil {
		result.Error = err.Error()
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "retention policy failed",
				"category", p.Category.String(), "mode", string(mode), "error", err)
		}
	}
	e.metrics.observe(result)
	return result
}

func (e *Engine) startRun(trigger, initiator string) RunSummary {
	return RunSummary{
		ID:        uuid.New(),
		Trigger:   trigger,
		Initiator: initiator,
		StartedAt: e.clock(),
	}
}

func (e *Engine) finishRun(run *RunSummary) {
	run.FinishedAt = e.clock()
	e.metrics.observeRun(run.FinishedAt.Sub(run.StartedAt).Seconds())

	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, *run)
	if over := len(e.history) - e.historyLimit; over > 0 {
		e.history = slices.Delete(e.history, 0, over)
	}
}

func (e *Engine) emit(ctx context.Context, action audit.Action, run RunSummary, r CategoryResult, reason string) {
	details := map[string]any{
		"run_id":    run.ID.String(),
		"category":  r.Category.String(),
		"mode":      string(r.Mode),
		"cutoff":    r.Cutoff.UTC().Format(time.RFC3339),
		"processed": r.Processed,
	}
	if r.Error != "" {
		details["error"] = r.Error
	}
	if reason != "" {
		details["reason"] = reason
	}
	if e.logger != nil {
		e.logger.InfoContext(ctx, string(action), "event", string(action),
			"category", r.Category.String(), "processed", r.Processed, "log_type", "audit")
	}
	if e.auditor == nil {
		return
	}
	err := e.auditor.Emit(ctx, audit.Entry{
		Action:     action,
		LegalBasis: audit.LegalBasisLegalObligation,
		ActorID:    run.Initiator,
		Details:    details,
	})
	if err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to emit retention audit entry", "error", err)
	}
}
