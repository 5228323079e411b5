// Package compliance provides the audit publisher for regulatory entries.
//
// Publisher writes synchronously to the audit store. A failed write never
// fails the primary operation and is never silently dropped: the entry is
// parked in a bounded escalation buffer, logged at error level, counted, and
// reported through Status so the compliance health check can flag it. Flush
// retries parked entries and is driven by the scheduler.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/requestcontext"
)

var ErrMissingAction = errors.New("audit entry requires an action")

// Publisher emits compliance audit entries.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	buffer  *EscalationBuffer

	mu            sync.Mutex
	totalFailures int64
	lastFailure   time.Time
	lastError     string
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithEscalationCapacity bounds how many failed entries are kept for retry.
func WithEscalationCapacity(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewEscalationBuffer(n)
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = NewEscalationBuffer(0)
	}
	return p
}

// Emit persists entry. Request-scoped metadata (request id, actor, time) is
// filled from ctx when the entry leaves it empty.
//
// Only a malformed entry returns an error; persistence failures are escalated.
func (p *Publisher) Emit(ctx context.Context, entry audit.Entry) error {
	if entry.Action == "" {
		return ErrMissingAction
	}
	entry = p.enrich(ctx, entry)

	start := time.Now()
	if err := p.store.Append(ctx, entry); err != nil {
		p.escalate(ctx, entry, err)
		return nil
	}

	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		p.metrics.IncEventsEmitted()
	}
	return nil
}

func (p *Publisher) enrich(ctx context.Context, entry audit.Entry) audit.Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.Category == "" {
		entry.Category = entry.Action.Category()
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.ActorID == "" {
		entry.ActorID = requestcontext.ActorID(ctx)
	}
	return entry
}

func (p *Publisher) escalate(ctx context.Context, entry audit.Entry, err error) {
	p.buffer.Enqueue(entry)

	p.mu.Lock()
	p.totalFailures++
	p.lastFailure = time.Now()
	p.lastError = err.Error()
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.IncPersistFailures()
		p.metrics.EscalationDepth.Set(float64(p.buffer.Len()))
	}
	if p.logger != nil {
		p.logger.ErrorContext(ctx, "CRITICAL: compliance audit write failed, escalated",
			"action", string(entry.Action),
			"entry_id", entry.ID.String(),
			"subject", entry.SubjectHash.Short(),
			"pending", p.buffer.Len(),
			"error", err,
		)
	}
}

// Flush retries escalated entries. Entries that fail again are parked again.
// Returns how many were persisted and how many remain.
func (p *Publisher) Flush(ctx context.Context) (int, int) {
	batch := p.buffer.DequeueBatch(0)
	persisted := 0
	for i, entry := range batch {
		if err := ctx.Err(); err != nil {
			for _, rest := range batch[i:] {
				p.buffer.Enqueue(rest)
			}
			break
		}
		if err := p.store.Append(ctx, entry); err != nil {
			p.buffer.Enqueue(entry)
			continue
		}
		persisted++
	}
	if p.metrics != nil {
		p.metrics.EscalationsSaved.Add(float64(persisted))
		p.metrics.EscalationDepth.Set(float64(p.buffer.Len()))
	}
	if persisted > 0 && p.logger != nil {
		p.logger.InfoContext(ctx, "escalated audit entries persisted",
			"persisted", persisted,
			"remaining", p.buffer.Len(),
		)
	}
	return persisted, p.buffer.Len()
}

// EscalationStatus summarizes audit persistence health.
type EscalationStatus struct {
	Pending       int
	Dropped       int64
	TotalFailures int64
	LastFailure   time.Time
	LastError     string
}

// Status reports the current escalation state.
func (p *Publisher) Status() EscalationStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return EscalationStatus{
		Pending:       p.buffer.Len(),
		Dropped:       p.buffer.Dropped(),
		TotalFailures: p.totalFailures,
		LastFailure:   p.lastFailure,
		LastError:     p.lastError,
	}
}

// Close makes a last attempt to persist escalated entries. Entries that
// still cannot be written are reported as an error; they are lost with the
// process.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, remaining := p.Flush(ctx); remaining > 0 {
		return fmt.Errorf("%d audit entries could not be persisted before shutdown", remaining)
	}
	return nil
}
