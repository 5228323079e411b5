// Package kafka mirrors audit entries onto a Kafka topic for downstream
// compliance archiving. The primary store remains the source of truth: a
// mirror failure never fails Append.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"voxguard/pkg/domain"
	audit "voxguard/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client used by the mirror.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Mirror wraps a primary audit.Store and copies every appended entry to Kafka.
type Mirror struct {
	primary  audit.Store
	producer Producer
	topic    string
	breaker  *CircuitBreaker
	logger   *slog.Logger
}

type Option func(*Mirror)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) {
		m.logger = logger
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(m *Mirror) {
		m.breaker = cb
	}
}

// NewMirror builds a mirror that writes to topic.
func NewMirror(primary audit.Store, producer Producer, topic string, opts ...Option) *Mirror {
	m := &Mirror{
		primary:  primary,
		producer: producer,
		topic:    topic,
		breaker:  NewCircuitBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// message is the JSON payload published for each entry. Only the subject
// hash is carried; IP and user agent stay in the primary store.
type message struct {
	ID          string         `json:"id"`
	SubjectHash string         `json:"subject_hash,omitempty"`
	Action      string         `json:"action"`
	Category    string         `json:"category"`
	LegalBasis  string         `json:"legal_basis,omitempty"`
	ActorID     string         `json:"actor_id,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

func (m *Mirror) Append(ctx context.Context, entry audit.Entry) error {
	if err := m.primary.Append(ctx, entry); err != nil {
		return err
	}
	if !m.breaker.Allow() {
		return nil
	}

	payload, err := json.Marshal(message{
		ID:          entry.ID.String(),
		SubjectHash: entry.SubjectHash.String(),
		Action:      string(entry.Action),
		Category:    string(entry.Category),
		LegalBasis:  string(entry.LegalBasis),
		ActorID:     entry.ActorID,
		RequestID:   entry.RequestID,
		Details:     entry.Details,
		Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		m.warn(ctx, "marshal audit mirror payload", err)
		return nil
	}

	record := &kgo.Record{
		Topic: m.topic,
		Key:   []byte(entry.SubjectHash),
		Value: payload,
	}
	if err := m.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		m.breaker.RecordFailure()
		m.warn(ctx, "audit mirror produce failed", err)
		return nil
	}
	m.breaker.RecordSuccess()
	return nil
}

func (m *Mirror) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]audit.Entry, error) {
	return m.primary.ListBySubject(ctx, subject)
}

func (m *Mirror) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	return m.primary.ListRecent(ctx, limit)
}

func (m *Mirror) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return m.primary.PurgeOlderThan(ctx, cutoff)
}

func (m *Mirror) warn(ctx context.Context, msg string, err error) {
	if m.logger != nil {
		m.logger.WarnContext(ctx, msg, "topic", m.topic, "error", err)
	}
}
