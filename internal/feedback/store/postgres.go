package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"voxguard/internal/feedback/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// PostgresSessionStore persists sessions in feedback_sessions.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO feedback_sessions (
			id, subject_hash, transcript, pii_types, confidence, created_at,
			transcript_at, voice_data_deleted, voice_deleted_at, anonymized_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, sessionArgs(session)...)
	if err != nil {
		return fmt.Errorf("insert feedback session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const selectSession = `
	SELECT id, subject_hash, transcript, pii_types, confidence, created_at,
		   transcript_at, voice_data_deleted, voice_deleted_at, anonymized_at, version
	FROM feedback_sessions
`

func (s *PostgresSessionStore) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSession+` WHERE id = $1`, uuid.UUID(id))
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback session: %w", err)
	}
	return session, nil
}

// CompareAndSwap writes next only when the row still carries
// expectedVersion.
func (s *PostgresSessionStore) CompareAndSwap(ctx context.Context, next *models.Session, expectedVersion int64) error {
	query := `
		UPDATE feedback_sessions SET
			subject_hash = $3,
			transcript = $4,
			pii_types = $5,
			confidence = $6,
			transcript_at = $7,
			voice_data_deleted = $8,
			voice_deleted_at = $9,
			anonymized_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(next.ID),
		expectedVersion,
		next.SubjectHash.String(),
		next.Transcript,
		pq.Array(piiTypes(next)),
		next.Confidence,
		next.TranscriptAt,
		next.VoiceDataDeleted,
		next.VoiceDeletedAt,
		next.AnonymizedAt,
	)
	if err != nil {
		return fmt.Errorf("update feedback session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update feedback session: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM feedback_sessions WHERE id = $1)`, uuid.UUID(next.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check feedback session: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	next.Version = expectedVersion + 1
	return nil
}

func (s *PostgresSessionStore) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Session, error) {
	return s.list(ctx, selectSession+` WHERE subject_hash = $1 ORDER BY created_at`, subject.String())
}

func (s *PostgresSessionStore) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Session, error) {
	return s.list(ctx, selectSession+` WHERE created_at < $1 ORDER BY created_at`, cutoff)
}

func (s *PostgresSessionStore) DeleteBySubject(ctx context.Context, subject domain.SubjectHash) (int, error) {
	return s.exec(ctx, `DELETE FROM feedback_sessions WHERE subject_hash = $1`, subject.String())
}

func (s *PostgresSessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.exec(ctx, `DELETE FROM feedback_sessions WHERE created_at < $1`, cutoff)
}

func (s *PostgresSessionStore) exec(ctx context.Context, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete feedback sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresSessionStore) list(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback sessions: %w", err)
	}
	defer rows.Close()
	var out []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback session: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func sessionArgs(session *models.Session) []any {
	return []any{
		uuid.UUID(session.ID),
		session.SubjectHash.String(),
		session.Transcript,
		pq.Array(piiTypes(session)),
		session.Confidence,
		session.CreatedAt,
		session.TranscriptAt,
		session.VoiceDataDeleted,
		session.VoiceDeletedAt,
		session.AnonymizedAt,
		session.Version,
	}
}

// piiTypes keeps pq from writing NULL into the NOT NULL array column.
func piiTypes(session *models.Session) []string {
	if session.PIITypes == nil {
		return []string{}
	}
	return session.PIITypes
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session models.Session
		id      uuid.UUID
		subject string
	)
	err := row.Scan(
		&id,
		&subject,
		&session.Transcript,
		pq.Array(&session.PIITypes),
		&session.Confidence,
		&session.CreatedAt,
		&session.TranscriptAt,
		&session.VoiceDataDeleted,
		&session.VoiceDeletedAt,
		&session.AnonymizedAt,
		&session.Version,
	)
	if err != nil {
		return nil, err
	}
	session.ID = domain.SessionID(id)
	session.SubjectHash = domain.SubjectHash(subject)
	return &session, nil
}

// PostgresEventStore persists analytics events in analytics_events with
// properties as JSONB.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Append(ctx context.Context, event *models.Event) error {
	props, err := json.Marshal(event.Properties)
	if err != nil {
		return fmt.Errorf("marshal event properties: %w", err)
	}
	query := `
		INSERT INTO analytics_events (id, subject_hash, session_id, name, properties, occurred_at, anonymized_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.SubjectHash.String(),
		nullSession(event.SessionID),
		event.Name,
		props,
		event.OccurredAt,
		event.AnonymizedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) Update(ctx context.Context, event *models.Event) error {
	props, err := json.Marshal(event.Properties)
	if err != nil {
		return fmt.Errorf("marshal event properties: %w", err)
	}
	query := `
		UPDATE analytics_events SET
			subject_hash = $2, session_id = $3, properties = $4, occurred_at = $5, anonymized_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.SubjectHash.String(),
		nullSession(event.SessionID),
		props,
		event.OccurredAt,
		event.AnonymizedAt,
	)
	if err != nil {
		return fmt.Errorf("update analytics event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectEvent = `
	SELECT id, subject_hash, session_id, name, properties, occurred_at, anonymized_at
	FROM analytics_events
`

func (s *PostgresEventStore) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Event, error) {
	return s.list(ctx, selectEvent+` WHERE subject_hash = $1 ORDER BY occurred_at`, subject.String())
}

func (s *PostgresEventStore) ListBefore(ctx context.Context, cutoff time.Time) ([]*models.Event, error) {
	return s.list(ctx, selectEvent+` WHERE occurred_at < $1 ORDER BY occurred_at`, cutoff)
}

func (s *PostgresEventStore) DeleteBySubject(ctx context.Context, subject domain.SubjectHash) (int, error) {
	return s.exec(ctx, `DELETE FROM analytics_events WHERE subject_hash = $1`, subject.String())
}

func (s *PostgresEventStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.exec(ctx, `DELETE FROM analytics_events WHERE occurred_at < $1`, cutoff)
}

func (s *PostgresEventStore) exec(ctx context.Context, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete analytics events: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresEventStore) list(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()
	var out []*models.Event
	for rows.Next() {
		var (
			e         models.Event
			subject   string
			sessionID uuid.NullUUID
			props     []byte
		)
		if err := rows.Scan(&e.ID, &subject, &sessionID, &e.Name, &props, &e.OccurredAt, &e.AnonymizedAt); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &e.Properties); err != nil {
				return nil, fmt.Errorf("decode event properties: %w", err)
			}
		}
		e.SubjectHash = domain.SubjectHash(subject)
		if sessionID.Valid {
			e.SessionID = domain.SessionID(sessionID.UUID)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullSession(id domain.SessionID) uuid.NullUUID {
	if id.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(id), Valid: true}
}
