package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"voxguard/internal/rights/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// PostgresStore persists requests in rights_requests with a version column
// for compare-and-set.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Request) error {
	query := `
		INSERT INTO rights_requests (
			id, subject_hash, kind, status, requested_at, started_at, completed_at,
			result_handle, expires_at, failure_reason, session_id, correction, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID),
		r.SubjectHash.String(),
		r.Kind.String(),
		r.Status.String(),
		r.RequestedAt,
		r.StartedAt,
		r.CompletedAt,
		r.ResultHandle,
		r.ExpiresAt,
		r.FailureReason,
		nullSession(r.SessionID),
		r.Correction,
		r.Version,
	)
	if err != nil {
		return fmt.Errorf("insert rights request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const selectRequest = `
	SELECT id, subject_hash, kind, status, requested_at, started_at, completed_at,
		   result_handle, expires_at, failure_reason, session_id, correction, version
	FROM rights_requests
`

func (s *PostgresStore) Get(ctx context.Context, id domain.RequestID) (*models.Request, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, selectRequest+` WHERE id = $1`, uuid.UUID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rights request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, next *models.Request, expectedVersion int64) error {
	query := `
		UPDATE rights_requests SET
			status = $3,
			started_at = $4,
			completed_at = $5,
			result_handle = $6,
			expires_at = $7,
			failure_reason = $8,
			correction = $9,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(next.ID),
		expectedVersion,
		next.Status.String(),
		next.StartedAt,
		next.CompletedAt,
		next.ResultHandle,
		next.ExpiresAt,
		next.FailureReason,
		next.Correction,
	)
	if err != nil {
		return fmt.Errorf("update rights request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rights request: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, next.ID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	next.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Request, error) {
	return s.list(ctx, selectRequest+` WHERE subject_hash = $1 ORDER BY requested_at`, subject.String())
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Request, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	return s.list(ctx, selectRequest+` WHERE status = ANY($1) ORDER BY requested_at`, pq.Array(names))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rights requests: %w", err)
	}
	defer rows.Close()
	var out []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rights request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r         models.Request
		id        uuid.UUID
		subject   string
		kind      string
		status    string
		sessionID uuid.NullUUID
	)
	err := row.Scan(
		&id,
		&subject,
		&kind,
		&status,
		&r.RequestedAt,
		&r.StartedAt,
		&r.CompletedAt,
		&r.ResultHandle,
		&r.ExpiresAt,
		&r.FailureReason,
		&sessionID,
		&r.Correction,
		&r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.ID = domain.RequestID(id)
	r.SubjectHash = domain.SubjectHash(subject)
	r.Kind = models.Kind(kind)
	r.Status = models.Status(status)
	if sessionID.Valid {
		r.SessionID = domain.SessionID(sessionID.UUID)
	}
	return &r, nil
}

func nullSession(id domain.SessionID) uuid.NullUUID {
	if id.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(id), Valid: true}
}

// PostgresExportStore keeps sealed bundles in export_bundles.
type PostgresExportStore struct {
	db *sql.DB
}

func NewPostgresExportStore(db *sql.DB) *PostgresExportStore {
	return &PostgresExportStore{db: db}
}

func (s *PostgresExportStore) Put(ctx context.Context, id domain.RequestID, subject domain.SubjectHash, sealed []byte, expiresAt time.Time) error {
	query := `
		INSERT INTO export_bundles (request_id, subject_hash, payload, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(id), subject.String(), sealed, expiresAt); err != nil {
		return fmt.Errorf("store export bundle: %w", err)
	}
	return nil
}

func (s *PostgresExportStore) Get(ctx context.Context, id domain.RequestID, now time.Time) ([]byte, error) {
	var (
		sealed    []byte
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM export_bundles WHERE request_id = $1`, uuid.UUID(id)).Scan(&sealed, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load export bundle: %w", err)
	}
	if !now.Before(expiresAt) {
		return nil, sentinel.ErrExpired
	}
	return sealed, nil
}

func (s *PostgresExportStore) DeleteBySubject(ctx context.Context, subject domain.SubjectHash) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM export_bundles WHERE subject_hash = $1`, subject.String())
	if err != nil {
		return 0, fmt.Errorf("delete export bundles: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresExportStore) CountBySubject(ctx context.Context, subject domain.SubjectHash) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM export_bundles WHERE subject_hash = $1`, subject.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count export bundles: %w", err)
	}
	return n, nil
}

func (s *PostgresExportStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM export_bundles WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge export bundles: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
