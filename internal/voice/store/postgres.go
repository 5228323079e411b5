package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"voxguard/internal/voice/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
)

// PostgresStore persists tracking records in voice_artifacts. Transitions
// are a single conditional UPDATE on (id, version).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Artifact) error {
	query := `
		INSERT INTO voice_artifacts (
			id, session_id, subject_hash, storage_locator, size_bytes, status, version,
			created_at, processing_completed_at, deletion_scheduled_at, deleted_at,
			error_message, attempts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.SessionID),
		a.SubjectHash.String(),
		a.StorageLocator,
		a.SizeBytes,
		a.Status.String(),
		a.Version,
		a.CreatedAt,
		a.ProcessingCompletedAt,
		a.DeletionScheduledAt,
		a.DeletedAt,
		a.ErrorMessage,
		a.Attempts,
	)
	if err != nil {
		return fmt.Errorf("insert voice artifact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const selectArtifact = `
	SELECT id, session_id, subject_hash, storage_locator, size_bytes, status, version,
		   created_at, processing_completed_at, deletion_scheduled_at, deleted_at,
		   error_message, attempts
	FROM voice_artifacts
`

func (s *PostgresStore) Get(ctx context.Context, id domain.ArtifactID) (*models.Artifact, error) {
	row := s.db.QueryRowContext(ctx, selectArtifact+` WHERE id = $1`, uuid.UUID(id))
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get voice artifact: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, next *models.Artifact, expectedVersion int64) error {
	query := `
		UPDATE voice_artifacts SET
			status = $3,
			version = version + 1,
			processing_completed_at = $4,
			deletion_scheduled_at = $5,
			deleted_at = $6,
			error_message = $7,
			attempts = $8,
			storage_locator = $9
		WHERE id = $1 AND version = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(next.ID),
		expectedVersion,
		next.Status.String(),
		next.ProcessingCompletedAt,
		next.DeletionScheduledAt,
		next.DeletedAt,
		next.ErrorMessage,
		next.Attempts,
		next.StorageLocator,
	)
	if err != nil {
		return fmt.Errorf("update voice artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update voice artifact: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM voice_artifacts WHERE id = $1)`, uuid.UUID(next.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("check voice artifact: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	next.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Artifact, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	return s.list(ctx, selectArtifact+` WHERE status = ANY($1) ORDER BY created_at`, pq.Array(names))
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Artifact, error) {
	return s.list(ctx, selectArtifact+` WHERE subject_hash = $1 ORDER BY created_at`, subject.String())
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM voice_artifacts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count voice artifacts: %w", err)
	}
	defer rows.Close()
	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan voice artifact count: %w", err)
		}
		counts[models.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM voice_artifacts WHERE status = 'deleted' AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge voice artifacts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list voice artifacts: %w", err)
	}
	defer rows.Close()
	var out []*models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var (
		a         models.Artifact
		id        uuid.UUID
		sessionID uuid.UUID
		subject   string
		status    string
	)
	err := row.Scan(
		&id,
		&sessionID,
		&subject,
		&a.StorageLocator,
		&a.SizeBytes,
		&status,
		&a.Version,
		&a.CreatedAt,
		&a.ProcessingCompletedAt,
		&a.DeletionScheduledAt,
		&a.DeletedAt,
		&a.ErrorMessage,
		&a.Attempts,
	)
	if err != nil {
		return nil, err
	}
	a.ID = domain.ArtifactID(id)
	a.SessionID = domain.SessionID(sessionID)
	a.SubjectHash = domain.SubjectHash(subject)
	a.Status = models.Status(status)
	return &a, nil
}
