package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voxguard/internal/consent/models"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
	txcontext "voxguard/pkg/platform/tx"
)

// PostgresStore persists consent records in the consent_records table.
// seq is a bigserial that breaks timestamp ties in write order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, record *models.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	var sessionID any
	if !record.SessionID.IsNil() {
		sessionID = record.SessionID.String()
	}
	query := `
		INSERT INTO consent_records (
			id, subject_hash, purpose, granted, recorded_at,
			source_version, origin_ip, user_agent, session_id, initiator
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		record.SubjectHash.String(),
		record.Purpose.String(),
		record.Granted,
		record.Timestamp,
		record.SourceVersion,
		record.OriginIP,
		record.UserAgent,
		sessionID,
		record.Initiator,
	)
	if err != nil {
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

const selectRecord = `
	SELECT id, subject_hash, purpose, granted, recorded_at,
		   source_version, origin_ip, user_agent, session_id, initiator
	FROM consent_records
`

func (s *PostgresStore) Latest(ctx context.Context, subject domain.SubjectHash, purpose domain.ConsentPurpose) (*models.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		selectRecord+` WHERE subject_hash = $1 AND purpose = $2 ORDER BY recorded_at DESC, seq DESC LIMIT 1`,
		subject.String(), purpose.String(),
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest consent: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]*models.Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		selectRecord+` WHERE subject_hash = $1 ORDER BY recorded_at ASC, seq ASC`,
		subject.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteBySubject removes records before cutoff. The newest record of a
// purpose survives when it is a withdrawal.
func (s *PostgresStore) DeleteBySubject(ctx context.Context, subject domain.SubjectHash, cutoff time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM consent_records WHERE id IN (
			SELECT id FROM (
				SELECT id, recorded_at, granted,
					ROW_NUMBER() OVER (PARTITION BY purpose ORDER BY recorded_at DESC, seq DESC) AS rn
				FROM consent_records
				WHERE subject_hash = $1
			) ranked
			WHERE recorded_at < $2 AND NOT (rn = 1 AND NOT granted)
		)
	`, subject.String(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete consent records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) StripClientMetadata(ctx context.Context, subject domain.SubjectHash) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE consent_records SET origin_ip = '', user_agent = ''
		WHERE subject_hash = $1 AND (origin_ip <> '' OR user_agent <> '')
	`, subject.String())
	if err != nil {
		return 0, fmt.Errorf("strip consent metadata: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// PurgeOlderThan removes records before cutoff but never the newest record
// per (subject, purpose), so an aged withdrawal keeps its effect.
func (s *PostgresStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		DELETE FROM consent_records WHERE id IN (
			SELECT id FROM (
				SELECT id, recorded_at,
					ROW_NUMBER() OVER (PARTITION BY subject_hash, purpose ORDER BY recorded_at DESC, seq DESC) AS rn
				FROM consent_records
			) ranked
			WHERE rn > 1 AND recorded_at < $1
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge consent records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		record    models.Record
		subject   string
		purpose   string
		sessionID uuid.NullUUID
	)
	err := row.Scan(
		&record.ID,
		&subject,
		&purpose,
		&record.Granted,
		&record.Timestamp,
		&record.SourceVersion,
		&record.OriginIP,
		&record.UserAgent,
		&sessionID,
		&record.Initiator,
	)
	if err != nil {
		return nil, err
	}
	record.SubjectHash = domain.SubjectHash(subject)
	record.Purpose = domain.ConsentPurpose(purpose)
	if sessionID.Valid {
		record.SessionID = domain.SessionID(sessionID.UUID)
	}
	return &record, nil
}
