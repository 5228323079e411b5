package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voxguard/pkg/domain"
	audit "voxguard/pkg/platform/audit"
	txcontext "voxguard/pkg/platform/tx"
)

// Store implements audit.Store on the append-only audit_log table.
// The table grants INSERT and SELECT to the service role; DELETE is only
// exercised by PurgeOlderThan for entries past their own retention window.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts an entry. Idempotent on the entry ID.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_log (
			id, subject_hash, action, category, details,
			ip_address, user_agent, legal_basis, actor_id, request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		nullableString(entry.SubjectHash.String()),
		string(entry.Action),
		string(entry.Category),
		details,
		nullableString(entry.IPAddress),
		nullableString(entry.UserAgent),
		string(entry.LegalBasis),
		entry.ActorID,
		entry.RequestID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, subject_hash, action, category, details,
		   ip_address, user_agent, legal_basis, actor_id, request_id, created_at
	FROM audit_log
`

// ListBySubject returns entries for a subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject domain.SubjectHash) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE subject_hash = $1 ORDER BY created_at ASC`, subject.String())
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRecent returns the N most recent entries.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PurgeOlderThan removes entries whose retention window has elapsed.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return int(n), nil
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry                        audit.Entry
			subject, ip, userAgent       sql.NullString
			action, category, legalBasis string
			details                      []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&subject,
			&action,
			&category,
			&details,
			&ip,
			&userAgent,
			&legalBasis,
			&entry.ActorID,
			&entry.RequestID,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.SubjectHash = domain.SubjectHash(subject.String)
		entry.Action = audit.Action(action)
		entry.Category = audit.EventCategory(category)
		entry.LegalBasis = audit.LegalBasis(legalBasis)
		entry.IPAddress = ip.String
		entry.UserAgent = userAgent.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
