package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"voxguard/pkg/domain"
	dErrors "voxguard/pkg/domain-errors"
	txcontext "voxguard/pkg/platform/tx"
)

// ConsentStoreTx provides a transactional boundary for consent store mutations.
// Implementations may wrap a database transaction or, in-memory, a sharded lock.
type ConsentStoreTx interface {
	RunInTx(ctx context.Context, subject domain.SubjectHash, fn func(ctx context.Context, store Store) error) error
}

// shardedConsentTx serializes mutations per subject. Subjects are spread over
// a fixed number of mutex shards by FNV-1a hash.
const numConsentShards = 128

const defaultConsentTxTimeout = 5 * time.Second

type shardedConsentTx struct {
	shards  [numConsentShards]sync.Mutex
	store   Store
	timeout time.Duration
}

// NewShardedTx returns the in-memory transaction boundary.
func NewShardedTx(store Store, timeout time.Duration) ConsentStoreTx {
	return &shardedConsentTx{store: store, timeout: timeout}
}

func (t *shardedConsentTx) RunInTx(ctx context.Context, subject domain.SubjectHash, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultConsentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashConsentString(subject.String()) % numConsentShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

func hashConsentString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// sqlConsentTx runs fn inside a database transaction carried on ctx.
type sqlConsentTx struct {
	db    *sql.DB
	store Store
}

// NewSQLTx returns a transaction boundary backed by db. store must read its
// executor from the context.
func NewSQLTx(db *sql.DB, store Store) ConsentStoreTx {
	return &sqlConsentTx{db: db, store: store}
}

func (t *sqlConsentTx) RunInTx(ctx context.Context, _ domain.SubjectHash, fn func(ctx context.Context, store Store) error) error {
	return txcontext.Run(ctx, t.db, func(ctx context.Context) error {
		return fn(ctx, t.store)
	})
}
