package moderation

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/platform/tx"
)

const defaultDecisionTxTimeout = 5 * time.Second

// TxRunner provides the transactional boundary for one decision. The status
// transition, trust adjustment, and audit append all run inside fn;
// implementations guarantee they commit or roll back together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemoryTxRunner serializes decisions behind a coarse lock for the in-memory
// stores, which have no rollback. It matches the atomicity the CAS on report
// status already gives: a lost race surfaces as a conflict inside fn.
type MemoryTxRunner struct {
	mu sync.Mutex
}

func NewMemoryTxRunner() *MemoryTxRunner {
	return &MemoryTxRunner{}
}

func (t *MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

// PostgresTxRunner wraps fn in a database transaction carried through the
// context, so every store call inside joins it.
type PostgresTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTxRunner(db *sql.DB) *PostgresTxRunner {
	return &PostgresTxRunner{db: db}
}

func (t *PostgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultDecisionTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}

	return dbTx.Commit()
}
