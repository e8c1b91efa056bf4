package postgres

import (
	"context"
	"database/sql"
	"time"

	dErrors "processguard/pkg/domain-errors"
	txcontext "processguard/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Tx runs a callback inside a database transaction carried in the context.
// Stores pick it up through pkg/platform/tx and may defer work until after
// commit with txcontext.AfterCommit.
type Tx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTx(db *sql.DB) *Tx {
	return &Tx{db: db, timeout: defaultTxTimeout}
}

func (t *Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txCtx := txcontext.WithTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	// The write is durable here; a hook failure still fails the call.
	if err := txcontext.RunCommitHooks(txCtx, ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "post-commit step failed")
	}
	return nil
}
