// Package tx carries a database transaction through a context so stores can
// join the lifecycle transaction opened by the service layer.
package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

type ctxKey struct{}
type hooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context) error
}

// WithTx returns ctx carrying tx and an empty set of commit hooks. A nil tx
// leaves ctx unchanged.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxKey{}, tx)
	return context.WithValue(ctx, hooksKey{}, &commitHooks{})
}

// From returns the transaction stored by WithTx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// AfterCommit registers fn to run once the transaction in ctx commits. It
// reports false when ctx carries no transaction; the caller then runs fn
// itself.
func AfterCommit(ctx context.Context, fn func(context.Context) error) bool {
	h, ok := ctx.Value(hooksKey{}).(*commitHooks)
	if !ok {
		return false
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
	return true
}

// RunCommitHooks runs every hook registered on txCtx in order and joins
// their errors. Transaction owners call it after a successful commit.
func RunCommitHooks(txCtx context.Context, ctx context.Context) error {
	h, ok := txCtx.Value(hooksKey{}).(*commitHooks)
	if !ok {
		return nil
	}
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	var errs []error
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
