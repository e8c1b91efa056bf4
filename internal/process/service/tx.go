package service

import (
	"context"
	"sync"
	"time"

	dErrors "processguard/pkg/domain-errors"
)

// defaultTxTimeout bounds a lifecycle transaction when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// StoreTx provides the transactional boundary for a lifecycle mutation and
// the notification it produces. Implementations may wrap a database
// transaction or, in-memory, a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// lockedTx serializes lifecycle calls behind a single mutex.
type lockedTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

func newLockedTx() *lockedTx {
	return &lockedTx{timeout: defaultTxTimeout}
}

func (t *lockedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
