package service

import (
	"context"
	"time"

	"filegov/internal/files/store"
	dErrors "filegov/pkg/domain-errors"
)

// TxStores are the stores bound to one transaction.
type TxStores struct {
	Files FileStore
	Trash TrashStore
}

// StoreTx runs a unit of work against the live file store and the trash
// together. Everything fn writes commits or rolls back as one.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

const defaultTxTimeout = 5 * time.Second

type inMemoryTx struct {
	store   *store.InMemoryStore
	timeout time.Duration
}

// NewInMemoryTx adapts the in-memory files store. Transactions serialize on
// the store's write lock and roll back from a snapshot.
func NewInMemoryTx(s *store.InMemoryStore) StoreTx {
	return &inMemoryTx{store: s, timeout: defaultTxTimeout}
}

func (t *inMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.store.RunInTx(ctx, func(ctx context.Context, tx *store.InMemoryStore) error {
		if err := ctx.Err(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
		return fn(ctx, TxStores{Files: tx, Trash: tx})
	})
}
