package service

import (
	"context"
	"time"

	filesservice "filegov/internal/files/service"
	filestore "filegov/internal/files/store"
	govmetrics "filegov/internal/governance/metrics"
	"filegov/internal/governance/store"
	dErrors "filegov/pkg/domain-errors"
	platformsync "filegov/pkg/platform/sync"
)

// TxStores are the stores bound to one transaction. Request writes go last
// so a failed side effect never leaves a terminal request behind.
type TxStores struct {
	Requests RequestStore
	Files    filesservice.FileStore
	Trash    filesservice.TrashStore
}

// StoreTx runs a request transition and its side effect as one unit.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

const defaultTxTimeout = 5 * time.Second

type txKey struct{}

// withTxKey names the request a transaction works on, so the in-memory
// runner can lock just that request's shard.
func withTxKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, txKey{}, key)
}

func txKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(txKey{}).(string)
	return key
}

type inMemoryTx struct {
	locks    *platformsync.ShardedMutex
	requests *store.InMemoryStore
	files    *filestore.InMemoryStore
	timeout  time.Duration
	metrics  *govmetrics.Metrics
}

// NewInMemoryTx composes the in-memory stores: a sharded lock per request
// id, then the files store's own transaction for rollback of side effects.
func NewInMemoryTx(requests *store.InMemoryStore, files *filestore.InMemoryStore, m *govmetrics.Metrics) StoreTx {
	return &inMemoryTx{
		locks:    platformsync.NewShardedMutex(0),
		requests: requests,
		files:    files,
		timeout:  defaultTxTimeout,
		metrics:  m,
	}
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

	key := txKeyFrom(ctx)
	lockStart := time.Now()
	t.locks.Lock(key)
	if t.metrics != nil {
		t.metrics.ObserveLockWait(time.Since(lockStart).Seconds())
	}
	defer t.locks.Unlock(key)

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return t.files.RunInTx(ctx, func(ctx context.Context, tx *filestore.InMemoryStore) error {
		return fn(ctx, TxStores{Requests: t.requests, Files: tx, Trash: tx})
	})
}
