package main

import (
	"context"
	"database/sql"
	"time"

	filesservice "filegov/internal/files/service"
	filestore "filegov/internal/files/store"
	dErrors "filegov/pkg/domain-errors"
)

const defaultFilesTxTimeout = 5 * time.Second

type filesPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newFilesPostgresTx(db *sql.DB) *filesPostgresTx {
	return &filesPostgresTx{db: db}
}

func (t *filesPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores filesservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultFilesTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	store := filestore.NewPostgresTx(tx)
	if err := fn(ctx, filesservice.TxStores{Files: store, Trash: store}); err != nil {
		return err
	}

	return tx.Commit()
}
