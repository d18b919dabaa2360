package main

import (
	"context"
	"database/sql"
	"time"

	filestore "filegov/internal/files/store"
	govservice "filegov/internal/governance/service"
	govstore "filegov/internal/governance/store"
	dErrors "filegov/pkg/domain-errors"
)

const defaultGovernanceTxTimeout = 5 * time.Second

// governancePostgresTx binds the request, file and trash stores to one
// transaction. The request row lock taken by FindByID serializes resolvers.
type governancePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newGovernancePostgresTx(db *sql.DB) *governancePostgresTx {
	return &governancePostgresTx{db: db}
}

func (t *governancePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores govservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultGovernanceTxTimeout
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

	files := filestore.NewPostgresTx(tx)
	stores := govservice.TxStores{
		Requests: govstore.NewPostgresTx(tx),
		Files:    files,
		Trash:    files,
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	return tx.Commit()
}
