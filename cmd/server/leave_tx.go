package main

import (
	"context"
	"database/sql"
	"log/slog"

	"medleave/internal/leave"
	dErrors "medleave/pkg/domain-errors"
	txcontext "medleave/pkg/platform/tx"
)

// sqlStoreTx runs a unit of work inside a database transaction. The open
// *sql.Tx travels through the derived context; the stores pick it up and
// route their statements through it.
type sqlStoreTx struct {
	db     *sql.DB
	store  leave.Store
	logger *slog.Logger
}

func newSQLStoreTx(db *sql.DB, store leave.Store, logger *slog.Logger) *sqlStoreTx {
	return &sqlStoreTx{db: db, store: store, logger: logger}
}

func (t *sqlStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store leave.Store) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(txcontext.WithTx(ctx, tx), t.store); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			t.logger.ErrorContext(ctx, "transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
