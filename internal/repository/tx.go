package repository

import (
	"context"
	"database/sql"
)

// queryer is the subset of *sql.DB and *sql.Tx the read helpers need, so the
// same code can load a movie inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction.  The transaction is rolled back when
// fn returns an error and committed otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return withTxOptions(ctx, db, nil, fn)
}

// withReadTx runs fn inside a read-only transaction so every statement in fn
// reads from the same snapshot.
func withReadTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return withTxOptions(ctx, db, &sql.TxOptions{ReadOnly: true}, fn)
}

func withTxOptions(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
