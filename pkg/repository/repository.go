// Package repository holds the small set of database/sql helpers shared by
// the Postgres stores: typed row scanning, context-carried transactions and
// constraint error mapping.
package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn is the statement surface shared by *sql.DB, *sql.Tx and *sql.Conn.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row into a T.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn inside a transaction that is also reachable from ctx via
// Using, so every store called by fn joins it. When ctx already carries a
// transaction fn runs in it and the outer caller keeps commit ownership.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) (T, error)) (result T, err error) {
	if tx, ok := TxFrom(ctx); ok {
		return fn(ctx, tx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if result, err = fn(ContextWithTx(ctx, tx), tx); err != nil {
		return result, err
	}
	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// QueryOne scans the single row returned by query. A missing row surfaces
// as sql.ErrNoRows from scan.
func QueryOne[T any](ctx context.Context, c Conn, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(c.QueryRowContext(ctx, query, args...))
}

// QueryMany scans every row returned by query. No rows yields an empty,
// non-nil slice so handlers encode [] rather than null.
func QueryMany[T any](ctx context.Context, c Conn, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ExecExpectOne runs a statement that must touch exactly one row and
// reports sql.ErrNoRows when it touched none.
func ExecExpectOne(ctx context.Context, c Conn, query string, args ...any) error {
	res, err := c.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	switch n, err := res.RowsAffected(); {
	case err != nil:
		return err
	case n == 0:
		return sql.ErrNoRows
	}
	return nil
}
