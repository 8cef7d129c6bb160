package repository

import (
	"context"
	"database/sql"
)

type txKey struct{}

// ContextWithTx returns ctx carrying tx. A nil tx leaves ctx unchanged.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom reports the transaction carried by ctx, if any.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// Using picks the transaction in ctx over the pool.
func Using(ctx context.Context, db *sql.DB) Conn {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}
