// Package tx carries a SQL transaction through the context so the report,
// user, and audit postgres stores join the moderation decision transaction
// without changing their signatures.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
// The transaction runner calls this once per decision; stores never do.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts the SQL transaction from context. Stores fall back to their
// pool when ok is false.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}
