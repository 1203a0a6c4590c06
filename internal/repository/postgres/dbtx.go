package postgres

import (
	"context"
	"database/sql"
)

// DBTX is the subset of sqlx satisfied by both *sqlx.DB and *sqlx.Tx.
// The run registry takes it instead of a concrete connection so tests can run
// every statement inside one transaction and roll it back instead of cleaning
// up rows.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
