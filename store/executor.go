// Package store executes CRUD and paginated search operations for one
// entity against any database/sql backend. SQL is built with
// huandu/go-sqlbuilder; constraint violations surface as tagged errors
// instead of raw driver errors.
package store

import (
	"context"
	"database/sql"

	"github.com/zeromicro/go-zero/core/logx"
)

// Executor wraps a sql.DB with statement logging.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates a new database executor.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Query executes a SELECT query and returns rows.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	logx.WithContext(ctx).Debugw("executing query", logx.Field("sql", query), logx.Field("args", args))
	return e.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a single-row SELECT query.
func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	logx.WithContext(ctx).Debugw("executing query", logx.Field("sql", query), logx.Field("args", args))
	return e.db.QueryRowContext(ctx, query, args...)
}

// Exec executes a non-SELECT query and returns the result.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	logx.WithContext(ctx).Debugw("executing statement", logx.Field("sql", query), logx.Field("args", args))
	return e.db.ExecContext(ctx, query, args...)
}

// Begin starts a transaction.
func (e *Executor) Begin(ctx context.Context) (*sql.Tx, error) {
	return e.db.BeginTx(ctx, nil)
}

// Close closes the database connection.
func (e *Executor) Close() error {
	return e.db.Close()
}
