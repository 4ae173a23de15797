// Package store provides the storage abstraction the rest of the
// pipeline runs on: a small execute/batch/close contract over SQL,
// with sqlite and PostgreSQL backends.
package store

import (
	"context"
	"fmt"
)

// Backend selects the SQL engine behind a store.
type Backend string

const (
	// SQLiteBackend is the default embedded engine (modernc, no cgo).
	SQLiteBackend Backend = "sqlite"
	// PostgreSQLBackend targets a PostgreSQL server via pgx.
	PostgreSQLBackend Backend = "postgresql"
)

// ParseBackend validates a backend name from config or flags.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case SQLiteBackend, PostgreSQLBackend:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("unsupported database backend %q (want sqlite or postgresql)", s)
	}
}

// Row is one result row keyed by column name. Text columns come back
// as string, integers as int64, and NULL as nil.
type Row map[string]any

// Result is the outcome of a single statement. Rows is populated for
// statements that return rows; RowsAffected and LastInsertID for those
// that do not. LastInsertID is zero on backends without the concept.
type Result struct {
	Rows         []Row
	RowsAffected int64
	LastInsertID int64
}

// Statement pairs SQL text with its positional parameters, using `?`
// placeholders regardless of backend.
type Statement struct {
	SQL    string
	Params []any
}

// Store is the contract handed to the query layer, plugins, importers
// and the engine. All writes that must be atomic go through Batch,
// which runs its statements inside a single transaction.
type Store interface {
	Execute(ctx context.Context, sql string, params ...any) (Result, error)
	Batch(ctx context.Context, stmts []Statement) ([]Result, error)
	Close() error
}
