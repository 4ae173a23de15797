package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	backend Backend
}

var _ Store = (*SQLStore)(nil)

// Open connects to the selected backend. For sqlite an empty connStr
// means an in-memory database; callers that want a file pass its path.
func Open(backend Backend, connStr string) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch backend {
	case SQLiteBackend:
		if connStr == "" {
			connStr = ":memory:"
		}
		db, err = sql.Open("sqlite", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// A single connection keeps in-memory databases alive and
		// avoids SQLITE_BUSY on concurrent writers.
		db.SetMaxOpenConns(1)

	case PostgreSQLBackend:
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLStore{db: db, backend: backend}, nil
}

// Backend reports which engine the store is connected to.
func (s *SQLStore) Backend() Backend { return s.backend }

// Execute runs one statement. Statements that return rows (SELECT,
// WITH, PRAGMA, or anything with RETURNING) yield Rows; everything
// else yields RowsAffected and, on sqlite, LastInsertID.
func (s *SQLStore) Execute(ctx context.Context, query string, params ...any) (Result, error) {
	query = s.rewritePlaceholders(query)

	if returnsRows(query) {
		rows, err := s.db.QueryContext(ctx, query, params...)
		if err != nil {
			return Result{}, fmt.Errorf("query failed: %w", err)
		}
		defer func() { _ = rows.Close() }()
		collected, err := collectRows(rows)
		if err != nil {
			return Result{}, err
		}
		return Result{Rows: collected}, nil
	}

	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return Result{}, fmt.Errorf("exec failed: %w", err)
	}
	return execResult(res), nil
}

// Batch runs all statements inside one transaction. Any failure rolls
// the whole batch back and no results are returned.
func (s *SQLStore) Batch(ctx context.Context, stmts []Statement) ([]Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	results := make([]Result, 0, len(stmts))
	for i, stmt := range stmts {
		query := s.rewritePlaceholders(stmt.SQL)

		if returnsRows(query) {
			rows, err := tx.QueryContext(ctx, query, stmt.Params...)
			if err != nil {
				_ = tx.Rollback()
				return nil, fmt.Errorf("batch statement %d failed: %w", i, err)
			}
			collected, err := collectRows(rows)
			_ = rows.Close()
			if err != nil {
				_ = tx.Rollback()
				return nil, fmt.Errorf("batch statement %d failed: %w", i, err)
			}
			results = append(results, Result{Rows: collected})
			continue
		}

		res, err := tx.ExecContext(ctx, query, stmt.Params...)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("batch statement %d failed: %w", i, err)
		}
		results = append(results, execResult(res))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return results, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rewritePlaceholders converts `?` placeholders to the `$N` form pgx
// expects. Question marks inside string literals are left alone.
func (s *SQLStore) rewritePlaceholders(query string) string {
	if s.backend != PostgreSQLBackend || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// returnsRows decides Query vs Exec from the statement's shape.
func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "PRAGMA", "EXPLAIN":
		return true
	}
	return strings.Contains(strings.ToUpper(query), " RETURNING ")
}

func execResult(res sql.Result) Result {
	affected, _ := res.RowsAffected()
	// Not supported on PostgreSQL; the pgx stdlib driver returns an
	// error which we deliberately discard.
	last, _ := res.LastInsertId()
	return Result{RowsAffected: affected, LastInsertID: last}
}

func collectRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}
