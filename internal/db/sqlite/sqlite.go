package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/slok/ukit/internal/db"
	"github.com/slok/ukit/internal/log"
)

// BackendConfig is the configuration for the SQLite backend.
type BackendConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *BackendConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "db.SQLite"})
	return nil
}

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Backend is a SQLite implementation of db.Backend on database/sql.
//
// Named `:name` placeholders are rewritten to positional `?` markers,
// binding the parameter values in occurrence order (a repeated name
// binds its value once per occurrence).
type Backend struct {
	db     *sql.DB
	exec   executor
	logger log.Logger
}

// NewBackend creates a new SQLite backend, creating the database file
// when missing.
func NewBackend(ctx context.Context, cfg BackendConfig) (*Backend, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	cfg.Logger.Debugf("SQLite backend initialized at %s", cfg.DBPath)

	return &Backend{db: sqlDB, exec: sqlDB, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (b *Backend) Close() error { return b.db.Close() }

// DB returns the underlying database handle (e.g. for migrations).
func (b *Backend) DB() *sql.DB { return b.db }

// Field returns the first column of the first row.
func (b *Backend) Field(ctx context.Context, query string, params db.Params) (any, bool, error) {
	q, args, err := expand(query, params)
	if err != nil {
		return nil, false, err
	}

	rows, err := b.exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, false, fmt.Errorf("could not query field: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, false, fmt.Errorf("error iterating rows: %w", err)
		}
		return nil, false, nil
	}

	var value any
	if err := rows.Scan(&value); err != nil {
		return nil, false, fmt.Errorf("could not scan field: %w", err)
	}

	return value, true, nil
}

// Row returns the first row.
func (b *Backend) Row(ctx context.Context, query string, params db.Params) (db.Row, bool, error) {
	rows, err := b.queryRows(ctx, query, params, 1)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	return rows[0], true, nil
}

// Rows returns all rows.
func (b *Backend) Rows(ctx context.Context, query string, params db.Params) ([]db.Row, error) {
	return b.queryRows(ctx, query, params, -1)
}

// Insert executes an insert statement and returns the generated id.
func (b *Backend) Insert(ctx context.Context, query string, params db.Params) (int64, error) {
	result, err := b.execStatement(ctx, query, params)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("could not get last insert id: %w", err)
	}

	return id, nil
}

// Update executes a mutating statement and returns the affected row
// count.
func (b *Backend) Update(ctx context.Context, query string, params db.Params) (int64, error) {
	result, err := b.execStatement(ctx, query, params)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get rows affected: %w", err)
	}

	return affected, nil
}

// Transaction runs fn inside a transaction.
func (b *Backend) Transaction(ctx context.Context, fn func(ctx context.Context, tx db.Backend) error) error {
	if _, ok := b.exec.(*sql.Tx); ok {
		return fmt.Errorf("nested transactions are not supported")
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit.

	txBackend := &Backend{db: b.db, exec: tx, logger: b.logger}
	if err := fn(ctx, txBackend); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

func (b *Backend) execStatement(ctx context.Context, query string, params db.Params) (sql.Result, error) {
	q, args, err := expand(query, params)
	if err != nil {
		return nil, err
	}

	result, err := b.exec.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not execute statement: %w", err)
	}

	return result, nil
}

func (b *Backend) queryRows(ctx context.Context, query string, params db.Params, limit int) ([]db.Row, error) {
	q, args, err := expand(query, params)
	if err != nil {
		return nil, err
	}

	rows, err := b.exec.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query rows: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("could not get columns: %w", err)
	}

	var results []db.Row
	for rows.Next() && (limit < 0 || len(results) < limit) {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}

		row := make(db.Row, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// expand rewrites named placeholders to `?` markers, collecting the
// bound values in occurrence order. A name missing from params binds
// NULL.
func expand(query string, params db.Params) (string, []any, error) {
	args := []any{}
	q, err := db.ExpandNamedParams(query, func(name string) (string, error) {
		args = append(args, params[name])
		return "?", nil
	})
	if err != nil {
		return "", nil, err
	}

	return q, args, nil
}
