package lib

import (
	"context"

	"github.com/slok/ukit/internal/db"
	dbsqlite "github.com/slok/ukit/internal/db/sqlite"
)

// Params are the named parameters of a query, referenced as :name.
type Params = db.Params

// Row is a database row keyed by column name.
type Row = db.Row

// Backend executes SQL for a [Database]. Implement it to plug in a
// different database engine, or use [NewSQLiteBackend].
type Backend = db.Backend

// Database runs named-parameter SQL on top of a [Backend] and derives
// the usual access operations (fields, rows, object writes) from it.
type Database = db.Database

// DatabaseConfig is the configuration for a [Database].
type DatabaseConfig = db.DatabaseConfig

// ObjectOption customizes InsertObject and UpdateObject behavior.
type ObjectOption = db.ObjectOption

// UniqueCodeOption customizes UniqueCode behavior.
type UniqueCodeOption = db.UniqueCodeOption

// SQLiteBackendConfig is the configuration for the SQLite backend.
type SQLiteBackendConfig = dbsqlite.BackendConfig

// SQLiteBackend is a [Backend] on a SQLite database file.
type SQLiteBackend = dbsqlite.Backend

// NewDatabase creates a database on top of a backend.
func NewDatabase(cfg DatabaseConfig) (*Database, error) { return db.NewDatabase(cfg) }

// NewSQLiteBackend opens (creating if needed) a SQLite database file.
func NewSQLiteBackend(ctx context.Context, cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	return dbsqlite.NewBackend(ctx, cfg)
}

// ExpandNamedParams rewrites every :name placeholder in the query using
// the substitute callback, left to right.
func ExpandNamedParams(query string, substitute func(name string) (string, error)) (string, error) {
	return db.ExpandNamedParams(query, substitute)
}

// WithPrimaryKey sets the primary key column for object writes.
// Default: "id".
func WithPrimaryKey(name string) ObjectOption { return db.WithPrimaryKey(name) }

// WithIgnoredFields excludes columns from object writes.
func WithIgnoredFields(names ...string) ObjectOption { return db.WithIgnoredFields(names...) }

// WithMaxAttempts bounds the candidate generation of UniqueCode.
func WithMaxAttempts(n int) UniqueCodeOption { return db.WithMaxAttempts(n) }

// RowAs queries a single row and converts it with fn. Returns nil
// without error when there is no row.
func RowAs[T any](ctx context.Context, d *Database, query string, params Params, fn func(Row) (T, error)) (*T, error) {
	return db.RowAs(ctx, d, query, params, fn)
}

// RowsAs queries rows and converts each one with fn.
func RowsAs[T any](ctx context.Context, d *Database, query string, params Params, fn func(Row) (T, error)) ([]T, error) {
	return db.RowsAs(ctx, d, query, params, fn)
}

// FieldAs queries a single value asserting its type. Returns def when
// the query yields no row.
func FieldAs[T any](ctx context.Context, d *Database, query string, params Params, def T) (T, error) {
	return db.FieldAs(ctx, d, query, params, def)
}
