package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Backend is the set of primitives a concrete database driver must
// implement. Everything else in this package is derived from these.
//
// Queries use `:name` placeholders (see ExpandNamedParams), the backend
// decides how to bind them. Backend errors propagate unchanged, absence
// of results is reported through the found flag, not an error.
type Backend interface {
	// Field returns the first column of the first row of the query.
	Field(ctx context.Context, query string, params Params) (value any, found bool, err error)
	// Row returns the first row of the query.
	Row(ctx context.Context, query string, params Params) (row Row, found bool, err error)
	// Rows returns all the rows of the query.
	Rows(ctx context.Context, query string, params Params) ([]Row, error)
	// Insert executes an insert statement and returns the generated id
	// (0 when the statement generated none).
	Insert(ctx context.Context, query string, params Params) (id int64, err error)
	// Update executes a mutating statement and returns the affected row
	// count.
	Update(ctx context.Context, query string, params Params) (affected int64, err error)
	// Transaction runs fn inside a transaction, committing when it
	// returns nil and rolling back otherwise. Whatever fn returns
	// propagates unchanged.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error
}

// DatabaseConfig is the configuration for a Database.
type DatabaseConfig struct {
	Backend Backend
	Logger  log.Logger
}

func (c *DatabaseConfig) defaults() error {
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "db.Database"})

	return nil
}

// Database implements the ergonomic operations every backend shares,
// delegating statement execution to the Backend.
type Database struct {
	backend Backend
	logger  log.Logger
}

// NewDatabase creates a new Database on top of a backend.
func NewDatabase(cfg DatabaseConfig) (*Database, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Database{
		backend: cfg.Backend,
		logger:  cfg.Logger,
	}, nil
}

// Backend returns the underlying backend.
func (d *Database) Backend() Backend { return d.backend }

// Field returns the first field of the query result, or the default
// value when the query yields nothing.
func (d *Database) Field(ctx context.Context, query string, params Params, def any) (any, error) {
	value, found, err := d.backend.Field(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !found || value == nil {
		return def, nil
	}

	return value, nil
}

// FieldOrFail returns the first field of the query result and fails when
// the query yields nothing.
func (d *Database) FieldOrFail(ctx context.Context, query string, params Params) (any, error) {
	value, found, err := d.backend.Field(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !found || value == nil {
		return nil, notFoundError(query, params)
	}

	return value, nil
}

// Row returns the first row of the query result, or nil when the query
// yields nothing.
func (d *Database) Row(ctx context.Context, query string, params Params) (Row, error) {
	row, found, err := d.backend.Row(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return row, nil
}

// RowOrFail returns the first row of the query result and fails when the
// query yields nothing.
func (d *Database) RowOrFail(ctx context.Context, query string, params Params) (Row, error) {
	row, found, err := d.backend.Row(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFoundError(query, params)
	}

	return row, nil
}

// Rows returns all the rows of the query result.
func (d *Database) Rows(ctx context.Context, query string, params Params) ([]Row, error) {
	return d.backend.Rows(ctx, query, params)
}

// Insert executes an insert statement and returns the generated id.
func (d *Database) Insert(ctx context.Context, query string, params Params) (int64, error) {
	return d.backend.Insert(ctx, query, params)
}

// Update executes a mutating statement and returns the affected row
// count.
func (d *Database) Update(ctx context.Context, query string, params Params) (int64, error) {
	return d.backend.Update(ctx, query, params)
}

// Delete executes a delete statement. Same semantics as Update.
func (d *Database) Delete(ctx context.Context, query string, params Params) (int64, error) {
	return d.backend.Update(ctx, query, params)
}

// Transaction runs fn inside a transaction, handing it a Database bound
// to the transactional backend.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Database) error) error {
	return d.backend.Transaction(ctx, func(ctx context.Context, tx Backend) error {
		return fn(ctx, &Database{backend: tx, logger: d.logger})
	})
}

// ObjectOption customizes InsertObject and UpdateObject.
type ObjectOption func(*objectOptions)

type objectOptions struct {
	primaryKey   string
	ignoreFields map[string]bool
}

// WithPrimaryKey overrides the primary key field name (default "id").
func WithPrimaryKey(name string) ObjectOption {
	return func(o *objectOptions) { o.primaryKey = name }
}

// WithIgnoredFields excludes fields from the generated statement.
func WithIgnoredFields(fields ...string) ObjectOption {
	return func(o *objectOptions) {
		for _, f := range fields {
			o.ignoreFields[f] = true
		}
	}
}

func newObjectOptions(opts []ObjectOption) objectOptions {
	o := objectOptions{primaryKey: "id", ignoreFields: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// InsertObject builds and executes an insert statement from the object's
// fields (minus the primary key and ignored fields).
//
// When the insert produces a generated id > 0 it returns a new object
// with the id merged in under the primary key name, the input object is
// never mutated. Otherwise it returns the input object unchanged.
func (d *Database) InsertObject(ctx context.Context, table string, data Row, opts ...ObjectOption) (Row, error) {
	o := newObjectOptions(opts)

	fields := assignableFields(data, o)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to insert: %w", model.ErrNotValid)
	}

	columns := ""
	placeholders := ""
	params := Params{}
	for i, field := range fields {
		if i > 0 {
			columns += ", "
			placeholders += ", "
		}
		columns += field
		placeholders += ":" + field
		params[field] = data[field]
	}

	query := fmt.Sprintf("insert into %s (%s) values (%s)", table, columns, placeholders)
	id, err := d.backend.Insert(ctx, query, params)
	if err != nil {
		return nil, err
	}

	if id <= 0 {
		return data, nil
	}

	result := make(Row, len(data)+1)
	for k, v := range data {
		result[k] = v
	}
	result[o.primaryKey] = id

	d.logger.Debugf("inserted object into %s with %s=%d", table, o.primaryKey, id)
	return result, nil
}

// UpdateObject builds and executes an update statement from the object's
// fields (minus the primary key and ignored fields), selecting the row
// by primary key value.
//
// When the object has zero assignable fields no statement is issued,
// this is a silent no-op and not an error.
func (d *Database) UpdateObject(ctx context.Context, table string, primaryValue any, data Row, opts ...ObjectOption) error {
	o := newObjectOptions(opts)

	fields := assignableFields(data, o)
	if len(fields) == 0 {
		return nil
	}

	assignments := ""
	params := Params{}
	for i, field := range fields {
		if i > 0 {
			assignments += ", "
		}
		assignments += field + " = :" + field
		params[field] = data[field]
	}
	params[o.primaryKey] = primaryValue

	query := fmt.Sprintf("update %s set %s where %s = :%s", table, assignments, o.primaryKey, o.primaryKey)
	_, err := d.backend.Update(ctx, query, params)
	if err != nil {
		return err
	}

	return nil
}

// assignableFields returns the object keys usable as columns, sorted so
// generated statements are deterministic.
func assignableFields(data Row, o objectOptions) []string {
	fields := make([]string, 0, len(data))
	for field := range data {
		if field == o.primaryKey || o.ignoreFields[field] {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return fields
}

func notFoundError(query string, params Params) error {
	return fmt.Errorf("no results for query %q (params %v): %w", query, params, model.ErrNotFound)
}

// FieldAs is a typed wrapper over Database.Field.
func FieldAs[T any](ctx context.Context, d *Database, query string, params Params, def T) (T, error) {
	var zero T

	value, found, err := d.backend.Field(ctx, query, params)
	if err != nil {
		return zero, err
	}
	if !found || value == nil {
		return def, nil
	}

	return assertType[T](value)
}

// FieldOrFailAs is a typed wrapper over Database.FieldOrFail.
func FieldOrFailAs[T any](ctx context.Context, d *Database, query string, params Params) (T, error) {
	var zero T

	value, found, err := d.backend.Field(ctx, query, params)
	if err != nil {
		return zero, err
	}
	if !found || value == nil {
		return zero, notFoundError(query, params)
	}

	return assertType[T](value)
}

// RowAs returns the first row converted with fn, or nil when the query
// yields nothing.
func RowAs[T any](ctx context.Context, d *Database, query string, params Params, fn func(Row) (T, error)) (*T, error) {
	row, found, err := d.backend.Row(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	result, err := fn(row)
	if err != nil {
		return nil, fmt.Errorf("could not convert row: %w", err)
	}

	return &result, nil
}

// RowOrFailAs returns the first row converted with fn and fails when the
// query yields nothing.
func RowOrFailAs[T any](ctx context.Context, d *Database, query string, params Params, fn func(Row) (T, error)) (T, error) {
	var zero T

	row, found, err := d.backend.Row(ctx, query, params)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, notFoundError(query, params)
	}

	result, err := fn(row)
	if err != nil {
		return zero, fmt.Errorf("could not convert row: %w", err)
	}

	return result, nil
}

// RowsAs returns all rows converted with fn.
func RowsAs[T any](ctx context.Context, d *Database, query string, params Params, fn func(Row) (T, error)) ([]T, error) {
	rows, err := d.backend.Rows(ctx, query, params)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(rows))
	for i, row := range rows {
		result, err := fn(row)
		if err != nil {
			return nil, fmt.Errorf("could not convert row %d: %w", i, err)
		}
		results = append(results, result)
	}

	return results, nil
}

func assertType[T any](value any) (T, error) {
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("field has type %T, expected %T: %w", value, zero, model.ErrNotValid)
	}
	return typed, nil
}
