package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/ukit/internal/db"
	dbsqlite "github.com/slok/ukit/internal/db/sqlite"
	"github.com/slok/ukit/internal/log"
	"github.com/slok/ukit/internal/model"
	"github.com/slok/ukit/internal/storage"
	"github.com/slok/ukit/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository, built on
// the db toolkit's named-parameter engine.
type Repository struct {
	db      *db.Database
	backend *dbsqlite.Backend
	logger  log.Logger
}

// NewRepository creates a new SQLite repository, running the schema
// migrations.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := dbsqlite.NewBackend(ctx, dbsqlite.BackendConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create backend: %w", err)
	}

	migrator, err := migrations.NewMigrator(backend.DB(), cfg.Logger)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	database, err := db.NewDatabase(db.DatabaseConfig{Backend: backend, Logger: cfg.Logger})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("could not create database: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: database, backend: backend, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.backend.Close() }

// CreateRun creates a new run in the repository.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	// Run ids are app-generated ULIDs inserted as a plain column, the
	// generated key of the table is SQLite's implicit rowid.
	_, err := r.db.InsertObject(ctx, "runs", runToRow(run), db.WithPrimaryKey("rowid"))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := db.RowAs(ctx, r.db, `
		select id, pipeline, status, concurrency, error, created_at, started_at, finished_at
		from runs
		where id = :id
	`, db.Params{"id": id}, runFromRow)
	if err != nil {
		return nil, fmt.Errorf("could not query run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	return run, nil
}

// ListRuns returns runs matching the filter, newest first.
func (r *Repository) ListRuns(ctx context.Context, filter storage.RunFilter) ([]model.Run, error) {
	query := `
		select id, pipeline, status, concurrency, error, created_at, started_at, finished_at
		from runs
	`
	params := db.Params{}
	if filter.Status != nil {
		query += " where status = :status"
		params["status"] = string(*filter.Status)
	}
	query += " order by created_at desc, id desc"

	runs, err := db.RowsAs(ctx, r.db, query, params, runFromRow)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}

	return runs, nil
}

// UpdateRun updates an existing run.
func (r *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	affected, err := r.db.Update(ctx, `
		update runs
		set status = :status, error = :error, started_at = :started_at, finished_at = :finished_at
		where id = :id
	`, db.Params{
		"status":      string(run.Status),
		"error":       run.Error,
		"started_at":  unixOrNil(run.StartedAt),
		"finished_at": unixOrNil(run.FinishedAt),
		"id":          run.ID,
	})
	if err != nil {
		return fmt.Errorf("could not update run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated run in repository: %s", run.ID)
	return nil
}

// DeleteRun deletes a run and all its steps.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	err := r.db.Transaction(ctx, func(ctx context.Context, tx *db.Database) error {
		if _, err := tx.Delete(ctx, "delete from steps where run_id = :id", db.Params{"id": id}); err != nil {
			return fmt.Errorf("could not delete steps: %w", err)
		}

		affected, err := tx.Delete(ctx, "delete from runs where id = :id", db.Params{"id": id})
		if err != nil {
			return fmt.Errorf("could not delete run: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debugf("Deleted run from repository: %s", id)
	return nil
}

// CreateSteps creates steps in the repository.
func (r *Repository) CreateSteps(ctx context.Context, steps []model.Step) error {
	if len(steps) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(ctx context.Context, tx *db.Database) error {
		for _, step := range steps {
			_, err := tx.InsertObject(ctx, "steps", stepToRow(step), db.WithPrimaryKey("rowid"))
			if err != nil {
				if strings.Contains(err.Error(), "UNIQUE constraint failed: steps.") {
					return fmt.Errorf("step %s: %w", step.ID, model.ErrAlreadyExists)
				}
				return fmt.Errorf("could not insert step: %w", err)
			}
		}
		return nil
	})
}

// UpdateStep updates the mutable fields of an existing step.
func (r *Repository) UpdateStep(ctx context.Context, step model.Step) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *db.Database) error {
		count, err := db.FieldAs[int64](ctx, tx, "select count(*) from steps where id = :id", db.Params{"id": step.ID}, 0)
		if err != nil {
			return fmt.Errorf("could not check step: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("step %s: %w", step.ID, model.ErrNotFound)
		}

		err = tx.UpdateObject(ctx, "steps", step.ID, db.Row{
			"status":      string(step.Status),
			"error":       step.Error,
			"started_at":  unixOrNil(step.StartedAt),
			"finished_at": unixOrNil(step.FinishedAt),
		})
		if err != nil {
			return fmt.Errorf("could not update step: %w", err)
		}

		return nil
	})
}

// ListSteps returns the steps of a run ordered by sequence.
func (r *Repository) ListSteps(ctx context.Context, runID string) ([]model.Step, error) {
	steps, err := db.RowsAs(ctx, r.db, `
		select id, run_id, sequence, name, status, error, started_at, finished_at
		from steps
		where run_id = :run_id
		order by sequence
	`, db.Params{"run_id": runID}, stepFromRow)
	if err != nil {
		return nil, fmt.Errorf("could not query steps: %w", err)
	}

	return steps, nil
}

func runToRow(run model.Run) db.Row {
	return db.Row{
		"id":          run.ID,
		"pipeline":    run.Pipeline,
		"status":      string(run.Status),
		"concurrency": run.Concurrency,
		"error":       run.Error,
		"created_at":  run.CreatedAt.Unix(),
		"started_at":  unixOrNil(run.StartedAt),
		"finished_at": unixOrNil(run.FinishedAt),
	}
}

func runFromRow(row db.Row) (model.Run, error) {
	run := model.Run{}

	var err error
	run.ID, err = stringColumn(row, "id")
	if err != nil {
		return model.Run{}, err
	}
	run.Pipeline, err = stringColumn(row, "pipeline")
	if err != nil {
		return model.Run{}, err
	}
	status, err := stringColumn(row, "status")
	if err != nil {
		return model.Run{}, err
	}
	run.Status = model.RunStatus(status)
	concurrency, err := intColumn(row, "concurrency")
	if err != nil {
		return model.Run{}, err
	}
	run.Concurrency = int(concurrency)
	run.Error, err = stringColumn(row, "error")
	if err != nil {
		return model.Run{}, err
	}

	createdAt, err := intColumn(row, "created_at")
	if err != nil {
		return model.Run{}, err
	}
	run.CreatedAt = timeFromUnix(createdAt)
	run.StartedAt = timePtrColumn(row, "started_at")
	run.FinishedAt = timePtrColumn(row, "finished_at")

	return run, nil
}

func stepToRow(step model.Step) db.Row {
	return db.Row{
		"id":          step.ID,
		"run_id":      step.RunID,
		"sequence":    step.Sequence,
		"name":        step.Name,
		"status":      string(step.Status),
		"error":       step.Error,
		"started_at":  unixOrNil(step.StartedAt),
		"finished_at": unixOrNil(step.FinishedAt),
	}
}

func stepFromRow(row db.Row) (model.Step, error) {
	step := model.Step{}

	var err error
	step.ID, err = stringColumn(row, "id")
	if err != nil {
		return model.Step{}, err
	}
	step.RunID, err = stringColumn(row, "run_id")
	if err != nil {
		return model.Step{}, err
	}
	sequence, err := intColumn(row, "sequence")
	if err != nil {
		return model.Step{}, err
	}
	step.Sequence = int(sequence)
	step.Name, err = stringColumn(row, "name")
	if err != nil {
		return model.Step{}, err
	}
	status, err := stringColumn(row, "status")
	if err != nil {
		return model.Step{}, err
	}
	step.Status = model.StepStatus(status)
	step.Error, err = stringColumn(row, "error")
	if err != nil {
		return model.Step{}, err
	}
	step.StartedAt = timePtrColumn(row, "started_at")
	step.FinishedAt = timePtrColumn(row, "finished_at")

	return step, nil
}

func stringColumn(row db.Row, column string) (string, error) {
	value, ok := row[column].(string)
	if !ok {
		return "", fmt.Errorf("column %s is not a string (got %T)", column, row[column])
	}
	return value, nil
}

func intColumn(row db.Row, column string) (int64, error) {
	value, ok := row[column].(int64)
	if !ok {
		return 0, fmt.Errorf("column %s is not an integer (got %T)", column, row[column])
	}
	return value, nil
}

func timePtrColumn(row db.Row, column string) *time.Time {
	value, ok := row[column].(int64)
	if !ok {
		return nil
	}
	t := timeFromUnix(value)
	return &t
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
