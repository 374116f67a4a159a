package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// SQLiteStore persists runs and executions in a sqlite database. The full
// document is stored as a JSON payload next to the handful of columns that
// get queried, so the schema does not chase the run struct.
type SQLiteStore struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, l *logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to open sqlite database at %s", path)
	}

	s := &SQLiteStore{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: l,
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS backtests (
			id TEXT PRIMARY KEY,
			name TEXT,
			status TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			payload TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create backtests table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			backtest_id TEXT,
			status TEXT,
			created_at TIMESTAMP,
			payload TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create executions table", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_executions_backtest ON executions (backtest_id)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create executions index", err)
	}

	return nil
}

// SaveRun upserts the run document.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *types.BacktestRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to marshal run %s", run.ID)
	}

	query := s.sq.
		Replace("backtests").
		Columns("id", "name", "status", "created_at", "updated_at", "payload").
		Values(run.ID, run.Name, string(run.Status), run.CreatedAt, run.UpdatedAt, string(payload))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, "failed to build run upsert", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to save run %s", run.ID)
	}

	return nil
}

// LoadRun returns the run, or nil without error when it does not exist.
func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (*types.BacktestRun, error) {
	query := s.sq.
		Select("payload").
		From("backtests").
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to build run query", err)
	}

	var payload string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load run %s", id)
	}

	var run types.BacktestRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to unmarshal run %s", id)
	}

	return &run, nil
}

// ListRuns returns every run, most recently created first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]types.BacktestRun, error) {
	query := s.sq.
		Select("payload").
		From("backtests").
		OrderBy("created_at DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to build runs query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []types.BacktestRun

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to scan run row", err)
		}

		var run types.BacktestRun
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to unmarshal run row", err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// DeleteRun removes a run and its executions.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	deleteExecutions := s.sq.Delete("executions").Where(squirrel.Eq{"backtest_id": id})

	sqlStr, args, err := deleteExecutions.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, "failed to build executions delete", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to delete executions of run %s", id)
	}

	deleteRun := s.sq.Delete("backtests").Where(squirrel.Eq{"id": id})

	sqlStr, args, err = deleteRun.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, "failed to build run delete", err)
	}

	result, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to delete run %s", id)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id)
	}

	return nil
}

// SaveExecution upserts the execution document.
func (s *SQLiteStore) SaveExecution(ctx context.Context, execution *types.Execution) error {
	payload, err := json.Marshal(execution)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to marshal execution %s", execution.ID)
	}

	query := s.sq.
		Replace("executions").
		Columns("id", "backtest_id", "status", "created_at", "payload").
		Values(execution.ID, execution.RunID, string(execution.Status), execution.CreatedAt, string(payload))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, "failed to build execution upsert", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeSaveFailed, err, "failed to save execution %s", execution.ID)
	}

	return nil
}

// LoadExecution returns the execution, or nil without error when missing.
func (s *SQLiteStore) LoadExecution(ctx context.Context, id string) (*types.Execution, error) {
	query := s.sq.
		Select("payload").
		From("executions").
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to build execution query", err)
	}

	var payload string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to load execution %s", id)
	}

	var execution types.Execution
	if err := json.Unmarshal([]byte(payload), &execution); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to unmarshal execution %s", id)
	}

	return &execution, nil
}

// ListExecutions returns the executions of one run, oldest first.
func (s *SQLiteStore) ListExecutions(ctx context.Context, runID string) ([]types.Execution, error) {
	query := s.sq.
		Select("payload").
		From("executions").
		Where(squirrel.Eq{"backtest_id": runID}).
		OrderBy("created_at ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to build executions query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeLoadFailed, err, "failed to list executions of run %s", runID)
	}
	defer rows.Close()

	var executions []types.Execution

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to scan execution row", err)
		}

		var execution types.Execution
		if err := json.Unmarshal([]byte(payload), &execution); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLoadFailed, "failed to unmarshal execution row", err)
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
