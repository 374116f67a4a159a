// Package store holds the persistence layer: a sqlite-backed primary store
// for runs and executions, and a duckdb-backed analytical cache for bar data
// and result summaries.
package store

import (
	"context"

	"github.com/mysingle-lab/quant-backtest/internal/types"
)

// Store is the primary persistence boundary. It is a superset of the
// engine's RunStore contract, adding the listing and deletion operations the
// API surface needs.
type Store interface {
	SaveRun(ctx context.Context, run *types.BacktestRun) error
	LoadRun(ctx context.Context, id string) (*types.BacktestRun, error)
	ListRuns(ctx context.Context) ([]types.BacktestRun, error)
	DeleteRun(ctx context.Context, id string) error

	SaveExecution(ctx context.Context, execution *types.Execution) error
	LoadExecution(ctx context.Context, id string) (*types.Execution, error)
	ListExecutions(ctx context.Context, runID string) ([]types.Execution, error)

	Close() error
}
