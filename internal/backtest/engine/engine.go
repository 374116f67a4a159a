package engine

import (
	"context"
	"time"

	"github.com/mysingle-lab/quant-backtest/internal/types"
)

// Lifecycle callback types for backtest phases.
// Callbacks with an error return can abort execution by returning an error.

// OnRunStartCallback is called once the run is marked RUNNING, before the
// first simulated step. totalSteps is the number of steps the loop will walk.
type OnRunStartCallback func(runID string, totalSteps int) error

// OnStepCallback is called after each simulated step.
type OnStepCallback func(current int, total int) error

// OnRunEndCallback is called when the run reaches a terminal status
// (always called, also on failure).
type OnRunEndCallback func(runID string, status types.RunStatus)

// LifecycleCallbacks holds the lifecycle callbacks for the backtest engine.
// All fields are pointers; nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart *OnRunStartCallback
	OnStep     *OnStepCallback
	OnRunEnd   *OnRunEndCallback
}

// DataProvider supplies daily bars for one symbol over a date range. It must
// return an empty slice, not an error, when the range simply has no data;
// errors are reserved for transport failures.
type DataProvider interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
}

// RunStore is the primary persistence boundary of the engine. It is touched
// only at run boundaries; trades are buffered in memory during the loop and
// flushed once at the end.
type RunStore interface {
	SaveRun(ctx context.Context, run *types.BacktestRun) error
	// LoadRun returns the run or a coded not-found error.
	LoadRun(ctx context.Context, id string) (*types.BacktestRun, error)
	SaveExecution(ctx context.Context, execution *types.Execution) error
}

// ResultCache receives summarized results for fast lookup. Every call is
// individually fault tolerant: a cache failure is logged and never fails
// the run.
type ResultCache interface {
	SaveResultSummary(ctx context.Context, run *types.BacktestRun, execution *types.Execution) error
}

// Engine executes backtest runs end to end.
type Engine interface {
	// Execute drives the run with the given id through its full lifecycle,
	// PENDING to RUNNING to COMPLETED or FAILED, and returns the execution
	// record. The context cancels the simulation between steps.
	Execute(ctx context.Context, runID string, callbacks LifecycleCallbacks) (*types.Execution, error)
}
